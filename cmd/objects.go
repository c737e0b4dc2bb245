package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"kestreldb/internal/engine"
	"kestreldb/internal/logger"
)

var objectsCmd = &cobra.Command{
	Use:   "objects",
	Short: "Manage catalog objects",
}

var objectsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog objects in creation order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := engine.Open(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer conn.Close()

		return conn.ListObjects(cmd.Context(), func(name, config string) error {
			fmt.Printf("  %-40s %s\n", name, config)
			return nil
		})
	},
}

var createTableCmd = &cobra.Command{
	Use:   "create-table <name>",
	Short: "Create a table and its backing file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := engine.Open(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer conn.Close()

		if err := conn.CreateTable(cmd.Context(), args[0]); err != nil {
			return err
		}
		logger.Success("Table %s created", args[0])
		return nil
	},
}

var createIndexCmd = &cobra.Command{
	Use:   "create-index <table> <index>",
	Short: "Create an index on a table",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := engine.Open(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer conn.Close()

		if err := conn.CreateIndex(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		logger.Success("Index %s:%s created", args[0], args[1])
		return nil
	},
}

var dropTableCmd = &cobra.Command{
	Use:   "drop-table <name>",
	Short: "Drop a table, its indexes, and their backing files",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := engine.Open(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer conn.Close()

		if err := conn.DropTable(cmd.Context(), args[0]); err != nil {
			return err
		}
		logger.Success("Table %s dropped", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(objectsCmd)
	objectsCmd.AddCommand(objectsListCmd)
	objectsCmd.AddCommand(createTableCmd)
	objectsCmd.AddCommand(createIndexCmd)
	objectsCmd.AddCommand(dropTableCmd)
}
