package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"kestreldb/internal/engine"
	"kestreldb/internal/logger"
)

var checkpointCmd = &cobra.Command{
	Use:   "checkpoint",
	Short: "Create, list, and drop checkpoints",
}

var checkpointCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a durable checkpoint",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := engine.Open(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer conn.Close()

		id, err := conn.Checkpoint(cmd.Context())
		if err != nil {
			return err
		}
		logger.Success("Checkpoint %d created", id)
		return nil
	},
}

var checkpointListCmd = &cobra.Command{
	Use:   "list",
	Short: "List live checkpoints",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := engine.Open(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer conn.Close()

		live := conn.Checkpoints()
		if len(live) == 0 {
			logger.Info("No checkpoints")
			return nil
		}
		for _, id := range live {
			marker := ""
			if id == conn.MostRecentCheckpoint() {
				marker = " (most recent)"
			}
			fmt.Printf("  %d%s\n", id, marker)
		}
		return nil
	},
}

var checkpointDropCmd = &cobra.Command{
	Use:   "drop <id>",
	Short: "Drop a checkpoint",
	Long: `Drop a checkpoint by id. A checkpoint pinned by an open backup
cursor cannot be dropped until the cursor closes.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid checkpoint id %q", args[0])
		}

		conn, err := engine.Open(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer conn.Close()

		if err := conn.DropCheckpoint(id); err != nil {
			return err
		}
		logger.Success("Checkpoint %d dropped", id)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkpointCmd)
	checkpointCmd.AddCommand(checkpointCreateCmd)
	checkpointCmd.AddCommand(checkpointListCmd)
	checkpointCmd.AddCommand(checkpointDropCmd)
}
