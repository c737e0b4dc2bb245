package cmd

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/spf13/cobra"

	"kestreldb/internal/engine"
	"kestreldb/internal/logger"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show engine home status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := engine.Open(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer conn.Close()

		logger.Header("Kestrel engine status")
		logger.StatusLine("Home", conn.Home())
		logger.StatusLine("Logging", fmt.Sprintf("%t", conn.Log() != nil))
		if conn.Log() != nil {
			logger.StatusLine("Active log segment", fmt.Sprintf("%d", conn.Log().ActiveID()))
			logger.StatusLine("Log archival", fmt.Sprintf("%t", conn.Log().ArchivalEnabled()))
		}
		logger.StatusLine("Checkpoints", fmt.Sprintf("%d (most recent %d)",
			len(conn.Checkpoints()), conn.MostRecentCheckpoint()))
		logger.StatusLine("Backup active", fmt.Sprintf("%t", conn.BackupActive()))

		var objects int
		if err := conn.ListObjects(cmd.Context(), func(string, string) error {
			objects++
			return nil
		}); err != nil {
			return err
		}
		logger.StatusLine("Catalog objects", fmt.Sprintf("%d", objects))

		if usage, err := disk.Usage(conn.Home()); err == nil {
			logger.StatusLine("Volume free", fmt.Sprintf("%s of %s",
				humanize.Bytes(usage.Free), humanize.Bytes(usage.Total)))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
