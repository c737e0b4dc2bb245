package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"kestreldb/internal/config"
	"kestreldb/internal/logger"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Save and inspect per-home engine settings",
}

var configSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Persist the current log settings to the home directory",
	Long: `Write the current write-ahead-log settings to <home>/` + config.ConfigFileName + `
so later invocations pick them up without repeating the flags.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Save(); err != nil {
			return err
		}
		logger.Success("Settings saved to %s", cfg.Home)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the settings saved in the home directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		saved := config.New()
		saved.Home = cfg.Home
		if err := saved.Load(); err != nil {
			return err
		}
		logger.Header("Saved settings: %s", cfg.Home)
		logger.StatusLine("log.enabled", fmt.Sprintf("%t", saved.LogEnabled))
		logger.StatusLine("log.archive", fmt.Sprintf("%t", saved.LogArchive))
		if saved.LogArchiveDir != "" {
			logger.StatusLine("log.archive_dir", saved.LogArchiveDir)
		}
		logger.StatusLine("log.compression", saved.LogCompression)
		logger.StatusLine("log.segment_size", fmt.Sprintf("%d", saved.LogSegmentSize))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configSaveCmd)
	configCmd.AddCommand(configShowCmd)
}
