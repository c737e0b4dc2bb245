// Package cmd wires the kestrel CLI: engine lifecycle, schema and
// checkpoint management, and hot backup.
package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"kestreldb/internal/config"
	"kestreldb/internal/logger"
)

// Package-level configuration and logger, set by Execute before any
// command runs (avoids initialization cycles between command files)
var (
	cfg *config.Config
	log logger.Logger
)

var rootCmd = &cobra.Command{
	Use:   "kestrel",
	Short: "Kestrel embedded storage engine tooling",
	Long: `Manage a Kestrel engine home directory: create tables and indexes,
take checkpoints, and run hot backups while the engine stays open.

The home directory is selected with --home or KESTREL_HOME.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cfg.NoColor {
			logger.DisableColors()
		}
		return cfg.Validate()
	},
}

// Execute runs the CLI with the given configuration and logger
func Execute(ctx context.Context, c *config.Config, l logger.Logger) error {
	cfg = c
	log = l

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfg.Home, "home", cfg.Home, "Engine home directory")
	pf.BoolVar(&cfg.InMemory, "in-memory", cfg.InMemory, "Run without a durable home (backup unavailable)")
	pf.BoolVar(&cfg.LogEnabled, "log-enabled", cfg.LogEnabled, "Enable the write-ahead log")
	pf.BoolVar(&cfg.LogArchive, "log-archive", cfg.LogArchive, "Archive finished log segments")
	pf.StringVar(&cfg.LogArchiveDir, "log-archive-dir", cfg.LogArchiveDir, "Log archive directory (default <home>/archive)")
	pf.StringVar(&cfg.LogCompression, "log-compression", cfg.LogCompression, "Archive compression (none, gzip, zstd)")
	pf.Int64Var(&cfg.LogSegmentSize, "log-segment-size", cfg.LogSegmentSize, "Log segment rollover size in bytes")
	pf.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pf.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format (text, json)")
	pf.BoolVar(&cfg.Debug, "debug", cfg.Debug, "Enable debug output")
	pf.BoolVar(&cfg.NoColor, "no-color", cfg.NoColor, "Disable colored output")

	return rootCmd.ExecuteContext(ctx)
}
