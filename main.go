// kestrel — embedded storage engine tooling: schema, checkpoints, and
// hot backup of a Kestrel home directory.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"kestreldb/cmd"
	"kestreldb/internal/config"
	"kestreldb/internal/exitcode"
	"kestreldb/internal/logger"
)

// Build information (set by ldflags)
var (
	version   = "1.0.0"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	// Create context that cancels on interrupt
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg := config.New()
	cfg.Version = version
	cfg.BuildTime = buildTime
	cfg.GitCommit = gitCommit

	// Promote to debug level when the Debug flag is set
	logLevel := cfg.LogLevel
	if cfg.Debug && logLevel != "debug" {
		logLevel = "debug"
	}
	log := logger.New(logLevel, cfg.LogFormat)

	if err := cmd.Execute(ctx, cfg, log); err != nil {
		log.Error("command failed", "error", err)
		os.Exit(exitcode.ExitWithCode(err))
	}
}
