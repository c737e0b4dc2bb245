// Package config holds engine configuration: the home directory layout,
// write-ahead-log settings, and output options for the CLI.
package config

import (
	"os"
	"strconv"
)

// Config holds all configuration options
type Config struct {
	// Version information
	Version   string
	BuildTime string
	GitCommit string

	// Engine home directory (where data, log, and config files live)
	Home string

	// In-memory homes have no files to copy and reject backup cursors
	InMemory bool

	// Write-ahead log options
	LogEnabled     bool   // Logging configured at all
	LogArchive     bool   // Automatic archival of finished segments
	LogArchiveDir  string // Archive destination (default: <home>/archive)
	LogCompression string // "none", "gzip", "zstd"
	LogSegmentSize int64  // Segment rollover size in bytes

	// Output options
	NoColor   bool
	Debug     bool
	LogLevel  string
	LogFormat string
}

// Defaults
const (
	DefaultLogSegmentSize = 16 * 1024 * 1024
	DefaultLogCompression = "zstd"
)

// New creates a configuration with defaults, honoring KESTREL_* environment
// variables the same way flags do
func New() *Config {
	cfg := &Config{
		Home:           envString("KESTREL_HOME", "."),
		LogEnabled:     envBool("KESTREL_LOG_ENABLED", true),
		LogArchive:     envBool("KESTREL_LOG_ARCHIVE", false),
		LogArchiveDir:  envString("KESTREL_LOG_ARCHIVE_DIR", ""),
		LogCompression: envString("KESTREL_LOG_COMPRESSION", DefaultLogCompression),
		LogSegmentSize: envInt64("KESTREL_LOG_SEGMENT_SIZE", DefaultLogSegmentSize),
		LogLevel:       envString("KESTREL_LOG_LEVEL", "info"),
		LogFormat:      envString("KESTREL_LOG_FORMAT", "text"),
	}
	return cfg
}

// Validate checks option combinations that cannot work
func (c *Config) Validate() error {
	switch c.LogCompression {
	case "none", "gzip", "zstd":
	default:
		return &InvalidOptionError{Option: "log.compression", Value: c.LogCompression}
	}
	if c.LogSegmentSize <= 0 {
		return &InvalidOptionError{Option: "log.segment_size", Value: strconv.FormatInt(c.LogSegmentSize, 10)}
	}
	if c.LogArchive && !c.LogEnabled {
		return &InvalidOptionError{Option: "log.archive", Value: "true", Reason: "requires log.enabled"}
	}
	return nil
}

// InvalidOptionError reports a configuration value the engine cannot accept
type InvalidOptionError struct {
	Option string
	Value  string
	Reason string
}

func (e *InvalidOptionError) Error() string {
	msg := "invalid configuration: " + e.Option + "=" + e.Value
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	return msg
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func envInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err == nil {
			return n
		}
	}
	return def
}
