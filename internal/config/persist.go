package config

import (
	"bufio"
	"bytes"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"kestreldb/internal/fs"
)

// ConfigFileName is the per-home saved configuration
const ConfigFileName = ".kestreldb.conf"

// Save writes the persistable settings of a home to <home>/.kestreldb.conf
// in key=value form
func (c *Config) Save() error {
	var buf bytes.Buffer
	buf.WriteString("# kestreldb configuration (generated; edit with care)\n")
	fmt.Fprintf(&buf, "log.enabled=%t\n", c.LogEnabled)
	fmt.Fprintf(&buf, "log.archive=%t\n", c.LogArchive)
	if c.LogArchiveDir != "" {
		fmt.Fprintf(&buf, "log.archive_dir=%s\n", c.LogArchiveDir)
	}
	fmt.Fprintf(&buf, "log.compression=%s\n", c.LogCompression)
	fmt.Fprintf(&buf, "log.segment_size=%d\n", c.LogSegmentSize)

	path := filepath.Join(c.Home, ConfigFileName)
	return fs.WriteFile(path, buf.Bytes(), 0o644)
}

// Load overlays saved settings from <home>/.kestreldb.conf if present
func (c *Config) Load() error {
	path := filepath.Join(c.Home, ConfigFileName)
	ok, err := fs.Exists(path)
	if err != nil || !ok {
		return err
	}

	data, err := fs.ReadFile(path)
	if err != nil {
		return err
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case "log.enabled":
			if b, err := strconv.ParseBool(value); err == nil {
				c.LogEnabled = b
			}
		case "log.archive":
			if b, err := strconv.ParseBool(value); err == nil {
				c.LogArchive = b
			}
		case "log.archive_dir":
			c.LogArchiveDir = value
		case "log.compression":
			c.LogCompression = value
		case "log.segment_size":
			if n, err := strconv.ParseInt(value, 10, 64); err == nil {
				c.LogSegmentSize = n
			}
		}
	}
	return scanner.Err()
}
