package config

import (
	"path/filepath"
	"testing"

	"kestreldb/internal/fs"
)

func TestNewDefaults(t *testing.T) {
	cfg := New()

	if !cfg.LogEnabled {
		t.Error("logging should be enabled by default")
	}
	if cfg.LogArchive {
		t.Error("archival should be disabled by default")
	}
	if cfg.LogSegmentSize != DefaultLogSegmentSize {
		t.Errorf("segment size = %d, want %d", cfg.LogSegmentSize, DefaultLogSegmentSize)
	}
	if cfg.LogCompression != DefaultLogCompression {
		t.Errorf("compression = %s, want %s", cfg.LogCompression, DefaultLogCompression)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("KESTREL_LOG_ARCHIVE", "true")
	t.Setenv("KESTREL_LOG_SEGMENT_SIZE", "1048576")
	t.Setenv("KESTREL_LOG_COMPRESSION", "gzip")

	cfg := New()
	if !cfg.LogArchive {
		t.Error("KESTREL_LOG_ARCHIVE not honored")
	}
	if cfg.LogSegmentSize != 1048576 {
		t.Errorf("segment size = %d, want 1048576", cfg.LogSegmentSize)
	}
	if cfg.LogCompression != "gzip" {
		t.Errorf("compression = %s, want gzip", cfg.LogCompression)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"bad compression", func(c *Config) { c.LogCompression = "lzma" }, true},
		{"zero segment size", func(c *Config) { c.LogSegmentSize = 0 }, true},
		{"archive without logging", func(c *Config) { c.LogEnabled = false; c.LogArchive = true }, true},
		{"no compression", func(c *Config) { c.LogCompression = "none" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %t", err, tt.wantErr)
			}
		})
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	fs.SetFS(fs.NewMemMapFs())
	t.Cleanup(fs.ResetFS)

	cfg := New()
	cfg.Home = "/data/db"
	cfg.LogArchive = true
	cfg.LogCompression = "gzip"
	cfg.LogSegmentSize = 4 << 20

	if err := fs.MkdirAll(cfg.Home, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if ok, _ := fs.Exists(filepath.Join(cfg.Home, ConfigFileName)); !ok {
		t.Fatal("config file not written")
	}

	loaded := New()
	loaded.Home = cfg.Home
	if err := loaded.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !loaded.LogArchive || loaded.LogCompression != "gzip" || loaded.LogSegmentSize != 4<<20 {
		t.Errorf("round trip mismatch: %+v", loaded)
	}
}

func TestLoadMissingFileIsNoop(t *testing.T) {
	fs.SetFS(fs.NewMemMapFs())
	t.Cleanup(fs.ResetFS)

	cfg := New()
	cfg.Home = "/nowhere"
	if err := cfg.Load(); err != nil {
		t.Errorf("Load with no file should be a no-op, got %v", err)
	}
}
