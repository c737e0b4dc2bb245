package wal

import (
	"context"
	"testing"

	"kestreldb/internal/fs"
	"kestreldb/internal/logger"
)

func newTestManager(t *testing.T, cfg *Config) *Manager {
	t.Helper()
	fs.SetFS(fs.NewMemMapFs())
	t.Cleanup(fs.ResetFS)

	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Dir == "" {
		cfg.Dir = "/db"
	}
	if err := fs.MkdirAll(cfg.Dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	m := NewManager(cfg, logger.NewNullLogger())
	if err := m.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestSegmentNames(t *testing.T) {
	if got := SegmentName(7); got != "KestrelLog.0000000007" {
		t.Errorf("SegmentName(7) = %s", got)
	}

	tests := []struct {
		name string
		id   int64
		ok   bool
	}{
		{"KestrelLog.0000000001", 1, true},
		{"KestrelLog.0000000042.gz", 42, true},
		{"KestrelLog.0000000042.zst", 42, true},
		{"KestrelLog.x", 0, false},
		{"Kestrel.backup", 0, false},
		{"users.kv", 0, false},
	}
	for _, tt := range tests {
		id, ok := ParseSegmentID(tt.name)
		if ok != tt.ok || id != tt.id {
			t.Errorf("ParseSegmentID(%q) = %d, %t; want %d, %t", tt.name, id, ok, tt.id, tt.ok)
		}
	}
}

func TestAppendAndRotate(t *testing.T) {
	m := newTestManager(t, &Config{SegmentSize: 64})

	if m.ActiveID() != 1 {
		t.Fatalf("initial active id = %d", m.ActiveID())
	}

	// Two 40-byte records overflow a 64-byte segment and force rotation
	rec := make([]byte, 40)
	if err := m.Append(rec); err != nil {
		t.Fatalf("append 1: %v", err)
	}
	if err := m.Append(rec); err != nil {
		t.Fatalf("append 2: %v", err)
	}
	if m.ActiveID() != 2 {
		t.Errorf("active id after overflow = %d, want 2", m.ActiveID())
	}
}

func TestBackupFilesRotatesForActiveBackup(t *testing.T) {
	m := newTestManager(t, nil)

	if err := m.Append([]byte("record")); err != nil {
		t.Fatalf("append: %v", err)
	}

	before := m.ActiveID()
	files, maxID, err := m.BackupFiles(context.Background(), true)
	if err != nil {
		t.Fatalf("BackupFiles: %v", err)
	}

	if m.ActiveID() != before+1 {
		t.Errorf("active segment not rotated: %d -> %d", before, m.ActiveID())
	}
	if len(files) != 1 || files[0] != SegmentName(before) {
		t.Errorf("files = %v, want [%s]", files, SegmentName(before))
	}
	if maxID != before {
		t.Errorf("maxID = %d, want %d", maxID, before)
	}
}

func TestBackupFilesDuplicateSeesOnlyNewSegments(t *testing.T) {
	m := newTestManager(t, nil)

	// Primary gather fixes the boundary
	if _, _, err := m.BackupFiles(context.Background(), true); err != nil {
		t.Fatalf("primary gather: %v", err)
	}

	// Nothing new yet: duplicate list is empty
	files, _, err := m.BackupFiles(context.Background(), false)
	if err != nil {
		t.Fatalf("duplicate gather: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("duplicate files = %v, want none", files)
	}

	// Rotate twice: two newly finished segments appear
	id := m.ActiveID()
	if err := m.Rotate(); err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if err := m.Rotate(); err != nil {
		t.Fatalf("rotate: %v", err)
	}

	files, maxID, err := m.BackupFiles(context.Background(), false)
	if err != nil {
		t.Fatalf("duplicate gather: %v", err)
	}
	if len(files) != 2 || files[0] != SegmentName(id) || files[1] != SegmentName(id+1) {
		t.Errorf("duplicate files = %v, want [%s %s]", files, SegmentName(id), SegmentName(id+1))
	}
	if maxID != id+1 {
		t.Errorf("maxID = %d, want %d", maxID, id+1)
	}
}

func TestArchiveOnceRespectsSuspendAndRetain(t *testing.T) {
	retain := int64(0)
	m := newTestManager(t, &Config{
		Dir:         "/db",
		Archive:     true,
		Compression: "none",
		Retain:      func() int64 { return retain },
	})

	if err := m.Append([]byte("x")); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := m.Rotate(); err != nil {
		t.Fatalf("rotate: %v", err)
	}

	// Suspended: nothing moves
	m.SuspendArchival()
	if err := m.ArchiveOnce(); err != nil {
		t.Fatalf("ArchiveOnce: %v", err)
	}
	if ok, _ := fs.Exists("/db/" + SegmentName(1)); !ok {
		t.Fatal("segment archived while suspended")
	}
	m.ResumeArchival()

	// Pinned by a backup: nothing moves
	retain = 1
	if err := m.ArchiveOnce(); err != nil {
		t.Fatalf("ArchiveOnce: %v", err)
	}
	if ok, _ := fs.Exists("/db/" + SegmentName(1)); !ok {
		t.Fatal("pinned segment archived")
	}

	// Unpinned: segment 1 moves to the archive
	retain = 0
	if err := m.ArchiveOnce(); err != nil {
		t.Fatalf("ArchiveOnce: %v", err)
	}
	if ok, _ := fs.Exists("/db/" + SegmentName(1)); ok {
		t.Error("segment still in home after archival")
	}
	if ok, _ := fs.Exists("/db/archive/" + SegmentName(1)); !ok {
		t.Error("segment missing from archive")
	}
}

func TestArchiveCompression(t *testing.T) {
	for _, algo := range []string{"gzip", "zstd"} {
		t.Run(algo, func(t *testing.T) {
			m := newTestManager(t, &Config{Dir: "/db", Archive: true, Compression: algo})

			if err := m.Append([]byte("payload payload payload")); err != nil {
				t.Fatalf("append: %v", err)
			}
			if err := m.Rotate(); err != nil {
				t.Fatalf("rotate: %v", err)
			}
			if err := m.ArchiveOnce(); err != nil {
				t.Fatalf("ArchiveOnce: %v", err)
			}

			ext := ".gz"
			if algo == "zstd" {
				ext = ".zst"
			}
			if ok, _ := fs.Exists("/db/archive/" + SegmentName(1) + ext); !ok {
				t.Errorf("compressed archive %s missing", SegmentName(1)+ext)
			}
		})
	}
}
