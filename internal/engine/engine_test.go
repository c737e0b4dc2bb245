package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"kestreldb/internal/backup"
	"kestreldb/internal/checkpoint"
	"kestreldb/internal/config"
	"kestreldb/internal/errors"
)

func testConn(t *testing.T) *Connection {
	t.Helper()
	home, err := os.MkdirTemp("", "kestrel-engine-test-")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(home) })

	cfg := config.New()
	cfg.Home = home
	cfg.LogSegmentSize = 4096

	c, err := Open(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestOpenLaysDownTreeFiles(t *testing.T) {
	c := testConn(t)

	for _, name := range []string{backup.VersionFile, backup.BaseConfigFile, CatalogFile} {
		if _, err := os.Stat(filepath.Join(c.Home(), name)); err != nil {
			t.Errorf("expected %s in home: %v", name, err)
		}
	}
	if c.Log() == nil {
		t.Error("logging should be enabled by default")
	}
}

func TestSchemaOperations(t *testing.T) {
	c := testConn(t)
	ctx := context.Background()

	if err := c.CreateTable(ctx, "users"); err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}
	if err := c.CreateTable(ctx, "users"); !errors.Is(err, errors.ErrInvalidTarget) {
		t.Errorf("duplicate CreateTable = %v, want ErrInvalidTarget", err)
	}
	if err := c.CreateTable(ctx, "table:bad"); !errors.Is(err, errors.ErrInvalidTarget) {
		t.Errorf("CreateTable with colon = %v, want ErrInvalidTarget", err)
	}
	if err := c.CreateIndex(ctx, "users", "byname"); err != nil {
		t.Fatalf("CreateIndex failed: %v", err)
	}
	if err := c.CreateIndex(ctx, "missing", "x"); !errors.Is(err, errors.ErrInvalidTarget) {
		t.Errorf("CreateIndex on missing table = %v, want ErrInvalidTarget", err)
	}

	for _, f := range []string{"users.kd", "users_byname.kdi"} {
		if _, err := os.Stat(filepath.Join(c.Home(), f)); err != nil {
			t.Errorf("backing file %s: %v", f, err)
		}
	}

	if err := c.DropTable(ctx, "users"); err != nil {
		t.Fatalf("DropTable failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(c.Home(), "users.kd")); !os.IsNotExist(err) {
		t.Error("dropped table file should be removed")
	}
	if err := c.DropTable(ctx, "users"); !errors.Is(err, errors.ErrInvalidTarget) {
		t.Errorf("DropTable twice = %v, want ErrInvalidTarget", err)
	}
}

func TestCheckpointLifecycle(t *testing.T) {
	c := testConn(t)
	ctx := context.Background()

	id1, err := c.Checkpoint(ctx)
	if err != nil {
		t.Fatalf("Checkpoint failed: %v", err)
	}
	id2, err := c.Checkpoint(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if id2 <= id1 {
		t.Errorf("checkpoint ids not increasing: %d then %d", id1, id2)
	}
	if got := c.MostRecentCheckpoint(); got != id2 {
		t.Errorf("MostRecentCheckpoint = %d, want %d", got, id2)
	}

	if err := c.DropCheckpoint(id1); err != nil {
		t.Fatalf("DropCheckpoint failed: %v", err)
	}
	if got := len(c.Checkpoints()); got != 1 {
		t.Errorf("live checkpoints = %d, want 1", got)
	}
}

func TestBackupPinsCheckpoint(t *testing.T) {
	c := testConn(t)
	ctx := context.Background()

	if err := c.CreateTable(ctx, "users"); err != nil {
		t.Fatal(err)
	}
	id, err := c.Checkpoint(ctx)
	if err != nil {
		t.Fatal(err)
	}

	s, err := c.OpenBackupCursor(ctx, backup.Options{})
	if err != nil {
		t.Fatalf("OpenBackupCursor failed: %v", err)
	}
	if !c.BackupActive() {
		t.Error("backup should be active")
	}

	// The pinned checkpoint cannot be dropped while the cursor is open
	if err := c.DropCheckpoint(id); !errors.Is(err, checkpoint.ErrPinned) {
		t.Errorf("DropCheckpoint = %v, want ErrPinned", err)
	}
	// Newer checkpoints can still be created and dropped
	id2, err := c.Checkpoint(ctx)
	if err != nil {
		t.Fatalf("Checkpoint during backup failed: %v", err)
	}
	if err := c.DropCheckpoint(id2); !errors.Is(err, checkpoint.ErrPinned) {
		t.Errorf("dropping post-backup checkpoint = %v, want ErrPinned", err)
	}

	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if c.BackupActive() {
		t.Error("backup should be inactive after close")
	}
	if err := c.DropCheckpoint(id); err != nil {
		t.Errorf("DropCheckpoint after close = %v, want nil", err)
	}
}

func TestBackupFileList(t *testing.T) {
	c := testConn(t)
	ctx := context.Background()

	if err := c.CreateTable(ctx, "orders"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Checkpoint(ctx); err != nil {
		t.Fatal(err)
	}

	s, err := c.OpenBackupCursor(ctx, backup.Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	byName := map[string]bool{}
	for _, f := range s.Files() {
		byName[f] = true
		// Every listed file must exist in the source tree
		if _, err := os.Stat(filepath.Join(c.Home(), f)); err != nil {
			t.Errorf("listed file %s: %v", f, err)
		}
	}
	for _, want := range []string{backup.MetadataFile, backup.VersionFile, backup.BaseConfigFile, "orders.kd"} {
		if !byName[want] {
			t.Errorf("file list missing %s", want)
		}
	}
	if byName[CatalogFile] {
		t.Error("the catalog database must not be in the copy list; the snapshot replaces it")
	}
	if got := c.BackupFileList(); len(got) != len(s.Files()) {
		t.Errorf("published list has %d entries, cursor has %d", len(got), len(s.Files()))
	}
}

func TestDuplicateBackupCursorOnConnection(t *testing.T) {
	c := testConn(t)
	ctx := context.Background()

	if _, err := c.OpenDuplicateBackupCursor(ctx); !errors.Is(err, errors.ErrInvalidState) {
		t.Errorf("duplicate without primary = %v, want ErrInvalidState", err)
	}

	primary, err := c.OpenBackupCursor(ctx, backup.Options{})
	if err != nil {
		t.Fatal(err)
	}

	// Generate log activity so the duplicate has something to report
	for i := 0; i < 200; i++ {
		if err := c.Log().Append(make([]byte, 128)); err != nil {
			t.Fatal(err)
		}
	}

	dup, err := c.OpenDuplicateBackupCursor(ctx)
	if err != nil {
		t.Fatalf("OpenDuplicateBackupCursor failed: %v", err)
	}
	if len(dup.Files()) == 0 {
		t.Error("duplicate should report the log segments written since the primary opened")
	}
	if err := dup.Close(); err != nil {
		t.Fatal(err)
	}
	if err := primary.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestInMemoryRejectsBackup(t *testing.T) {
	cfg := config.New()
	cfg.InMemory = true
	cfg.LogEnabled = false

	c, err := Open(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("Open in-memory failed: %v", err)
	}
	defer c.Close()

	if _, err := c.OpenBackupCursor(context.Background(), backup.Options{}); !errors.Is(err, errors.ErrNotSupported) {
		t.Errorf("OpenBackupCursor = %v, want ErrNotSupported", err)
	}
}

func TestCloseWithOpenBackupCursor(t *testing.T) {
	home, err := os.MkdirTemp("", "kestrel-engine-test-")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(home)

	cfg := config.New()
	cfg.Home = home

	c, err := Open(context.Background(), cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.OpenBackupCursor(context.Background(), backup.Options{}); err != nil {
		t.Fatal(err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close with open cursor failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(home, backup.MetadataFile)); !os.IsNotExist(err) {
		t.Error("backup artifacts should be removed when the connection closes the cursor")
	}
}
