package engine

import (
	"context"

	"kestreldb/internal/backup"
	"kestreldb/internal/errors"
)

// OpenBackupCursor opens a primary backup cursor. The checkpoint and
// schema locks are held only while the session initializes: the pinned
// checkpoint, the catalog snapshot, and the file list are decided under
// them, and they are released before the caller starts copying.
func (c *Connection) OpenBackupCursor(ctx context.Context, opts backup.Options) (*backup.Session, error) {
	c.checkpointLock.Lock()
	c.schemaLock.Lock()
	s, err := backup.Start(ctx, c.backupDeps(), opts, nil)
	c.schemaLock.Unlock()
	c.checkpointLock.Unlock()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.primary = s
	c.mu.Unlock()
	return s, nil
}

// OpenDuplicateBackupCursor opens a log-only cursor layered on the open
// primary. It returns the log segments that completed after the
// primary's gather, letting a long-running copy pick up the log tail
// without a second full backup.
func (c *Connection) OpenDuplicateBackupCursor(ctx context.Context) (*backup.Session, error) {
	c.mu.Lock()
	primary := c.primary
	c.mu.Unlock()
	if primary == nil {
		return nil, errors.ErrInvalidState.WithDetails("no backup cursor is open")
	}

	c.checkpointLock.Lock()
	c.schemaLock.Lock()
	s, err := backup.Start(ctx, c.backupDeps(), backup.Options{}, primary)
	c.schemaLock.Unlock()
	c.checkpointLock.Unlock()
	return s, err
}

// BackupActive reports whether a backup cursor is open on this
// connection
func (c *Connection) BackupActive() bool {
	return c.coord.Active()
}

// BackupFileList returns the published file list of the active backup,
// nil when none is active
func (c *Connection) BackupFileList() []string {
	return c.coord.Published()
}

func (c *Connection) backupDeps() backup.Deps {
	deps := backup.Deps{
		Home:          c.cfg.Home,
		InMemory:      c.cfg.InMemory,
		Catalog:       c.catalog,
		Checkpoints:   c.ckpt,
		Coordinator:   c.coord,
		WithTableLock: c.WithTableLock,
		OnClose: func(s *backup.Session) {
			c.mu.Lock()
			if c.primary == s {
				c.primary = nil
			}
			c.mu.Unlock()
		},
		Logger: c.log,
	}
	// A nil *wal.Manager must not become a non-nil interface
	if c.wal != nil {
		deps.Log = c.wal
	}
	return deps
}
