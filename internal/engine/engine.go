// Package engine ties the storage subsystems together into a single
// Connection: the SQLite-backed metadata catalog, the write-ahead log,
// the checkpoint manager, and the hot-backup coordinator. It owns the
// lock choreography that backup initialization depends on.
package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"kestreldb/internal/backup"
	"kestreldb/internal/catalog"
	"kestreldb/internal/checkpoint"
	"kestreldb/internal/config"
	"kestreldb/internal/errors"
	"kestreldb/internal/fs"
	"kestreldb/internal/logger"
	"kestreldb/internal/wal"
)

// CatalogFile is the SQLite database holding the metadata catalog
const CatalogFile = "KestrelMeta.db"

// versionFileContent identifies the tree format for tooling
const versionFileContent = "KestrelDB\nkestreldb 1.0: standalone build\n"

// archiveInterval is how often the background archiver sweeps finished
// log segments
const archiveInterval = 30 * time.Second

// Connection is an open engine instance rooted at a home directory. All
// methods are safe for concurrent use.
type Connection struct {
	cfg *config.Config
	log logger.Logger

	catalog *catalog.Catalog
	wal     *wal.Manager // nil when logging is disabled
	ckpt    *checkpoint.Manager
	coord   *backup.Coordinator

	// checkpointLock serializes checkpoint creation/deletion against
	// backup initialization; schemaLock does the same for object
	// create/drop. backup.Start runs with both held so the checkpoint
	// it pins, the catalog it walks, and the snapshot it writes agree.
	checkpointLock sync.Mutex
	schemaLock     sync.Mutex
	tableLock      sync.Mutex

	mu      sync.Mutex
	primary *backup.Session
	closed  bool
}

// Open opens (creating if necessary) the engine home directory and all
// subsystems. The returned Connection must be closed.
func Open(ctx context.Context, cfg *config.Config, log logger.Logger) (*Connection, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.NewNullLogger()
	}

	c := &Connection{
		cfg:   cfg,
		log:   log,
		coord: backup.NewCoordinator(),
	}

	catalogPath := ":memory:"
	if !cfg.InMemory {
		if err := fs.MkdirAll(cfg.Home, 0o755); err != nil {
			return nil, errors.IO("mkdir", cfg.Home, err)
		}
		if err := c.writeTreeFiles(); err != nil {
			return nil, err
		}
		catalogPath = filepath.Join(cfg.Home, CatalogFile)
	}

	cat, err := catalog.Open(catalogPath)
	if err != nil {
		return nil, err
	}
	c.catalog = cat

	if err := c.seedCatalog(ctx); err != nil {
		cat.Close()
		return nil, err
	}

	c.ckpt = checkpoint.NewManager(c.coord.Pinned, log)

	if cfg.LogEnabled && !cfg.InMemory {
		m := wal.NewManager(&wal.Config{
			Dir:         cfg.Home,
			SegmentSize: cfg.LogSegmentSize,
			Archive:     cfg.LogArchive,
			ArchiveDir:  cfg.LogArchiveDir,
			Compression: cfg.LogCompression,
			Retain:      c.retainSegments,
		}, log)
		if err := m.Open(); err != nil {
			cat.Close()
			return nil, err
		}
		c.wal = m
		if cfg.LogArchive {
			m.StartArchiver(ctx, archiveInterval)
		}
	}

	log.Info("engine opened", "home", cfg.Home, "in_memory", cfg.InMemory, "logging", c.wal != nil)
	return c, nil
}

// writeTreeFiles lays down the home-directory marker files on first open
func (c *Connection) writeTreeFiles() error {
	vpath := filepath.Join(c.cfg.Home, backup.VersionFile)
	ok, err := fs.Exists(vpath)
	if err != nil {
		return errors.IO("stat", vpath, err)
	}
	if !ok {
		if err := fs.WriteFile(vpath, []byte(versionFileContent), 0o644); err != nil {
			return errors.IO("write", vpath, err)
		}
	}

	bpath := filepath.Join(c.cfg.Home, backup.BaseConfigFile)
	ok, err = fs.Exists(bpath)
	if err != nil {
		return errors.IO("stat", bpath, err)
	}
	if !ok {
		base := fmt.Sprintf("log.enabled=%t\nlog.archive=%t\nlog.compression=%s\nlog.segment_size=%d\n",
			c.cfg.LogEnabled, c.cfg.LogArchive, c.cfg.LogCompression, c.cfg.LogSegmentSize)
		if err := fs.WriteFile(bpath, []byte(base), 0o644); err != nil {
			return errors.IO("write", bpath, err)
		}
	}
	return nil
}

// seedCatalog installs the objects every tree carries: the lookaside
// file and the checkpoint system entry
func (c *Connection) seedCatalog(ctx context.Context) error {
	for _, seed := range []struct{ name, config string }{
		{catalog.LookasideURI, "chunks=1,transient=true"},
		{"system:checkpoint", "checkpoint=(id=0)"},
	} {
		if _, err := c.catalog.Get(ctx, seed.name); err == nil {
			continue
		} else if !errors.Is(err, catalog.ErrNotFound) {
			return err
		}
		if err := c.catalog.Insert(ctx, seed.name, seed.config); err != nil {
			return err
		}
	}
	return nil
}

// retainSegments is the log manager's retention hook: while a backup is
// active every segment stays on disk
func (c *Connection) retainSegments() int64 {
	if c.coord.Active() {
		return 1
	}
	return 0
}

// Close shuts the connection down. An open backup cursor is closed
// first, with a warning; its artifacts are removed as usual.
func (c *Connection) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	primary := c.primary
	c.mu.Unlock()

	if primary != nil {
		c.log.Warn("closing connection with an open backup cursor")
		if err := primary.Close(); err != nil {
			c.log.Error("closing backup cursor", "error", err)
		}
	}

	if c.wal != nil {
		c.wal.StopArchiver()
		if err := c.wal.Close(); err != nil {
			c.log.Error("closing write-ahead log", "error", err)
		}
	}
	if err := c.catalog.Close(); err != nil {
		return err
	}
	c.log.Info("engine closed")
	return nil
}

// Log returns the write-ahead log manager, or nil when logging is
// disabled
func (c *Connection) Log() *wal.Manager {
	return c.wal
}

// Home returns the engine home directory
func (c *Connection) Home() string {
	return c.cfg.Home
}

// Checkpoint creates a durable checkpoint and records it in the catalog
func (c *Connection) Checkpoint(ctx context.Context) (int64, error) {
	c.checkpointLock.Lock()
	defer c.checkpointLock.Unlock()

	if c.wal != nil {
		if err := c.wal.Rotate(); err != nil {
			return 0, err
		}
	}
	id, err := c.ckpt.Create(ctx)
	if err != nil {
		return 0, err
	}
	meta := fmt.Sprintf("checkpoint=(id=%d,time=%d)", id, time.Now().Unix())
	if err := c.catalog.Update(ctx, "system:checkpoint", meta); err != nil {
		return 0, err
	}
	c.log.Info("checkpoint created", "id", id)
	return id, nil
}

// DropCheckpoint deletes a checkpoint. Checkpoints at or above an
// active backup's pin are refused until the backup cursor closes.
func (c *Connection) DropCheckpoint(id int64) error {
	c.checkpointLock.Lock()
	defer c.checkpointLock.Unlock()
	return c.ckpt.Drop(id)
}

// Checkpoints returns the live checkpoint ids in ascending order
func (c *Connection) Checkpoints() []int64 {
	return c.ckpt.Live()
}

// MostRecentCheckpoint returns the newest durable checkpoint id
func (c *Connection) MostRecentCheckpoint() int64 {
	return c.ckpt.MostRecent()
}
