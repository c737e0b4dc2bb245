// Package backup implements the engine's hot-backup subsystem: the
// connection-wide coordinator, the per-cursor session state machine, the
// backup file list, the metadata snapshot writer, and the cursor
// iteration protocol. The physical copy is performed by the caller; this
// package only guarantees that the file list and the metadata snapshot
// it produces are mutually consistent and that nothing the backup
// depends on disappears while it is open.
package backup

import (
	"sync"

	"kestreldb/internal/errors"
)

// Coordinator holds the connection-wide backup state: whether a backup
// is active, which checkpoint it pins, and the published file list. A
// single RWMutex guards it; the lock is held only for short state flips,
// never across file-list construction or I/O, so checkpoint creation is
// never blocked by a running backup.
type Coordinator struct {
	mu sync.RWMutex

	// active is set for the lifetime of a primary backup session
	active bool

	// pin is the checkpoint id the active backup depends on; that
	// checkpoint and every later one must not be deleted while set
	pin int64

	// published is the file list made visible to checkpoint-deletion
	// logic once a backup finishes initializing
	published []string

	// duplicate is set while a duplicate (log-only) cursor exists
	duplicate bool
}

// NewCoordinator creates an idle coordinator
func NewCoordinator() *Coordinator {
	return &Coordinator{}
}

// Begin claims the connection for a new primary backup, pinning the
// given checkpoint id. Fails with ErrAlreadyActive if a backup is
// already active. The lock is released before returning: long-running
// list construction must not block checkpoint creation.
func (c *Coordinator) Begin(mostRecentCheckpoint int64) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active {
		return 0, errors.ErrAlreadyActive
	}
	c.active = true
	c.pin = mostRecentCheckpoint
	c.published = nil
	return c.pin, nil
}

// BeginDuplicate claims the duplicate slot. At most one duplicate cursor
// may exist per primary.
func (c *Coordinator) BeginDuplicate() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.active {
		return errors.ErrInvalidState.WithDetails("duplicate backup cursor requires an active backup")
	}
	if c.duplicate {
		return errors.ErrDuplicateAlreadyActive
	}
	c.duplicate = true
	return nil
}

// EndDuplicate releases the duplicate slot
func (c *Coordinator) EndDuplicate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.duplicate = false
}

// Publish installs the completed file list. From here until End, the
// checkpoint-deletion logic sees the backup and defers deletion of the
// pinned checkpoint and any later one.
func (c *Coordinator) Publish(list []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published = list
}

// ClearPublished withdraws the file list ahead of teardown
func (c *Coordinator) ClearPublished() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published = nil
}

// End clears the pin and published list; checkpoint deletion and the
// next backup may proceed. Called exactly once per primary session, by
// the session that owns cleanup.
func (c *Coordinator) End() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = false
	c.pin = 0
	c.published = nil
}

// Active reports whether a primary backup session is active
func (c *Coordinator) Active() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active
}

// DuplicateActive reports whether a duplicate cursor exists
func (c *Coordinator) DuplicateActive() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.duplicate
}

// Pinned returns the pinned checkpoint id, or 0 when no backup is
// active. The checkpoint subsystem consults this before every deletion.
func (c *Coordinator) Pinned() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.active {
		return 0
	}
	return c.pin
}

// Published returns the currently published file list (nil while no
// backup has completed initialization)
func (c *Coordinator) Published() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.published
}
