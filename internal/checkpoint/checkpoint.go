// Package checkpoint tracks durable checkpoint ids and enforces the
// retention pin a hot backup places on them. The checkpoint algorithm
// itself lives elsewhere; this package owns id assignment and deletion
// policy.
package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"kestreldb/internal/logger"
)

// ErrPinned is returned when deletion would discard a checkpoint an
// active backup depends on
var ErrPinned = errors.New("checkpoint is pinned by an active backup")

// ErrUnknown is returned for ids that do not name a live checkpoint
var ErrUnknown = errors.New("unknown checkpoint")

// Manager assigns checkpoint ids and tracks which checkpoints still
// exist. Deletion of the pinned checkpoint, or any later one, is
// refused while a backup is active.
type Manager struct {
	mu         sync.Mutex
	mostRecent int64
	live       map[int64]bool

	// pinned returns the checkpoint id pinned by the backup coordinator
	// (0 = none). Checkpoints at or after the pin must not be deleted.
	pinned func() int64

	log logger.Logger
}

// NewManager creates a checkpoint manager. pinned is consulted on every
// deletion; nil means no backup subsystem is attached.
func NewManager(pinned func() int64, log logger.Logger) *Manager {
	return &Manager{
		live:   make(map[int64]bool),
		pinned: pinned,
		log:    log,
	}
}

// MostRecent returns the id of the latest completed checkpoint (0 if
// none has been taken)
func (m *Manager) MostRecent() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mostRecent
}

// Create records a new checkpoint and returns its id. The caller must
// hold the connection's checkpoint lock: a backup in Starting holds the
// same lock, so a new checkpoint can never race with checkpoint
// selection for a backup.
func (m *Manager) Create(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.mostRecent++
	m.live[m.mostRecent] = true
	m.log.Debug("Checkpoint complete", "checkpoint", m.mostRecent)
	return m.mostRecent, nil
}

// Drop deletes a checkpoint. While a backup is active, dropping the
// pinned checkpoint or any later one is refused with ErrPinned.
func (m *Manager) Drop(id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.live[id] {
		return fmt.Errorf("%w: %d", ErrUnknown, id)
	}
	if m.pinned != nil {
		if pin := m.pinned(); pin != 0 && id >= pin {
			return fmt.Errorf("%w: checkpoint %d, pin %d", ErrPinned, id, pin)
		}
	}
	delete(m.live, id)
	m.log.Debug("Checkpoint dropped", "checkpoint", id)
	return nil
}

// Live returns the ids of the checkpoints still on disk, ascending
func (m *Manager) Live() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]int64, 0, len(m.live))
	for id := range m.live {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
