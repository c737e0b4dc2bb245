// Package wal manages the engine's write-ahead log: segment files in the
// home directory, rotation of the active segment, the segment sets handed
// to backup cursors, and optional archival of finished segments.
//
// Segment files are named KestrelLog.<10-digit id>. A backup cursor must
// gather its segment set *before* a checkpoint is chosen for the backup:
// gathering rotates the active segment, fixing a boundary the subsequent
// checkpoint is consistent with.
package wal

import (
	"context"
	"encoding/binary"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"

	"kestreldb/internal/fs"
	"kestreldb/internal/logger"
)

// SegmentPrefix is the common prefix of every log segment file
const SegmentPrefix = "KestrelLog."

// SegmentName returns the file name of a segment id
func SegmentName(id int64) string {
	return fmt.Sprintf("%s%010d", SegmentPrefix, id)
}

// ParseSegmentID extracts the id from a segment file name
func ParseSegmentID(name string) (int64, bool) {
	base := strings.TrimSuffix(strings.TrimSuffix(name, ".gz"), ".zst")
	if !strings.HasPrefix(base, SegmentPrefix) {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(base, SegmentPrefix), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// Config contains write-ahead log configuration
type Config struct {
	Dir         string // Directory holding segment files (the engine home)
	SegmentSize int64  // Rotation threshold in bytes
	Archive     bool   // Automatic archival of finished segments
	ArchiveDir  string // Archive destination (default: <dir>/archive)
	Compression string // "none", "gzip", "zstd" for archived segments

	// Retain, when set, returns the lowest segment id that must be kept
	// on disk (0 = no constraint). The backup coordinator pins segments
	// through this hook while a backup is active.
	Retain func() int64
}

// Manager handles log segment lifecycle
type Manager struct {
	config *Config
	log    logger.Logger
	mu     sync.Mutex

	active   afero.File
	activeID int64
	written  int64

	// Highest id included in the last active-backup gather; a duplicate
	// cursor picks up from here.
	backupMaxID int64

	// Archival is suspended while >0 (counted: nested suspends stack)
	suspended int

	archiveStop chan struct{}
	archiveDone chan struct{}
}

// NewManager creates a log manager for a home directory. No segment is
// opened until Open is called.
func NewManager(cfg *Config, log logger.Logger) *Manager {
	if cfg.SegmentSize == 0 {
		cfg.SegmentSize = 16 * 1024 * 1024
	}
	if cfg.ArchiveDir == "" {
		cfg.ArchiveDir = filepath.Join(cfg.Dir, "archive")
	}
	if cfg.Compression == "" {
		cfg.Compression = "zstd"
	}
	return &Manager{
		config: cfg,
		log:    log,
	}
}

// Open recovers the segment numbering from the directory and opens a
// fresh active segment
func (m *Manager) Open() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	maxID := int64(0)
	infos, err := fs.ReadDir(m.config.Dir)
	if err != nil {
		return fmt.Errorf("failed to scan log directory: %w", err)
	}
	for _, info := range infos {
		if info.IsDir() {
			continue
		}
		if id, ok := ParseSegmentID(info.Name()); ok && id > maxID {
			maxID = id
		}
	}

	return m.openSegmentLocked(maxID + 1)
}

func (m *Manager) openSegmentLocked(id int64) error {
	f, err := fs.CreateExclusive(filepath.Join(m.config.Dir, SegmentName(id)))
	if err != nil {
		return fmt.Errorf("failed to create log segment %d: %w", id, err)
	}
	m.active = f
	m.activeID = id
	m.written = 0
	m.log.Debug("Opened log segment", "file", SegmentName(id))
	return nil
}

// Close closes the active segment and stops the archiver if running
func (m *Manager) Close() error {
	m.StopArchiver()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return nil
	}
	err := m.active.Close()
	m.active = nil
	return err
}

// Append writes one length-prefixed record to the active segment,
// rotating first if the segment is full
func (m *Manager) Append(rec []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil {
		return fmt.Errorf("log manager is not open")
	}
	if m.written+int64(len(rec))+4 > m.config.SegmentSize && m.written > 0 {
		if err := m.rotateLocked(); err != nil {
			return err
		}
	}

	var hdr [4]byte
	binary.LittleEndian.PutUint32(hdr[:], uint32(len(rec)))
	if _, err := m.active.Write(hdr[:]); err != nil {
		return fmt.Errorf("failed to append log record: %w", err)
	}
	if _, err := m.active.Write(rec); err != nil {
		return fmt.Errorf("failed to append log record: %w", err)
	}
	m.written += int64(len(rec)) + 4
	return nil
}

// Rotate closes the active segment and opens the next one
func (m *Manager) Rotate() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rotateLocked()
}

func (m *Manager) rotateLocked() error {
	if m.active == nil {
		return fmt.Errorf("log manager is not open")
	}
	if err := m.active.Sync(); err != nil {
		return fmt.Errorf("failed to sync log segment: %w", err)
	}
	if err := m.active.Close(); err != nil {
		return fmt.Errorf("failed to close log segment: %w", err)
	}
	return m.openSegmentLocked(m.activeID + 1)
}

// ActiveID returns the id of the segment currently being written
func (m *Manager) ActiveID() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeID
}

// BackupFiles returns the segment files a backup needs and the highest
// id included. With forActiveBackup set (a primary full or incremental
// backup) the active segment is rotated first so the returned set covers
// everything up to a fixed boundary; the boundary is remembered so a
// later duplicate cursor returns only segments past it.
func (m *Manager) BackupFiles(ctx context.Context, forActiveBackup bool) ([]string, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	var since int64
	if forActiveBackup {
		if err := m.rotateLocked(); err != nil {
			return nil, 0, err
		}
	} else {
		since = m.backupMaxID
	}

	names, maxID, err := m.segmentsLocked(since)
	if err != nil {
		return nil, 0, err
	}

	if forActiveBackup {
		m.backupMaxID = maxID
	} else if maxID > m.backupMaxID {
		m.backupMaxID = maxID
	}

	m.log.Debug("Gathered log segments for backup",
		"count", len(names), "max_id", maxID, "active_backup", forActiveBackup)
	return names, maxID, nil
}

// segmentsLocked lists completed segment files with id > since, sorted
// by id. The active segment is excluded: it is still being written.
func (m *Manager) segmentsLocked(since int64) ([]string, int64, error) {
	infos, err := fs.ReadDir(m.config.Dir)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to scan log directory: %w", err)
	}

	type seg struct {
		name string
		id   int64
	}
	var segs []seg
	maxID := since
	for _, info := range infos {
		if info.IsDir() {
			continue
		}
		id, ok := ParseSegmentID(info.Name())
		if !ok || id <= since || id >= m.activeID {
			continue
		}
		segs = append(segs, seg{info.Name(), id})
		if id > maxID {
			maxID = id
		}
	}
	sort.Slice(segs, func(i, j int) bool { return segs[i].id < segs[j].id })

	names := make([]string, len(segs))
	for i, s := range segs {
		names[i] = s.name
	}
	return names, maxID, nil
}

// ArchivalEnabled reports whether automatic archival is configured
func (m *Manager) ArchivalEnabled() bool {
	return m.config.Archive
}

// SuspendArchival pauses the archiver. Calls nest; archival resumes when
// every suspend has been matched by a resume. A duplicate backup cursor
// holds a suspension while it gathers its segment list.
func (m *Manager) SuspendArchival() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.suspended++
}

// ResumeArchival undoes one SuspendArchival
func (m *Manager) ResumeArchival() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.suspended > 0 {
		m.suspended--
	}
}

// StartArchiver runs the archival worker until StopArchiver or context
// cancellation
func (m *Manager) StartArchiver(ctx context.Context, interval time.Duration) {
	if !m.config.Archive {
		return
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}

	m.mu.Lock()
	if m.archiveStop != nil {
		m.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	done := make(chan struct{})
	m.archiveStop = stop
	m.archiveDone = done
	m.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case <-ticker.C:
				if err := m.ArchiveOnce(); err != nil {
					m.log.Warn("Log archival pass failed", "error", err)
				}
			}
		}
	}()
}

// StopArchiver stops the archival worker and waits for it to exit
func (m *Manager) StopArchiver() {
	m.mu.Lock()
	stop, done := m.archiveStop, m.archiveDone
	m.archiveStop, m.archiveDone = nil, nil
	m.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
}

// ArchiveOnce archives every finished segment not pinned by a backup:
// the segment is compressed into the archive directory, then removed
// from the home. Suspended archival is a no-op.
func (m *Manager) ArchiveOnce() error {
	m.mu.Lock()
	if m.suspended > 0 {
		m.mu.Unlock()
		return nil
	}
	retain := int64(0)
	if m.config.Retain != nil {
		retain = m.config.Retain()
	}
	names, _, err := m.segmentsLocked(0)
	activeID := m.activeID
	m.mu.Unlock()
	if err != nil {
		return err
	}

	if err := fs.MkdirAll(m.config.ArchiveDir, 0o755); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}

	archived := 0
	for _, name := range names {
		id, _ := ParseSegmentID(name)
		if id >= activeID {
			continue
		}
		if retain != 0 && id >= retain {
			continue
		}
		src := filepath.Join(m.config.Dir, name)
		if err := m.archiveSegment(src, name); err != nil {
			return err
		}
		if err := fs.Remove(src); err != nil {
			return fmt.Errorf("failed to remove archived segment %s: %w", name, err)
		}
		archived++
	}

	if archived > 0 {
		m.log.Info("Archived log segments", "count", archived)
	}
	return nil
}
