package backup

import (
	"context"
	"path/filepath"

	"kestreldb/internal/catalog"
	"kestreldb/internal/errors"
	"kestreldb/internal/fs"
	"kestreldb/internal/logger"
)

// CatalogWalker is the slice of the metadata catalog the backup needs:
// insertion-ordered full iteration, and per-target expansion of an
// object to itself, its dependents, and their backing files.
type CatalogWalker interface {
	ForEach(ctx context.Context, fn func(name, config string) error) error
	WorkEach(ctx context.Context, uri string, fn func(name, config string) error) error
}

// LogEnumerator is the slice of the log manager the backup needs. A nil
// LogEnumerator means logging is disabled; the backup simply carries no
// log segments.
type LogEnumerator interface {
	// BackupFiles returns the completed log segment file names a backup
	// must copy. forActiveBackup rotates the active segment first and
	// fixes the boundary later gathers on the same connection extend
	// from.
	BackupFiles(ctx context.Context, forActiveBackup bool) ([]string, int64, error)
	ArchivalEnabled() bool
	SuspendArchival()
	ResumeArchival()
}

// CheckpointSource reports the most recent durable checkpoint id
type CheckpointSource interface {
	MostRecent() int64
}

// Deps are the collaborators a backup session runs against. The engine
// wires these once per connection.
type Deps struct {
	Home     string
	InMemory bool

	Catalog     CatalogWalker
	Log         LogEnumerator // nil when logging is disabled
	Checkpoints CheckpointSource
	Coordinator *Coordinator

	// WithTableLock runs fn with the table (handle-list) lock held;
	// target expansion reads dependent lists under it
	WithTableLock func(fn func() error) error

	// OnClose is invoked after a primary session fully closes, letting
	// the engine clear its primary-session reference
	OnClose func(*Session)

	Logger logger.Logger
}

// Options select the backup flavor
type Options struct {
	// Targets restricts the backup to the named objects. A sole "log:"
	// target is an incremental backup; mixed with object targets it adds
	// the completed log segments to the list.
	Targets []string

	// Incremental requests a log-only incremental backup of a
	// previously fully-backed-up tree
	Incremental bool
}

// state is the session lifecycle. Transitions only move forward.
type state int

const (
	stateCreated state = iota
	stateStarting
	stateActive
	stateStopping
	stateClosed
)

// Session is one open backup cursor. Sessions are not safe for
// concurrent use; the connection-wide invariants live in Coordinator.
type Session struct {
	deps Deps
	log  logger.Logger

	st          state
	duplicate   bool
	ownsCleanup bool
	snap        *snapshotWriter

	// file list, in emission order
	list    []string
	pos     int
	current string
	hasCur  bool
}

// Start opens a backup session. The caller (the engine) must hold the
// checkpoint and schema locks for the duration of the call: they are
// what make the checkpoint pin, the list, and the snapshot mutually
// consistent. Start never retains them — they are released by the caller
// as soon as it returns.
//
// primary must be the existing primary session when opening a duplicate
// (log-only) cursor, nil otherwise.
func Start(ctx context.Context, deps Deps, opts Options, primary *Session) (*Session, error) {
	log := deps.Logger
	if log == nil {
		log = logger.NewNullLogger()
	}

	if deps.InMemory {
		return nil, errors.ErrNotSupported.WithDetails("backup requires a durable home directory")
	}

	s := &Session{
		deps:      deps,
		log:       log,
		st:        stateCreated,
		duplicate: primary != nil,
	}

	if s.duplicate {
		if err := s.startDuplicate(ctx, opts, primary); err != nil {
			return nil, err
		}
		return s, nil
	}

	pin, err := deps.Coordinator.Begin(deps.Checkpoints.MostRecent())
	if err != nil {
		return nil, err
	}
	s.ownsCleanup = true
	s.st = stateStarting

	log.Debug("backup starting", "pinned_checkpoint", pin, "incremental", opts.Incremental, "targets", len(opts.Targets))

	if err := s.start(ctx, opts); err != nil {
		s.rollback()
		return nil, err
	}

	s.st = stateActive
	deps.Coordinator.Publish(s.list)
	log.Info("backup cursor opened", "files", len(s.list), "incremental", opts.Incremental)
	return s, nil
}

// startDuplicate initializes a duplicate log-only cursor layered on the
// primary. The duplicate carries only log segments that completed after
// the primary's gather; it owns no cleanup and writes no snapshot.
func (s *Session) startDuplicate(ctx context.Context, opts Options, primary *Session) error {
	if primary.st != stateActive {
		return errors.ErrInvalidState.WithDetails("primary backup cursor is not active")
	}
	tgt, err := parseTargets(opts.Targets)
	if err != nil {
		return err
	}
	if len(tgt.uris) > 0 {
		return errors.InvalidTarget(tgt.uris[0], "a duplicate backup cursor accepts only the log target")
	}
	if s.deps.Log == nil {
		return errors.ErrNotSupported.WithDetails("duplicate backup cursor requires logging")
	}
	if err := s.deps.Coordinator.BeginDuplicate(); err != nil {
		return err
	}

	// Archival must not reclaim a segment between enumeration and the
	// caller's copy of the returned names.
	s.deps.Log.SuspendArchival()
	logs, _, err := s.deps.Log.BackupFiles(ctx, false)
	if err != nil {
		s.deps.Log.ResumeArchival()
		s.deps.Coordinator.EndDuplicate()
		return err
	}

	s.list = logs
	s.st = stateActive
	s.log.Info("duplicate backup cursor opened", "log_segments", len(logs))
	return nil
}

// start builds the file list and metadata snapshot for a primary
// session. Called in state Starting with the engine's locks held; any
// error triggers full rollback in the caller.
func (s *Session) start(ctx context.Context, opts Options) error {
	tgt, err := parseTargets(opts.Targets)
	if err != nil {
		return err
	}
	if opts.Incremental && len(tgt.uris) > 0 {
		return errors.InvalidTarget(tgt.uris[0], "incremental backup accepts only the log target")
	}

	// A sole log: target is an incremental backup: same marker pair,
	// same published name.
	incremental := opts.Incremental || tgt.logOnly()

	// All mode validation happens before the log gather: a request that
	// will be rejected must not rotate the active segment.
	if incremental {
		if s.deps.Log == nil {
			return errors.ErrNotSupported.WithDetails("incremental backup requires logging")
		}
		if s.deps.Log.ArchivalEnabled() {
			return errors.ErrLogArchivalConflict
		}
	}
	if tgt.hasLog {
		if s.deps.Log == nil {
			return errors.InvalidTarget(LogTarget, "logging is not enabled")
		}
		if s.deps.Log.ArchivalEnabled() {
			return errors.ErrLogArchivalConflict
		}
	}

	// Log segments are gathered before the checkpoint question is ever
	// asked of the catalog: the full-backup gather rotates the active
	// segment, and the next checkpoint must land beyond the rotation
	// boundary. Target-restricted backups carry logs only when log: is
	// among the targets, and then without forcing a rotation.
	var logFiles []string
	if s.deps.Log != nil && (!tgt.set || tgt.hasLog) {
		logFiles, _, err = s.deps.Log.BackupFiles(ctx, !tgt.set && !incremental)
		if err != nil {
			return err
		}
	}

	if incremental {
		// Incremental backups carry no catalog state: the data files and
		// snapshot were transferred by the preceding full backup, so the
		// list is the log segments plus the marker pair. The source
		// marker is created exclusively so two incrementals cannot
		// silently interleave, and so a source directory reused as a
		// destination is detectable.
		srcPath := filepath.Join(s.deps.Home, IncrementalSrcFile)
		f, err := fs.CreateExclusive(srcPath)
		if err != nil {
			return errors.IO("create", srcPath, err)
		}
		if err := f.Close(); err != nil {
			return errors.IO("close", srcPath, err)
		}

		snap, err := newSnapshotWriter(s.deps.Home)
		if err != nil {
			return err
		}
		s.snap = snap
		if err := snap.Publish(IncrementalFile); err != nil {
			return err
		}
		s.snap = nil

		s.list = append(logFiles, IncrementalFile)
		return nil
	}

	var stdFiles, dataFiles []string

	snap, err := newSnapshotWriter(s.deps.Home)
	if err != nil {
		return err
	}
	s.snap = snap

	seen := make(map[string]bool)
	visit := func(name, config string) error {
		return s.appendCatalogEntry(name, config, seen, &dataFiles)
	}

	if tgt.set {
		err = s.deps.WithTableLock(func() error {
			for _, uri := range tgt.uris {
				if err := s.deps.Catalog.WorkEach(ctx, uri, visit); err != nil {
					if errors.Is(err, catalog.ErrNotFound) {
						return errors.InvalidTarget(uri, "no such object")
					}
					return err
				}
			}
			return nil
		})
	} else {
		err = s.deps.Catalog.ForEach(ctx, visit)
	}
	if err != nil {
		return err
	}

	// Standard files travel with every full backup: the snapshot itself
	// plus whichever optional configuration files exist in the home
	// directory, then the engine version file.
	stdFiles = append(stdFiles, MetadataFile)
	for _, name := range []string{BaseConfigFile, UserConfigFile} {
		ok, err := fs.Exists(filepath.Join(s.deps.Home, name))
		if err != nil {
			return errors.IO("stat", filepath.Join(s.deps.Home, name), err)
		}
		if ok {
			stdFiles = append(stdFiles, name)
		}
	}
	stdFiles = append(stdFiles, VersionFile)

	if err := snap.Publish(MetadataFile); err != nil {
		return err
	}
	s.snap = nil

	s.list = make([]string, 0, len(logFiles)+len(stdFiles)+len(dataFiles))
	s.list = append(s.list, logFiles...)
	s.list = append(s.list, stdFiles...)
	s.list = append(s.list, dataFiles...)
	return nil
}

// appendCatalogEntry handles one catalog object during list
// construction: every recognized object lands in the snapshot; only
// plain file-backed objects contribute to the copy list.
func (s *Session) appendCatalogEntry(name, config string, seen map[string]bool, dataFiles *[]string) error {
	if !catalog.Recognized(name) {
		return errors.UnsupportedObjectType(name)
	}
	// The lookaside file holds only transient eviction state and is
	// rebuilt on startup; it appears in neither snapshot nor copy list.
	if name == catalog.LookasideURI {
		return nil
	}
	if v, ok := catalog.ConfigValue(config, "chunks"); ok && v != "1" {
		return errors.ErrUnsupportedObjectType.
			WithDetails("object %q spans multiple files", name)
	}

	if err := s.snap.WriteEntry(name, config); err != nil {
		return err
	}

	// System objects live entirely inside the metadata snapshot
	if !catalog.IsFile(name) || catalog.IsSystem(name) {
		return nil
	}
	file := catalog.StripFilePrefix(name)
	if !seen[file] {
		seen[file] = true
		*dataFiles = append(*dataFiles, file)
	}
	return nil
}

// rollback tears down a partially-initialized primary session. The
// original error has already been captured by the caller; cleanup
// failures are logged, not returned.
func (s *Session) rollback() {
	if s.snap != nil {
		s.snap.Discard()
		s.snap = nil
	}
	if err := RemoveFiles(s.deps.Home); err != nil {
		s.log.Warn("backup rollback: removing artifacts", "error", err)
	}
	if s.ownsCleanup {
		s.deps.Coordinator.End()
	}
	s.st = stateClosed
}
