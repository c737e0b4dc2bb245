package backup

import (
	"kestreldb/internal/errors"
)

// Next positions the session on the next file name to copy. When the
// list is exhausted it returns ErrEndOfList and leaves the session
// unpositioned; the caller treats that as normal termination.
func (s *Session) Next() (string, error) {
	if s.st != stateActive {
		return "", errors.ErrInvalidState.WithDetails("backup cursor is not open")
	}
	if s.pos >= len(s.list) {
		s.hasCur = false
		s.current = ""
		return "", errors.ErrEndOfList
	}
	s.current = s.list[s.pos]
	s.hasCur = true
	s.pos++
	return s.current, nil
}

// Key returns the file name the session is positioned on
func (s *Session) Key() (string, error) {
	if !s.hasCur {
		return "", errors.ErrInvalidState.WithDetails("backup cursor is not positioned")
	}
	return s.current, nil
}

// Reset rewinds iteration to the beginning of the file list without
// touching the backup state
func (s *Session) Reset() error {
	if s.st != stateActive {
		return errors.ErrInvalidState.WithDetails("backup cursor is not open")
	}
	s.pos = 0
	s.current = ""
	s.hasCur = false
	return nil
}

// Files returns a copy of the full file list. Convenience for callers
// that drive the copy themselves rather than iterating.
func (s *Session) Files() []string {
	out := make([]string, len(s.list))
	copy(out, s.list)
	return out
}

// Duplicate reports whether this session is a duplicate (log-only)
// cursor
func (s *Session) Duplicate() bool {
	return s.duplicate
}

// Close ends the session. Idempotent. For a primary session this
// withdraws the published list, removes the on-disk backup artifacts,
// and releases the checkpoint pin, in that order; failures removing
// artifacts are logged and teardown continues. A primary cannot be
// closed while a duplicate cursor it spawned is still open.
func (s *Session) Close() error {
	if s.st == stateClosed {
		return nil
	}

	if s.duplicate {
		s.st = stateStopping
		s.deps.Log.ResumeArchival()
		s.deps.Coordinator.EndDuplicate()
		s.st = stateClosed
		s.log.Debug("duplicate backup cursor closed")
		return nil
	}

	// A duplicate cursor layers on this session's checkpoint pin and
	// archival hold. It must be closed first.
	if s.deps.Coordinator.DuplicateActive() {
		return errors.ErrInvalidState.WithDetails("a duplicate backup cursor is still open")
	}
	s.st = stateStopping

	s.deps.Coordinator.ClearPublished()
	if err := RemoveFiles(s.deps.Home); err != nil {
		s.log.Warn("backup teardown: removing artifacts", "error", err)
	}
	if s.ownsCleanup {
		s.deps.Coordinator.End()
	}
	s.st = stateClosed
	if s.deps.OnClose != nil {
		s.deps.OnClose(s)
	}
	s.log.Info("backup cursor closed")
	return nil
}

// Search is not supported on backup cursors
func (s *Session) Search(string) error { return errors.ErrNotSupported }

// Insert is not supported on backup cursors
func (s *Session) Insert(string, []byte) error { return errors.ErrNotSupported }

// Update is not supported on backup cursors
func (s *Session) Update(string, []byte) error { return errors.ErrNotSupported }

// Remove is not supported on backup cursors
func (s *Session) Remove(string) error { return errors.ErrNotSupported }

// Compare is not supported on backup cursors
func (s *Session) Compare(*Session) (int, error) { return 0, errors.ErrNotSupported }
