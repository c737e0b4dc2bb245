package backup

import (
	"bufio"
	"path/filepath"

	"github.com/spf13/afero"

	"kestreldb/internal/errors"
	"kestreldb/internal/fs"
)

// snapshotWriter accumulates the metadata snapshot in a temporary file.
// The snapshot becomes visible only through Publish, which syncs and
// atomically renames the temp file onto its final name; a crash at any
// earlier point leaves at most a stale temp file that teardown removes.
type snapshotWriter struct {
	home string
	path string
	file afero.File
	buf  *bufio.Writer
}

// newSnapshotWriter creates home/Kestrel.backup.tmp exclusively. A
// pre-existing temp file means a concurrent or crashed backup; the
// caller surfaces that as an I/O failure rather than silently
// truncating.
func newSnapshotWriter(home string) (*snapshotWriter, error) {
	path := filepath.Join(home, TempFile)
	f, err := fs.CreateExclusive(path)
	if err != nil {
		return nil, errors.IO("create", path, err)
	}
	return &snapshotWriter{
		home: home,
		path: path,
		file: f,
		buf:  bufio.NewWriter(f),
	}, nil
}

// WriteEntry appends one object's metadata: the object name on one line,
// its configuration on the next
func (w *snapshotWriter) WriteEntry(name, config string) error {
	if _, err := w.buf.WriteString(name); err != nil {
		return errors.IO("write", w.path, err)
	}
	if err := w.buf.WriteByte('\n'); err != nil {
		return errors.IO("write", w.path, err)
	}
	if _, err := w.buf.WriteString(config); err != nil {
		return errors.IO("write", w.path, err)
	}
	if err := w.buf.WriteByte('\n'); err != nil {
		return errors.IO("write", w.path, err)
	}
	return nil
}

// Publish flushes, syncs, and renames the temp file onto dest (a bare
// file name inside home). After Publish the writer is spent.
func (w *snapshotWriter) Publish(dest string) error {
	if err := w.buf.Flush(); err != nil {
		w.file.Close()
		return errors.IO("flush", w.path, err)
	}
	target := filepath.Join(w.home, dest)
	if err := fs.SyncAndRename(w.file, w.path, target); err != nil {
		return errors.IO("rename", target, err)
	}
	w.file = nil
	return nil
}

// Discard closes and removes the temp file. Safe after a failed
// Publish; best effort.
func (w *snapshotWriter) Discard() {
	if w.file != nil {
		w.file.Close()
		w.file = nil
	}
	fs.RemoveIfExists(w.path)
}
