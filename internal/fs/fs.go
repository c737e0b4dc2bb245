// Package fs provides filesystem abstraction using spf13/afero for testability.
// It allows swapping the real filesystem with an in-memory mock for unit tests,
// and adds the primitives the backup subsystem depends on: exclusive create,
// atomic publication by rename, existence check, and best-effort removal.
package fs

import (
	"os"

	"github.com/spf13/afero"
)

// FS is the global filesystem interface used throughout the application.
// By default, it uses the real OS filesystem.
// For testing, use SetFS(afero.NewMemMapFs()) to use an in-memory filesystem.
var FS afero.Fs = afero.NewOsFs()

// SetFS sets the global filesystem (useful for testing)
func SetFS(fs afero.Fs) {
	FS = fs
}

// ResetFS resets to the real OS filesystem
func ResetFS() {
	FS = afero.NewOsFs()
}

// NewMemMapFs creates a new in-memory filesystem for testing
func NewMemMapFs() afero.Fs {
	return afero.NewMemMapFs()
}

// --- File Operations (use global FS) ---

// Create creates a file, truncating it if it exists
func Create(name string) (afero.File, error) {
	return FS.Create(name)
}

// CreateExclusive creates a file that must not already exist. The backup
// subsystem uses this for temporary snapshot and marker files so that a
// stale file from a crashed run is detected instead of overwritten.
func CreateExclusive(name string) (afero.File, error) {
	return FS.OpenFile(name, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
}

// Open opens a file for reading
func Open(name string) (afero.File, error) {
	return FS.Open(name)
}

// OpenFile opens a file with specified flags and permissions
func OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	return FS.OpenFile(name, flag, perm)
}

// Remove removes a file or empty directory
func Remove(name string) error {
	return FS.Remove(name)
}

// RemoveIfExists removes a file if present; a missing file is not an error
func RemoveIfExists(name string) error {
	err := FS.Remove(name)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

// Rename renames (moves) a file
func Rename(oldname, newname string) error {
	return FS.Rename(oldname, newname)
}

// SyncAndRename flushes an open file to stable storage, closes it, and
// renames it into its final name. Publication is atomic with respect to
// any reader: the final name either does not exist or is complete.
func SyncAndRename(f afero.File, oldname, newname string) error {
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return FS.Rename(oldname, newname)
}

// Exists checks if a file or directory exists
func Exists(name string) (bool, error) {
	return afero.Exists(FS, name)
}

// Stat returns file info
func Stat(name string) (os.FileInfo, error) {
	return FS.Stat(name)
}

// --- Directory Operations ---

// Mkdir creates a directory
func Mkdir(name string, perm os.FileMode) error {
	return FS.Mkdir(name, perm)
}

// MkdirAll creates a directory and all parents
func MkdirAll(path string, perm os.FileMode) error {
	return FS.MkdirAll(path, perm)
}

// ReadDir reads a directory
func ReadDir(dirname string) ([]os.FileInfo, error) {
	return afero.ReadDir(FS, dirname)
}

// --- File Content Operations ---

// ReadFile reads an entire file
func ReadFile(filename string) ([]byte, error) {
	return afero.ReadFile(FS, filename)
}

// WriteFile writes data to a file
func WriteFile(filename string, data []byte, perm os.FileMode) error {
	return afero.WriteFile(FS, filename, data, perm)
}
