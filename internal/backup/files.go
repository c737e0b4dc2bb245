package backup

import (
	"path/filepath"

	"github.com/hashicorp/go-multierror"

	"kestreldb/internal/errors"
	"kestreldb/internal/fs"
)

// Backup artifact file names in the engine home.
const (
	// MetadataFile is the published metadata snapshot of a full backup
	MetadataFile = "Kestrel.backup"

	// TempFile is the snapshot while it is being written; renamed to its
	// final name on success, removed on any failure
	TempFile = "Kestrel.backup.tmp"

	// IncrementalFile marks an incremental (log-only) backup and is the
	// published snapshot name in that mode
	IncrementalFile = "Kestrel.ibackup"

	// IncrementalSrcFile marks the *source* directory of an incremental
	// backup, so a crash can tell a source from a half-copied destination
	IncrementalSrcFile = "Kestrel.isrc"

	// BaseConfigFile and UserConfigFile are copied verbatim when present
	BaseConfigFile = "Kestrel.basecfg"
	UserConfigFile = "Kestrel.config"

	// VersionFile is the engine version file, always part of a full backup
	VersionFile = "Kestrel"
)

// RemoveFiles removes every backup-specific file from a home directory.
// Removal is best-effort: failures are collected and the remaining steps
// still run. Order matters: the incremental backup file goes before the
// incremental source file, so the directory is identifiable as a backup
// source for as long as any incremental backup file can exist.
func RemoveFiles(home string) error {
	var merr *multierror.Error
	for _, name := range []string{TempFile, IncrementalFile, IncrementalSrcFile, MetadataFile} {
		if err := fs.RemoveIfExists(filepath.Join(home, name)); err != nil {
			merr = multierror.Append(merr, errors.IO("remove", name, err))
		}
	}
	return merr.ErrorOrNil()
}
