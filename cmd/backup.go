package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/spf13/cobra"

	"kestreldb/internal/backup"
	"kestreldb/internal/engine"
	"kestreldb/internal/errors"
	"kestreldb/internal/fs"
	"kestreldb/internal/logger"
)

var (
	backupDest        string
	backupIncremental bool
	backupTargets     []string
	backupLogTail     bool
	backupNoProgress  bool
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Take a hot backup of the engine home directory",
	Long: `Copy a consistent snapshot of the engine tree to a destination
directory while the engine stays open for reads and writes.

The backup pins the most recent checkpoint for its whole duration:
point-in-time consistency comes from that checkpoint plus the copied
log segments, which are replayed when the copy is first opened.

Modes:
  full          - Everything: log segments, metadata snapshot, data files
  incremental   - Log segments only, on top of an earlier full backup
  targeted      - Only the named tables/indexes (--target), or "log:"

Examples:
  # Full backup
  kestrel backup --dest /backups/nightly

  # Incremental on top of a previous full backup
  kestrel backup --dest /backups/nightly --incremental

  # One table and its indexes
  kestrel backup --dest /backups/users --target table:users

  # Log segments only (requires log archival to be off)
  kestrel backup --dest /backups/logs --target log:`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBackup(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(backupCmd)
	backupCmd.Flags().StringVar(&backupDest, "dest", "", "Destination directory (required)")
	backupCmd.Flags().BoolVar(&backupIncremental, "incremental", false, "Log-only backup on top of an earlier full backup")
	backupCmd.Flags().StringArrayVar(&backupTargets, "target", nil, "Restrict the backup to an object (repeatable)")
	backupCmd.Flags().BoolVar(&backupLogTail, "log-tail", true, "Pick up log segments written during the copy")
	backupCmd.Flags().BoolVar(&backupNoProgress, "no-progress", false, "Disable the progress bar")
	backupCmd.MarkFlagRequired("dest")
}

func runBackup(ctx context.Context) error {
	start := time.Now()

	conn, err := engine.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer conn.Close()

	cursor, err := conn.OpenBackupCursor(ctx, backup.Options{
		Targets:     backupTargets,
		Incremental: backupIncremental,
	})
	if err != nil {
		return err
	}
	defer cursor.Close()

	if err := fs.MkdirAll(backupDest, 0o755); err != nil {
		return errors.IO("mkdir", backupDest, err)
	}

	total, err := listSize(conn.Home(), cursor.Files())
	if err != nil {
		return err
	}
	if err := checkDestSpace(backupDest, total); err != nil {
		return err
	}

	logger.Header("Backup: %s -> %s", conn.Home(), backupDest)
	logger.StatusLine("Files", fmt.Sprintf("%d", len(cursor.Files())))
	logger.StatusLine("Size", humanize.Bytes(uint64(total)))

	copied, err := copyList(ctx, conn.Home(), backupDest, cursor, total)
	if err != nil {
		return err
	}

	// A long copy leaves a log tail behind; a duplicate cursor picks up
	// the segments that completed while we were copying.
	if backupLogTail && conn.Log() != nil && len(backupTargets) == 0 {
		tail, err := conn.OpenDuplicateBackupCursor(ctx)
		if err != nil {
			return err
		}
		tailCopied, err := copyList(ctx, conn.Home(), backupDest, tail, 0)
		if cerr := tail.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return err
		}
		copied += tailCopied
	}

	logger.Success("Backup complete: %s in %s (%s/s)",
		humanize.Bytes(uint64(copied)),
		time.Since(start).Round(time.Millisecond),
		humanize.Bytes(uint64(float64(copied)/time.Since(start).Seconds())))
	return nil
}

// listSize sums the on-disk sizes of the files the cursor names
func listSize(home string, files []string) (int64, error) {
	var total int64
	for _, name := range files {
		info, err := fs.Stat(filepath.Join(home, name))
		if err != nil {
			return 0, errors.IO("stat", name, err)
		}
		total += info.Size()
	}
	return total, nil
}

// checkDestSpace refuses to start a copy the destination volume cannot
// hold. Skipped silently when usage cannot be determined (e.g. network
// filesystems that do not report it).
func checkDestSpace(dest string, need int64) error {
	usage, err := disk.Usage(dest)
	if err != nil {
		log.Debug("destination usage unavailable", "dest", dest, "error", err)
		return nil
	}
	if usage.Free < uint64(need) {
		return errors.DiskFull(dest, uint64(need), usage.Free)
	}
	return nil
}

// copyList drives the cursor and copies each named file from home to
// dest, preserving relative names
func copyList(ctx context.Context, home, dest string, cursor *backup.Session, total int64) (int64, error) {
	var bar *progressbar.ProgressBar
	if !backupNoProgress && total > 0 {
		bar = progressbar.DefaultBytes(total, "copying")
		defer bar.Close()
	}

	var copied int64
	for {
		if err := ctx.Err(); err != nil {
			return copied, err
		}
		name, err := cursor.Next()
		if errors.Is(err, errors.ErrEndOfList) {
			return copied, nil
		}
		if err != nil {
			return copied, err
		}
		n, err := copyFile(filepath.Join(home, name), filepath.Join(dest, name), bar)
		if err != nil {
			return copied, err
		}
		log.Debug("copied", "file", name, "bytes", n)
		copied += n
	}
}

func copyFile(src, dst string, bar *progressbar.ProgressBar) (int64, error) {
	in, err := fs.Open(src)
	if err != nil {
		return 0, errors.IO("open", src, err)
	}
	defer in.Close()

	out, err := fs.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, errors.IO("create", dst, err)
	}

	var w io.Writer = out
	if bar != nil {
		w = io.MultiWriter(out, bar)
	}
	n, err := io.Copy(w, in)
	if err != nil {
		out.Close()
		return n, errors.IO("copy", dst, err)
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return n, errors.IO("sync", dst, err)
	}
	if err := out.Close(); err != nil {
		return n, errors.IO("close", dst, err)
	}
	return n, nil
}
