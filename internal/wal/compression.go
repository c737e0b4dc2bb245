package wal

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"

	"kestreldb/internal/fs"
)

// archiveSegment copies one finished segment into the archive directory,
// applying the configured compression
func (m *Manager) archiveSegment(srcPath, name string) error {
	src, err := fs.Open(srcPath)
	if err != nil {
		return fmt.Errorf("failed to open segment for archival: %w", err)
	}
	defer src.Close()

	destName := name
	switch m.config.Compression {
	case "gzip":
		destName += ".gz"
	case "zstd":
		destName += ".zst"
	}
	destPath := filepath.Join(m.config.ArchiveDir, destName)

	dst, err := fs.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}

	var (
		w        io.Writer = dst
		closeFns []func() error
	)
	switch m.config.Compression {
	case "gzip":
		gw := pgzip.NewWriter(dst)
		w = gw
		closeFns = append(closeFns, gw.Close)
	case "zstd":
		zw, err := zstd.NewWriter(dst)
		if err != nil {
			dst.Close()
			return fmt.Errorf("failed to create zstd writer: %w", err)
		}
		w = zw
		closeFns = append(closeFns, zw.Close)
	}

	if _, err := io.Copy(w, src); err != nil {
		for _, fn := range closeFns {
			_ = fn()
		}
		dst.Close()
		_ = fs.Remove(destPath)
		return fmt.Errorf("failed to archive segment %s: %w", name, err)
	}

	for _, fn := range closeFns {
		if err := fn(); err != nil {
			dst.Close()
			_ = fs.Remove(destPath)
			return fmt.Errorf("failed to finish archive of %s: %w", name, err)
		}
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("failed to close archive file: %w", err)
	}

	m.log.Debug("Archived log segment", "file", name, "dest", destName)
	return nil
}
