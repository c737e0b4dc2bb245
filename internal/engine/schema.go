package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"kestreldb/internal/catalog"
	"kestreldb/internal/errors"
	"kestreldb/internal/fs"
)

// CreateTable creates a table object and its backing data file. The
// table name is bare ("users"); the catalog records table:users backed
// by file:users.kd.
func (c *Connection) CreateTable(ctx context.Context, name string) error {
	if name == "" || strings.Contains(name, ":") {
		return errors.InvalidTarget(name, "table names must not contain a colon")
	}

	c.schemaLock.Lock()
	defer c.schemaLock.Unlock()

	fileName := name + ".kd"
	fileURI := catalog.PrefixFile + fileName
	tableURI := catalog.PrefixTable + name

	if _, err := c.catalog.Get(ctx, tableURI); err == nil {
		return errors.InvalidTarget(tableURI, "object already exists")
	} else if !errors.Is(err, catalog.ErrNotFound) {
		return err
	}

	if err := c.createBackingFile(fileName); err != nil {
		return err
	}
	if err := c.catalog.Insert(ctx, fileURI, "chunks=1,allocation_size=4KB"); err != nil {
		return err
	}
	tableCfg := fmt.Sprintf("colgroups=,source=%q", fileURI)
	if err := c.catalog.Insert(ctx, tableURI, tableCfg); err != nil {
		return err
	}
	c.log.Info("table created", "name", name, "file", fileName)
	return nil
}

// CreateIndex creates an index on a table, backed by its own file
// (file:<table>_<index>.kdi)
func (c *Connection) CreateIndex(ctx context.Context, table, index string) error {
	c.schemaLock.Lock()
	defer c.schemaLock.Unlock()

	tableURI := catalog.PrefixTable + table
	if _, err := c.catalog.Get(ctx, tableURI); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return errors.InvalidTarget(tableURI, "no such table")
		}
		return err
	}

	fileName := table + "_" + index + ".kdi"
	fileURI := catalog.PrefixFile + fileName
	indexURI := catalog.PrefixIndex + table + ":" + index

	if err := c.createBackingFile(fileName); err != nil {
		return err
	}
	if err := c.catalog.Insert(ctx, fileURI, "chunks=1"); err != nil {
		return err
	}
	if err := c.catalog.Insert(ctx, indexURI, fmt.Sprintf("source=%q", fileURI)); err != nil {
		return err
	}
	c.log.Info("index created", "table", table, "index", index)
	return nil
}

// DropTable removes a table, its indexes, and their backing files from
// the catalog and the tree
func (c *Connection) DropTable(ctx context.Context, name string) error {
	c.schemaLock.Lock()
	defer c.schemaLock.Unlock()

	tableURI := catalog.PrefixTable + name

	// Collect the object closure under the table lock, then remove
	var names, files []string
	err := c.WithTableLock(func() error {
		return c.catalog.WorkEach(ctx, tableURI, func(obj, _ string) error {
			names = append(names, obj)
			if catalog.IsFile(obj) {
				files = append(files, catalog.StripFilePrefix(obj))
			}
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return errors.InvalidTarget(tableURI, "no such table")
		}
		return err
	}

	for _, obj := range names {
		if err := c.catalog.Remove(ctx, obj); err != nil && !errors.Is(err, catalog.ErrNotFound) {
			return err
		}
	}
	if !c.cfg.InMemory {
		for _, f := range files {
			if err := fs.RemoveIfExists(filepath.Join(c.cfg.Home, f)); err != nil {
				c.log.Warn("removing dropped table file", "file", f, "error", err)
			}
		}
	}
	c.log.Info("table dropped", "name", name, "files", len(files))
	return nil
}

// ListObjects iterates the catalog in insertion order
func (c *Connection) ListObjects(ctx context.Context, fn func(name, config string) error) error {
	return c.catalog.ForEach(ctx, fn)
}

// WithTableLock runs fn with the table (handle-list) lock held
func (c *Connection) WithTableLock(fn func() error) error {
	c.tableLock.Lock()
	defer c.tableLock.Unlock()
	return fn()
}

func (c *Connection) createBackingFile(name string) error {
	if c.cfg.InMemory {
		return nil
	}
	path := filepath.Join(c.cfg.Home, name)
	f, err := fs.CreateExclusive(path)
	if err != nil {
		return errors.IO("create", path, err)
	}
	return f.Close()
}
