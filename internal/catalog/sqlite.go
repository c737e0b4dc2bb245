// Package catalog - SQLite storage implementation
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO required)
)

// Catalog is the SQLite-backed metadata catalog. Insertion order is
// preserved: ForEach walks entries in the order they were created.
type Catalog struct {
	db   *sql.DB
	path string
}

// Open opens (creating if necessary) the catalog at the given path.
// ":memory:" opens a private in-memory catalog.
func Open(dbPath string) (*Catalog, error) {
	dsn := dbPath
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create catalog directory: %w", err)
		}
		// WAL journal for concurrent readers, busy_timeout so schema
		// operations wait for each other instead of failing.
		dsn = dbPath + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog database: %w", err)
	}

	// SQLite supports a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	c := &Catalog{db: db, path: dbPath}
	if err := c.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

func (c *Catalog) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS objects (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT UNIQUE NOT NULL,
		config TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_objects_name ON objects(name);
	`
	if _, err := c.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize catalog schema: %w", err)
	}
	return nil
}

// Close closes the catalog database
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Insert adds a named object with its descriptor configuration
func (c *Catalog) Insert(ctx context.Context, name, config string) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO objects (name, config) VALUES (?, ?)`, name, config)
	if err != nil {
		return fmt.Errorf("failed to insert catalog entry %s: %w", name, err)
	}
	return nil
}

// Update replaces the descriptor configuration of a named object
func (c *Catalog) Update(ctx context.Context, name, config string) error {
	res, err := c.db.ExecContext(ctx,
		`UPDATE objects SET config = ? WHERE name = ?`, config, name)
	if err != nil {
		return fmt.Errorf("failed to update catalog entry %s: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Get returns the descriptor configuration of a named object
func (c *Catalog) Get(ctx context.Context, name string) (string, error) {
	var config string
	err := c.db.QueryRowContext(ctx,
		`SELECT config FROM objects WHERE name = ?`, name).Scan(&config)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read catalog entry %s: %w", name, err)
	}
	return config, nil
}

// Remove deletes a named object
func (c *Catalog) Remove(ctx context.Context, name string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM objects WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to remove catalog entry %s: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ForEach visits every catalog entry in insertion order, stopping and
// propagating on the first visitor error
func (c *Catalog) ForEach(ctx context.Context, fn func(name, config string) error) error {
	rows, err := c.db.QueryContext(ctx,
		`SELECT name, config FROM objects ORDER BY id`)
	if err != nil {
		return fmt.Errorf("failed to walk catalog: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name, config string
		if err := rows.Scan(&name, &config); err != nil {
			return fmt.Errorf("failed to scan catalog entry: %w", err)
		}
		if err := fn(name, config); err != nil {
			return err
		}
	}
	return rows.Err()
}

// WorkEach visits a named object and, transitively, its dependents: a
// table's column groups and indexes, and the file: sources any of them
// declare. Visit order mirrors ForEach: the named object first, then
// dependents in insertion order.
func (c *Catalog) WorkEach(ctx context.Context, uri string, fn func(name, config string) error) error {
	config, err := c.Get(ctx, uri)
	if err != nil {
		return err
	}
	if err := fn(uri, config); err != nil {
		return err
	}
	if err := c.visitSource(ctx, config, fn); err != nil {
		return err
	}

	if !strings.HasPrefix(uri, PrefixTable) {
		return nil
	}

	// Column groups are named "colgroup:<table>" or "colgroup:<table>:<cg>",
	// indexes "index:<table>:<name>".
	table := strings.TrimPrefix(uri, PrefixTable)
	rows, err := c.db.QueryContext(ctx,
		`SELECT name, config FROM objects WHERE name = ? OR name LIKE ? OR name LIKE ? ORDER BY id`,
		PrefixColgroup+table,
		PrefixColgroup+table+":%",
		PrefixIndex+table+":%")
	if err != nil {
		return fmt.Errorf("failed to walk dependents of %s: %w", uri, err)
	}
	defer rows.Close()

	type dep struct{ name, config string }
	var deps []dep
	for rows.Next() {
		var d dep
		if err := rows.Scan(&d.name, &d.config); err != nil {
			return fmt.Errorf("failed to scan catalog entry: %w", err)
		}
		deps = append(deps, d)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, d := range deps {
		if err := fn(d.name, d.config); err != nil {
			return err
		}
		if err := c.visitSource(ctx, d.config, fn); err != nil {
			return err
		}
	}
	return nil
}

// visitSource visits the file: entry a descriptor names as its source
func (c *Catalog) visitSource(ctx context.Context, config string, fn func(name, config string) error) error {
	source, ok := ConfigValue(config, "source")
	if !ok || !strings.HasPrefix(source, PrefixFile) {
		return nil
	}
	srcConfig, err := c.Get(ctx, source)
	if err != nil {
		if err == ErrNotFound {
			return nil
		}
		return err
	}
	return fn(source, srcConfig)
}

// Count returns the number of catalog entries
func (c *Catalog) Count(ctx context.Context) (int64, error) {
	var n int64
	err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM objects`).Scan(&n)
	return n, err
}
