// Package catalog manages the engine's metadata catalog: every named
// storage object (tables, column groups, indexes, files, system objects)
// together with its on-disk descriptor configuration.
package catalog

import (
	"errors"
	"strings"
)

// Object name prefixes. Every catalog entry is "<prefix><name>"; the
// prefix is the object's type.
const (
	PrefixFile     = "file:"
	PrefixTable    = "table:"
	PrefixColgroup = "colgroup:"
	PrefixIndex    = "index:"
	PrefixLSM      = "lsm:"
	PrefixSystem   = "system:"
)

// LookasideURI is the internal lookaside working set. It is never user
// data and never appears in backups.
const LookasideURI = "file:KestrelLas.kv"

// ErrNotFound is returned when a named object is not in the catalog
var ErrNotFound = errors.New("object not found in catalog")

// Entry is a single catalog record
type Entry struct {
	Name   string `json:"name"`
	Config string `json:"config"`
}

// Recognized reports whether a catalog entry's type prefix is one the
// engine knows how to handle
func Recognized(name string) bool {
	for _, p := range []string{PrefixFile, PrefixTable, PrefixColgroup, PrefixIndex, PrefixLSM, PrefixSystem} {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// IsFile reports whether the entry is backed by a physical file
func IsFile(name string) bool {
	return strings.HasPrefix(name, PrefixFile)
}

// IsSystem reports whether the entry is an internal system object:
// retained in metadata snapshots but with no backing file to copy
func IsSystem(name string) bool {
	return strings.HasPrefix(name, PrefixSystem)
}

// StripFilePrefix returns the on-disk name for a file: entry
func StripFilePrefix(name string) string {
	return strings.TrimPrefix(name, PrefixFile)
}

// ConfigValue extracts a value from a descriptor configuration string of
// the form "key=value,key=value". Values may be parenthesized; nesting is
// not interpreted.
func ConfigValue(config, key string) (string, bool) {
	rest := config
	for rest != "" {
		var pair string
		pair, rest = cutPair(rest)
		k, v, found := strings.Cut(pair, "=")
		if !found {
			if strings.TrimSpace(pair) == key {
				return "", true
			}
			continue
		}
		if strings.TrimSpace(k) == key {
			return strings.Trim(strings.TrimSpace(v), `"`), true
		}
	}
	return "", false
}

// cutPair splits the next top-level comma-separated pair off a
// configuration string, respecting parenthesized values
func cutPair(s string) (pair, rest string) {
	depth := 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				return s[:i], s[i+1:]
			}
		}
	}
	return s, ""
}
