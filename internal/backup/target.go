package backup

import (
	"strings"

	"kestreldb/internal/errors"
)

// LogTarget restricts a backup to the write-ahead log segments
const LogTarget = "log:"

// targetSpec is the parsed form of Options.Targets. Mixing the log
// target with object targets is legal; logOnly holds only when log: is
// the sole target.
type targetSpec struct {
	set    bool
	hasLog bool
	uris   []string
}

func (t targetSpec) logOnly() bool {
	return t.hasLog && len(t.uris) == 0
}

// parseTargets validates the target list. Targets are bare URIs; a
// value after the URI (anything containing '=') is rejected.
func parseTargets(targets []string) (targetSpec, error) {
	var tgt targetSpec
	if len(targets) == 0 {
		return tgt, nil
	}
	tgt.set = true
	for _, t := range targets {
		if t == "" {
			return tgt, errors.InvalidTarget(t, "empty target")
		}
		if strings.ContainsAny(t, "=()") {
			return tgt, errors.InvalidTarget(t, "targets do not accept values")
		}
		if t == LogTarget {
			tgt.hasLog = true
			continue
		}
		tgt.uris = append(tgt.uris, t)
	}
	return tgt, nil
}
