package exitcode

import (
	"fmt"
	"testing"

	"kestreldb/internal/errors"
)

func TestExitCodeConstants(t *testing.T) {
	// Verify exit code constants match BSD sysexits.h values
	tests := []struct {
		name     string
		code     int
		expected int
	}{
		{"Success", Success, 0},
		{"General", General, 1},
		{"UsageError", UsageError, 2},
		{"DataError", DataError, 65},
		{"NoInput", NoInput, 66},
		{"Unavailable", Unavailable, 69},
		{"Software", Software, 70},
		{"OSError", OSError, 71},
		{"CantCreate", CantCreate, 73},
		{"IOError", IOError, 74},
		{"TempFail", TempFail, 75},
		{"NoPerm", NoPerm, 77},
		{"Config", Config, 78},
		{"Cancelled", Cancelled, 130},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.code != tt.expected {
				t.Errorf("%s = %d, want %d", tt.name, tt.code, tt.expected)
			}
		})
	}
}

func TestExitWithCode_NilError(t *testing.T) {
	if code := ExitWithCode(nil); code != Success {
		t.Errorf("ExitWithCode(nil) = %d, want %d", code, Success)
	}
}

func TestExitWithCode_Taxonomy(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"already active", errors.ErrAlreadyActive, TempFail},
		{"duplicate already active", errors.ErrDuplicateAlreadyActive, TempFail},
		{"unsupported object", errors.UnsupportedObjectType("weird:thing"), DataError},
		{"invalid target", errors.InvalidTarget("log:", "mixed"), UsageError},
		{"archival conflict", errors.ErrLogArchivalConflict, Config},
		{"not supported", errors.ErrNotSupported, Software},
		{"io", errors.IO("rename", "x", fmt.Errorf("boom")), IOError},
		{"wrapped", fmt.Errorf("open: %w", errors.ErrAlreadyActive), TempFail},
		{"plain error", fmt.Errorf("something else"), General},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitWithCode(tt.err); got != tt.want {
				t.Errorf("ExitWithCode = %d, want %d", got, tt.want)
			}
		})
	}
}
