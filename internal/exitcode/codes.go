package exitcode

import (
	"kestreldb/internal/errors"
)

// Standard exit codes following BSD sysexits.h conventions
// See: https://man.freebsd.org/cgi/man.cgi?query=sysexits
const (
	// Success - operation completed successfully
	Success = 0

	// General - general error (fallback)
	General = 1

	// UsageError - command line usage error
	UsageError = 2

	// DataError - input data was incorrect
	DataError = 65

	// NoInput - input file did not exist or was not readable
	NoInput = 66

	// Unavailable - service unavailable
	Unavailable = 69

	// Software - internal software error
	Software = 70

	// OSError - operating system error (file I/O, etc.)
	OSError = 71

	// CantCreate - can't create output file
	CantCreate = 73

	// IOError - error during I/O operation
	IOError = 74

	// TempFail - temporary failure, user can retry
	TempFail = 75

	// NoPerm - permission denied
	NoPerm = 77

	// Config - configuration error
	Config = 78

	// Cancelled - operation cancelled by user (Ctrl+C)
	Cancelled = 130
)

// ExitWithCode returns the exit code matching an engine error's code,
// one code per error kind in the backup taxonomy
func ExitWithCode(err error) int {
	if err == nil {
		return Success
	}

	switch errors.GetCode(err) {
	case errors.ErrCodeAlreadyActive, errors.ErrCodeDuplicateAlreadyActive:
		// Another backup holds the connection; retry after it closes.
		return TempFail
	case errors.ErrCodeUnsupportedObjectType:
		return DataError
	case errors.ErrCodeInvalidTarget:
		return UsageError
	case errors.ErrCodeLogArchivalConflict:
		return Config
	case errors.ErrCodeNotSupported:
		return Software
	case errors.ErrCodeIO:
		return IOError
	case errors.ErrCodeDiskFull:
		return CantCreate
	case errors.ErrCodeInvalidConfig, errors.ErrCodeInvalidPath:
		return Config
	case errors.ErrCodeInvalidState, errors.ErrCodeCorruption:
		return Software
	}

	return General
}
