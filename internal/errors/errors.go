// Package errors provides structured error types for kestreldb
// with error codes, categories, and remediation guidance
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

// Error codes for kestreldb
// Format: KESTREL-<CATEGORY><NUMBER>
// Categories: B=Backup, K=Cursor, C=Config, E=Environment, I=Internal
const (
	// Backup lifecycle errors
	ErrCodeAlreadyActive          ErrorCode = "KESTREL-B001"
	ErrCodeDuplicateAlreadyActive ErrorCode = "KESTREL-B002"
	ErrCodeUnsupportedObjectType  ErrorCode = "KESTREL-B003"
	ErrCodeInvalidTarget          ErrorCode = "KESTREL-B004"
	ErrCodeLogArchivalConflict    ErrorCode = "KESTREL-B005"

	// Cursor protocol signals
	ErrCodeEndOfList    ErrorCode = "KESTREL-K001"
	ErrCodeNotSupported ErrorCode = "KESTREL-K002"

	// Configuration errors (user fix)
	ErrCodeInvalidConfig ErrorCode = "KESTREL-C001"
	ErrCodeInvalidPath   ErrorCode = "KESTREL-C002"

	// Environment errors (infrastructure fix)
	ErrCodeIO       ErrorCode = "KESTREL-E001"
	ErrCodeDiskFull ErrorCode = "KESTREL-E002"

	// Internal errors (report to maintainers)
	ErrCodeInvalidState ErrorCode = "KESTREL-I001"
	ErrCodeCorruption   ErrorCode = "KESTREL-I002"
)

// Category represents error categories
type Category string

const (
	CategoryBackup      Category = "backup"
	CategoryCursor      Category = "cursor"
	CategoryConfig      Category = "configuration"
	CategoryEnvironment Category = "environment"
	CategoryInternal    Category = "internal"
)

// EngineError is a structured error with code, category, and remediation
type EngineError struct {
	Code        ErrorCode
	Category    Category
	Message     string
	Details     string
	Remediation string
	Cause       error
}

// Error implements error interface
func (e *EngineError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Details != "" {
		msg += fmt.Sprintf(": %s", e.Details)
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(": %v", e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause
func (e *EngineError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for error comparison; two engine errors
// are the same error if their codes match
func (e *EngineError) Is(target error) bool {
	if t, ok := target.(*EngineError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetails adds details to a copy of the error, leaving the
// original (usually a package-level sentinel) untouched
func (e *EngineError) WithDetails(format string, args ...interface{}) *EngineError {
	dup := *e
	dup.Details = fmt.Sprintf(format, args...)
	return &dup
}

// WithCause adds an underlying cause to a copy of the error
func (e *EngineError) WithCause(cause error) *EngineError {
	dup := *e
	dup.Cause = cause
	return &dup
}

// Sentinel errors for the backup subsystem. Callers compare with
// errors.Is; use WithDetails/WithCause to attach context without
// breaking the comparison.
var (
	// ErrAlreadyActive: a non-duplicate backup cursor is requested while
	// one is already open on this connection.
	ErrAlreadyActive = &EngineError{
		Code:        ErrCodeAlreadyActive,
		Category:    CategoryBackup,
		Message:     "there is already a backup cursor open",
		Remediation: "Close the existing backup cursor before opening a new one.",
	}

	// ErrDuplicateAlreadyActive: a second duplicate cursor is requested
	// while one already exists for the primary.
	ErrDuplicateAlreadyActive = &EngineError{
		Code:        ErrCodeDuplicateAlreadyActive,
		Category:    CategoryBackup,
		Message:     "there is already a duplicate backup cursor open",
		Remediation: "Close the existing duplicate cursor before opening another.",
	}

	// ErrUnsupportedObjectType: the catalog contains an object the hot
	// backup cannot represent; failing beats silently omitting it.
	ErrUnsupportedObjectType = &EngineError{
		Code:     ErrCodeUnsupportedObjectType,
		Category: CategoryBackup,
		Message:  "hot backup is not supported for this object type",
	}

	// ErrInvalidTarget: malformed backup target specifier, or a target
	// combination the requested cursor kind does not allow.
	ErrInvalidTarget = &EngineError{
		Code:     ErrCodeInvalidTarget,
		Category: CategoryBackup,
		Message:  "invalid backup target",
	}

	// ErrLogArchivalConflict: incremental backup requested while
	// automatic log archival is enabled.
	ErrLogArchivalConflict = &EngineError{
		Code:        ErrCodeLogArchivalConflict,
		Category:    CategoryBackup,
		Message:     "incremental backup not possible when automatic log archival is configured",
		Remediation: "Disable log archival (log.archive=false) or take a full backup instead.",
	}

	// ErrEndOfList is the normal termination signal for cursor
	// enumeration, not a failure.
	ErrEndOfList = &EngineError{
		Code:     ErrCodeEndOfList,
		Category: CategoryCursor,
		Message:  "end of backup file list",
	}

	// ErrNotSupported: operation not supported by this cursor kind.
	ErrNotSupported = &EngineError{
		Code:     ErrCodeNotSupported,
		Category: CategoryCursor,
		Message:  "operation not supported",
	}

	// ErrIO wraps filesystem failures during snapshot write, rename,
	// or removal.
	ErrIO = &EngineError{
		Code:     ErrCodeIO,
		Category: CategoryEnvironment,
		Message:  "filesystem operation failed",
	}

	// ErrInvalidState: internal state machine violation.
	ErrInvalidState = &EngineError{
		Code:     ErrCodeInvalidState,
		Category: CategoryInternal,
		Message:  "invalid session state",
	}
)

// UnsupportedObjectType builds an ErrUnsupportedObjectType naming the
// offending catalog entry
func UnsupportedObjectType(name string) *EngineError {
	return ErrUnsupportedObjectType.WithDetails("object %q", name)
}

// InvalidTarget builds an ErrInvalidTarget naming the offending specifier
func InvalidTarget(target, reason string) *EngineError {
	return ErrInvalidTarget.WithDetails("%s: %s", target, reason)
}

// IO wraps a filesystem error with the operation and path that failed
func IO(op, path string, cause error) *EngineError {
	return ErrIO.WithDetails("%s %s", op, path).WithCause(cause)
}

// DiskFull reports insufficient space at path for a required size
func DiskFull(path string, need, free uint64) *EngineError {
	return &EngineError{
		Code:        ErrCodeDiskFull,
		Category:    CategoryEnvironment,
		Message:     "not enough free disk space",
		Details:     fmt.Sprintf("%s: need %d bytes, %d free", path, need, free),
		Remediation: "Free up space on the destination volume or choose another destination.",
	}
}

// NewConfigError creates a configuration error
func NewConfigError(code ErrorCode, message string, remediation string) *EngineError {
	return &EngineError{
		Code:        code,
		Category:    CategoryConfig,
		Message:     message,
		Remediation: remediation,
	}
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// GetCategory returns the error category if available
func GetCategory(err error) Category {
	var engineErr *EngineError
	if errors.As(err, &engineErr) {
		return engineErr.Category
	}
	return ""
}

// GetCode returns the error code if available
func GetCode(err error) ErrorCode {
	var engineErr *EngineError
	if errors.As(err, &engineErr) {
		return engineErr.Code
	}
	return ""
}
