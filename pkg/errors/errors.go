// Package errors defines common error types for the application.
package errors

import (
	"errors"
	"fmt"
)

// Error codes for the application. The three spec-defined kinds are
// InvalidArgument, InconsistentState (a warning, not fatal - see
// IsWarning) and Interrupted; the rest are ambient codes used by the
// persistence/storage/config layers around the audit core.
const (
	CodeUnknown           = "UNKNOWN_ERROR"
	CodeInvalidArgument   = "INVALID_ARGUMENT"
	CodeInconsistentState = "INCONSISTENT_STATE"
	CodeInterrupted       = "INTERRUPTED"
	CodeDatabaseError     = "DATABASE_ERROR"
	CodeStorageError      = "STORAGE_ERROR"
	CodeConfigError       = "CONFIG_ERROR"
	CodeNotFound          = "NOT_FOUND"
	CodeTimeout           = "TIMEOUT_ERROR"
)

// AppError represents an application error with a code and message.
type AppError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is checks if the error matches the target.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new AppError.
func New(code string, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an AppError.
func Wrap(code string, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common error instances.
var (
	ErrInvalidArgument   = New(CodeInvalidArgument, "invalid argument")
	ErrInconsistentState = New(CodeInconsistentState, "inconsistent state")
	ErrInterrupted       = New(CodeInterrupted, "interrupted")
	ErrDatabaseError     = New(CodeDatabaseError, "database error")
	ErrStorageError      = New(CodeStorageError, "storage error")
	ErrConfigError       = New(CodeConfigError, "configuration error")
	ErrNotFound          = New(CodeNotFound, "resource not found")
	ErrTimeout           = New(CodeTimeout, "operation timeout")
)

// IsInvalidArgument checks if the error is an invalid-argument error.
func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}

// IsInconsistentState checks if the error is an inconsistent-state
// warning: InconsistentState is reported as a warning, informing the
// caller after the operation that produced it has already proceeded.
func IsInconsistentState(err error) bool {
	return errors.Is(err, ErrInconsistentState)
}

// IsInterrupted checks if the error is a user-cancellation error.
func IsInterrupted(err error) bool {
	return errors.Is(err, ErrInterrupted)
}

// IsDatabaseError checks if the error is a database error.
func IsDatabaseError(err error) bool {
	return errors.Is(err, ErrDatabaseError)
}

// IsStorageError checks if the error is an object-storage error.
func IsStorageError(err error) bool {
	return errors.Is(err, ErrStorageError)
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// GetErrorMessage extracts the error message from an error.
func GetErrorMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
