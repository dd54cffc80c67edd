package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors. Recoverable errors are
// accumulated by the orchestrator and never abort the pipeline; unrecoverable
// ones terminate the step that raised them with no partial data.
type AppError struct {
	Code        string
	Message     string
	Recoverable bool
	Cause       error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrEmptyInput   = errors.New("empty input")
	ErrProvider     = errors.New("provider error")
	ErrDatabase     = errors.New("database error")
	ErrInternal     = errors.New("internal error")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:        code,
		Message:     message,
		Recoverable: true,
		Cause:       cause,
	}
}

// NewFatalError marks an error the pipeline must not continue past
// (bad input path, wrong file type, empty required input).
func NewFatalError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// IsRecoverable reports whether err (or anything it wraps) allows the
// pipeline to continue with degraded data. Unknown errors are treated as
// recoverable so a single bad document never sinks a batch.
func IsRecoverable(err error) bool {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Recoverable
	}
	return true
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
