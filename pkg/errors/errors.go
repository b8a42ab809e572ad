// Package errors provides structured error types for the isometric converter.
//
// Every failure that crosses a package boundary carries a machine-readable
// [Code] so callers can tell a task-level failure (a missing input, a backend
// that crashed) from a run-level one (an output path of the wrong type)
// without matching on message text.
//
// # Error Codes
//
//   - INPUT_NOT_FOUND: the input path is missing or not a regular file
//   - INVALID_INPUT: the input path is neither a file nor a directory
//   - INVALID_OUTPUT: the output path exists with the wrong type
//   - BACKEND_EXECUTION: the raster backend failed to run
//   - BACKEND_PARSE: the backend's dimension report could not be parsed
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInputNotFound, "%s does not exist", path)
//	if errors.Is(err, errors.ErrCodeInputNotFound) {
//	    // report and move on
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeBackendExecution, runErr, "gm mogrify %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Path resolution errors
	ErrCodeInputNotFound Code = "INPUT_NOT_FOUND"
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidOutput Code = "INVALID_OUTPUT"
	ErrCodeInvalidPath   Code = "INVALID_PATH"

	// Raster backend errors
	ErrCodeBackendExecution Code = "BACKEND_EXECUTION"
	ErrCodeBackendParse     Code = "BACKEND_PARSE"

	// Configuration errors
	ErrCodeInvalidOptions Code = "INVALID_OPTIONS"

	// Filesystem and internal errors
	ErrCodeIO       Code = "IO_ERROR"
	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Cause != nil {
			return fmt.Sprintf("%s: %v", e.Message, e.Cause)
		}
		return e.Message
	}
	return err.Error()
}
