// Package errors provides structured error types for the deckproof application.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across pipeline stages and the CLI
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes identify which pipeline stage rejected the run. The detection
// pipeline has no partial-success mode: any stage failure aborts the check
// with one of these codes, because a missing or malformed frame would
// otherwise be indistinguishable from "no overflow detected".
//
// # Usage
//
//	err := errors.New(errors.ErrCodeMetadataMissing, "slide size not found in %s", path)
//	if errors.Is(err, errors.ErrCodeMetadataMissing) {
//	    // Handle missing page-size metadata
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeConversionFailed, origErr, "convert %s to PDF", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different failure categories.
const (
	// Input validation errors
	ErrCodeInvalidInput Code = "INVALID_INPUT"
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"

	// DPI resolution errors
	ErrCodeMetadataMissing      Code = "METADATA_MISSING"
	ErrCodeConversionFailed     Code = "CONVERSION_FAILED"
	ErrCodeUnrecognizedPageSize Code = "UNRECOGNIZED_PAGE_SIZE"

	// Rendering errors
	ErrCodeRasterizationFailed Code = "RASTERIZATION_FAILED"
	ErrCodeNoFramesProduced    Code = "NO_FRAMES_PRODUCED"
	ErrCodeTimeout             Code = "TIMEOUT"

	// Internal errors
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
		return e.Message
	}
	return err.Error()
}
