package errors

import (
	"errors"
	"fmt"
)

// Error is the structured error type for storyindex.
// It carries a stable code so callers can branch on the failure class
// without parsing messages.
type Error struct {
	// Code is the unique error code (e.g., "ERR_301_EXTRACTION_FAILED").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Extraction, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with sentinel *Error values.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *Error) WithDetail(key, value string) *Error {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
// Returns the error for method chaining.
func (e *Error) WithSuggestion(suggestion string) *Error {
	e.Suggestion = suggestion
	return e
}

// New creates a new Error with the given code and message.
// Category and severity are derived from the code.
func New(code string, message string, cause error) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Category: categoryFromCode(code),
		Severity: severityFromCode(code),
		Cause:    cause,
	}
}

// Wrap creates an Error from an existing error.
// The error's message becomes the Error message.
func Wrap(code string, err error) *Error {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// Sentinels for errors.Is matching by code.
var (
	ErrSpecifierConfig      = &Error{Code: ErrCodeSpecifierInvalid}
	ErrExtraction           = &Error{Code: ErrCodeExtractionFailed}
	ErrDuplicateID          = &Error{Code: ErrCodeDuplicateID}
	ErrVersionCompatibility = &Error{Code: ErrCodeVersionIncompatible}
	ErrNotInitialized       = &Error{Code: ErrCodeGeneratorUninitiated, Message: "index generator used before Initialize"}
)

// SpecifierConfigError reports an invalid stories specifier.
func SpecifierConfigError(message string, cause error) *Error {
	return New(ErrCodeSpecifierInvalid, message, cause)
}

// ExtractionError reports that a single file failed extraction.
func ExtractionError(path string, cause error) *Error {
	msg := "extraction failed"
	if cause != nil {
		msg = cause.Error()
	}
	return New(ErrCodeExtractionFailed, msg, cause).WithDetail("path", path)
}

// DuplicateIDError reports two files that produced the same entry id.
func DuplicateIDError(id, firstPath, secondPath string) *Error {
	return New(ErrCodeDuplicateID,
		fmt.Sprintf("duplicate id %q produced by %s and %s", id, firstPath, secondPath), nil).
		WithDetail("id", id).
		WithDetail("first", firstPath).
		WithDetail("second", secondPath).
		WithSuggestion("Rename one of the stories or give the docs page a distinct name.")
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *Error {
	return New(ErrCodeConfigInvalid, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *Error {
	return New(ErrCodeInternal, message, cause)
}

// IsFatal checks if an error has fatal severity.
// Fatal errors should abort the current operation.
func IsFatal(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from an Error.
// Returns empty string if not an Error.
func GetCode(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// GetCategory extracts the category from an Error.
// Returns empty string if not an Error.
func GetCategory(err error) Category {
	var e *Error
	if errors.As(err, &e) {
		return e.Category
	}
	return ""
}
