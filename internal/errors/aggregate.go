package errors

import (
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
)

// Failure is one file's contribution to an AggregateError.
type Failure struct {
	// Path is the import path of the failing file, relative to the working dir.
	Path string
	// Message is the reason the file could not be indexed.
	Message string
	// Code classifies the failure (extraction, version compatibility).
	Code string
}

// VersionCompatibilityFailure reports a file that needs the full story
// store while storyStoreV7 is disabled.
func VersionCompatibilityFailure(importPath string) Failure {
	return Failure{
		Path:    importPath,
		Message: fmt.Sprintf("You cannot use `%s` files without using `storyStoreV7`.", path.Ext(importPath)),
		Code:    ErrCodeVersionIncompatible,
	}
}

// AggregateError bundles every per-file failure of one generation cycle.
// Failures are kept sorted by path.
type AggregateError struct {
	Failures []Failure
}

// NewAggregateError builds an AggregateError with failures sorted by path.
// Returns nil when there are no failures.
func NewAggregateError(failures []Failure) *AggregateError {
	if len(failures) == 0 {
		return nil
	}
	sorted := make([]Failure, len(failures))
	copy(sorted, failures)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Path < sorted[j].Path
	})
	return &AggregateError{Failures: sorted}
}

// Error renders the failure list the way it is shown to developers.
func (e *AggregateError) Error() string {
	var sb strings.Builder
	sb.WriteString("Unable to index files:")
	for _, f := range e.Failures {
		sb.WriteString("\n- ")
		sb.WriteString(f.Path)
		sb.WriteString(": ")
		sb.WriteString(f.Message)
	}
	return sb.String()
}

// Unwrap exposes each failure as an *Error so errors.Is can match by code.
func (e *AggregateError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, New(f.Code, f.Message, nil).WithDetail("path", f.Path))
	}
	return errs
}

// Paths returns the failing paths in order.
func (e *AggregateError) Paths() []string {
	paths := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		paths = append(paths, f.Path)
	}
	return paths
}

// AsAggregate reports whether err is (or wraps) an AggregateError.
func AsAggregate(err error) (*AggregateError, bool) {
	var agg *AggregateError
	if errors.As(err, &agg) {
		return agg, true
	}
	return nil, false
}
