package sizediff

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors
var (
	// ErrConfig is returned for invalid caller configuration: a malformed
	// grouping pattern, an unknown backend name or a duplicate backend.
	// It is always reported before any tree is walked.
	ErrConfig = errors.New("invalid configuration")

	// ErrIO is returned when a tree root or a file being hashed cannot be read.
	ErrIO = errors.New("i/o failure")

	// ErrBackendUnavailable marks a backend whose probe failed. It is never
	// returned from Compare; unavailable backends are skipped for the run.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrBackendExecution is returned when a backend ran and failed.
	ErrBackendExecution = errors.New("backend execution failed")
)

// ValidationError represents one or more configuration problems found
// while validating options or a configuration file.
type ValidationError struct {
	Errors []error
}

// Error implements the error interface.
func (ve *ValidationError) Error() string {
	if len(ve.Errors) == 0 {
		return "validation failed"
	}
	if len(ve.Errors) == 1 {
		return fmt.Sprintf("validation failed: %v", ve.Errors[0])
	}

	var buf strings.Builder
	fmt.Fprintf(&buf, "validation failed with %d errors:\n", len(ve.Errors))
	for i, err := range ve.Errors {
		fmt.Fprintf(&buf, "  %d. %v\n", i+1, err)
	}
	return buf.String()
}

// Unwrap returns the underlying errors for use with errors.Is and errors.As.
func (ve *ValidationError) Unwrap() []error {
	return ve.Errors
}

// NewValidationError creates a ValidationError from a slice of errors.
// Returns nil if the slice is empty.
func NewValidationError(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return &ValidationError{Errors: errs}
}

// configErrorf formats a configuration problem that matches ErrConfig.
func configErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfig, fmt.Sprintf(format, args...))
}

// IOError reports a failed filesystem operation on a tree or a file.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap exposes both ErrIO and the underlying cause.
func (e *IOError) Unwrap() []error {
	return []error{ErrIO, e.Err}
}

// BackendError reports a backend that ran and failed for one cache key.
type BackendError struct {
	Backend string
	Key     string
	Err     error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend %s failed for %s: %v", e.Backend, e.Key, e.Err)
}

// Unwrap exposes both ErrBackendExecution and the underlying cause.
func (e *BackendError) Unwrap() []error {
	return []error{ErrBackendExecution, e.Err}
}

// AmbiguousMatch is a warning: a "to" file had several plausible
// predecessors and none at the identical path, so it was classified as New.
type AmbiguousMatch struct {
	To         string   `json:"to"`
	Candidates []string `json:"candidates"`
}

func (a AmbiguousMatch) String() string {
	return fmt.Sprintf("ambiguous match for %s: %s", a.To, strings.Join(a.Candidates, ", "))
}
