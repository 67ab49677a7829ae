package common

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Common error types used across filesystem packages
var (
	ErrPathEmpty   = errors.New("path cannot be empty")
	ErrPathTooLong = errors.New("path too long (max 4096 characters)")
	ErrPathInvalid = errors.New("path contains invalid characters")

	// ErrInvalidPolicy is returned when a traversal policy cannot be built:
	// an unknown error mode, or a pattern that does not compile
	ErrInvalidPolicy = errors.New("invalid traversal policy")

	// ErrMalformedCandidateName is returned when a name ends in a "(Copy ...)"
	// marker whose count is not a usable positive integer
	ErrMalformedCandidateName = errors.New("malformed candidate name")

	// ErrUnsupported is returned when an accessor lacks an optional capability
	ErrUnsupported = errors.New("operation not supported by accessor")

	// ErrUnsupportedBackend is returned for an unknown backend kind
	ErrUnsupportedBackend = errors.New("unsupported backend")
)

// Traversal operations reported in faults and diagnostics
const (
	OpList     = "list directory"
	OpStat     = "access"
	OpReadLink = "read link"
)

// TraversalFault is an accessor failure raised while listing a directory or
// classifying one of its children
type TraversalFault struct {
	Op   string
	Path string
	Err  error
}

func (f *TraversalFault) Error() string {
	return fmt.Sprintf("unable to %s '%s': %v", f.Op, f.Path, f.Err)
}

func (f *TraversalFault) Unwrap() error {
	return f.Err
}

// NewTraversalFault wraps err as a fault on path
func NewTraversalFault(op, path string, err error) *TraversalFault {
	return &TraversalFault{Op: op, Path: path, Err: err}
}

// ValidationUtils provides common validation utilities used across packages
type ValidationUtils struct{}

// NewValidationUtils creates a new ValidationUtils instance
func NewValidationUtils() *ValidationUtils {
	return &ValidationUtils{}
}

// ValidateRequiredString validates that a string is not empty
func (vu *ValidationUtils) ValidateRequiredString(value, fieldName string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s cannot be empty", fieldName)
	}
	return nil
}

// ValidatePathLength validates that a path is not too long
func (vu *ValidationUtils) ValidatePathLength(path string) error {
	if len(path) > 4096 {
		return ErrPathTooLong
	}
	return nil
}

// ValidatePathCharacters validates that a path doesn't contain invalid characters
func (vu *ValidationUtils) ValidatePathCharacters(path string) error {
	if strings.Contains(path, "\x00") {
		return ErrPathInvalid
	}
	return nil
}

// ValidatePath runs every path check in order
func (vu *ValidationUtils) ValidatePath(path string) error {
	if path == "" {
		return ErrPathEmpty
	}
	if err := vu.ValidatePathCharacters(path); err != nil {
		return err
	}
	return vu.ValidatePathLength(path)
}

// ErrorUtils provides common error handling utilities
type ErrorUtils struct {
	logger zerolog.Logger
}

// NewErrorUtils creates a new ErrorUtils instance
func NewErrorUtils(logger zerolog.Logger) *ErrorUtils {
	return &ErrorUtils{logger: logger}
}

// WrapError wraps an error with additional context
func (eu *ErrorUtils) WrapError(err error, message string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	context := fmt.Sprintf(message, args...)
	return fmt.Errorf("%s: %w", context, err)
}

// LogAndWrapError logs an error and wraps it with context
func (eu *ErrorUtils) LogAndWrapError(err error, level zerolog.Level, message string, args ...interface{}) error {
	if err == nil {
		return nil
	}

	context := fmt.Sprintf(message, args...)
	eu.logger.WithLevel(level).Err(err).Msg(context)

	return fmt.Errorf("%s: %w", context, err)
}

// HandleOperationError provides common error handling for file operations
func (eu *ErrorUtils) HandleOperationError(err error, operation, path string, logError bool) error {
	if err == nil {
		return nil
	}

	if logError {
		eu.logger.Error().
			Str("operation", operation).
			Str("path", path).
			Err(err).
			Msg("Operation failed")
	}

	return eu.WrapError(err, "failed to %s %s", operation, path)
}
