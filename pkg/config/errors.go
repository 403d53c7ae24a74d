package config

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidYAML indicates secretmask.yaml could not be parsed
	ErrInvalidYAML = errors.New("invalid YAML syntax")

	// ErrInvalidPattern indicates a masking pattern fragment does not compile
	ErrInvalidPattern = errors.New("invalid pattern")

	// ErrInvalidValue indicates a setting is out of range
	ErrInvalidValue = errors.New("invalid value")
)

// ValidationError locates a rejected setting as section.field.
type ValidationError struct {
	Section string // masking, batch, server or history
	Field   string // YAML field name, with an index for list entries
	Err     error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s.%s: %v", e.Section, e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a new validation error
func NewValidationError(section, field string, err error) *ValidationError {
	return &ValidationError{Section: section, Field: field, Err: err}
}

// LoadError reports a configuration file that exists but could not be read
// or parsed. A missing file is not an error.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("config file %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
