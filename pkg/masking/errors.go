package masking

import (
	"errors"
	"fmt"
)

var (
	// ErrNotMapping indicates a document root or data section is not a map
	ErrNotMapping = errors.New("not a mapping")

	// ErrInvalidUTF8 indicates decoded Secret content is not valid UTF-8 text
	ErrInvalidUTF8 = errors.New("decoded value is not valid UTF-8")

	// ErrInvalidJSON indicates an annotation payload is not valid JSON
	ErrInvalidJSON = errors.New("invalid JSON")
)

// LoadError wraps failures to read or parse a resource file.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// DecodeError records a Secret data field that could not be decoded.
// The field is replaced with ErrString and masking continues.
type DecodeError struct {
	Key string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode key %s: %v", e.Key, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// AnnotationParseError records an annotation payload that could not be
// parsed. The annotation is replaced with MaskString.
type AnnotationParseError struct {
	Annotation string
	Err        error
}

func (e *AnnotationParseError) Error() string {
	return fmt.Sprintf("failed to parse annotation %s: %v", e.Annotation, e.Err)
}

func (e *AnnotationParseError) Unwrap() error {
	return e.Err
}

// WriteError wraps failures to persist a masked document or side file.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
