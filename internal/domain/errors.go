package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists signals a duplicate resource.
	ErrAlreadyExists = errors.New("already exists")
	// ErrValidation signals missing or malformed caller input.
	ErrValidation = errors.New("validation error")
	// ErrUnsupportedInput signals a source that yields no usable document.
	ErrUnsupportedInput = errors.New("unsupported input")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")

	// ErrUpstreamUnavailable is the common parent of all provider and store failures.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrEmbeddingUnavailable signals an embedding provider failure or timeout.
	ErrEmbeddingUnavailable = fmt.Errorf("embedding provider error: %w", ErrUpstreamUnavailable)
	// ErrGenerationUnavailable signals a generation provider failure or timeout.
	ErrGenerationUnavailable = fmt.Errorf("generation provider error: %w", ErrUpstreamUnavailable)
	// ErrStoreUnavailable signals a vector store failure.
	ErrStoreUnavailable = fmt.Errorf("vector store error: %w", ErrUpstreamUnavailable)
)

// ValidationError wraps ErrValidation with the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrValidation.Error(), e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a validation error for a single field.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
