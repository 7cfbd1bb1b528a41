package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the recommendation pipeline. Callers branch on these
// with errors.Is.
var (
	// ErrEmbeddingUnavailable means the embedding model could not be
	// reached; the pipeline proceeds without similarity context.
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")

	// ErrGenerationFailed means both generation providers failed or
	// returned unusable output.
	ErrGenerationFailed = errors.New("generation failed")

	// ErrNoSignalAvailable means neither generation nor any similar
	// project is available. Terminal; surfaced to the caller.
	ErrNoSignalAvailable = errors.New("no signal available")

	// ErrMalformedResponse marks a provider payload that cannot be mapped
	// to the expected shape. Treated like a provider failure, never
	// propagated as partial data.
	ErrMalformedResponse = errors.New("malformed provider response")

	// ErrEmptyPrimaryStack marks an upstream result that violated the
	// non-empty primary stack invariant despite reporting success.
	ErrEmptyPrimaryStack = errors.New("empty primary stack")
)

// Sentinel errors for request validation.
var (
	ErrEmptyDescription    = errors.New("empty description")
	ErrDescriptionTooShort = errors.New("description too short")
	ErrDescriptionTooLong  = errors.New("description too long")
	ErrInvalidTopK         = errors.New("top-k must be at least 1")
)

// ValidationError wraps a sentinel with field context.
type ValidationError struct {
	Field   string
	Value   string
	Wrapped error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s (value=%q)", e.Wrapped, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// NewValidationError creates a ValidationError.
func NewValidationError(field, value string, wrapped error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Wrapped: wrapped}
}
