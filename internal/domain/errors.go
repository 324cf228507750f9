package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors used across all layers.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrValidation    = errors.New("validation error")
	ErrConflict      = errors.New("conflict")
)

// Key custody errors. Callers match them with errors.Is; none of them is transient.
var (
	// ErrConfiguration means the master passphrase is missing or unusable.
	// The process must not serve traffic when it sees this at startup.
	ErrConfiguration = errors.New("key custody misconfigured")

	// ErrKeyNotFound means no key record exists for the exact (context, version) pair.
	ErrKeyNotFound = errors.New("key version not found")

	// ErrFormatInvalid means a ciphertext blob is not decodable or shorter than its header.
	ErrFormatInvalid = errors.New("ciphertext format invalid")

	// ErrCipherIntegrity means the cipher rejected the data: wrong key, corruption or tampering.
	ErrCipherIntegrity = errors.New("ciphertext integrity check failed")

	// ErrStoreUnavailable wraps persistence failures while reading or writing key material.
	ErrStoreUnavailable = errors.New("key store unavailable")
)

// FieldError describes a validation error for a specific field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError contains a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation: %s: %s", e.Errors[0].Field, e.Errors[0].Message)
	}
	return fmt.Sprintf("validation: %d errors", len(e.Errors))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Errors: []FieldError{{Field: field, Message: message}},
	}
}

// NewValidationErrors creates a ValidationError from multiple field errors.
func NewValidationErrors(errs []FieldError) *ValidationError {
	return &ValidationError{Errors: errs}
}
