package keyring

import (
	"time"

	"github.com/heartmarshall/keycustody-backend/internal/domain"
)

const maxNotesLength = 500

// RotateInput holds optional parameters for RotateKey.
// A nil ExpiresAt falls back to the configured key TTL.
type RotateInput struct {
	ExpiresAt *time.Time
	Notes     string
}

// Validate validates the rotate input against now.
func (i RotateInput) Validate(now time.Time) error {
	var errs []domain.FieldError

	if i.ExpiresAt != nil && !i.ExpiresAt.After(now) {
		errs = append(errs, domain.FieldError{Field: "expires_at", Message: "must be in the future"})
	}
	if len(i.Notes) > maxNotesLength {
		errs = append(errs, domain.FieldError{Field: "notes", Message: "too long"})
	}

	if len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}
	return nil
}
