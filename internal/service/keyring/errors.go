package keyring

import (
	"context"
	"errors"
	"fmt"

	"github.com/heartmarshall/keycustody-backend/internal/domain"
)

// storeError classifies an error returned by the key store. Errors that the
// caller can act on keep their sentinel; anything else is reported as the
// store being unavailable.
func storeError(op string, err error) error {
	switch {
	case errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrAlreadyExists),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrStoreUnavailable),
		errors.Is(err, domain.ErrCipherIntegrity),
		errors.Is(err, domain.ErrConfiguration):
		return fmt.Errorf("%s: %w", op, err)
	default:
		return fmt.Errorf("%s: %w: %v", op, domain.ErrStoreUnavailable, err)
	}
}
