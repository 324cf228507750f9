package keyring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cenkalti/backoff/v4"

	"github.com/heartmarshall/keycustody-backend/internal/domain"
)

// RotateKey always mints a new version of keyContext, even when an eligible
// active key exists, and returns the new version number. Previous versions
// stay active until RetireOldVersions runs.
func (s *Service) RotateKey(ctx context.Context, keyContext string, in RotateInput) (int, error) {
	if err := domain.ValidateContext(keyContext); err != nil {
		return 0, err
	}
	if err := in.Validate(s.now()); err != nil {
		return 0, err
	}

	expiresAt := in.ExpiresAt
	if expiresAt == nil {
		expiresAt = s.defaultExpiry()
	}

	rec, err := backoff.RetryWithData(func() (domain.KeyRecord, error) {
		rec, err := s.mint(ctx, keyContext, expiresAt, in.Notes)
		if errors.Is(err, domain.ErrAlreadyExists) {
			return domain.KeyRecord{}, err
		}
		if err != nil {
			return domain.KeyRecord{}, backoff.Permanent(err)
		}
		return rec, nil
	}, mintBackOff(ctx))
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return 0, fmt.Errorf("rotate %s: %w", keyContext, domain.ErrConflict)
		}
		return 0, storeError("rotate key", err)
	}

	s.log.InfoContext(ctx, "key rotated",
		slog.String("context", keyContext),
		slog.Int("version", rec.Version),
	)

	return rec.Version, nil
}
