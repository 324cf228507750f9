package keyring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cenkalti/backoff/v4"

	"github.com/heartmarshall/keycustody-backend/internal/domain"
)

const provisionNotes = "provisioned on first use"

// GetActiveKey returns the key new data under keyContext must be encrypted
// with: the highest active, unexpired version. When the context has no such
// version it takes the provisioning branch (see ProvisionKey).
func (s *Service) GetActiveKey(ctx context.Context, keyContext string) (ActiveKey, error) {
	if err := domain.ValidateContext(keyContext); err != nil {
		return ActiveKey{}, err
	}

	rec, err := s.keys.FindActiveUnexpired(ctx, keyContext, s.now())
	switch {
	case err == nil:
		return s.activeKey(rec, false)
	case errors.Is(err, domain.ErrNotFound):
		return s.ProvisionKey(ctx, keyContext)
	default:
		return ActiveKey{}, storeError("find active key", err)
	}
}

// ProvisionKey returns the active key of keyContext, minting the next version
// when there is none. The check and the mint run under one per-context lock,
// so concurrent first uses of a context create exactly one version; callers
// that find a key already minted return it instead.
// Provisioned reports whether the returned key is the one this call created.
func (s *Service) ProvisionKey(ctx context.Context, keyContext string) (ActiveKey, error) {
	if err := domain.ValidateContext(keyContext); err != nil {
		return ActiveKey{}, err
	}

	return backoff.RetryWithData(func() (ActiveKey, error) {
		rec, minted, err := s.provision(ctx, keyContext, s.defaultExpiry(), provisionNotes)
		switch {
		case err == nil:
		case errors.Is(err, domain.ErrAlreadyExists):
			// A writer outside the context lock inserted the same version.
			rec, err = s.keys.FindActiveUnexpired(ctx, keyContext, s.now())
			switch {
			case err == nil:
			case errors.Is(err, domain.ErrNotFound):
				return ActiveKey{}, fmt.Errorf("provision key %s: %w", keyContext, domain.ErrConflict)
			default:
				return ActiveKey{}, backoff.Permanent(storeError("re-read active key", err))
			}
		default:
			return ActiveKey{}, backoff.Permanent(storeError("provision key", err))
		}

		if minted {
			s.log.InfoContext(ctx, "key provisioned",
				slog.String("context", keyContext),
				slog.Int("version", rec.Version),
			)
		} else {
			s.log.DebugContext(ctx, "key provisioned concurrently, reusing it",
				slog.String("context", keyContext),
				slog.Int("version", rec.Version),
			)
		}

		key, err := s.activeKey(rec, minted)
		if err != nil {
			return ActiveKey{}, backoff.Permanent(err)
		}
		return key, nil
	}, mintBackOff(ctx))
}

func (s *Service) activeKey(rec domain.KeyRecord, provisioned bool) (ActiveKey, error) {
	raw, err := s.unwrap(rec)
	if err != nil {
		return ActiveKey{}, err
	}
	return ActiveKey{
		RecordID:    rec.ID,
		Version:     rec.Version,
		Key:         raw,
		Provisioned: provisioned,
	}, nil
}

// ActiveVersion reports the version GetActiveKey would select, without
// provisioning or unwrapping. ok is false when the context has no eligible key.
func (s *Service) ActiveVersion(ctx context.Context, keyContext string) (version int, ok bool, err error) {
	rec, err := s.keys.FindActiveUnexpired(ctx, keyContext, s.now())
	switch {
	case err == nil:
		return rec.Version, true, nil
	case errors.Is(err, domain.ErrNotFound):
		return 0, false, nil
	default:
		return 0, false, storeError("find active key", err)
	}
}
