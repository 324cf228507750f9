package keyring

import (
	"context"
	"errors"
	"fmt"

	"github.com/heartmarshall/keycustody-backend/internal/domain"
)

// GetKeyByVersion returns exactly the requested version of keyContext,
// active or retired, expired or not. A missing version is domain.ErrKeyNotFound.
// When the record exists but cannot be unwrapped, RecordID and Version are
// still set alongside the error.
func (s *Service) GetKeyByVersion(ctx context.Context, keyContext string, version int) (VersionKey, error) {
	if err := domain.ValidateContext(keyContext); err != nil {
		return VersionKey{}, err
	}
	if version < 1 {
		return VersionKey{}, fmt.Errorf("%s v%d: %w", keyContext, version, domain.ErrKeyNotFound)
	}

	rec, err := s.keys.FindByVersion(ctx, keyContext, version)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return VersionKey{}, fmt.Errorf("%s v%d: %w", keyContext, version, domain.ErrKeyNotFound)
		}
		return VersionKey{}, storeError("find key version", err)
	}

	raw, err := s.unwrap(rec)
	if err != nil {
		return VersionKey{RecordID: rec.ID, Version: rec.Version, Active: rec.Active}, err
	}

	return VersionKey{
		RecordID: rec.ID,
		Version:  rec.Version,
		Active:   rec.Active,
		Key:      raw,
	}, nil
}
