package keyring

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/heartmarshall/keycustody-backend/internal/domain"
)

// RetireOldVersions marks every active version of keyContext beyond the
// keepCount most recent active versions as inactive and returns how many were
// retired. Retired versions remain available to GetKeyByVersion.
func (s *Service) RetireOldVersions(ctx context.Context, keyContext string, keepCount int) (int, error) {
	if err := domain.ValidateContext(keyContext); err != nil {
		return 0, err
	}
	if keepCount < 1 {
		return 0, domain.NewValidationError("keep_count", "must be at least 1")
	}

	retired := 0
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		records, err := s.keys.ListByContext(ctx, keyContext)
		if err != nil {
			return storeError("list key versions", err)
		}

		at := s.now().UTC()
		kept := 0
		// records are ordered newest first.
		for _, rec := range records {
			if !rec.Active {
				continue
			}
			if kept < keepCount {
				kept++
				continue
			}
			if err := s.keys.MarkInactive(ctx, rec.ID, at); err != nil {
				return storeError(fmt.Sprintf("retire %s v%d", keyContext, rec.Version), err)
			}
			retired++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if retired > 0 {
		s.log.InfoContext(ctx, "key versions retired",
			slog.String("context", keyContext),
			slog.Int("retired", retired),
			slog.Int("keep_count", keepCount),
		)
	}

	return retired, nil
}
