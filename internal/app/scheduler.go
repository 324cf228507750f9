package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/heartmarshall/keycustody-backend/internal/config"
	"github.com/heartmarshall/keycustody-backend/internal/service/keyring"
)

const scheduledRotationNotes = "scheduled rotation"

type rotator interface {
	RotateKey(ctx context.Context, keyContext string, in keyring.RotateInput) (int, error)
	RetireOldVersions(ctx context.Context, keyContext string, keepCount int) (int, error)
}

// Scheduler rotates the configured contexts on a fixed interval and retires
// versions beyond the keep count after each rotation.
type Scheduler struct {
	keys     rotator
	contexts []string
	interval time.Duration
	keep     int
	log      *slog.Logger
}

// NewScheduler creates a Scheduler from the keyring config.
func NewScheduler(log *slog.Logger, keys rotator, cfg config.KeyringConfig) *Scheduler {
	keep := cfg.DefaultKeepCount
	if keep < 1 {
		keep = 2
	}
	return &Scheduler{
		keys:     keys,
		contexts: cfg.RotationContexts,
		interval: cfg.RotationInterval,
		keep:     keep,
		log:      log.With("component", "rotation_scheduler"),
	}
}

// Run rotates every interval until ctx is cancelled. A failed round is logged
// and does not stop the loop.
func (s *Scheduler) Run(ctx context.Context) {
	if s.interval <= 0 || len(s.contexts) == 0 {
		s.log.Info("scheduled rotation disabled")
		return
	}

	s.log.Info("scheduled rotation started",
		slog.Duration("interval", s.interval),
		slog.Any("contexts", s.contexts),
	)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduled rotation stopped")
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.log.ErrorContext(ctx, "scheduled rotation failed", slog.String("error", err.Error()))
			}
		}
	}
}

// RunOnce rotates and retires each context once. Every context is attempted;
// the errors of failed contexts are joined.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	var errs []error
	for _, c := range s.contexts {
		if err := ctx.Err(); err != nil {
			return err
		}

		version, err := s.keys.RotateKey(ctx, c, keyring.RotateInput{Notes: scheduledRotationNotes})
		if err != nil {
			errs = append(errs, fmt.Errorf("rotate %s: %w", c, err))
			continue
		}

		retired, err := s.keys.RetireOldVersions(ctx, c, s.keep)
		if err != nil {
			errs = append(errs, fmt.Errorf("retire %s: %w", c, err))
			continue
		}

		s.log.InfoContext(ctx, "context rotated",
			slog.String("context", c),
			slog.Int("version", version),
			slog.Int("retired", retired),
		)
	}
	return errors.Join(errs...)
}
