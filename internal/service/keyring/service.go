// Package keyring implements the key manager: it provisions, selects, rotates
// and retires per-context key versions, and is the only place where raw keys
// are wrapped or unwrapped under the master key.
package keyring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/heartmarshall/keycustody-backend/internal/config"
	"github.com/heartmarshall/keycustody-backend/internal/domain"
	"github.com/heartmarshall/keycustody-backend/internal/keycrypt"
)

// ---------------------------------------------------------------------------
// Consumer-defined interfaces (private)
// ---------------------------------------------------------------------------

type keyStore interface {
	LockContext(ctx context.Context, keyContext string) error
	FindActiveUnexpired(ctx context.Context, keyContext string, now time.Time) (domain.KeyRecord, error)
	FindByVersion(ctx context.Context, keyContext string, version int) (domain.KeyRecord, error)
	NextVersion(ctx context.Context, keyContext string) (int, error)
	Insert(ctx context.Context, rec domain.KeyRecord) (domain.KeyRecord, error)
	MarkInactive(ctx context.Context, id uuid.UUID, at time.Time) error
	ListByContext(ctx context.Context, keyContext string) ([]domain.KeyRecord, error)
	ListAll(ctx context.Context) ([]domain.KeyRecord, error)
}

type txManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ---------------------------------------------------------------------------
// Service
// ---------------------------------------------------------------------------

const (
	mintRetryInterval = 10 * time.Millisecond
	mintMaxRetries    = 3
)

// Service implements the key manager.
type Service struct {
	keys   keyStore
	tx     txManager
	master keycrypt.MasterKey
	cfg    config.KeyringConfig
	log    *slog.Logger
	now    func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithClock replaces the wall clock used for expiry and retirement timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a new key manager. The master key must be derived.
func NewService(
	log *slog.Logger,
	keys keyStore,
	tx txManager,
	master keycrypt.MasterKey,
	cfg config.KeyringConfig,
	opts ...Option,
) (*Service, error) {
	if master.IsZero() {
		return nil, fmt.Errorf("keyring: master key not derived: %w", domain.ErrConfiguration)
	}
	if cfg.DefaultKeepCount < 1 {
		cfg.DefaultKeepCount = 2
	}

	s := &Service{
		keys:   keys,
		tx:     tx,
		master: master,
		cfg:    cfg,
		log:    log.With("service", "keyring"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// DefaultKeepCount is the retention used when a caller does not pass one.
func (s *Service) DefaultKeepCount() int {
	return s.cfg.DefaultKeepCount
}

// mint generates a fresh key, wraps it, and inserts it as the next version of
// keyContext. Version allocation is serialized per context by LockContext;
// a concurrent insert of the same version still surfaces as
// domain.ErrAlreadyExists.
func (s *Service) mint(ctx context.Context, keyContext string, expiresAt *time.Time, notes string) (domain.KeyRecord, error) {
	wrapped, err := s.newWrappedKey()
	if err != nil {
		return domain.KeyRecord{}, err
	}

	var rec domain.KeyRecord
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.keys.LockContext(ctx, keyContext); err != nil {
			return fmt.Errorf("lock context: %w", err)
		}
		rec, err = s.insertNext(ctx, keyContext, wrapped, expiresAt, notes)
		return err
	})
	if err != nil {
		return domain.KeyRecord{}, err
	}

	return rec, nil
}

// provision returns the active key of keyContext, minting version one only if
// none exists once the context lock is held. minted reports whether this call
// inserted the returned record.
func (s *Service) provision(ctx context.Context, keyContext string, expiresAt *time.Time, notes string) (rec domain.KeyRecord, minted bool, err error) {
	wrapped, err := s.newWrappedKey()
	if err != nil {
		return domain.KeyRecord{}, false, err
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.keys.LockContext(ctx, keyContext); err != nil {
			return fmt.Errorf("lock context: %w", err)
		}

		existing, err := s.keys.FindActiveUnexpired(ctx, keyContext, s.now())
		switch {
		case err == nil:
			rec, minted = existing, false
			return nil
		case !errors.Is(err, domain.ErrNotFound):
			return fmt.Errorf("find active key: %w", err)
		}

		rec, err = s.insertNext(ctx, keyContext, wrapped, expiresAt, notes)
		minted = err == nil
		return err
	})
	if err != nil {
		return domain.KeyRecord{}, false, err
	}

	return rec, minted, nil
}

func (s *Service) newWrappedKey() ([]byte, error) {
	raw, err := keycrypt.GenerateDataKey()
	if err != nil {
		return nil, err
	}
	defer keycrypt.Wipe(raw)

	return s.master.Wrap(raw)
}

// insertNext must run inside the transaction holding the context lock.
func (s *Service) insertNext(ctx context.Context, keyContext string, wrapped []byte, expiresAt *time.Time, notes string) (domain.KeyRecord, error) {
	next, err := s.keys.NextVersion(ctx, keyContext)
	if err != nil {
		return domain.KeyRecord{}, fmt.Errorf("next version: %w", err)
	}

	rec, err := s.keys.Insert(ctx, domain.KeyRecord{
		ID:         uuid.New(),
		Context:    keyContext,
		Version:    next,
		WrappedKey: wrapped,
		Active:     true,
		ExpiresAt:  expiresAt,
		Notes:      notes,
	})
	if err != nil {
		return domain.KeyRecord{}, fmt.Errorf("insert version %d: %w", next, err)
	}
	return rec, nil
}

// unwrap opens rec's wrapped key. A failure here means the master key does not
// match the one that wrapped the record, or the stored material is corrupt.
func (s *Service) unwrap(rec domain.KeyRecord) ([]byte, error) {
	raw, err := s.master.Unwrap(rec.WrappedKey)
	if err != nil {
		s.log.Error("unwrap key failed",
			slog.String("context", rec.Context),
			slog.Int("version", rec.Version),
			slog.String("master_key", s.master.Fingerprint()),
		)
		return nil, fmt.Errorf("%s v%d: %w", rec.Context, rec.Version, err)
	}
	return raw, nil
}

// defaultExpiry returns now+KeyTTL, or nil when keys do not expire.
func (s *Service) defaultExpiry() *time.Time {
	if s.cfg.KeyTTL <= 0 {
		return nil
	}
	at := s.now().Add(s.cfg.KeyTTL).UTC()
	return &at
}

func mintBackOff(ctx context.Context) backoff.BackOffContext {
	return backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(mintRetryInterval), mintMaxRetries),
		ctx,
	)
}
