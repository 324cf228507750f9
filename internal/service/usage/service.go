// Package usage implements the key usage ledger: an append-only record of
// every encrypt and decrypt attempt.
package usage

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/heartmarshall/keycustody-backend/internal/domain"
)

const maxErrorMessageLength = 1000

type usageRepo interface {
	Log(ctx context.Context, entry domain.UsageLogEntry) error
	ListByContext(ctx context.Context, keyContext string, limit int) ([]domain.UsageLogEntry, error)
}

// Ledger records key usage. Recording never fails from the caller's point of view.
type Ledger struct {
	repo usageRepo
	log  *slog.Logger
	now  func() time.Time
}

// NewLedger creates a new usage ledger.
func NewLedger(log *slog.Logger, repo usageRepo) *Ledger {
	return &Ledger{
		repo: repo,
		log:  log.With("service", "usage"),
		now:  time.Now,
	}
}

// Record appends one usage entry. keyID is nil when the attempt failed before a
// key was resolved; opErr is nil on success. A persistence failure is logged
// and swallowed so it cannot replace the outcome being reported. The write is
// not cancelled together with ctx.
func (l *Ledger) Record(ctx context.Context, keyID *uuid.UUID, op domain.Operation, keyContext string, identifier *string, opErr error) {
	defer func() {
		if r := recover(); r != nil {
			l.log.ErrorContext(ctx, "usage ledger panic",
				slog.String("operation", op.String()),
				slog.String("context", keyContext),
				slog.Any("panic", r),
			)
		}
	}()

	entry := domain.UsageLogEntry{
		ID:          uuid.New(),
		KeyRecordID: keyID,
		Operation:   op,
		Context:     keyContext,
		Identifier:  identifier,
		Success:     opErr == nil,
		CreatedAt:   l.now().UTC(),
	}
	if opErr != nil {
		msg := truncate(opErr.Error(), maxErrorMessageLength)
		entry.ErrorMessage = &msg
	}

	if err := l.repo.Log(context.WithoutCancel(ctx), entry); err != nil {
		l.log.ErrorContext(ctx, "record key usage",
			slog.String("operation", op.String()),
			slog.String("context", keyContext),
			slog.Bool("success", entry.Success),
			slog.String("error", err.Error()),
		)
	}
}

// Recent returns the latest entries of keyContext, newest first.
func (l *Ledger) Recent(ctx context.Context, keyContext string, limit int) ([]domain.UsageLogEntry, error) {
	if err := domain.ValidateContext(keyContext); err != nil {
		return nil, err
	}
	entries, err := l.repo.ListByContext(ctx, keyContext, limit)
	if err != nil {
		return nil, fmt.Errorf("list usage: %w", err)
	}
	return entries, nil
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
