// Package usagelog implements the key usage ledger repository using PostgreSQL.
// It provides append-only operations for usage log entries.
package usagelog

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/heartmarshall/keycustody-backend/internal/adapter/postgres"
	"github.com/heartmarshall/keycustody-backend/internal/domain"
)

const (
	table  = "key_usage_log"
	entity = "key_usage_log"

	defaultLimit = 50
	maxLimit     = 1000
)

// Repo provides usage log persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new usage log repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// ---------------------------------------------------------------------------
// Write operations
// ---------------------------------------------------------------------------

// Create inserts a new usage entry and returns it with the stored created_at.
func (r *Repo) Create(ctx context.Context, entry domain.UsageLogEntry) (domain.UsageLogEntry, error) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}

	sql, args, err := postgres.Builder().
		Insert(table).
		Columns("id", "key_record_id", "operation", "context", "identifier", "success", "error_message").
		Values(
			entry.ID,
			uuidPtrToPgUUID(entry.KeyRecordID),
			string(entry.Operation),
			entry.Context,
			entry.Identifier,
			entry.Success,
			entry.ErrorMessage,
		).
		Suffix("RETURNING created_at").
		ToSql()
	if err != nil {
		return domain.UsageLogEntry{}, fmt.Errorf("build insert query: %w", err)
	}

	if err := postgres.QuerierFromCtx(ctx, r.pool).QueryRow(ctx, sql, args...).Scan(&entry.CreatedAt); err != nil {
		return domain.UsageLogEntry{}, postgres.MapError(err, entity, entry.ID)
	}
	return entry, nil
}

// Log creates a usage entry without returning it.
// Satisfies usage.usageRepo.
func (r *Repo) Log(ctx context.Context, entry domain.UsageLogEntry) error {
	_, err := r.Create(ctx, entry)
	return err
}

// ---------------------------------------------------------------------------
// Read operations
// ---------------------------------------------------------------------------

// ListByContext returns the most recent entries of keyContext, newest first.
// limit <= 0 selects the default; values above the maximum are clamped.
func (r *Repo) ListByContext(ctx context.Context, keyContext string, limit int) ([]domain.UsageLogEntry, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	sql, args, err := postgres.Builder().
		Select("id", "key_record_id", "operation", "context", "identifier", "success", "error_message", "created_at").
		From(table).
		Where(sq.Eq{"context": keyContext}).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select query: %w", err)
	}

	rows, err := postgres.QuerierFromCtx(ctx, r.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, postgres.MapError(err, entity, keyContext)
	}

	entries, err := pgx.CollectRows(rows, scanEntry)
	if err != nil {
		return nil, postgres.MapError(err, entity, keyContext)
	}
	return entries, nil
}

// ---------------------------------------------------------------------------
// Mapping helpers
// ---------------------------------------------------------------------------

func scanEntry(row pgx.CollectableRow) (domain.UsageLogEntry, error) {
	var (
		entry     domain.UsageLogEntry
		keyID     pgtype.UUID
		operation string
	)
	err := row.Scan(
		&entry.ID, &keyID, &operation, &entry.Context, &entry.Identifier,
		&entry.Success, &entry.ErrorMessage, &entry.CreatedAt,
	)
	if err != nil {
		return domain.UsageLogEntry{}, err
	}

	// key_record_id: nullable UUID
	if keyID.Valid {
		id := uuid.UUID(keyID.Bytes)
		entry.KeyRecordID = &id
	}
	entry.Operation = domain.Operation(operation)

	return entry, nil
}

// uuidPtrToPgUUID converts a *uuid.UUID to pgtype.UUID (nil -> NULL).
func uuidPtrToPgUUID(id *uuid.UUID) pgtype.UUID {
	if id == nil {
		return pgtype.UUID{}
	}
	return pgtype.UUID{Bytes: *id, Valid: true}
}
