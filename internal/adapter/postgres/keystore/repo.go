// Package keystore implements the key record repository using PostgreSQL.
// It is a thin persistence boundary: no business logic, no key material handling.
package keystore

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/heartmarshall/keycustody-backend/internal/adapter/postgres"
	"github.com/heartmarshall/keycustody-backend/internal/domain"
)

const (
	table  = "encryption_keys"
	entity = "encryption_key"
)

var columns = []string{
	"id", "context", "version", "wrapped_key", "active",
	"expires_at", "created_at", "deactivated_at", "notes",
}

// Repo provides key record persistence backed by PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new keystore repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// ---------------------------------------------------------------------------
// Read operations
// ---------------------------------------------------------------------------

// FindActiveUnexpired returns the highest active version of keyContext whose
// expiry is unset or after now. Returns domain.ErrNotFound when none is eligible.
func (r *Repo) FindActiveUnexpired(ctx context.Context, keyContext string, now time.Time) (domain.KeyRecord, error) {
	query := postgres.Builder().
		Select(columns...).
		From(table).
		Where(sq.Eq{"context": keyContext, "active": true}).
		Where(sq.Or{sq.Eq{"expires_at": nil}, sq.Gt{"expires_at": now}}).
		OrderBy("version DESC").
		Limit(1)

	return r.getOne(ctx, query, keyContext+"/active")
}

// FindByVersion returns the exact (keyContext, version) record regardless of
// its active flag. Returns domain.ErrNotFound when it does not exist.
func (r *Repo) FindByVersion(ctx context.Context, keyContext string, version int) (domain.KeyRecord, error) {
	query := postgres.Builder().
		Select(columns...).
		From(table).
		Where(sq.Eq{"context": keyContext, "version": version})

	return r.getOne(ctx, query, fmt.Sprintf("%s/%d", keyContext, version))
}

// NextVersion returns max(version)+1 for keyContext, or 1 when it has no keys.
// Call it in the same transaction as the Insert that uses the result.
func (r *Repo) NextVersion(ctx context.Context, keyContext string) (int, error) {
	sql, args, err := postgres.Builder().
		Select("COALESCE(MAX(version), 0) + 1").
		From(table).
		Where(sq.Eq{"context": keyContext}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build next version query: %w", err)
	}

	var next int
	if err := postgres.QuerierFromCtx(ctx, r.pool).QueryRow(ctx, sql, args...).Scan(&next); err != nil {
		return 0, postgres.MapError(err, entity, keyContext+"/next")
	}
	return next, nil
}

// ListByContext returns every version of keyContext ordered by version DESC.
func (r *Repo) ListByContext(ctx context.Context, keyContext string) ([]domain.KeyRecord, error) {
	query := postgres.Builder().
		Select(columns...).
		From(table).
		Where(sq.Eq{"context": keyContext}).
		OrderBy("version DESC")

	return r.list(ctx, query, keyContext)
}

// ListAll returns every key record ordered by context, then version.
func (r *Repo) ListAll(ctx context.Context) ([]domain.KeyRecord, error) {
	query := postgres.Builder().
		Select(columns...).
		From(table).
		OrderBy("context ASC", "version ASC")

	return r.list(ctx, query, "*")
}

// ---------------------------------------------------------------------------
// Write operations
// ---------------------------------------------------------------------------

// LockContext takes a transaction-scoped advisory lock on keyContext. It
// blocks until concurrent holders commit or roll back and must run inside
// TxManager.RunInTx; outside a transaction the lock is released immediately.
func (r *Repo) LockContext(ctx context.Context, keyContext string) error {
	const q = "SELECT pg_advisory_xact_lock(hashtextextended($1, 0))"
	if _, err := postgres.QuerierFromCtx(ctx, r.pool).Exec(ctx, q, table+"/"+keyContext); err != nil {
		return postgres.MapError(err, entity, keyContext)
	}
	return nil
}

// Insert persists a new key record and returns it with the stored created_at.
// A duplicate (context, version) yields domain.ErrAlreadyExists.
func (r *Repo) Insert(ctx context.Context, rec domain.KeyRecord) (domain.KeyRecord, error) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}

	sql, args, err := postgres.Builder().
		Insert(table).
		Columns("id", "context", "version", "wrapped_key", "active", "expires_at", "notes").
		Values(rec.ID, rec.Context, rec.Version, rec.WrappedKey, rec.Active, rec.ExpiresAt, rec.Notes).
		Suffix("RETURNING created_at").
		ToSql()
	if err != nil {
		return domain.KeyRecord{}, fmt.Errorf("build insert query: %w", err)
	}

	if err := postgres.QuerierFromCtx(ctx, r.pool).QueryRow(ctx, sql, args...).Scan(&rec.CreatedAt); err != nil {
		return domain.KeyRecord{}, postgres.MapError(err, entity, fmt.Sprintf("%s/%d", rec.Context, rec.Version))
	}
	return rec, nil
}

// MarkInactive retires a key record. Retiring an already inactive record is
// a no-op and keeps its original deactivated_at.
// Returns domain.ErrNotFound if the record does not exist.
func (r *Repo) MarkInactive(ctx context.Context, id uuid.UUID, at time.Time) error {
	q := postgres.QuerierFromCtx(ctx, r.pool)

	sql, args, err := postgres.Builder().
		Update(table).
		Set("active", false).
		Set("deactivated_at", sq.Expr("COALESCE(deactivated_at, ?)", at)).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build mark inactive query: %w", err)
	}

	tag, err := q.Exec(ctx, sql, args...)
	if err != nil {
		return postgres.MapError(err, entity, id)
	}
	if tag.RowsAffected() == 0 {
		return postgres.MapError(pgx.ErrNoRows, entity, id)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (r *Repo) getOne(ctx context.Context, query sq.SelectBuilder, key string) (domain.KeyRecord, error) {
	sql, args, err := query.ToSql()
	if err != nil {
		return domain.KeyRecord{}, fmt.Errorf("build select query: %w", err)
	}

	rec, err := scanRecord(postgres.QuerierFromCtx(ctx, r.pool).QueryRow(ctx, sql, args...))
	if err != nil {
		return domain.KeyRecord{}, postgres.MapError(err, entity, key)
	}
	return rec, nil
}

func (r *Repo) list(ctx context.Context, query sq.SelectBuilder, key string) ([]domain.KeyRecord, error) {
	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select query: %w", err)
	}

	rows, err := postgres.QuerierFromCtx(ctx, r.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, postgres.MapError(err, entity, key)
	}

	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.KeyRecord, error) {
		return scanRecord(row)
	})
	if err != nil {
		return nil, postgres.MapError(err, entity, key)
	}
	return records, nil
}

// scanRecord reads one row in the order of columns.
func scanRecord(row pgx.Row) (domain.KeyRecord, error) {
	var (
		rec   domain.KeyRecord
		notes *string
	)
	err := row.Scan(
		&rec.ID, &rec.Context, &rec.Version, &rec.WrappedKey, &rec.Active,
		&rec.ExpiresAt, &rec.CreatedAt, &rec.DeactivatedAt, &notes,
	)
	if err != nil {
		return domain.KeyRecord{}, err
	}
	if notes != nil {
		rec.Notes = *notes
	}
	return rec, nil
}
