package testhelper

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/heartmarshall/keycustody-backend/internal/domain"
)

// UniqueContext returns a keyring context name that no other test uses,
// so tests sharing the container do not see each other's versions.
func UniqueContext(prefix string) string {
	return prefix + "-" + uuid.New().String()[:8]
}

// SeedKey inserts a key record with placeholder wrapped material.
// The row is not decryptable; use it for store-level tests only.
func SeedKey(t *testing.T, pool *pgxpool.Pool, keyContext string, version int, active bool, expiresAt *time.Time) domain.KeyRecord {
	t.Helper()

	rec := domain.KeyRecord{
		ID:         uuid.New(),
		Context:    keyContext,
		Version:    version,
		WrappedKey: []byte("wrapped-" + uuid.New().String()),
		Active:     active,
		ExpiresAt:  expiresAt,
		CreatedAt:  time.Now().UTC().Truncate(time.Microsecond),
	}

	_, err := pool.Exec(context.Background(),
		`INSERT INTO encryption_keys (id, context, version, wrapped_key, active, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ID, rec.Context, rec.Version, rec.WrappedKey, rec.Active, rec.ExpiresAt, rec.CreatedAt,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedKey insert: %v", err)
	}

	return rec
}
