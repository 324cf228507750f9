package keystore_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/keycustody-backend/internal/adapter/postgres"
	"github.com/heartmarshall/keycustody-backend/internal/adapter/postgres/keystore"
	"github.com/heartmarshall/keycustody-backend/internal/adapter/postgres/testhelper"
	"github.com/heartmarshall/keycustody-backend/internal/domain"
)

func newRepo(t *testing.T) (*keystore.Repo, *postgres.TxManager) {
	t.Helper()
	pool := testhelper.SetupTestDB(t)
	return keystore.New(pool), postgres.NewTxManager(pool)
}

func buildKey(keyContext string, version int) domain.KeyRecord {
	return domain.KeyRecord{
		ID:         uuid.New(),
		Context:    keyContext,
		Version:    version,
		WrappedKey: []byte(fmt.Sprintf("wrapped-%d", version)),
		Active:     true,
		Notes:      "test",
	}
}

func TestRepo_InsertAndFindByVersion(t *testing.T) {
	t.Parallel()
	repo, _ := newRepo(t)
	ctx := context.Background()
	keyContext := testhelper.UniqueContext("ks-insert")

	inserted, err := repo.Insert(ctx, buildKey(keyContext, 1))
	require.NoError(t, err)
	assert.False(t, inserted.CreatedAt.IsZero())

	got, err := repo.FindByVersion(ctx, keyContext, 1)
	require.NoError(t, err)
	assert.Equal(t, inserted.ID, got.ID)
	assert.Equal(t, []byte("wrapped-1"), got.WrappedKey)
	assert.True(t, got.Active)
	assert.Nil(t, got.ExpiresAt)
	assert.Nil(t, got.DeactivatedAt)
	assert.Equal(t, "test", got.Notes)
}

func TestRepo_Insert_DuplicateVersion(t *testing.T) {
	t.Parallel()
	repo, _ := newRepo(t)
	ctx := context.Background()
	keyContext := testhelper.UniqueContext("ks-dup")

	_, err := repo.Insert(ctx, buildKey(keyContext, 1))
	require.NoError(t, err)

	_, err = repo.Insert(ctx, buildKey(keyContext, 1))
	assert.True(t, errors.Is(err, domain.ErrAlreadyExists), "got %v", err)
}

func TestRepo_FindByVersion_NotFound(t *testing.T) {
	t.Parallel()
	repo, _ := newRepo(t)

	_, err := repo.FindByVersion(context.Background(), testhelper.UniqueContext("ks-missing"), 7)
	assert.True(t, errors.Is(err, domain.ErrNotFound), "got %v", err)
}

func TestRepo_FindByVersion_IgnoresActive(t *testing.T) {
	t.Parallel()
	repo, _ := newRepo(t)
	ctx := context.Background()
	keyContext := testhelper.UniqueContext("ks-retired")

	rec, err := repo.Insert(ctx, buildKey(keyContext, 1))
	require.NoError(t, err)
	require.NoError(t, repo.MarkInactive(ctx, rec.ID, time.Now()))

	got, err := repo.FindByVersion(ctx, keyContext, 1)
	require.NoError(t, err)
	assert.False(t, got.Active)
	assert.NotNil(t, got.DeactivatedAt)
}

func TestRepo_FindActiveUnexpired(t *testing.T) {
	t.Parallel()
	pool := testhelper.SetupTestDB(t)
	repo := keystore.New(pool)
	ctx := context.Background()
	keyContext := testhelper.UniqueContext("ks-active")
	now := time.Now().UTC()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	testhelper.SeedKey(t, pool, keyContext, 1, true, nil)
	v2 := testhelper.SeedKey(t, pool, keyContext, 2, true, &future)
	testhelper.SeedKey(t, pool, keyContext, 3, true, &past)
	testhelper.SeedKey(t, pool, keyContext, 4, false, nil)

	got, err := repo.FindActiveUnexpired(ctx, keyContext, now)
	require.NoError(t, err)
	assert.Equal(t, v2.ID, got.ID, "expected highest active unexpired version 2, got %d", got.Version)
}

func TestRepo_FindActiveUnexpired_None(t *testing.T) {
	t.Parallel()
	pool := testhelper.SetupTestDB(t)
	repo := keystore.New(pool)
	keyContext := testhelper.UniqueContext("ks-none")

	testhelper.SeedKey(t, pool, keyContext, 1, false, nil)

	_, err := repo.FindActiveUnexpired(context.Background(), keyContext, time.Now())
	assert.True(t, errors.Is(err, domain.ErrNotFound), "got %v", err)
}

func TestRepo_NextVersion(t *testing.T) {
	t.Parallel()
	pool := testhelper.SetupTestDB(t)
	repo := keystore.New(pool)
	ctx := context.Background()
	keyContext := testhelper.UniqueContext("ks-next")

	next, err := repo.NextVersion(ctx, keyContext)
	require.NoError(t, err)
	assert.Equal(t, 1, next)

	testhelper.SeedKey(t, pool, keyContext, 1, false, nil)
	testhelper.SeedKey(t, pool, keyContext, 2, true, nil)

	next, err = repo.NextVersion(ctx, keyContext)
	require.NoError(t, err)
	assert.Equal(t, 3, next, "inactive versions still count")
}

func TestRepo_ConcurrentMint_SingleWinner(t *testing.T) {
	t.Parallel()
	repo, tm := newRepo(t)
	keyContext := testhelper.UniqueContext("ks-race")

	const workers = 5
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		wins     int
		conflict int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := tm.RunInTx(context.Background(), func(ctx context.Context) error {
				next, err := repo.NextVersion(ctx, keyContext)
				if err != nil {
					return err
				}
				_, err = repo.Insert(ctx, buildKey(keyContext, next))
				return err
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, domain.ErrAlreadyExists):
				conflict++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, workers, wins+conflict)

	records, err := repo.ListByContext(context.Background(), keyContext)
	require.NoError(t, err)
	seen := map[int]bool{}
	for _, rec := range records {
		assert.False(t, seen[rec.Version], "duplicate version %d", rec.Version)
		seen[rec.Version] = true
	}
	assert.Len(t, records, wins)
}

func TestRepo_LockContext_SerializesProvisioning(t *testing.T) {
	t.Parallel()
	repo, tm := newRepo(t)
	keyContext := testhelper.UniqueContext("ks-lock")

	// Every worker has already seen "no active key" and starts at a different
	// moment, some after an earlier worker committed.
	const workers = 6
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		minted int
	)
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			time.Sleep(time.Duration(i) * 20 * time.Millisecond)

			err := tm.RunInTx(context.Background(), func(ctx context.Context) error {
				if err := repo.LockContext(ctx, keyContext); err != nil {
					return err
				}
				_, err := repo.FindActiveUnexpired(ctx, keyContext, time.Now())
				if err == nil {
					return nil
				}
				if !errors.Is(err, domain.ErrNotFound) {
					return err
				}
				next, err := repo.NextVersion(ctx, keyContext)
				if err != nil {
					return err
				}
				if _, err := repo.Insert(ctx, buildKey(keyContext, next)); err != nil {
					return err
				}
				mu.Lock()
				minted++
				mu.Unlock()
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	records, err := repo.ListByContext(context.Background(), keyContext)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 1, records[0].Version)
	assert.Equal(t, 1, minted)
}

func TestRepo_MarkInactive(t *testing.T) {
	t.Parallel()
	repo, _ := newRepo(t)
	ctx := context.Background()
	keyContext := testhelper.UniqueContext("ks-mark")

	rec, err := repo.Insert(ctx, buildKey(keyContext, 1))
	require.NoError(t, err)

	first := time.Now().UTC().Add(-time.Minute).Truncate(time.Microsecond)
	require.NoError(t, repo.MarkInactive(ctx, rec.ID, first))
	require.NoError(t, repo.MarkInactive(ctx, rec.ID, time.Now()), "retiring twice is a no-op")

	got, err := repo.FindByVersion(ctx, keyContext, 1)
	require.NoError(t, err)
	require.NotNil(t, got.DeactivatedAt)
	assert.True(t, got.DeactivatedAt.Equal(first), "deactivated_at must keep the first retirement time")

	err = repo.MarkInactive(ctx, uuid.New(), time.Now())
	assert.True(t, errors.Is(err, domain.ErrNotFound), "got %v", err)
}

func TestRepo_ListByContextAndAll(t *testing.T) {
	t.Parallel()
	pool := testhelper.SetupTestDB(t)
	repo := keystore.New(pool)
	ctx := context.Background()
	keyContext := testhelper.UniqueContext("ks-list")

	for v := 1; v <= 3; v++ {
		testhelper.SeedKey(t, pool, keyContext, v, true, nil)
	}

	records, err := repo.ListByContext(ctx, keyContext)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []int{3, 2, 1}, []int{records[0].Version, records[1].Version, records[2].Version})

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	count := 0
	for _, rec := range all {
		if rec.Context == keyContext {
			count++
		}
	}
	assert.Equal(t, 3, count)
}
