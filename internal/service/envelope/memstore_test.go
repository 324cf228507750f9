package envelope

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/keycustody-backend/internal/domain"
)

// memStore is an in-memory key store enforcing UNIQUE(context, version).
type memStore struct {
	mu      sync.Mutex
	records []domain.KeyRecord

	// beforeFindActive, when set, runs before FindActiveUnexpired reads the store.
	beforeFindActive func()
}

// LockContext is a no-op: serialTx already runs one transaction at a time.
func (m *memStore) LockContext(context.Context, string) error { return nil }

func (m *memStore) FindActiveUnexpired(_ context.Context, keyContext string, now time.Time) (domain.KeyRecord, error) {
	if m.beforeFindActive != nil {
		m.beforeFindActive()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var best *domain.KeyRecord
	for i := range m.records {
		r := &m.records[i]
		if r.Context != keyContext || !r.EligibleForEncrypt(now) {
			continue
		}
		if best == nil || r.Version > best.Version {
			best = r
		}
	}
	if best == nil {
		return domain.KeyRecord{}, fmt.Errorf("encryption_key %s/active: %w", keyContext, domain.ErrNotFound)
	}
	return *best, nil
}

func (m *memStore) FindByVersion(_ context.Context, keyContext string, version int) (domain.KeyRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.records {
		if r.Context == keyContext && r.Version == version {
			return r, nil
		}
	}
	return domain.KeyRecord{}, fmt.Errorf("encryption_key %s/%d: %w", keyContext, version, domain.ErrNotFound)
}

func (m *memStore) NextVersion(_ context.Context, keyContext string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := 1
	for _, r := range m.records {
		if r.Context == keyContext && r.Version >= next {
			next = r.Version + 1
		}
	}
	return next, nil
}

func (m *memStore) Insert(_ context.Context, rec domain.KeyRecord) (domain.KeyRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.records {
		if r.Context == rec.Context && r.Version == rec.Version {
			return domain.KeyRecord{}, fmt.Errorf("encryption_key %s/%d: %w", rec.Context, rec.Version, domain.ErrAlreadyExists)
		}
	}
	rec.CreatedAt = time.Now().UTC()
	m.records = append(m.records, rec)
	return rec, nil
}

func (m *memStore) MarkInactive(_ context.Context, id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.records {
		if m.records[i].ID == id {
			m.records[i].Active = false
			if m.records[i].DeactivatedAt == nil {
				m.records[i].DeactivatedAt = &at
			}
			return nil
		}
	}
	return fmt.Errorf("encryption_key %s: %w", id, domain.ErrNotFound)
}

func (m *memStore) ListByContext(_ context.Context, keyContext string) ([]domain.KeyRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.KeyRecord
	for _, r := range m.records {
		if r.Context == keyContext {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version > out[j].Version })
	return out, nil
}

func (m *memStore) ListAll(_ context.Context) ([]domain.KeyRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]domain.KeyRecord(nil), m.records...), nil
}

func (m *memStore) versions(keyContext string) []int {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []int
	for _, r := range m.records {
		if r.Context == keyContext {
			out = append(out, r.Version)
		}
	}
	sort.Ints(out)
	return out
}

// serialTx runs transactions one at a time, like holders of the same
// per-context advisory lock.
type serialTx struct {
	mu sync.Mutex
}

func (tx *serialTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return fn(ctx)
}

// recordedUsage is one call to usageSpy.Record.
type recordedUsage struct {
	KeyID      *uuid.UUID
	Operation  domain.Operation
	Context    string
	Identifier *string
	Err        error
}

type usageSpy struct {
	mu      sync.Mutex
	entries []recordedUsage
}

func (u *usageSpy) Record(_ context.Context, keyID *uuid.UUID, op domain.Operation, keyContext string, identifier *string, opErr error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.entries = append(u.entries, recordedUsage{KeyID: keyID, Operation: op, Context: keyContext, Identifier: identifier, Err: opErr})
}

func (u *usageSpy) last() recordedUsage {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.entries[len(u.entries)-1]
}

func (u *usageSpy) count() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.entries)
}

// barrier releases its waiters once want callers have arrived; later callers pass through.
type barrier struct {
	mu   sync.Mutex
	n    int
	want int
	ch   chan struct{}
}

func newBarrier(want int) *barrier {
	return &barrier{want: want, ch: make(chan struct{})}
}

func (b *barrier) wait() {
	b.mu.Lock()
	b.n++
	if b.n == b.want {
		close(b.ch)
	}
	late := b.n > b.want
	b.mu.Unlock()
	if !late {
		<-b.ch
	}
}
