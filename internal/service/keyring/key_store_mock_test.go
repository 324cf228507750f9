package keyring

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/keycustody-backend/internal/domain"
)

var _ keyStore = &keyStoreMock{}

type keyStoreMock struct {
	LockContextFunc         func(ctx context.Context, keyContext string) error
	FindActiveUnexpiredFunc func(ctx context.Context, keyContext string, now time.Time) (domain.KeyRecord, error)
	FindByVersionFunc       func(ctx context.Context, keyContext string, version int) (domain.KeyRecord, error)
	NextVersionFunc         func(ctx context.Context, keyContext string) (int, error)
	InsertFunc              func(ctx context.Context, rec domain.KeyRecord) (domain.KeyRecord, error)
	MarkInactiveFunc        func(ctx context.Context, id uuid.UUID, at time.Time) error
	ListByContextFunc       func(ctx context.Context, keyContext string) ([]domain.KeyRecord, error)
	ListAllFunc             func(ctx context.Context) ([]domain.KeyRecord, error)

	calls struct {
		LockContext []struct {
			KeyContext string
		}
		FindActiveUnexpired []struct {
			KeyContext string
			Now        time.Time
		}
		FindByVersion []struct {
			KeyContext string
			Version    int
		}
		NextVersion []struct {
			KeyContext string
		}
		Insert []struct {
			Rec domain.KeyRecord
		}
		MarkInactive []struct {
			ID uuid.UUID
			At time.Time
		}
		ListByContext []struct {
			KeyContext string
		}
		ListAll []struct{}
	}
	lockLockContext         sync.RWMutex
	lockFindActiveUnexpired sync.RWMutex
	lockFindByVersion       sync.RWMutex
	lockNextVersion         sync.RWMutex
	lockInsert              sync.RWMutex
	lockMarkInactive        sync.RWMutex
	lockListByContext       sync.RWMutex
	lockListAll             sync.RWMutex
}

func (mock *keyStoreMock) LockContext(ctx context.Context, keyContext string) error {
	if mock.LockContextFunc == nil {
		panic("keyStoreMock.LockContextFunc: method is nil but keyStore.LockContext was just called")
	}
	mock.lockLockContext.Lock()
	mock.calls.LockContext = append(mock.calls.LockContext, struct{ KeyContext string }{keyContext})
	mock.lockLockContext.Unlock()
	return mock.LockContextFunc(ctx, keyContext)
}

func (mock *keyStoreMock) LockContextCalls() []struct{ KeyContext string } {
	mock.lockLockContext.RLock()
	defer mock.lockLockContext.RUnlock()
	return mock.calls.LockContext
}

func (mock *keyStoreMock) FindActiveUnexpired(ctx context.Context, keyContext string, now time.Time) (domain.KeyRecord, error) {
	if mock.FindActiveUnexpiredFunc == nil {
		panic("keyStoreMock.FindActiveUnexpiredFunc: method is nil but keyStore.FindActiveUnexpired was just called")
	}
	callInfo := struct {
		KeyContext string
		Now        time.Time
	}{KeyContext: keyContext, Now: now}
	mock.lockFindActiveUnexpired.Lock()
	mock.calls.FindActiveUnexpired = append(mock.calls.FindActiveUnexpired, callInfo)
	mock.lockFindActiveUnexpired.Unlock()
	return mock.FindActiveUnexpiredFunc(ctx, keyContext, now)
}

func (mock *keyStoreMock) FindActiveUnexpiredCalls() []struct {
	KeyContext string
	Now        time.Time
} {
	mock.lockFindActiveUnexpired.RLock()
	calls := mock.calls.FindActiveUnexpired
	mock.lockFindActiveUnexpired.RUnlock()
	return calls
}

func (mock *keyStoreMock) FindByVersion(ctx context.Context, keyContext string, version int) (domain.KeyRecord, error) {
	if mock.FindByVersionFunc == nil {
		panic("keyStoreMock.FindByVersionFunc: method is nil but keyStore.FindByVersion was just called")
	}
	callInfo := struct {
		KeyContext string
		Version    int
	}{KeyContext: keyContext, Version: version}
	mock.lockFindByVersion.Lock()
	mock.calls.FindByVersion = append(mock.calls.FindByVersion, callInfo)
	mock.lockFindByVersion.Unlock()
	return mock.FindByVersionFunc(ctx, keyContext, version)
}

func (mock *keyStoreMock) FindByVersionCalls() []struct {
	KeyContext string
	Version    int
} {
	mock.lockFindByVersion.RLock()
	calls := mock.calls.FindByVersion
	mock.lockFindByVersion.RUnlock()
	return calls
}

func (mock *keyStoreMock) NextVersion(ctx context.Context, keyContext string) (int, error) {
	if mock.NextVersionFunc == nil {
		panic("keyStoreMock.NextVersionFunc: method is nil but keyStore.NextVersion was just called")
	}
	callInfo := struct{ KeyContext string }{KeyContext: keyContext}
	mock.lockNextVersion.Lock()
	mock.calls.NextVersion = append(mock.calls.NextVersion, callInfo)
	mock.lockNextVersion.Unlock()
	return mock.NextVersionFunc(ctx, keyContext)
}

func (mock *keyStoreMock) NextVersionCalls() []struct{ KeyContext string } {
	mock.lockNextVersion.RLock()
	calls := mock.calls.NextVersion
	mock.lockNextVersion.RUnlock()
	return calls
}

func (mock *keyStoreMock) Insert(ctx context.Context, rec domain.KeyRecord) (domain.KeyRecord, error) {
	if mock.InsertFunc == nil {
		panic("keyStoreMock.InsertFunc: method is nil but keyStore.Insert was just called")
	}
	callInfo := struct{ Rec domain.KeyRecord }{Rec: rec}
	mock.lockInsert.Lock()
	mock.calls.Insert = append(mock.calls.Insert, callInfo)
	mock.lockInsert.Unlock()
	return mock.InsertFunc(ctx, rec)
}

func (mock *keyStoreMock) InsertCalls() []struct{ Rec domain.KeyRecord } {
	mock.lockInsert.RLock()
	calls := mock.calls.Insert
	mock.lockInsert.RUnlock()
	return calls
}

func (mock *keyStoreMock) MarkInactive(ctx context.Context, id uuid.UUID, at time.Time) error {
	if mock.MarkInactiveFunc == nil {
		panic("keyStoreMock.MarkInactiveFunc: method is nil but keyStore.MarkInactive was just called")
	}
	callInfo := struct {
		ID uuid.UUID
		At time.Time
	}{ID: id, At: at}
	mock.lockMarkInactive.Lock()
	mock.calls.MarkInactive = append(mock.calls.MarkInactive, callInfo)
	mock.lockMarkInactive.Unlock()
	return mock.MarkInactiveFunc(ctx, id, at)
}

func (mock *keyStoreMock) MarkInactiveCalls() []struct {
	ID uuid.UUID
	At time.Time
} {
	mock.lockMarkInactive.RLock()
	calls := mock.calls.MarkInactive
	mock.lockMarkInactive.RUnlock()
	return calls
}

func (mock *keyStoreMock) ListByContext(ctx context.Context, keyContext string) ([]domain.KeyRecord, error) {
	if mock.ListByContextFunc == nil {
		panic("keyStoreMock.ListByContextFunc: method is nil but keyStore.ListByContext was just called")
	}
	callInfo := struct{ KeyContext string }{KeyContext: keyContext}
	mock.lockListByContext.Lock()
	mock.calls.ListByContext = append(mock.calls.ListByContext, callInfo)
	mock.lockListByContext.Unlock()
	return mock.ListByContextFunc(ctx, keyContext)
}

func (mock *keyStoreMock) ListByContextCalls() []struct{ KeyContext string } {
	mock.lockListByContext.RLock()
	calls := mock.calls.ListByContext
	mock.lockListByContext.RUnlock()
	return calls
}

func (mock *keyStoreMock) ListAll(ctx context.Context) ([]domain.KeyRecord, error) {
	if mock.ListAllFunc == nil {
		panic("keyStoreMock.ListAllFunc: method is nil but keyStore.ListAll was just called")
	}
	mock.lockListAll.Lock()
	mock.calls.ListAll = append(mock.calls.ListAll, struct{}{})
	mock.lockListAll.Unlock()
	return mock.ListAllFunc(ctx)
}

func (mock *keyStoreMock) ListAllCalls() []struct{} {
	mock.lockListAll.RLock()
	calls := mock.calls.ListAll
	mock.lockListAll.RUnlock()
	return calls
}
