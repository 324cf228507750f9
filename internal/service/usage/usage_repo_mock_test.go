package usage

import (
	"context"
	"sync"

	"github.com/heartmarshall/keycustody-backend/internal/domain"
)

var _ usageRepo = &usageRepoMock{}

type usageRepoMock struct {
	LogFunc           func(ctx context.Context, entry domain.UsageLogEntry) error
	ListByContextFunc func(ctx context.Context, keyContext string, limit int) ([]domain.UsageLogEntry, error)

	calls struct {
		Log []struct {
			Ctx   context.Context
			Entry domain.UsageLogEntry
		}
		ListByContext []struct {
			KeyContext string
			Limit      int
		}
	}
	lockLog           sync.RWMutex
	lockListByContext sync.RWMutex
}

func (mock *usageRepoMock) Log(ctx context.Context, entry domain.UsageLogEntry) error {
	if mock.LogFunc == nil {
		panic("usageRepoMock.LogFunc: method is nil but usageRepo.Log was just called")
	}
	callInfo := struct {
		Ctx   context.Context
		Entry domain.UsageLogEntry
	}{Ctx: ctx, Entry: entry}
	mock.lockLog.Lock()
	mock.calls.Log = append(mock.calls.Log, callInfo)
	mock.lockLog.Unlock()
	return mock.LogFunc(ctx, entry)
}

func (mock *usageRepoMock) LogCalls() []struct {
	Ctx   context.Context
	Entry domain.UsageLogEntry
} {
	mock.lockLog.RLock()
	calls := mock.calls.Log
	mock.lockLog.RUnlock()
	return calls
}

func (mock *usageRepoMock) ListByContext(ctx context.Context, keyContext string, limit int) ([]domain.UsageLogEntry, error) {
	if mock.ListByContextFunc == nil {
		panic("usageRepoMock.ListByContextFunc: method is nil but usageRepo.ListByContext was just called")
	}
	callInfo := struct {
		KeyContext string
		Limit      int
	}{KeyContext: keyContext, Limit: limit}
	mock.lockListByContext.Lock()
	mock.calls.ListByContext = append(mock.calls.ListByContext, callInfo)
	mock.lockListByContext.Unlock()
	return mock.ListByContextFunc(ctx, keyContext, limit)
}

func (mock *usageRepoMock) ListByContextCalls() []struct {
	KeyContext string
	Limit      int
} {
	mock.lockListByContext.RLock()
	calls := mock.calls.ListByContext
	mock.lockListByContext.RUnlock()
	return calls
}
