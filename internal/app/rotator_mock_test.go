package app

import (
	"context"
	"sync"

	"github.com/heartmarshall/keycustody-backend/internal/service/keyring"
)

type rotatorMock struct {
	RotateKeyFunc         func(ctx context.Context, keyContext string, in keyring.RotateInput) (int, error)
	RetireOldVersionsFunc func(ctx context.Context, keyContext string, keepCount int) (int, error)

	calls struct {
		RotateKey []struct {
			KeyContext string
			In         keyring.RotateInput
		}
		RetireOldVersions []struct {
			KeyContext string
			KeepCount  int
		}
	}
	lockRotateKey         sync.RWMutex
	lockRetireOldVersions sync.RWMutex
}

func (m *rotatorMock) RotateKey(ctx context.Context, keyContext string, in keyring.RotateInput) (int, error) {
	if m.RotateKeyFunc == nil {
		panic("rotatorMock.RotateKeyFunc: method is nil but rotator.RotateKey was just called")
	}
	m.lockRotateKey.Lock()
	m.calls.RotateKey = append(m.calls.RotateKey, struct {
		KeyContext string
		In         keyring.RotateInput
	}{keyContext, in})
	m.lockRotateKey.Unlock()
	return m.RotateKeyFunc(ctx, keyContext, in)
}

func (m *rotatorMock) RotateKeyCalls() []struct {
	KeyContext string
	In         keyring.RotateInput
} {
	m.lockRotateKey.RLock()
	defer m.lockRotateKey.RUnlock()
	return m.calls.RotateKey
}

func (m *rotatorMock) RetireOldVersions(ctx context.Context, keyContext string, keepCount int) (int, error) {
	if m.RetireOldVersionsFunc == nil {
		panic("rotatorMock.RetireOldVersionsFunc: method is nil but rotator.RetireOldVersions was just called")
	}
	m.lockRetireOldVersions.Lock()
	m.calls.RetireOldVersions = append(m.calls.RetireOldVersions, struct {
		KeyContext string
		KeepCount  int
	}{keyContext, keepCount})
	m.lockRetireOldVersions.Unlock()
	return m.RetireOldVersionsFunc(ctx, keyContext, keepCount)
}

func (m *rotatorMock) RetireOldVersionsCalls() []struct {
	KeyContext string
	KeepCount  int
} {
	m.lockRetireOldVersions.RLock()
	defer m.lockRetireOldVersions.RUnlock()
	return m.calls.RetireOldVersions
}
