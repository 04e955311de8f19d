// Package lock coordinates fetches across workers with advisory per-key
// leases in the shared store. A lease is a coordination signal only, it owns
// no data and expires on its own if the holder dies.
package lock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/artfetch/artfetch/types"
)

type Manager struct {
	logger  types.Logger
	store   types.Store
	metrics types.MetricsManager
}

func NewManager(logger types.Logger, store types.Store, metrics types.MetricsManager) *Manager {
	return &Manager{
		logger:  logger,
		store:   store,
		metrics: metrics,
	}
}

// TryAcquire attempts a non-blocking set-if-absent lease. A nil handle with a
// nil error means someone else holds the key.
func (m *Manager) TryAcquire(ctx context.Context, key string, lease time.Duration) (*types.LockHandle, error) {
	if key == "" {
		return nil, types.ErrStoreKeyEmpty
	}

	token := uuid.NewString()

	acquired, err := m.store.SetNX(ctx, key, token, lease)
	if err != nil {
		return nil, types.WrapError(err, "lock acquire failed")
	}

	if !acquired {
		m.countContention()
		return nil, nil
	}

	return &types.LockHandle{
		Key:        key,
		Token:      token,
		Lease:      lease,
		AcquiredAt: time.Now(),
	}, nil
}

// Release drops the lease if this handle still owns it. Releasing an expired
// or stolen lease is not an error; the lease already did its job.
func (m *Manager) Release(ctx context.Context, handle *types.LockHandle) error {
	if handle == nil {
		return types.ErrLockHandleIsNil
	}

	released, err := m.store.DeleteIfEquals(ctx, handle.Key, handle.Token)
	if err != nil {
		return types.WrapError(err, "lock release failed")
	}

	if !released {
		m.logger.Debug("Lock lease already expired or replaced",
			zap.String("key", handle.Key),
			zap.Duration("held", time.Since(handle.AcquiredAt)))
	}

	return nil
}

// ForceRelease clears a lease regardless of the holder, used by the admin
// cache-clear path.
func (m *Manager) ForceRelease(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	return m.store.Delete(ctx, key)
}

func (m *Manager) countContention() {
	if m.metrics == nil {
		return
	}
	m.metrics.Counter("lock_contention_total", nil).Inc()
}
