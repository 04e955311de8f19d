package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/artfetch/artfetch/types"
)

// MemoryStore keeps the shared state in process memory. It serves tests and
// single-process deployments; cross-worker coordination needs the redis store.
type MemoryStore struct {
	logger     types.Logger
	data       map[string]*memoryEntry
	mu         sync.RWMutex
	shutdownCh chan struct{}
	started    int32
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e *memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

func NewMemoryStore(_ context.Context, logger types.Logger, _ *types.StoreConfig) (types.Store, error) {
	return &MemoryStore{
		logger:     logger,
		data:       make(map[string]*memoryEntry),
		shutdownCh: make(chan struct{}),
	}, nil
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, bool) {
	if key == "" {
		return nil, false
	}

	m.mu.RLock()
	entry, exists := m.data[key]
	m.mu.RUnlock()

	if !exists {
		return nil, false
	}

	if entry.expired(time.Now()) {
		m.mu.Lock()
		delete(m.data, key)
		m.mu.Unlock()
		return nil, false
	}

	value := make([]byte, len(entry.value))
	copy(value, entry.value)
	return value, true
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return types.ErrStoreKeyEmpty
	}

	stored := make([]byte, len(value))
	copy(stored, value)

	m.mu.Lock()
	m.data[key] = &memoryEntry{
		value:     stored,
		expiresAt: expiry(ttl),
	}
	m.mu.Unlock()

	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	if key == "" {
		return nil
	}

	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()

	return nil
}

func (m *MemoryStore) SetNX(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	if key == "" {
		return false, types.ErrStoreKeyEmpty
	}

	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if entry, exists := m.data[key]; exists && !entry.expired(now) {
		return false, nil
	}

	m.data[key] = &memoryEntry{
		value:     []byte(value),
		expiresAt: expiry(ttl),
	}

	return true, nil
}

func (m *MemoryStore) DeleteIfEquals(_ context.Context, key, expected string) (bool, error) {
	if key == "" {
		return false, types.ErrStoreKeyEmpty
	}

	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.data[key]
	if !exists || entry.expired(now) || string(entry.value) != expected {
		return false, nil
	}

	delete(m.data, key)
	return true, nil
}

func (m *MemoryStore) Start() error {
	if !atomic.CompareAndSwapInt32(&m.started, 0, 1) {
		return nil
	}

	go m.cleanupWorker()

	m.logger.Info("Memory store started")
	return nil
}

func (m *MemoryStore) Stop() error {
	if !atomic.CompareAndSwapInt32(&m.started, 1, 0) {
		return nil
	}

	select {
	case <-m.shutdownCh:
	default:
		close(m.shutdownCh)
	}

	m.logger.Info("Memory store stopped")
	return nil
}

func (m *MemoryStore) IsRunning() bool {
	return atomic.LoadInt32(&m.started) == 1
}

func (m *MemoryStore) cleanupWorker() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.cleanup()
		case <-m.shutdownCh:
			return
		}
	}
}

func (m *MemoryStore) cleanup() {
	now := time.Now()

	m.mu.Lock()
	for key, entry := range m.data {
		if entry.expired(now) {
			delete(m.data, key)
		}
	}
	m.mu.Unlock()
}

func expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return time.Now().Add(ttl)
}
