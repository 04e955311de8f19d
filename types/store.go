package types

import (
	"context"
	"time"
)

// Store is the shared key-value state all workers coordinate through: object
// cache entries, failure records, lock leases and the rate window all live
// here. Implementations must make SetNX and DeleteIfEquals atomic; no
// multi-key transactional guarantees are assumed.
type Store interface {
	LifecycleManager
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// SetNX stores value under key with the given TTL only if the key is
	// absent, returning whether the write happened.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	// DeleteIfEquals removes key only when its current value matches expected.
	DeleteIfEquals(ctx context.Context, key, expected string) (bool, error)
}

type StoreCreator func(config interface{}) (Store, error)

// StoreEntry is the JSON envelope persisted for object cache values.
type StoreEntry struct {
	Key       string        `json:"key"`
	Value     []byte        `json:"value"`
	TTL       time.Duration `json:"ttl"`
	CreatedAt time.Time     `json:"created_at"`
}

// RateLimiter delays the caller until one more outbound upstream request fits
// under the configured ceiling. It never rejects; only context cancellation
// makes it return early.
type RateLimiter interface {
	AcquireSlot(ctx context.Context) error
}

// LockManager hands out advisory per-key leases backed by the shared store.
type LockManager interface {
	// TryAcquire is non-blocking: it returns a nil handle when the key is
	// already held elsewhere.
	TryAcquire(ctx context.Context, key string, lease time.Duration) (*LockHandle, error)
	// Release drops the lease; only the holder's token releases the key.
	Release(ctx context.Context, handle *LockHandle) error
	// ForceRelease clears a lease regardless of the holder.
	ForceRelease(ctx context.Context, key string) error
}

// NegativeCache records recent per-object failures so the upstream is not
// hammered for items likely to fail again.
type NegativeCache interface {
	RecordFailure(ctx context.Context, objectID, status int) error
	GetFailure(ctx context.Context, objectID int) (*FailureRecord, bool)
	ClearFailure(ctx context.Context, objectID int) error
	// ShouldSuppress reports whether a new fetch for the object must be
	// skipped because a recorded failure is still inside its
	// retry-eligibility window. forceRetry bypasses the record once.
	ShouldSuppress(ctx context.Context, objectID int, forceRetry bool) bool
}
