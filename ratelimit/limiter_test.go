package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/artfetch/artfetch/cache"
	"github.com/artfetch/artfetch/logger"
	"github.com/artfetch/artfetch/types"
	"github.com/artfetch/artfetch/utils"
)

func newTestLimiter(t *testing.T, config *types.RateLimitConfig) (*Limiter, types.Store) {
	t.Helper()

	log := logger.NewZapWrapper(zap.NewNop())

	store, err := cache.NewMemoryStore(context.Background(), log, nil)
	require.NoError(t, err)
	require.NoError(t, store.Start())
	t.Cleanup(func() { _ = store.Stop() })

	return NewLimiter(log, store, nil, config), store
}

func TestAcquireUnderCeiling(t *testing.T) {
	limiter, _ := newTestLimiter(t, &types.RateLimitConfig{
		MaxRequests: 10,
		Window:      time.Second,
		Buffer:      10 * time.Millisecond,
		EntryTTL:    2 * time.Second,
	})

	start := time.Now()
	for i := 0; i < 10; i++ {
		require.NoError(t, limiter.AcquireSlot(context.Background()))
	}

	// All ten fit inside the window, nothing should have waited.
	assert.Less(t, time.Since(start), 200*time.Millisecond)
}

func TestAcquireDelaysAtCeiling(t *testing.T) {
	limiter, _ := newTestLimiter(t, &types.RateLimitConfig{
		MaxRequests: 3,
		Window:      150 * time.Millisecond,
		Buffer:      10 * time.Millisecond,
		EntryTTL:    2 * time.Second,
	})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, limiter.AcquireSlot(ctx))
	}

	start := time.Now()
	require.NoError(t, limiter.AcquireSlot(ctx))

	// The fourth call must wait for the oldest stamp to age out.
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestWindowCeilingNeverExceeded(t *testing.T) {
	window := 150 * time.Millisecond
	limiter, store := newTestLimiter(t, &types.RateLimitConfig{
		MaxRequests: 3,
		Window:      window,
		Buffer:      10 * time.Millisecond,
		EntryTTL:    2 * time.Second,
	})

	ctx := context.Background()
	var acquired []int64

	for i := 0; i < 8; i++ {
		require.NoError(t, limiter.AcquireSlot(ctx))

		data, ok := store.Get(ctx, WindowKey)
		require.True(t, ok)

		var stamps []int64
		require.NoError(t, utils.Unmarshal(data, &stamps))
		acquired = append(acquired, stamps[len(stamps)-1])
	}

	// No sliding window of the configured width may hold more than the
	// ceiling.
	for i := range acquired {
		inWindow := 0
		for j := range acquired {
			diff := acquired[j] - acquired[i]
			if diff >= 0 && diff < int64(window) {
				inWindow++
			}
		}
		assert.LessOrEqual(t, inWindow, 3, "window starting at stamp %d", i)
	}
}

func TestWaitCappedAtWindowPlusBuffer(t *testing.T) {
	config := &types.RateLimitConfig{
		MaxRequests: 2,
		Window:      100 * time.Millisecond,
		Buffer:      20 * time.Millisecond,
		EntryTTL:    2 * time.Second,
	}
	limiter, _ := newTestLimiter(t, config)

	now := time.Now()
	future := []int64{now.Add(time.Hour).UnixNano(), now.Add(time.Hour).UnixNano()}

	wait := limiter.waitFor(future, now)
	assert.Equal(t, config.Window+config.Buffer, wait)
}

func TestAcquireHonorsCancellation(t *testing.T) {
	limiter, _ := newTestLimiter(t, &types.RateLimitConfig{
		MaxRequests: 1,
		Window:      time.Second,
		Buffer:      50 * time.Millisecond,
		EntryTTL:    2 * time.Second,
	})

	require.NoError(t, limiter.AcquireSlot(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := limiter.AcquireSlot(ctx)
	assert.Error(t, err)
}

func TestUnreadableWindowDiscarded(t *testing.T) {
	limiter, store := newTestLimiter(t, &types.RateLimitConfig{
		MaxRequests: 5,
		Window:      time.Second,
		Buffer:      10 * time.Millisecond,
		EntryTTL:    2 * time.Second,
	})

	ctx := context.Background()
	require.NoError(t, store.Set(ctx, WindowKey, []byte("{not json"), 2*time.Second))

	require.NoError(t, limiter.AcquireSlot(ctx))

	data, ok := store.Get(ctx, WindowKey)
	require.True(t, ok)

	var stamps []int64
	require.NoError(t, utils.Unmarshal(data, &stamps))
	assert.Len(t, stamps, 1)
}
