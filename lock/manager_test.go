package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/artfetch/artfetch/cache"
	"github.com/artfetch/artfetch/logger"
	"github.com/artfetch/artfetch/types"
)

func setupRedisStore(t *testing.T) (types.Store, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	log := logger.NewZapWrapper(zap.NewNop())
	store := cache.NewRedisStoreWithClient(context.Background(), log, client, "test")
	require.NoError(t, store.Start())
	t.Cleanup(func() { _ = store.Stop() })

	return store, mr
}

func newTestManager(t *testing.T) (*Manager, *miniredis.Miniredis) {
	t.Helper()

	store, mr := setupRedisStore(t)
	return NewManager(logger.NewZapWrapper(zap.NewNop()), store, nil), mr
}

func TestTryAcquireAndRelease(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	handle, err := m.TryAcquire(ctx, "met_object_lock_1", 30*time.Second)
	require.NoError(t, err)
	require.NotNil(t, handle)
	assert.Equal(t, "met_object_lock_1", handle.Key)
	assert.NotEmpty(t, handle.Token)

	require.NoError(t, m.Release(ctx, handle))

	// Released key is acquirable again.
	handle2, err := m.TryAcquire(ctx, "met_object_lock_1", 30*time.Second)
	require.NoError(t, err)
	require.NotNil(t, handle2)
	assert.NotEqual(t, handle.Token, handle2.Token)
}

func TestTryAcquireContention(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	holder, err := m.TryAcquire(ctx, "met_object_lock_2", 30*time.Second)
	require.NoError(t, err)
	require.NotNil(t, holder)

	loser, err := m.TryAcquire(ctx, "met_object_lock_2", 30*time.Second)
	require.NoError(t, err)
	assert.Nil(t, loser)
}

func TestReleaseOnlyByHolder(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	holder, err := m.TryAcquire(ctx, "met_object_lock_3", 30*time.Second)
	require.NoError(t, err)
	require.NotNil(t, holder)

	stale := &types.LockHandle{
		Key:        holder.Key,
		Token:      "someone-elses-token",
		Lease:      holder.Lease,
		AcquiredAt: holder.AcquiredAt,
	}

	// A mismatched token must not free the key.
	require.NoError(t, m.Release(ctx, stale))

	still, err := m.TryAcquire(ctx, "met_object_lock_3", 30*time.Second)
	require.NoError(t, err)
	assert.Nil(t, still)
}

func TestLeaseExpires(t *testing.T) {
	m, mr := newTestManager(t)
	ctx := context.Background()

	holder, err := m.TryAcquire(ctx, "met_object_lock_4", 5*time.Second)
	require.NoError(t, err)
	require.NotNil(t, holder)

	mr.FastForward(6 * time.Second)

	next, err := m.TryAcquire(ctx, "met_object_lock_4", 5*time.Second)
	require.NoError(t, err)
	assert.NotNil(t, next)
}

func TestReleaseNilHandle(t *testing.T) {
	m, _ := newTestManager(t)

	err := m.Release(context.Background(), nil)
	assert.ErrorIs(t, err, types.ErrLockHandleIsNil)
}

func TestForceRelease(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	holder, err := m.TryAcquire(ctx, "met_object_lock_5", 30*time.Second)
	require.NoError(t, err)
	require.NotNil(t, holder)

	require.NoError(t, m.ForceRelease(ctx, "met_object_lock_5"))

	next, err := m.TryAcquire(ctx, "met_object_lock_5", 30*time.Second)
	require.NoError(t, err)
	assert.NotNil(t, next)
}

func TestTryAcquireEmptyKey(t *testing.T) {
	m, _ := newTestManager(t)

	_, err := m.TryAcquire(context.Background(), "", time.Second)
	assert.ErrorIs(t, err, types.ErrStoreKeyEmpty)
}
