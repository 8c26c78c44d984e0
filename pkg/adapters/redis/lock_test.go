package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/davinci/pkg/adapters/redis"
)

func TestLocker_MutualExclusion(t *testing.T) {
	mr, client := newClient(t)
	locker := redis.NewLocker(client, "davinci:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "tenant", time.Minute)
	require.NoError(t, err)
	assert.True(t, mr.Exists("davinci:lock:tenant"))

	waitCtx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(waitCtx, "tenant", time.Minute)
	assert.ErrorIs(t, err, redis.ErrLockAcquire)

	require.NoError(t, unlock(ctx))
	assert.False(t, mr.Exists("davinci:lock:tenant"))

	unlock2, err := locker.Lock(ctx, "tenant", time.Minute)
	require.NoError(t, err)
	require.NoError(t, unlock2(ctx))
}

func TestLocker_StaleUnlockKeepsNewHolder(t *testing.T) {
	mr, client := newClient(t)
	locker := redis.NewLocker(client, "davinci:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "tenant", time.Second)
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)

	_, err = locker.Lock(ctx, "tenant", time.Minute)
	require.NoError(t, err)

	require.NoError(t, unlock(ctx))
	assert.True(t, mr.Exists("davinci:lock:tenant"), "the expired holder must not release the new lock")
}
