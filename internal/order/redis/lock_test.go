package redis_test

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-raffle/internal/order/redis"
)

func setupTestRedis(t *testing.T) (*redis.Redis, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return redis.NewRedis(client, 30*time.Second), mr
}

func TestLockOrderIsExclusive(t *testing.T) {
	lock, _ := setupTestRedis(t)

	ok, err := lock.LockOrder("order-1", "token-a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = lock.LockOrder("order-1", "token-b")
	require.NoError(t, err)
	assert.False(t, ok)

	// A different order is an independent lock.
	ok, err = lock.LockOrder("order-2", "token-b")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUnlockOrderRequiresOwnership(t *testing.T) {
	lock, _ := setupTestRedis(t)

	ok, err := lock.LockOrder("order-1", "token-a")
	require.NoError(t, err)
	require.True(t, ok)

	// A stranger's unlock leaves the lock in place.
	require.NoError(t, lock.UnlockOrder("order-1", "token-b"))
	ok, err = lock.LockOrder("order-1", "token-c")
	require.NoError(t, err)
	assert.False(t, ok)

	// The holder's unlock frees it.
	require.NoError(t, lock.UnlockOrder("order-1", "token-a"))
	ok, err = lock.LockOrder("order-1", "token-c")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUnlockOrderOnFreeLockIsNoop(t *testing.T) {
	lock, _ := setupTestRedis(t)

	assert.NoError(t, lock.UnlockOrder("order-1", "token-a"))
}

func TestLockOrderExpires(t *testing.T) {
	lock, mr := setupTestRedis(t)

	ok, err := lock.LockOrder("order-1", "token-a")
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(31 * time.Second)

	ok, err = lock.LockOrder("order-1", "token-b")
	require.NoError(t, err)
	assert.True(t, ok)
}
