package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisLocker(t *testing.T, ttl time.Duration) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	l := NewRedisLocker(client, "test:", ttl)
	l.retryWait = 5 * time.Millisecond
	return l, mr
}

func TestRedisLocker_SerializesSameKey(t *testing.T) {
	l, mr := newRedisLocker(t, time.Second)
	key := MonthKey("2025-03")

	release, err := l.Lock(context.Background(), key)
	require.NoError(t, err)
	assert.True(t, mr.Exists("test:"+key))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, key)
	assert.ErrorIs(t, err, ErrLockTimeout)

	acquired := make(chan func(), 1)
	go func() {
		next, err := l.Lock(context.Background(), key)
		if err == nil {
			acquired <- next
		}
	}()

	select {
	case <-acquired:
		t.Fatal("second holder acquired the lock before release")
	case <-time.After(30 * time.Millisecond):
	}

	release()
	release()

	select {
	case next := <-acquired:
		next()
	case <-time.After(time.Second):
		t.Fatal("second holder never acquired the lock")
	}
	assert.False(t, mr.Exists("test:"+key))
}

func TestRedisLocker_DifferentKeysDoNotBlock(t *testing.T) {
	l, _ := newRedisLocker(t, time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	a, err := l.Lock(ctx, EmployeeDateKey("EMP001", "2025-03-10"))
	require.NoError(t, err)
	defer a()
	b, err := l.Lock(ctx, EmployeeDateKey("EMP002", "2025-03-10"))
	require.NoError(t, err)
	defer b()
}

func TestRedisLocker_ReleaseKeepsForeignToken(t *testing.T) {
	l, mr := newRedisLocker(t, time.Second)
	key := ShiftDayKey("EMP001")

	release, err := l.Lock(context.Background(), key)
	require.NoError(t, err)

	// Another holder took over after our lease expired.
	require.NoError(t, mr.Set("test:"+key, "other-holder"))
	release()

	got, err := mr.Get("test:" + key)
	require.NoError(t, err)
	assert.Equal(t, "other-holder", got)
}

func TestRedisLocker_RenewsLeaseWhileHeld(t *testing.T) {
	ttl := 300 * time.Millisecond
	l, mr := newRedisLocker(t, ttl)
	key := MonthKey("2025-03")

	release, err := l.Lock(context.Background(), key)
	require.NoError(t, err)

	mr.FastForward(2 * ttl / 3)
	require.Less(t, mr.TTL("test:"+key), ttl/2)

	assert.Eventually(t, func() bool {
		return mr.TTL("test:"+key) > ttl/2
	}, 2*time.Second, 10*time.Millisecond)

	release()
	assert.False(t, mr.Exists("test:"+key))
}
