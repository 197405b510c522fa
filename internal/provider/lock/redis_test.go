package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestRedisLocker(t *testing.T, ttl time.Duration) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisLocker(client, "grantd:", ttl), mr
}

func TestRedisLocker_AcquireRelease(t *testing.T) {
	l, mr := newTestRedisLocker(t, time.Second)
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "refresh:abc")
	require.NoError(t, err)
	require.True(t, mr.Exists("grantd:lock:refresh:abc"))

	unlock()
	require.False(t, mr.Exists("grantd:lock:refresh:abc"))

	unlock, err = l.Lock(ctx, "refresh:abc")
	require.NoError(t, err)
	unlock()
}

func TestRedisLocker_WaitsForHolder(t *testing.T) {
	l, _ := newTestRedisLocker(t, time.Second)
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "k")
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		second, err := l.Lock(ctx, "k")
		if err == nil {
			second()
		}
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while the first was held")
	case <-time.After(50 * time.Millisecond):
	}

	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second lock never acquired")
	}
}

func TestRedisLocker_Timeout(t *testing.T) {
	l, _ := newTestRedisLocker(t, 50*time.Millisecond)
	l.retryWait = 5 * time.Millisecond
	ctx := context.Background()

	_, err := l.Lock(ctx, "k")
	require.NoError(t, err)

	// miniredis does not expire keys on its own clock, so the holder stays
	_, err = l.Lock(ctx, "k")
	require.ErrorIs(t, err, ErrLockTimeout)
}

func TestRedisLocker_ReleaseKeepsForeignOwner(t *testing.T) {
	l, mr := newTestRedisLocker(t, time.Second)
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "k")
	require.NoError(t, err)

	// Simulate expiry and takeover by another replica
	mr.FastForward(2 * time.Second)
	require.NoError(t, mr.Set("grantd:lock:k", "someone-else"))

	unlock()
	got, err := mr.Get("grantd:lock:k")
	require.NoError(t, err)
	require.Equal(t, "someone-else", got)
}

func TestRedisLocker_Ping(t *testing.T) {
	l, mr := newTestRedisLocker(t, 0)
	require.Equal(t, DefaultLockTTL, l.ttl)
	require.NoError(t, l.Ping(context.Background()))

	mr.Close()
	require.Error(t, l.Ping(context.Background()))
}
