package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/grantd/pkg/cryptox"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultLockTTL   = 10 * time.Second
	defaultRetryWait = 25 * time.Millisecond
)

var ErrLockTimeout = errors.New("lock: timed out waiting for key")

// releaseScript deletes the key only if it still holds our token, so a lock
// that expired and was taken by another replica is left alone.
var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

// RedisLocker serializes across replicas with SET NX PX.
type RedisLocker struct {
	client    redis.UniversalClient
	prefix    string
	ttl       time.Duration
	retryWait time.Duration
}

// NewRedisLocker wraps client. A ttl of zero uses DefaultLockTTL.
func NewRedisLocker(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &RedisLocker{client: client, prefix: prefix, ttl: ttl, retryWait: defaultRetryWait}
}

// Lock polls until the key is acquired, ctx is done or one ttl has passed.
func (r *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	owner, err := cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		return nil, fmt.Errorf("lock: generate owner token: %w", err)
	}
	full := r.prefix + "lock:" + key
	deadline := time.Now().Add(r.ttl)

	for {
		ok, err := r.client.SetNX(ctx, full, owner, r.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("lock: acquire %q: %w", key, err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return nil, ErrLockTimeout
		}

		t := time.NewTimer(r.retryWait)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}

	return func() {
		// The caller's context may already be cancelled by the time it unlocks
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, r.client, []string{full}, owner).Err()
	}, nil
}

// Ping checks the Redis connection for readiness probes.
func (r *RedisLocker) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
