package lock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisLock implements Keyed over a shared Redis, for deployments running
// more than one ledger replica. Each acquisition takes a SET NX lease with a
// TTL so a crashed holder cannot wedge an item forever, and releases only its
// own lease (compare-and-delete on the token).
type RedisLock struct {
	client *redis.Client
	wait   time.Duration
	ttl    time.Duration
	retry  time.Duration
}

// releaseScript deletes the lease only if we still hold it.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// NewRedisLock builds a RedisLock. wait bounds acquisition (zero means
// DefaultWait); the lease TTL is sized well above any single custody
// operation so leases expire only on holder crash.
func NewRedisLock(client *redis.Client, wait time.Duration) *RedisLock {
	if wait <= 0 {
		wait = DefaultWait
	}
	return &RedisLock{
		client: client,
		wait:   wait,
		ttl:    30 * time.Second,
		retry:  50 * time.Millisecond,
	}
}

func (l *RedisLock) Acquire(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	lockKey := "custody:lock:" + key
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.client.SetNX(ctx, lockKey, token, l.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return func() {
				// Release on a fresh context: the request context may
				// already be cancelled, and an expired lease is worse
				// than a short extra hold.
				releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				_ = releaseScript.Run(releaseCtx, l.client, []string{lockKey}, token).Err()
			}, nil
		}
		if time.Now().After(deadline) {
			return nil, ErrBusy
		}
		select {
		case <-time.After(l.retry):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
