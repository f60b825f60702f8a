package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	lockPrefix = "session-lock:"
	lockRetry  = 50 * time.Millisecond
)

// releaseScript deletes the lease only while it still holds our token; an
// expired lease may already belong to another replica.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLock is a per-session lease (SET NX with expiry) shared by every
// replica talking to the same Redis.
type RedisLock struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisLock creates a lease manager. ttl bounds how long a crashed
// holder keeps a session locked and must exceed the longest chat turn.
func NewRedisLock(client *redis.Client, ttl time.Duration) *RedisLock {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &RedisLock{client: client, ttl: ttl}
}

// Acquire implements RemoteLock. It polls until the lease is free or ctx
// is done.
func (r *RedisLock) Acquire(ctx context.Context, key string) (func(), error) {
	k := lockPrefix + key
	token := uuid.NewString()
	for {
		ok, err := r.client.SetNX(ctx, k, token, r.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("redis lock %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("redis lock %s: %w", key, ctx.Err())
		case <-time.After(lockRetry):
		}
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		releaseScript.Run(ctx, r.client, []string{k}, token)
	}, nil
}
