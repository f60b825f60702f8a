package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gravy-ai/restaurant-assistant/internal/model"
)

const redisPrefix = "session:"

// RedisStore keeps sessions in Redis so several API replicas share them.
// Pair it with NewSharedLocker(NewRedisLock(...)) so turns for one session
// are also serialised across replicas.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	clock  model.Clock
}

// NewRedisStore creates a store over client. Keys expire after ttl of
// inactivity.
func NewRedisStore(client *redis.Client, ttl time.Duration, clock model.Clock) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, clock: clock}
}

// NewRedisClient connects and pings with a short timeout.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

// Load implements Store.
func (r *RedisStore) Load(ctx context.Context, key string) (*Session, error) {
	s, err := r.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return New(key), nil
	}
	return s, err
}

// Get implements Store.
func (r *RedisStore) Get(ctx context.Context, key string) (*Session, error) {
	data, err := r.client.Get(ctx, redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get session: %w", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &s, nil
}

// Save implements Store.
func (r *RedisStore) Save(ctx context.Context, s *Session) error {
	s.UpdatedAt = r.clock.Now()
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := r.client.Set(ctx, redisKey(s.Key), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}

func redisKey(key string) string {
	return redisPrefix + key
}
