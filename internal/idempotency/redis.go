package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisKeyPrefix namespaces idempotency records in a shared Redis.
const redisKeyPrefix = "idem:"

// RedisRepository stores records in Redis with a TTL, so expiry needs no
// cleanup job and retries are recognized across API instances.
type RedisRepository struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisRepository creates a Redis-backed repository. A non-positive ttl
// uses DefaultExpiry.
func NewRedisRepository(client redis.UniversalClient, ttl time.Duration) *RedisRepository {
	if ttl <= 0 {
		ttl = DefaultExpiry
	}
	return &RedisRepository{client: client, ttl: ttl}
}

// Get implements Repository.
func (r *RedisRepository) Get(ctx context.Context, key string) (*Record, error) {
	data, err := r.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get idempotency key: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode idempotency record: %w", err)
	}
	return &rec, nil
}

// Store implements Repository using SET NX so concurrent writers cannot
// overwrite each other.
func (r *RedisRepository) Store(ctx context.Context, record *Record) error {
	cp := *record
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("failed to encode idempotency record: %w", err)
	}

	ok, err := r.client.SetNX(ctx, redisKeyPrefix+cp.Key, data, r.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to store idempotency key: %w", err)
	}
	if !ok {
		return ErrKeyExists
	}
	return nil
}
