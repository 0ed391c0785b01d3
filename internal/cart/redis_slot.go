package cart

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSlot stores a session's cart snapshot under cart:<session>.
// Every save refreshes the TTL so active carts do not expire.
type RedisSlot struct {
	client  redis.Cmdable
	key     string
	baseTTL time.Duration
}

func NewRedisSlot(client redis.Cmdable, sessionID string, baseTTL time.Duration) *RedisSlot {
	return &RedisSlot{
		client:  client,
		key:     slotKey(sessionID),
		baseTTL: baseTTL,
	}
}

func (r *RedisSlot) Load(ctx context.Context) ([]byte, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSlotEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	return data, nil
}

func (r *RedisSlot) Save(ctx context.Context, data []byte) error {
	var ttl time.Duration
	if r.baseTTL > 0 {
		jitter := time.Duration(rand.Intn(5)) * time.Minute
		ttl = r.baseTTL + jitter
	}
	if err := r.client.Set(ctx, r.key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisSlot) Key() string {
	return r.key
}

func slotKey(sessionID string) string {
	if sessionID == "" {
		return DefaultKey
	}
	return fmt.Sprintf("cart:%s", sessionID)
}
