package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"haldor/internal/models"

	"github.com/redis/go-redis/v9"
)

// RedisCartRepository stores each cart as one JSON document.
type RedisCartRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCartRepository creates a Redis-backed cart store. A zero ttl keeps
// carts until they are cleared.
func NewRedisCartRepository(client *redis.Client, ttl time.Duration) *RedisCartRepository {
	return &RedisCartRepository{client: client, ttl: ttl}
}

func (r *RedisCartRepository) Load(ctx context.Context, cartKey string) (map[string]models.CartLine, error) {
	data, err := r.client.Get(ctx, cartRedisKey(cartKey)).Bytes()
	if errors.Is(err, redis.Nil) {
		return map[string]models.CartLine{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get cart failed: %w", err)
	}

	lines := map[string]models.CartLine{}
	if err := json.Unmarshal(data, &lines); err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	return lines, nil
}

func (r *RedisCartRepository) Save(ctx context.Context, cartKey string, lines map[string]models.CartLine) error {
	if len(lines) == 0 {
		return r.Delete(ctx, cartKey)
	}
	data, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}
	if err := r.client.Set(ctx, cartRedisKey(cartKey), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set cart failed: %w", err)
	}
	return nil
}

func (r *RedisCartRepository) Delete(ctx context.Context, cartKey string) error {
	if err := r.client.Del(ctx, cartRedisKey(cartKey)).Err(); err != nil {
		return fmt.Errorf("redis delete cart failed: %w", err)
	}
	return nil
}

func cartRedisKey(cartKey string) string {
	return fmt.Sprintf("haldor:cart:%s", cartKey)
}
