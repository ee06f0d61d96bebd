package repositories

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProcessedStore remembers keys that have been handled once. MarkProcessed
// returns first=true only for the call that recorded the key. Release forgets
// a key so a failed attempt can be retried.
type ProcessedStore interface {
	MarkProcessed(ctx context.Context, key string) (first bool, err error)
	IsProcessed(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// MockProcessedStore is an in-memory ProcessedStore. It does not survive restarts.
type MockProcessedStore struct {
	keys map[string]time.Time
	mu   sync.Mutex
}

func NewMockProcessedStore() *MockProcessedStore {
	return &MockProcessedStore{keys: make(map[string]time.Time)}
}

func (s *MockProcessedStore) MarkProcessed(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.keys[key]; ok {
		return false, nil
	}
	s.keys[key] = time.Now()
	return true, nil
}

func (s *MockProcessedStore) IsProcessed(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.keys[key]
	return ok, nil
}

func (s *MockProcessedStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, key)
	return nil
}

// ProcessedKey is the table row behind GORMProcessedStore.
type ProcessedKey struct {
	Key       string `gorm:"primaryKey;column:processed_key;type:varchar(120)"`
	CreatedAt time.Time
}

// GORMProcessedStore relies on the primary key to let exactly one insert win.
type GORMProcessedStore struct {
	db *gorm.DB
}

func NewGORMProcessedStore(db *gorm.DB) *GORMProcessedStore {
	return &GORMProcessedStore{db: db}
}

func (s *GORMProcessedStore) MarkProcessed(ctx context.Context, key string) (bool, error) {
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&ProcessedKey{Key: key})
	if res.Error != nil {
		return false, fmt.Errorf("failed to mark %s processed: %w", key, res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *GORMProcessedStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	var row ProcessedKey
	err := s.db.WithContext(ctx).Take(&row, "processed_key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up %s: %w", key, err)
	}
	return true, nil
}

func (s *GORMProcessedStore) Release(ctx context.Context, key string) error {
	if err := s.db.WithContext(ctx).Delete(&ProcessedKey{}, "processed_key = ?", key).Error; err != nil {
		return fmt.Errorf("failed to release %s: %w", key, err)
	}
	return nil
}

// RedisProcessedStore uses SETNX so concurrent replicas agree on the winner.
type RedisProcessedStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisProcessedStore creates a Redis-backed store. A zero ttl keeps keys forever.
func NewRedisProcessedStore(client *redis.Client, ttl time.Duration) *RedisProcessedStore {
	return &RedisProcessedStore{client: client, ttl: ttl}
}

func (s *RedisProcessedStore) MarkProcessed(ctx context.Context, key string) (bool, error) {
	ok, err := s.client.SetNX(ctx, processedRedisKey(key), time.Now().Unix(), s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx %s failed: %w", key, err)
	}
	return ok, nil
}

func (s *RedisProcessedStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, processedRedisKey(key)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists %s failed: %w", key, err)
	}
	return n == 1, nil
}

func (s *RedisProcessedStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, processedRedisKey(key)).Err(); err != nil {
		return fmt.Errorf("redis del %s failed: %w", key, err)
	}
	return nil
}

func processedRedisKey(key string) string {
	return fmt.Sprintf("haldor:processed:%s", key)
}
