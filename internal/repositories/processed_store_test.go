package repositories_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"haldor/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseProcessedStore(t *testing.T, store repositories.ProcessedStore) {
	ctx := context.Background()

	seen, err := store.IsProcessed(ctx, "txn:A")
	require.NoError(t, err)
	assert.False(t, seen)

	first, err := store.MarkProcessed(ctx, "txn:A")
	require.NoError(t, err)
	assert.True(t, first)

	first, err = store.MarkProcessed(ctx, "txn:A")
	require.NoError(t, err)
	assert.False(t, first)

	seen, err = store.IsProcessed(ctx, "txn:A")
	require.NoError(t, err)
	assert.True(t, seen)

	first, err = store.MarkProcessed(ctx, "txn:B")
	require.NoError(t, err)
	assert.True(t, first)

	require.NoError(t, store.Release(ctx, "txn:B"))
	seen, err = store.IsProcessed(ctx, "txn:B")
	require.NoError(t, err)
	assert.False(t, seen)
	first, err = store.MarkProcessed(ctx, "txn:B")
	require.NoError(t, err)
	assert.True(t, first, "a released key can be claimed again")

	require.NoError(t, store.Release(ctx, "never-marked"))
}

func TestMockProcessedStore(t *testing.T) {
	exerciseProcessedStore(t, repositories.NewMockProcessedStore())
}

func TestGORMProcessedStore(t *testing.T) {
	exerciseProcessedStore(t, repositories.NewGORMProcessedStore(newTestDB(t)))
}

func TestGORMProcessedStore_SurvivesNewInstance(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	first, err := repositories.NewGORMProcessedStore(db).MarkProcessed(ctx, "txn:A")
	require.NoError(t, err)
	require.True(t, first)

	// A fresh store over the same database still knows the key.
	first, err = repositories.NewGORMProcessedStore(db).MarkProcessed(ctx, "txn:A")
	require.NoError(t, err)
	assert.False(t, first)
}

func TestRedisProcessedStore(t *testing.T) {
	client, _ := newTestRedis(t)
	exerciseProcessedStore(t, repositories.NewRedisProcessedStore(client, 0))
}

func TestProcessedStore_SingleWinnerUnderConcurrency(t *testing.T) {
	client, _ := newTestRedis(t)
	stores := map[string]repositories.ProcessedStore{
		"memory": repositories.NewMockProcessedStore(),
		"redis":  repositories.NewRedisProcessedStore(client, 0),
	}

	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			var winners int32
			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if first, err := store.MarkProcessed(context.Background(), "txn:race"); err == nil && first {
						atomic.AddInt32(&winners, 1)
					}
				}()
			}
			wg.Wait()
			assert.Equal(t, int32(1), winners)
		})
	}
}
