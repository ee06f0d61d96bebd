package repositories

import (
	"context"
	"sync"

	"haldor/internal/models"
)

// MockCartRepository keeps carts in process memory.
type MockCartRepository struct {
	carts map[string]map[string]models.CartLine
	mu    sync.RWMutex
}

func NewMockCartRepository() *MockCartRepository {
	return &MockCartRepository{carts: make(map[string]map[string]models.CartLine)}
}

// Load returns a copy of the stored cart; a missing cart is empty, not an error.
func (r *MockCartRepository) Load(_ context.Context, cartKey string) (map[string]models.CartLine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return copyLines(r.carts[cartKey]), nil
}

func (r *MockCartRepository) Save(_ context.Context, cartKey string, lines map[string]models.CartLine) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(lines) == 0 {
		delete(r.carts, cartKey)
		return nil
	}
	r.carts[cartKey] = copyLines(lines)
	return nil
}

func (r *MockCartRepository) Delete(_ context.Context, cartKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.carts, cartKey)
	return nil
}

func copyLines(src map[string]models.CartLine) map[string]models.CartLine {
	dst := make(map[string]models.CartLine, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
