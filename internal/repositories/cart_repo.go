package repositories

import (
	"context"

	"haldor/internal/models"
)

// CartRepository persists carts. A cart is the full set of its lines keyed by
// product ID; Save replaces whatever was stored under the key.
type CartRepository interface {
	Load(ctx context.Context, cartKey string) (map[string]models.CartLine, error)
	Save(ctx context.Context, cartKey string, lines map[string]models.CartLine) error
	Delete(ctx context.Context, cartKey string) error
}
