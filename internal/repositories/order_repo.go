package repositories

import (
	"context"

	"haldor/internal/models"
)

// OrderRepository is the order ledger. Create is an upsert keyed by order ID.
type OrderRepository interface {
	GetAll(ctx context.Context) ([]models.Order, error)
	GetByOwner(ctx context.Context, ownerKey string) ([]models.Order, error)
	GetByID(ctx context.Context, id string) (*models.Order, error)
	GetByTransactionID(ctx context.Context, transactionID string) (*models.Order, error)
	Create(ctx context.Context, order *models.Order) error
	Clear(ctx context.Context) error
}
