package repositories

import (
	"context"

	"haldor/internal/models"
)

// LocationRepository reads the region > province > commune hierarchy.
type LocationRepository interface {
	Regions(ctx context.Context) ([]models.Region, error)
	Provinces(ctx context.Context, regionID uint) ([]models.Province, error)
	Communes(ctx context.Context, provinceID uint) ([]models.Commune, error)
	GetCommune(ctx context.Context, id uint) (*models.Commune, error)
	GetProvince(ctx context.Context, id uint) (*models.Province, error)
	GetRegion(ctx context.Context, id uint) (*models.Region, error)
}

// AddressRepository defines the interface for saved address data access.
type AddressRepository interface {
	ListByUser(ctx context.Context, userID string) ([]models.Address, error)
	GetByID(ctx context.Context, id string) (*models.Address, error)
	Create(ctx context.Context, address *models.Address) error
	Update(ctx context.Context, address *models.Address) error
	Delete(ctx context.Context, id string) error
}
