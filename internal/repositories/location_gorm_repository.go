package repositories

import (
	"context"
	"errors"
	"fmt"

	"haldor/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMLocationRepository is a GORM implementation of LocationRepository.
type GORMLocationRepository struct {
	db *gorm.DB
}

func NewGORMLocationRepository(db *gorm.DB) *GORMLocationRepository {
	return &GORMLocationRepository{db: db}
}

func (r *GORMLocationRepository) Regions(ctx context.Context) ([]models.Region, error) {
	var regions []models.Region
	if err := r.db.WithContext(ctx).Order("id").Find(&regions).Error; err != nil {
		return nil, fmt.Errorf("failed to list regions: %w", err)
	}
	return regions, nil
}

func (r *GORMLocationRepository) Provinces(ctx context.Context, regionID uint) ([]models.Province, error) {
	var provinces []models.Province
	if err := r.db.WithContext(ctx).Where("region_id = ?", regionID).Order("name").Find(&provinces).Error; err != nil {
		return nil, fmt.Errorf("failed to list provinces of region %d: %w", regionID, err)
	}
	return provinces, nil
}

func (r *GORMLocationRepository) Communes(ctx context.Context, provinceID uint) ([]models.Commune, error) {
	var communes []models.Commune
	if err := r.db.WithContext(ctx).Where("province_id = ?", provinceID).Order("name").Find(&communes).Error; err != nil {
		return nil, fmt.Errorf("failed to list communes of province %d: %w", provinceID, err)
	}
	return communes, nil
}

func (r *GORMLocationRepository) GetCommune(ctx context.Context, id uint) (*models.Commune, error) {
	var c models.Commune
	if err := takeByID(ctx, r.db, &c, id, "commune"); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *GORMLocationRepository) GetProvince(ctx context.Context, id uint) (*models.Province, error) {
	var p models.Province
	if err := takeByID(ctx, r.db, &p, id, "province"); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *GORMLocationRepository) GetRegion(ctx context.Context, id uint) (*models.Region, error) {
	var reg models.Region
	if err := takeByID(ctx, r.db, &reg, id, "region"); err != nil {
		return nil, err
	}
	return &reg, nil
}

func takeByID(ctx context.Context, db *gorm.DB, dest interface{}, id uint, kind string) error {
	if err := db.WithContext(ctx).Take(dest, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%s %d: %w", kind, id, ErrNotFound)
		}
		return fmt.Errorf("failed to get %s %d: %w", kind, id, err)
	}
	return nil
}

// GORMAddressRepository is a GORM implementation of AddressRepository.
type GORMAddressRepository struct {
	db *gorm.DB
}

func NewGORMAddressRepository(db *gorm.DB) *GORMAddressRepository {
	return &GORMAddressRepository{db: db}
}

func (r *GORMAddressRepository) ListByUser(ctx context.Context, userID string) ([]models.Address, error) {
	var addresses []models.Address
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at").Find(&addresses).Error; err != nil {
		return nil, fmt.Errorf("failed to list addresses: %w", err)
	}
	return addresses, nil
}

func (r *GORMAddressRepository) GetByID(ctx context.Context, id string) (*models.Address, error) {
	var a models.Address
	if err := r.db.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("address %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get address %s: %w", id, err)
	}
	return &a, nil
}

func (r *GORMAddressRepository) Create(ctx context.Context, address *models.Address) error {
	if address.ID == "" {
		address.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(address).Error; err != nil {
		return fmt.Errorf("failed to create address: %w", err)
	}
	return nil
}

func (r *GORMAddressRepository) Update(ctx context.Context, address *models.Address) error {
	res := r.db.WithContext(ctx).Model(&models.Address{}).Where("id = ?", address.ID).
		Select("label", "street", "commune_id", "reference").Updates(address)
	if res.Error != nil {
		return fmt.Errorf("failed to update address: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("address %s: %w", address.ID, ErrNotFound)
	}
	return nil
}

func (r *GORMAddressRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.Address{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete address: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("address %s: %w", id, ErrNotFound)
	}
	return nil
}
