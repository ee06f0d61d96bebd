package services

import (
	"context"
	"fmt"

	"haldor/internal/models"
	"haldor/internal/repositories"

	"github.com/go-playground/validator/v10"
)

// LocationService serves the region > province > commune hierarchy and the
// saved addresses of each user.
type LocationService struct {
	locations repositories.LocationRepository
	addresses repositories.AddressRepository
	validate  *validator.Validate
}

// NewLocationService creates a new LocationService.
func NewLocationService(locations repositories.LocationRepository, addresses repositories.AddressRepository) *LocationService {
	return &LocationService{
		locations: locations,
		addresses: addresses,
		validate:  validator.New(),
	}
}

func (s *LocationService) Regions(ctx context.Context) ([]models.Region, error) {
	return s.locations.Regions(ctx)
}

func (s *LocationService) Provinces(ctx context.Context, regionID uint) ([]models.Province, error) {
	return s.locations.Provinces(ctx, regionID)
}

func (s *LocationService) Communes(ctx context.Context, provinceID uint) ([]models.Commune, error) {
	return s.locations.Communes(ctx, provinceID)
}

// ListAddresses returns the saved addresses of a user.
func (s *LocationService) ListAddresses(ctx context.Context, userID string) ([]models.Address, error) {
	return s.addresses.ListByUser(ctx, userID)
}

// CreateAddress validates and saves a new address for userID.
func (s *LocationService) CreateAddress(ctx context.Context, userID string, address *models.Address) error {
	if err := s.validate.Struct(address); err != nil {
		return err
	}
	if _, err := s.locations.GetCommune(ctx, address.CommuneID); err != nil {
		return err
	}
	address.ID = ""
	address.UserID = userID
	return s.addresses.Create(ctx, address)
}

// UpdateAddress replaces the editable fields of an address owned by userID.
func (s *LocationService) UpdateAddress(ctx context.Context, userID, id string, address *models.Address) error {
	if err := s.validate.Struct(address); err != nil {
		return err
	}
	current, err := s.owned(ctx, userID, id)
	if err != nil {
		return err
	}
	if _, err := s.locations.GetCommune(ctx, address.CommuneID); err != nil {
		return err
	}
	address.ID = current.ID
	address.UserID = userID
	address.CreatedAt = current.CreatedAt
	return s.addresses.Update(ctx, address)
}

// DeleteAddress removes an address owned by userID.
func (s *LocationService) DeleteAddress(ctx context.Context, userID, id string) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	return s.addresses.Delete(ctx, id)
}

// Resolve flattens a saved address into the plain strings an order stores:
// the street, the commune as city, the region name and the reference.
func (s *LocationService) Resolve(ctx context.Context, userID, id string) (*models.ResolvedAddress, error) {
	address, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	commune, err := s.locations.GetCommune(ctx, address.CommuneID)
	if err != nil {
		return nil, err
	}
	province, err := s.locations.GetProvince(ctx, commune.ProvinceID)
	if err != nil {
		return nil, err
	}
	region, err := s.locations.GetRegion(ctx, province.RegionID)
	if err != nil {
		return nil, err
	}
	return &models.ResolvedAddress{
		Address:   address.Street,
		City:      commune.Name,
		Region:    region.Name,
		Reference: address.Reference,
	}, nil
}

func (s *LocationService) owned(ctx context.Context, userID, id string) (*models.Address, error) {
	if userID == "" {
		return nil, ErrForbidden
	}
	address, err := s.addresses.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if address.UserID != userID {
		return nil, fmt.Errorf("address %s: %w", id, ErrForbidden)
	}
	return address, nil
}
