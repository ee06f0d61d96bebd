package repositories

import (
	"context"
	"fmt"

	"haldor/internal/models"

	"gorm.io/gorm"
)

// CartLineRecord is the table row behind GORMCartRepository.
type CartLineRecord struct {
	CartKey   string `gorm:"primaryKey;type:varchar(80)"`
	ProductID string `gorm:"primaryKey;type:varchar(36)"`
	Slug      string
	Name      string
	UnitPrice int64
	Image     string
	Quantity  int
}

func (CartLineRecord) TableName() string { return "cart_lines" }

// GORMCartRepository stores one row per cart line.
type GORMCartRepository struct {
	db *gorm.DB
}

func NewGORMCartRepository(db *gorm.DB) *GORMCartRepository {
	return &GORMCartRepository{db: db}
}

func (r *GORMCartRepository) Load(ctx context.Context, cartKey string) (map[string]models.CartLine, error) {
	var rows []CartLineRecord
	if err := r.db.WithContext(ctx).Where("cart_key = ?", cartKey).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load cart %s: %w", cartKey, err)
	}
	lines := make(map[string]models.CartLine, len(rows))
	for _, row := range rows {
		lines[row.ProductID] = models.CartLine{
			ProductID: row.ProductID,
			Slug:      row.Slug,
			Name:      row.Name,
			UnitPrice: row.UnitPrice,
			Image:     row.Image,
			Quantity:  row.Quantity,
		}
	}
	return lines, nil
}

// Save replaces the stored lines of the cart in one transaction.
func (r *GORMCartRepository) Save(ctx context.Context, cartKey string, lines map[string]models.CartLine) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("cart_key = ?", cartKey).Delete(&CartLineRecord{}).Error; err != nil {
			return fmt.Errorf("failed to reset cart %s: %w", cartKey, err)
		}
		if len(lines) == 0 {
			return nil
		}
		rows := make([]CartLineRecord, 0, len(lines))
		for _, l := range lines {
			rows = append(rows, CartLineRecord{
				CartKey:   cartKey,
				ProductID: l.ProductID,
				Slug:      l.Slug,
				Name:      l.Name,
				UnitPrice: l.UnitPrice,
				Image:     l.Image,
				Quantity:  l.Quantity,
			})
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("failed to save cart %s: %w", cartKey, err)
		}
		return nil
	})
}

func (r *GORMCartRepository) Delete(ctx context.Context, cartKey string) error {
	if err := r.db.WithContext(ctx).Where("cart_key = ?", cartKey).Delete(&CartLineRecord{}).Error; err != nil {
		return fmt.Errorf("failed to delete cart %s: %w", cartKey, err)
	}
	return nil
}
