package database

import (
	"context"
	"fmt"

	"haldor/internal/models"
	"haldor/internal/repositories"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

var seedCategories = []models.Category{
	{ID: "cat-ropa", Name: "Ropa", Slug: "ropa"},
	{ID: "cat-accesorios", Name: "Accesorios", Slug: "accesorios"},
	{ID: "cat-hogar", Name: "Hogar", Slug: "hogar"},
}

var seedProducts = []models.Product{
	{ID: "p1", Slug: "hoodie-runico", Name: "Hoodie Rúnico", Price: 29990, CategoryID: "cat-ropa", Stock: 25, Rating: 4.7, Featured: true,
		Tags: []string{"invierno", "runas"}, Description: "Hoodie grueso con motivo rúnico bordado.",
		LongDescription: "Tejido pesado, interior suave. Silueta regular unisex.", Material: "Algodón/Poliéster", Color: "Negro carbón", Origin: "Importado"},
	{ID: "p2", Slug: "polera-longship", Name: "Polera Longship", Price: 14990, CategoryID: "cat-ropa", Stock: 40, Rating: 4.5, Featured: true,
		Tags: []string{"verano", "barco"}, Description: "Polera longship con estampado de alta calidad."},
	{ID: "p3", Slug: "gorra-valknut", Name: "Gorra Valknut", Price: 9990, CategoryID: "cat-accesorios", Stock: 59, Rating: 4.4, Featured: true,
		Tags: []string{"valknut"}},
	{ID: "p4", Slug: "anillo-odin", Name: "Anillo de Odín", Price: 19990, CategoryID: "cat-accesorios", Stock: 15, Rating: 4.8, Featured: true,
		Tags: []string{"acero", "odin"}, Description: "Anillo de acero con grabado de Odín."},
	{ID: "p5", Slug: "cinturon-vikingo", Name: "Cinturón Vikingo", Price: 17990, CategoryID: "cat-accesorios", Stock: 20, Rating: 4.3,
		Tags: []string{"cuero"}},
	{ID: "p6", Slug: "mochila-vikinga", Name: "Mochila Vikinga", Price: 24990, CategoryID: "cat-accesorios", Stock: 12, Rating: 4.6, Featured: true,
		Tags: []string{"viaje"}},
	{ID: "p7", Slug: "mapa-midgard", Name: "Mapa de Midgard", Price: 12990, CategoryID: "cat-hogar", Stock: 30, Rating: 4.2, Featured: true,
		Tags: []string{"decoracion", "mapa"}},
	{ID: "p8", Slug: "bolsa-vikinga", Name: "Bolsa Vikinga", Price: 8990, CategoryID: "cat-accesorios", Stock: 45, Rating: 4.1,
		Tags: []string{"cuero", "viaje"}},
}

// SeedCatalog loads the demo catalog when no product exists yet.
func SeedCatalog(ctx context.Context, categories repositories.CategoryRepository, products repositories.ProductRepository, currency string) error {
	existing, err := products.GetAll(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	for i := range seedCategories {
		c := seedCategories[i]
		if err := categories.Create(ctx, &c); err != nil {
			return fmt.Errorf("failed to seed category %s: %w", c.Name, err)
		}
	}
	for i := range seedProducts {
		p := seedProducts[i]
		p.Currency = currency
		if err := products.Create(ctx, &p); err != nil {
			return fmt.Errorf("failed to seed product %s: %w", p.Slug, err)
		}
		log.Debug().Str("product_id", p.ID).Str("slug", p.Slug).Msg("seeded product")
	}
	log.Info().Int("products", len(seedProducts)).Msg("catalog seeded")
	return nil
}

// SeedLocations loads a small region > province > commune tree when empty.
func SeedLocations(db *gorm.DB) error {
	var n int64
	if err := db.Model(&models.Region{}).Count(&n).Error; err != nil {
		return fmt.Errorf("failed to count regions: %w", err)
	}
	if n > 0 {
		return nil
	}

	regions := []models.Region{
		{ID: 5, Name: "Valparaíso"},
		{ID: 13, Name: "Metropolitana de Santiago"},
		{ID: 8, Name: "Biobío"},
	}
	provinces := []models.Province{
		{ID: 51, RegionID: 5, Name: "Valparaíso"},
		{ID: 131, RegionID: 13, Name: "Santiago"},
		{ID: 81, RegionID: 8, Name: "Concepción"},
	}
	communes := []models.Commune{
		{ID: 5101, ProvinceID: 51, Name: "Valparaíso"},
		{ID: 5109, ProvinceID: 51, Name: "Viña del Mar"},
		{ID: 13101, ProvinceID: 131, Name: "Santiago"},
		{ID: 13114, ProvinceID: 131, Name: "Las Condes"},
		{ID: 13123, ProvinceID: 131, Name: "Providencia"},
		{ID: 8101, ProvinceID: 81, Name: "Concepción"},
		{ID: 8110, ProvinceID: 81, Name: "Talcahuano"},
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&regions).Error; err != nil {
			return fmt.Errorf("failed to seed regions: %w", err)
		}
		if err := tx.Create(&provinces).Error; err != nil {
			return fmt.Errorf("failed to seed provinces: %w", err)
		}
		if err := tx.Create(&communes).Error; err != nil {
			return fmt.Errorf("failed to seed communes: %w", err)
		}
		return nil
	})
}
