package models

import "time"

// Category groups products in the catalog.
type Category struct {
	ID   string `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name string `json:"name" gorm:"type:varchar(100);not null" validate:"required,min=2,max=100"`
	Slug string `json:"slug" gorm:"uniqueIndex;type:varchar(120)" validate:"required,min=2,max=120"`
}

// MaxUnitPrice bounds Product.Price so cart totals stay far from int64 overflow.
const MaxUnitPrice = 1_000_000_000

// Product is the single canonical shape of a catalog entry. Prices are in the
// smallest unit of Currency.
type Product struct {
	ID              string    `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"omitempty,max=36"`
	Slug            string    `json:"slug" gorm:"uniqueIndex;type:varchar(120)" validate:"required,min=2,max=120"`
	Name            string    `json:"name" gorm:"type:varchar(100)" validate:"required,min=3,max=100"`
	Price           int64     `json:"price" validate:"required,gt=0,lte=1000000000"`
	Currency        string    `json:"currency" gorm:"type:varchar(3)" validate:"required,oneof=CLP USD"`
	Image           string    `json:"image" validate:"omitempty,max=500"`
	CategoryID      string    `json:"category_id" gorm:"type:varchar(36);index" validate:"required"`
	Category        Category  `json:"category" gorm:"foreignKey:CategoryID" validate:"-"`
	Stock           int       `json:"stock" validate:"gte=0"`
	Rating          float64   `json:"rating" validate:"gte=0,lte=5"`
	Featured        bool      `json:"featured"`
	Tags            []string  `json:"tags" gorm:"serializer:json"`
	Description     string    `json:"description" validate:"omitempty,max=500"`
	LongDescription string    `json:"long_description,omitempty" validate:"omitempty,max=4000"`
	Material        string    `json:"material,omitempty"`
	Color           string    `json:"color,omitempty"`
	Origin          string    `json:"origin,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ProductQuery filters, sorts and pages a catalog listing.
type ProductQuery struct {
	Search   string
	Category string // category name or slug; empty means all
	MinPrice int64  // 0 means unbounded
	MaxPrice int64  // 0 means unbounded
	Sort     string // relevance, rating, priceAsc, priceDesc, nameAsc
	Page     int
	PageSize int
}

// ProductPage is one page of a catalog listing.
type ProductPage struct {
	Items     []Product `json:"items"`
	Total     int       `json:"total"`
	Page      int       `json:"page"`
	PageCount int       `json:"page_count"`
}
