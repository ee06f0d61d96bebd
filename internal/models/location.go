package models

import "time"

type Region struct {
	ID   uint   `json:"id" gorm:"primaryKey"`
	Name string `json:"name" gorm:"type:varchar(100)"`
}

type Province struct {
	ID       uint   `json:"id" gorm:"primaryKey"`
	RegionID uint   `json:"region_id" gorm:"index"`
	Name     string `json:"name" gorm:"type:varchar(100)"`
}

type Commune struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	ProvinceID uint   `json:"province_id" gorm:"index"`
	Name       string `json:"name" gorm:"type:varchar(100)"`
}

// Address is a saved shipping address of a user.
type Address struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID    string    `json:"-" gorm:"index;type:varchar(36)"`
	Label     string    `json:"label" gorm:"type:varchar(60)" validate:"omitempty,max=60"`
	Street    string    `json:"street" gorm:"type:varchar(255)" validate:"required,min=3,max=255"`
	CommuneID uint      `json:"commune_id" validate:"required"`
	Reference string    `json:"reference" gorm:"type:varchar(255)" validate:"omitempty,max=255"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ResolvedAddress is an address flattened to the plain strings stored on an order.
type ResolvedAddress struct {
	Address   string `json:"address"`
	City      string `json:"city"`
	Region    string `json:"region"`
	Reference string `json:"reference"`
}
