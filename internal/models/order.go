package models

import "time"

const (
	OrderStatusPaid = "paid"

	PaymentMethodCard = "card"
)

// Customer is the buyer and shipping data captured at checkout.
type Customer struct {
	Name      string `json:"name" validate:"required,min=2,max=120"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone,omitempty" validate:"omitempty,max=30"`
	Address   string `json:"address,omitempty" validate:"omitempty,max=255"`
	City      string `json:"city,omitempty" validate:"omitempty,max=100"`
	Region    string `json:"region,omitempty" validate:"omitempty,max=100"`
	Zip       string `json:"zip,omitempty" validate:"omitempty,max=20"`
	Reference string `json:"reference,omitempty" validate:"omitempty,max=255"`
}

// PaymentInfo records how a paid order was settled.
type PaymentInfo struct {
	TransactionID string `json:"transaction_id" gorm:"index;type:varchar(64)"`
	Method        string `json:"method"`
	Last4         string `json:"last4,omitempty"`
}

// Order is an immutable record of a paid checkout. Declined or failed
// payments never produce one.
type Order struct {
	ID        string      `json:"id" gorm:"primaryKey;type:varchar(40)"`
	OwnerKey  string      `json:"-" gorm:"index;type:varchar(80)"`
	CreatedAt time.Time   `json:"created_at"`
	Currency  string      `json:"currency" gorm:"type:varchar(3)"`
	Items     []CartLine  `json:"items" gorm:"serializer:json"`
	Subtotal  int64       `json:"subtotal"`
	Shipping  int64       `json:"shipping"`
	Total     int64       `json:"total"`
	Customer  Customer    `json:"customer" gorm:"embedded;embeddedPrefix:customer_"`
	Payment   PaymentInfo `json:"payment" gorm:"embedded;embeddedPrefix:payment_"`
	Status    string      `json:"status" gorm:"type:varchar(20)"`
}
