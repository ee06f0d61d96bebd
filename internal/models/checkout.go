package models

const (
	ShippingStandard = "standard"
	ShippingExpress  = "express"
)

// CheckoutDraft carries an in-progress order from checkout to payment.
// It travels to the client inside a signed token and is never stored.
type CheckoutDraft struct {
	ID       string     `json:"id"`
	CartKey  string     `json:"cart_key"`
	Currency string     `json:"currency"`
	Items    []CartLine `json:"items"`
	Subtotal int64      `json:"subtotal"`
	Shipping int64      `json:"shipping"`
	Amount   int64      `json:"amount"`
	Customer Customer   `json:"customer"`
}

// Quote is the price breakdown of a cart for a shipping method.
type Quote struct {
	ShippingMethod string `json:"shipping_method"`
	Subtotal       int64  `json:"subtotal"`
	Shipping       int64  `json:"shipping"`
	Total          int64  `json:"total"`
	Currency       string `json:"currency"`
}
