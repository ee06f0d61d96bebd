package models

// CartLine is a product snapshot taken when it was added to a cart.
// Quantity is always at least 1.
type CartLine struct {
	ProductID string `json:"product_id"`
	Slug      string `json:"slug"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Image     string `json:"image"`
	Quantity  int    `json:"quantity"`
}

// LineTotal is unit price times quantity.
func (l CartLine) LineTotal() int64 {
	return l.UnitPrice * int64(l.Quantity)
}

// Cart is the read view of a cart store entry.
type Cart struct {
	Key      string     `json:"key"`
	Lines    []CartLine `json:"lines"`
	Count    int        `json:"count"`
	Subtotal int64      `json:"subtotal"`
}
