// Package order extracts structured order lines from free-form customer
// speech and keeps line totals consistent under merges and corrections.
package order

// Line is a single POS-style order line. Name is the canonical catalog
// name and uniquely identifies the line within one order.
type Line struct {
	Name       string  `json:"name"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	TotalPrice float64 `json:"total_price"`
}

// NewLine builds a line with the total derived from quantity and unit price.
func NewLine(name string, quantity int, unitPrice float64) Line {
	if quantity < 1 {
		quantity = 1
	}
	return Line{
		Name:       name,
		Quantity:   quantity,
		UnitPrice:  unitPrice,
		TotalPrice: float64(quantity) * unitPrice,
	}
}

// SetQuantity replaces the quantity and recomputes the total.
func (l *Line) SetQuantity(quantity int) {
	if quantity < 1 {
		quantity = 1
	}
	l.Quantity = quantity
	l.TotalPrice = float64(l.Quantity) * l.UnitPrice
}

// AddQuantity increments the quantity and recomputes the total.
func (l *Line) AddQuantity(quantity int) {
	l.SetQuantity(l.Quantity + quantity)
}
