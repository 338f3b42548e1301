package domain

import (
	"slices"
	"time"
)

// CartLine is one medicine in a cart. Price is the unit list price captured
// when the line was first added.
type CartLine struct {
	MedicineID string  `json:"medicineId"`
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
	Quantity   int     `json:"quantity"`
	Total      float64 `json:"total"`
}

// Cart accumulates lines for one checkout session. Lines keep the order in
// which they were first added.
type Cart struct {
	ID         string     `json:"id"`
	Customer   Customer   `json:"customer"`
	TaxPercent float64    `json:"taxPercent"`
	Lines      []CartLine `json:"lines"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

func (c *Cart) index(medicineID string) int {
	return slices.IndexFunc(c.Lines, func(l CartLine) bool { return l.MedicineID == medicineID })
}

// AddItem puts one unit of m in the cart. Stock on hand is not checked here;
// checkout enforces it.
func (c *Cart) AddItem(m Medicine) {
	if i := c.index(m.ID); i >= 0 {
		line := &c.Lines[i]
		line.Quantity++
		line.Total = RoundCents(float64(line.Quantity) * line.Price)
		return
	}
	c.Lines = append(c.Lines, CartLine{
		MedicineID: m.ID,
		Name:       m.Name,
		Price:      m.Price,
		Quantity:   1,
		Total:      RoundCents(m.Price),
	})
}

// UpdateQuantity sets the quantity of an existing line. A quantity below 1
// leaves the line untouched; removal is explicit. It returns false when the
// medicine is not in the cart.
func (c *Cart) UpdateQuantity(medicineID string, qty int) bool {
	i := c.index(medicineID)
	if i < 0 {
		return false
	}
	if qty < 1 {
		return true
	}
	line := &c.Lines[i]
	line.Quantity = qty
	line.Total = RoundCents(float64(qty) * line.Price)
	return true
}

// Remove deletes a line and reports whether it was present.
func (c *Cart) Remove(medicineID string) bool {
	i := c.index(medicineID)
	if i < 0 {
		return false
	}
	c.Lines = slices.Delete(c.Lines, i, i+1)
	return true
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// Subtotal is the sum of line totals.
func (c *Cart) Subtotal() float64 {
	var sum float64
	for _, l := range c.Lines {
		sum += l.Total
	}
	return RoundCents(sum)
}

// Tax is the subtotal times taxPercent/100.
func (c *Cart) Tax(taxPercent float64) float64 {
	return TaxFor(c.Subtotal(), taxPercent)
}

// Total is the subtotal plus tax.
func (c *Cart) Total(taxPercent float64) float64 {
	return RoundCents(c.Subtotal() + c.Tax(taxPercent))
}

// OrderItems converts the cart lines into order line items.
func (c *Cart) OrderItems() []OrderItem {
	items := make([]OrderItem, 0, len(c.Lines))
	for _, l := range c.Lines {
		items = append(items, OrderItem{
			MedicineID: l.MedicineID,
			Name:       l.Name,
			Price:      l.Price,
			Quantity:   l.Quantity,
			Total:      l.Total,
		})
	}
	return items
}

// TaxFor computes tax on a subtotal.
func TaxFor(subtotal, taxPercent float64) float64 {
	return RoundCents(subtotal * taxPercent / 100)
}
