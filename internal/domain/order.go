package domain

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/Sivaraj16/medicals/pkg/errors"
)

// Defaults applied when the till leaves the customer blank.
const (
	DefaultCustomerName  = "Walk-in Customer"
	DefaultCustomerPhone = "N/A"
)

// Customer identifies who an order was rung up for.
type Customer struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// WithDefaults fills blank fields with the walk-in defaults.
func (c Customer) WithDefaults() Customer {
	if strings.TrimSpace(c.Name) == "" {
		c.Name = DefaultCustomerName
	}
	if strings.TrimSpace(c.Phone) == "" {
		c.Phone = DefaultCustomerPhone
	}
	return c
}

// OrderItem is a line of a placed order, captured by value at sale time.
type OrderItem struct {
	MedicineID string  `json:"medicineId"`
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
	Quantity   int     `json:"quantity"`
	Total      float64 `json:"total"`
}

// Order is an append-only sale record.
type Order struct {
	ID       string      `json:"id"`
	Customer Customer    `json:"customer"`
	Items    []OrderItem `json:"items"`
	Subtotal float64     `json:"subtotal"`
	Tax      float64     `json:"tax"`
	Total    float64     `json:"total"`
	Date     time.Time   `json:"date"`
}

// LineTotals fills in each item's total and returns the order subtotal.
func LineTotals(items []OrderItem) float64 {
	var subtotal float64
	for i := range items {
		items[i].Total = RoundCents(items[i].Price * float64(items[i].Quantity))
		subtotal += items[i].Total
	}
	return RoundCents(subtotal)
}

// NewOrder builds an order from its lines. Line totals, subtotal and total
// are always derived here so that the stored invariants hold exactly; tax is
// the already-computed tax amount.
func NewOrder(id string, customer Customer, items []OrderItem, tax float64, date time.Time) (*Order, error) {
	if len(items) == 0 {
		return nil, apperrors.InvalidInput("order must contain at least one item")
	}
	for _, it := range items {
		if it.MedicineID == "" {
			return nil, apperrors.InvalidInput("every item needs a medicine id")
		}
		if it.Quantity < 1 {
			return nil, apperrors.InvalidInput(fmt.Sprintf("quantity for %s must be at least 1", it.MedicineID))
		}
		if it.Price < 0 {
			return nil, apperrors.InvalidInput(fmt.Sprintf("price for %s must not be negative", it.MedicineID))
		}
	}
	if tax < 0 {
		return nil, apperrors.InvalidInput("tax must not be negative")
	}

	lines := make([]OrderItem, len(items))
	copy(lines, items)
	subtotal := LineTotals(lines)
	tax = RoundCents(tax)

	order := &Order{
		ID:       id,
		Customer: customer.WithDefaults(),
		Items:    lines,
		Subtotal: subtotal,
		Tax:      tax,
		Total:    RoundCents(subtotal + tax),
		Date:     date.UTC(),
	}
	if err := order.checkBounds(); err != nil {
		return nil, err
	}
	return order, nil
}

// CheckClaimed compares amounts sent by the client with the computed ones.
// Nil claims are not checked.
func (o *Order) CheckClaimed(subtotal, tax, total *float64) error {
	check := func(field string, claimed *float64, actual float64) error {
		if claimed != nil && !withinCent(*claimed, actual) {
			return apperrors.InvalidInput(fmt.Sprintf("%s %.2f does not match computed %.2f", field, *claimed, actual))
		}
		return nil
	}
	if err := check("subtotal", subtotal, o.Subtotal); err != nil {
		return err
	}
	if err := check("tax", tax, o.Tax); err != nil {
		return err
	}
	return check("total", total, o.Total)
}

// checkBounds rejects orders whose amounts or per-medicine quantities
// cannot be stored.
func (o *Order) checkBounds() error {
	ids, qty := o.Quantities()
	for _, id := range ids {
		if qty[id] > MaxQuantity {
			return apperrors.InvalidInput(fmt.Sprintf("total quantity for %s exceeds %d", id, MaxQuantity))
		}
	}
	for _, it := range o.Items {
		if it.Total >= AmountLimit {
			return apperrors.InvalidInput(fmt.Sprintf("line total for %s is too large", it.MedicineID))
		}
	}
	if o.Subtotal >= AmountLimit || o.Tax >= AmountLimit || o.Total >= AmountLimit {
		return apperrors.InvalidInput("order total is too large")
	}
	return nil
}

// Quantities sums the purchased quantity per medicine, preserving first
// appearance order.
func (o *Order) Quantities() ([]string, map[string]int) {
	ids := make([]string, 0, len(o.Items))
	qty := make(map[string]int, len(o.Items))
	for _, it := range o.Items {
		if _, ok := qty[it.MedicineID]; !ok {
			ids = append(ids, it.MedicineID)
		}
		qty[it.MedicineID] += it.Quantity
	}
	return ids, qty
}

// IsRefunded is the dashboard's refund proxy. There is no refund flow, so
// an order counts as refunded when its total is not positive.
func (o *Order) IsRefunded() bool {
	return o.Total <= 0
}

// OrderFilter narrows the order history. Zero values mean no filter. From
// and To are inclusive DateLayout dates.
type OrderFilter struct {
	Query string
	From  string
	To    string
}

// StockChange is the stock level of a medicine after a checkout decrement.
type StockChange struct {
	MedicineID string
	Name       string
	Sold       int
	Remaining  int
}

// CheckoutResult reports what a committed checkout did to stock.
type CheckoutResult struct {
	Changes []StockChange
	// Skipped lists medicine ids that were not in the catalog.
	Skipped []string
}

// Depleted returns the changes that took a medicine to zero units.
func (r *CheckoutResult) Depleted() []StockChange {
	var out []StockChange
	for _, c := range r.Changes {
		if c.Remaining == 0 {
			out = append(out, c)
		}
	}
	return out
}
