package domain

import (
	"time"
)

// DateLayout is the calendar date format used for expiry dates. Dates in
// this layout sort lexicographically in date order.
const DateLayout = "2006-01-02"

// Medicine is a stocked catalog item.
type Medicine struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Price      float64   `json:"price"`
	Quantity   int       `json:"quantity"`
	Discount   float64   `json:"discount"`
	ExpireDate string    `json:"expireDate"`
	BatchID    string    `json:"batchId,omitempty"`
	Supplier   string    `json:"supplier,omitempty"`
	ImageURL   string    `json:"imageUrl,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// DiscountedPrice is the shelf price after the standing discount.
func (m *Medicine) DiscountedPrice() float64 {
	return RoundCents(m.Price - m.Discount)
}

// IsExpired reports whether the expiry date is strictly before today.
func (m *Medicine) IsExpired(today string) bool {
	return m.ExpireDate < today
}

// ExpiresWithin reports whether the medicine is not yet expired but will
// expire within days of today, inclusive.
func (m *Medicine) ExpiresWithin(today string, days int) bool {
	limit := AddDays(today, days)
	return m.ExpireDate >= today && m.ExpireDate <= limit
}

// InStock reports whether at least one unit is on hand.
func (m *Medicine) InStock() bool {
	return m.Quantity > 0
}

// MedicineUpdate is a partial update of stock and discount. At least one
// field must be set.
type MedicineUpdate struct {
	Quantity *int
	Discount *float64
}

// Today returns the current UTC date in DateLayout.
func Today() string {
	return time.Now().UTC().Format(DateLayout)
}

// AddDays shifts a DateLayout date by n days. An unparseable date is
// returned unchanged.
func AddDays(date string, n int) string {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return date
	}
	return t.AddDate(0, 0, n).Format(DateLayout)
}

// ValidDate reports whether s is a real calendar date in DateLayout.
func ValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}
