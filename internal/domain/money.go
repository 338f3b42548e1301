package domain

import "math"

// Storage bounds. Amounts are NUMERIC(12,2) columns and quantities INTEGER.
const (
	// AmountLimit is the exclusive upper bound of any stored amount.
	AmountLimit = 1e10
	MaxQuantity = math.MaxInt32
)

// RoundCents rounds a currency amount to two decimal places, half away
// from zero.
func RoundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// withinCent reports whether two amounts agree to the cent.
func withinCent(a, b float64) bool {
	return math.Abs(a-b) <= 0.01+1e-9
}
