package domain

import (
	"fmt"
	"math"

	apperrors "github.com/Sivaraj16/medicals/pkg/errors"
)

// DiscountMode selects how a discount amount is interpreted.
type DiscountMode string

const (
	DiscountPercentage DiscountMode = "percentage"
	DiscountFixed      DiscountMode = "fixed"
)

// ComputeDiscount turns an operator-entered amount into the discount stored
// on a medicine. Results are rounded to whole currency units and never
// exceed the price.
//
// A percentage of exactly 100 is accepted, while a fixed amount equal to the
// price is rejected.
func ComputeDiscount(price float64, mode DiscountMode, amount float64) (float64, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, apperrors.InvalidInput("discount amount must be a finite number")
	}

	var discount float64
	switch mode {
	case DiscountPercentage:
		if amount < 0 || amount > 100 {
			return 0, apperrors.InvalidInput("percentage discount must be between 0 and 100")
		}
		discount = math.Round(price * amount / 100)
	case DiscountFixed:
		if amount < 0 {
			return 0, apperrors.InvalidInput("fixed discount must not be negative")
		}
		if amount >= price {
			return 0, apperrors.InvalidInput(fmt.Sprintf("fixed discount must be less than the price %.2f", price))
		}
		discount = math.Round(amount)
	default:
		return 0, apperrors.InvalidInput(fmt.Sprintf("unknown discount mode %q", mode))
	}

	return math.Min(discount, price), nil
}
