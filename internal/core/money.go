package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxAmount is the largest amount accepted for a single expense.
var MaxAmount = decimal.RequireFromString("999999999.99")

// RoundMoney rounds to 2 decimal places, half away from zero. For the
// positive amounts the application stores this is round half up.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// ParseAmount parses user input such as "12.50" or "12,50". Only the
// first comma is treated as a decimal separator.
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}
	s = strings.Replace(s, ",", ".", 1)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", raw, err)
	}
	return d, nil
}

// ValidateAmount checks the (0, MaxAmount] range.
func ValidateAmount(d decimal.Decimal) error {
	if !d.IsPositive() {
		return Validation("validate amount", "El monto debe ser mayor a 0")
	}
	if d.GreaterThan(MaxAmount) {
		return Validation("validate amount", "El monto es demasiado grande")
	}
	return nil
}

// ConvertAmount applies rate to amount and rounds the result to money precision.
func ConvertAmount(amount, rate decimal.Decimal) decimal.Decimal {
	return RoundMoney(amount.Mul(rate))
}
