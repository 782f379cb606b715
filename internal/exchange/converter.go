package exchange

import (
	"context"

	"github.com/shopspring/decimal"

	"smartexpense/internal/core"
)

// Conversion is an amount expressed in the base currency together with the
// rate used to get there.
type Conversion struct {
	AmountInBase     decimal.Decimal `json:"amount_in_base"`
	ExchangeRateUsed decimal.Decimal `json:"exchange_rate_used"`
	Source           Source          `json:"source"`
}

// Converter turns amounts into base currency amounts using a RateResolver.
type Converter struct {
	resolver RateResolver
}

func NewConverter(resolver RateResolver) *Converter {
	return &Converter{resolver: resolver}
}

// Convert returns amount * rate(from -> to) rounded to 2 decimal places.
func (c *Converter) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (Conversion, error) {
	if amount.IsNegative() {
		return Conversion{}, core.Validation("convert amount", "El monto no puede ser negativo")
	}
	rate := c.resolver.Resolve(ctx, from, to)
	return Conversion{
		AmountInBase:     core.ConvertAmount(amount, rate.Value),
		ExchangeRateUsed: rate.Value,
		Source:           rate.Source,
	}, nil
}
