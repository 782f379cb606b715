// Package exchange resolves currency exchange rates and converts amounts
// between currencies.
//
// Rates are resolved through a fixed ladder: the rate store for today's
// date, then the remote provider (persisting what it returns), then the
// most recent stored rate for the pair, and finally an identity rate of 1.
// Resolution never fails; callers can inspect Rate.Source to learn how the
// value was obtained.
package exchange

import (
	"context"

	"github.com/shopspring/decimal"

	"smartexpense/internal/core"
)

// Source describes where a resolved rate came from.
type Source string

const (
	SourceCache    Source = "cache"
	SourceAPI      Source = "api"
	SourceFallback Source = "fallback"
)

// Rate is the outcome of a resolution.
type Rate struct {
	Value  decimal.Decimal `json:"rate"`
	Source Source          `json:"source"`
	// Identity is true when no rate could be found and 1 was assumed.
	Identity bool `json:"identity,omitempty"`
}

// Quote is a rate as reported by a remote provider.
type Quote struct {
	Base   string
	Target string
	Rate   decimal.Decimal
	// Date is the provider's reference date for the quote.
	Date core.Date
}

// Store persists exchange rates keyed by (base, target, fetched date).
type Store interface {
	// GetRate returns the rate stored for day, with ok=false when absent.
	GetRate(ctx context.Context, base, target string, day core.Date) (rate decimal.Decimal, ok bool, err error)
	// LatestRate returns the most recent stored rate for the pair.
	LatestRate(ctx context.Context, base, target string) (rate decimal.Decimal, ok bool, err error)
	// UpsertRate writes the rate, replacing an existing row for the same key.
	UpsertRate(ctx context.Context, rate core.ExchangeRate) error
	// ListRatePairs returns every pair with at least one stored rate.
	ListRatePairs(ctx context.Context) ([]core.CurrencyPair, error)
}

// Provider fetches the latest rate for a pair from a remote service.
type Provider interface {
	Latest(ctx context.Context, base, target string) (Quote, error)
}

// RateResolver is satisfied by *Resolver. Consumers depend on it so tests
// can count or script resolutions.
type RateResolver interface {
	Resolve(ctx context.Context, base, target string) Rate
}
