package exchange

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"smartexpense/internal/core"
	"smartexpense/internal/log"
)

// DegradedFunc is notified when resolution had to fall back to the identity rate.
type DegradedFunc func(ctx context.Context, pair core.CurrencyPair)

// Resolver implements the cache, api, last-known, identity ladder.
type Resolver struct {
	store      Store
	provider   Provider
	now        func() time.Time
	logger     *log.Logger
	onDegraded DegradedFunc
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithClock overrides the clock used to compute "today".
func WithClock(now func() time.Time) ResolverOption {
	return func(r *Resolver) { r.now = now }
}

// WithLogger sets the resolver logger.
func WithLogger(l *log.Logger) ResolverOption {
	return func(r *Resolver) { r.logger = l.WithComponent(log.ComponentExchange) }
}

// WithDegradedHook registers a callback for identity fallbacks.
func WithDegradedHook(fn DegradedFunc) ResolverOption {
	return func(r *Resolver) { r.onDegraded = fn }
}

func NewResolver(store Store, provider Provider, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		store:    store,
		provider: provider,
		now:      time.Now,
		logger:   log.Default().WithComponent(log.ComponentExchange),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Today returns the resolver's current calendar date.
func (r *Resolver) Today() core.Date {
	return core.DateOf(r.now())
}

// Resolve returns the rate converting one unit of base into target.
// Store and provider failures are logged and absorbed.
func (r *Resolver) Resolve(ctx context.Context, base, target string) Rate {
	if base == target {
		return Rate{Value: decimal.NewFromInt(1), Source: SourceCache}
	}

	today := r.Today()
	pair := log.NewFields().WithPair(base, target).ToSlice()

	if rate, ok, err := r.store.GetRate(ctx, base, target, today); err != nil {
		r.logger.WarnContext(ctx, "Rate store lookup failed", append(pair, log.FieldError, err)...)
	} else if ok {
		return Rate{Value: rate, Source: SourceCache}
	}

	quote, err := r.provider.Latest(ctx, base, target)
	if err == nil {
		if err := r.store.UpsertRate(ctx, core.ExchangeRate{
			Base:      base,
			Target:    target,
			Rate:      quote.Rate,
			FetchedAt: today,
		}); err != nil {
			r.logger.WarnContext(ctx, "Failed to persist fetched rate", append(pair, log.FieldError, err)...)
		}
		r.logger.DebugContext(ctx, "Rate fetched from provider", append(pair, log.FieldRate, quote.Rate.String())...)
		return Rate{Value: quote.Rate, Source: SourceAPI}
	}
	r.logger.WarnContext(ctx, "Rate provider failed, trying last known rate", append(pair, log.FieldError, err)...)

	if rate, ok, err := r.store.LatestRate(ctx, base, target); err != nil {
		r.logger.WarnContext(ctx, "Last known rate lookup failed", append(pair, log.FieldError, err)...)
	} else if ok {
		return Rate{Value: rate, Source: SourceFallback}
	}

	r.logger.ErrorContext(ctx, "No rate available, using identity rate", pair...)
	if r.onDegraded != nil {
		r.onDegraded(ctx, core.CurrencyPair{Base: base, Target: target})
	}
	return Rate{Value: decimal.NewFromInt(1), Source: SourceFallback, Identity: true}
}

// Refresh fetches the pair from the provider and stores it under today's
// date. Unlike Resolve it reports failures.
func (r *Resolver) Refresh(ctx context.Context, base, target string) (decimal.Decimal, error) {
	quote, err := r.provider.Latest(ctx, base, target)
	if err != nil {
		return decimal.Zero, fmt.Errorf("refresh %s:%s: %w", base, target, err)
	}
	if err := r.store.UpsertRate(ctx, core.ExchangeRate{
		Base:      base,
		Target:    target,
		Rate:      quote.Rate,
		FetchedAt: r.Today(),
	}); err != nil {
		return decimal.Zero, fmt.Errorf("refresh %s:%s: store rate: %w", base, target, err)
	}
	return quote.Rate, nil
}

// IsFresh reports whether the store already holds today's rate for the pair.
func (r *Resolver) IsFresh(ctx context.Context, base, target string) (bool, error) {
	_, ok, err := r.store.GetRate(ctx, base, target, r.Today())
	return ok, err
}
