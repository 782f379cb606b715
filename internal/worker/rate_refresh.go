// Package worker runs the background jobs of the expense tracker.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"smartexpense/internal/amqp"
	"smartexpense/internal/core"
	"smartexpense/internal/log"
)

// DefaultRefreshInterval is how often stored pairs are refreshed.
const DefaultRefreshInterval = time.Hour

// RateRefresher is satisfied by *exchange.Resolver.
type RateRefresher interface {
	Refresh(ctx context.Context, base, target string) (decimal.Decimal, error)
	IsFresh(ctx context.Context, base, target string) (bool, error)
}

// PairLister lists the pairs that have at least one stored rate.
type PairLister interface {
	ListRatePairs(ctx context.Context) ([]core.CurrencyPair, error)
}

// EventSource is satisfied by *amqp.Client.
type EventSource interface {
	ConsumeEvents(ctx context.Context, handler func(context.Context, *amqp.Event) error) error
}

// RefreshStats summarises one sweep over the stored pairs.
type RefreshStats struct {
	Refreshed int
	Skipped   int
	Failed    int
}

// RateRefreshWorker keeps today's rates in the store so that conversions hit
// the cache instead of the provider. It reacts to rate.degraded events and
// also sweeps every stored pair on a fixed interval.
type RateRefreshWorker struct {
	rates    RateRefresher
	pairs    PairLister
	interval time.Duration
	logger   *log.Logger
}

func NewRateRefreshWorker(rates RateRefresher, pairs PairLister, interval time.Duration, logger *log.Logger) *RateRefreshWorker {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	if logger == nil {
		logger = log.Default()
	}
	return &RateRefreshWorker{
		rates:    rates,
		pairs:    pairs,
		interval: interval,
		logger:   logger.WithComponent(log.ComponentWorker),
	}
}

// HandleEvent refreshes the pair named by a rate.degraded event. Other event
// types are ignored. Failures are logged and the event is acknowledged; the
// next sweep retries the pair.
func (w *RateRefreshWorker) HandleEvent(ctx context.Context, event *amqp.Event) error {
	if event.Type != amqp.EventRateDegraded {
		w.logger.DebugContext(ctx, "Ignoring event", log.FieldEventType, string(event.Type))
		return nil
	}

	var payload amqp.RateDegradedPayload
	if err := event.Decode(&payload); err != nil {
		w.logger.WarnContext(ctx, "Dropping malformed rate.degraded event", log.FieldError, err)
		return nil
	}
	base := core.NormalizeCurrency(payload.Base)
	target := core.NormalizeCurrency(payload.Target)
	if !core.IsSupportedCurrency(base) || !core.IsSupportedCurrency(target) || base == target {
		w.logger.WarnContext(ctx, "Dropping rate.degraded event with invalid pair",
			log.NewFields().WithPair(base, target).ToSlice()...)
		return nil
	}

	fields := log.NewFields().WithPair(base, target).WithOperation(log.OpRefresh)
	rate, err := w.rates.Refresh(ctx, base, target)
	if err != nil {
		w.logger.WarnContext(ctx, "Degraded pair refresh failed", fields.WithError(err).ToSlice()...)
		return nil
	}
	w.logger.InfoContext(ctx, "Degraded pair refreshed", append(fields.ToSlice(), log.FieldRate, rate.String())...)
	return nil
}

// RefreshAll refreshes every stored pair that has no rate for today yet.
// Individual pair failures are counted, not returned.
func (w *RateRefreshWorker) RefreshAll(ctx context.Context) (RefreshStats, error) {
	var stats RefreshStats

	pairs, err := w.pairs.ListRatePairs(ctx)
	if err != nil {
		return stats, fmt.Errorf("list rate pairs: %w", err)
	}

	for _, p := range pairs {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		fields := log.NewFields().WithPair(p.Base, p.Target)

		fresh, err := w.rates.IsFresh(ctx, p.Base, p.Target)
		if err != nil {
			w.logger.WarnContext(ctx, "Freshness check failed, refreshing anyway", fields.WithError(err).ToSlice()...)
		}
		if fresh {
			stats.Skipped++
			continue
		}

		if _, err := w.rates.Refresh(ctx, p.Base, p.Target); err != nil {
			stats.Failed++
			w.logger.WarnContext(ctx, "Pair refresh failed", fields.WithError(err).ToSlice()...)
			continue
		}
		stats.Refreshed++
	}

	w.logger.InfoContext(ctx, "Rate sweep completed",
		"pairs", len(pairs),
		"refreshed", stats.Refreshed,
		"skipped", stats.Skipped,
		"failed", stats.Failed)
	return stats, nil
}

// Run sweeps once immediately and then on every interval tick. When events
// is non-nil it also consumes events concurrently. Run returns nil when ctx
// is cancelled.
func (w *RateRefreshWorker) Run(ctx context.Context, events EventSource) error {
	g, ctx := errgroup.WithContext(ctx)

	if events != nil {
		g.Go(func() error {
			return events.ConsumeEvents(ctx, w.HandleEvent)
		})
	}

	g.Go(func() error {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			if _, err := w.RefreshAll(ctx); err != nil && ctx.Err() == nil {
				w.logger.ErrorContext(ctx, "Rate sweep failed", log.FieldError, err)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
