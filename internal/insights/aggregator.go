package insights

import (
	"context"
	"fmt"
	"time"

	"smartexpense/internal/cache"
	"smartexpense/internal/core"
	"smartexpense/internal/log"
)

// Store reads expenses with their categories in [from, to), oldest first.
type Store interface {
	ListExpensesBetween(ctx context.Context, ownerID string, from, to core.Date) ([]core.ExpenseWithCategory, error)
}

// Aggregator loads expense windows and caches the derived views per owner.
type Aggregator struct {
	store     Store
	snapshots cache.Cache[Snapshot]
	summaries cache.Cache[core.MonthlySummary]
	logger    *log.Logger
	now       func() time.Time
}

// NewAggregator wires an aggregator. Either cache may be nil to disable caching.
func NewAggregator(store Store, snapshots cache.Cache[Snapshot], summaries cache.Cache[core.MonthlySummary], logger *log.Logger) *Aggregator {
	if logger == nil {
		logger = log.Default()
	}
	return &Aggregator{
		store:     store,
		snapshots: snapshots,
		summaries: summaries,
		logger:    logger.WithComponent(log.ComponentInsights),
		now:       time.Now,
	}
}

// WithClock replaces the clock used to decide how far into the month "today" is.
func (a *Aggregator) WithClock(now func() time.Time) *Aggregator {
	a.now = now
	return a
}

func cacheKey(ownerID string, year, month int, baseCurrency string) string {
	return fmt.Sprintf("%s|%04d-%02d|%s", ownerID, year, month, baseCurrency)
}

func validMonth(year, month int) error {
	if month < 1 || month > 12 || year < 1900 || year > 9999 {
		return core.Validation("insights", "Mes o año inválido")
	}
	return nil
}

// Snapshot returns the analytics for year/month computed on amount_in_base.
func (a *Aggregator) Snapshot(ctx context.Context, ownerID string, month, year int, baseCurrency string) (Snapshot, error) {
	if err := validMonth(year, month); err != nil {
		return Snapshot{}, err
	}
	key := cacheKey(ownerID, year, month, baseCurrency)
	if a.snapshots != nil {
		if s, ok := a.snapshots.Get(key); ok {
			return s, nil
		}
	}

	from, to := Window(year, month)
	rows, err := a.store.ListExpensesBetween(ctx, ownerID, from, to)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load insights window: %w", err)
	}

	s := Build(rows, year, month, baseCurrency, core.DateOf(a.now()))
	if a.snapshots != nil {
		a.snapshots.Set(key, s)
	}
	a.logger.DebugContext(ctx, "Insights snapshot built",
		log.FieldOwnerID, ownerID,
		log.FieldYear, year,
		log.FieldMonth, month,
		"expenses", len(rows),
		"health_score", s.FinancialHealth.Score)
	return s, nil
}

// Summary returns the dashboard summary for year/month.
func (a *Aggregator) Summary(ctx context.Context, ownerID string, month, year int, baseCurrency string) (core.MonthlySummary, error) {
	if err := validMonth(year, month); err != nil {
		return core.MonthlySummary{}, err
	}
	key := cacheKey(ownerID, year, month, baseCurrency)
	if a.summaries != nil {
		if s, ok := a.summaries.Get(key); ok {
			return s, nil
		}
	}

	rows, err := a.store.ListExpensesBetween(ctx, ownerID, core.NewDate(year, month, 1), core.NewDate(year, month+1, 1))
	if err != nil {
		return core.MonthlySummary{}, fmt.Errorf("load month expenses: %w", err)
	}
	s := BuildSummary(rows, year, month, baseCurrency)
	if a.summaries != nil {
		a.summaries.Set(key, s)
	}
	return s, nil
}

// Invalidate drops every cached view of ownerID. It matches services.ChangeHook.
func (a *Aggregator) Invalidate(ownerID string) {
	prefix := ownerID + "|"
	removed := 0
	if a.snapshots != nil {
		removed += a.snapshots.DeletePrefix(prefix)
	}
	if a.summaries != nil {
		removed += a.summaries.DeletePrefix(prefix)
	}
	if removed > 0 {
		a.logger.Debug("Insights cache invalidated", log.FieldOwnerID, ownerID, "removed", removed)
	}
}
