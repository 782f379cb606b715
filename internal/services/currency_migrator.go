package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"smartexpense/internal/amqp"
	"smartexpense/internal/core"
	"smartexpense/internal/exchange"
	"smartexpense/internal/log"
)

// DefaultMigrationBatchSize bounds both the batch length and the number of
// concurrent updates inside one batch.
const DefaultMigrationBatchSize = 50

// MigrationResult reports what a base-currency change rewrote.
type MigrationResult struct {
	OldCurrency string
	NewCurrency string
	Migrated    int
	// Rates holds the single rate resolved per source currency.
	Rates map[string]exchange.Rate
}

// CurrencyMigrator re-converts an owner's expenses after a base-currency change.
type CurrencyMigrator struct {
	profiles  ProfileStore
	expenses  ExpenseStore
	resolver  exchange.RateResolver
	batchSize int
	events    *Events
	onChange  ChangeHook
	logger    *log.Logger
}

func NewCurrencyMigrator(profiles ProfileStore, expenses ExpenseStore, resolver exchange.RateResolver, batchSize int, events *Events, logger *log.Logger) *CurrencyMigrator {
	if batchSize <= 0 {
		batchSize = DefaultMigrationBatchSize
	}
	if logger == nil {
		logger = log.Default()
	}
	return &CurrencyMigrator{
		profiles:  profiles,
		expenses:  expenses,
		resolver:  resolver,
		batchSize: batchSize,
		events:    events,
		logger:    logger.WithComponent(log.ComponentMigration),
	}
}

// OnChange registers a hook fired once the preference has been written and
// again when the expense rewrite returns, whether it succeeded or not.
func (m *CurrencyMigrator) OnChange(hook ChangeHook) {
	m.onChange = hook
}

func (m *CurrencyMigrator) notify(ownerID string) {
	if m.onChange != nil {
		m.onChange(ownerID)
	}
}

// ChangeBaseCurrency reads the owner's current base currency and migrates to newCurrency.
func (m *CurrencyMigrator) ChangeBaseCurrency(ctx context.Context, ownerID, newCurrency string) (MigrationResult, error) {
	newCurrency = core.NormalizeCurrency(newCurrency)
	if !core.IsSupportedCurrency(newCurrency) {
		return MigrationResult{}, fmt.Errorf("change base currency: %w", core.ErrUnsupportedCurrency)
	}
	profile, err := m.profiles.GetProfile(ctx, ownerID)
	if err != nil {
		return MigrationResult{}, fmt.Errorf("load profile: %w", err)
	}
	return m.MigrateBaseCurrency(ctx, ownerID, profile.BaseCurrency, newCurrency)
}

// MigrateBaseCurrency stores the new preference first, then rewrites
// amount_in_base and exchange_rate_used for every expense. Exactly one rate
// is resolved per distinct source currency. Updates run in batches whose
// members execute concurrently; a batch completes before the next starts.
// A failed update stops the run; earlier batches stay applied.
func (m *CurrencyMigrator) MigrateBaseCurrency(ctx context.Context, ownerID, oldCurrency, newCurrency string) (MigrationResult, error) {
	result := MigrationResult{OldCurrency: oldCurrency, NewCurrency: newCurrency, Rates: map[string]exchange.Rate{}}

	if err := m.profiles.SetBaseCurrency(ctx, ownerID, newCurrency); err != nil {
		return result, fmt.Errorf("save base currency preference: %w", err)
	}
	m.notify(ownerID)
	if oldCurrency == newCurrency {
		return result, nil
	}
	// Views cached while expenses were being rewritten are stale on every exit path.
	defer m.notify(ownerID)

	amounts, err := m.expenses.ListExpenseAmounts(ctx, ownerID)
	if err != nil {
		return result, fmt.Errorf("load expenses: %w", err)
	}

	for _, a := range amounts {
		if _, ok := result.Rates[a.Currency]; ok {
			continue
		}
		rate := m.resolver.Resolve(ctx, a.Currency, newCurrency)
		result.Rates[a.Currency] = rate
		if rate.Identity {
			m.logger.WarnContext(ctx, "Migrating with identity rate",
				log.FieldOwnerID, ownerID,
				log.FieldCurrencyPair, a.Currency+":"+newCurrency)
		}
	}

	updates := make([]core.ExpenseConversion, len(amounts))
	for i, a := range amounts {
		rate := result.Rates[a.Currency].Value
		updates[i] = core.ExpenseConversion{
			ID:               a.ID,
			AmountInBase:     core.ConvertAmount(a.Amount, rate),
			ExchangeRateUsed: rate,
		}
	}

	batches := (len(updates) + m.batchSize - 1) / m.batchSize
	for b := 0; b < batches; b++ {
		start := b * m.batchSize
		end := min(start+m.batchSize, len(updates))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(m.batchSize)
		for _, u := range updates[start:end] {
			g.Go(func() error {
				return m.expenses.UpdateExpenseConversion(gctx, ownerID, u)
			})
		}
		if err := g.Wait(); err != nil {
			m.logger.ErrorContext(ctx, "Base currency migration aborted",
				log.FieldOwnerID, ownerID,
				log.FieldBatch, b+1,
				"batches", batches,
				"migrated", result.Migrated,
				log.FieldError, err)
			return result, fmt.Errorf("migrate base currency %s→%s: batch %d of %d failed after %d updates: %w",
				oldCurrency, newCurrency, b+1, batches, result.Migrated, err)
		}
		result.Migrated += end - start
	}

	m.logger.InfoContext(ctx, "Base currency migrated",
		log.FieldOwnerID, ownerID,
		"old_currency", oldCurrency,
		"new_currency", newCurrency,
		"migrated", result.Migrated,
		"currencies", len(result.Rates))

	m.events.BaseCurrencyChanged(ctx, ownerID, amqp.BaseCurrencyChangedPayload{
		OldCurrency: oldCurrency,
		NewCurrency: newCurrency,
		Migrated:    result.Migrated,
	})
	return result, nil
}
