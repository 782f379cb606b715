package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"smartexpense/internal/core"
	"smartexpense/internal/exchange"
	"smartexpense/internal/log"
)

// AmountConverter is satisfied by *exchange.Converter.
type AmountConverter interface {
	Convert(ctx context.Context, amount decimal.Decimal, from, to string) (exchange.Conversion, error)
}

// Bounds of the recent-expenses listing.
const (
	DefaultRecentLimit = 7
	MaxRecentLimit     = 50
)

// ExpenseInput carries the fields of a manually entered expense.
type ExpenseInput struct {
	CategoryID  string
	Description string
	Amount      decimal.Decimal
	Currency    string
	ExpenseDate core.Date
}

// ExpenseService converts and stores manually entered expenses.
type ExpenseService struct {
	expenses   ExpenseStore
	categories CategoryStore
	profiles   ProfileStore
	converter  AmountConverter
	onChange   ChangeHook
	logger     *log.Logger
	now        func() time.Time
	newID      func() string
}

func NewExpenseService(expenses ExpenseStore, categories CategoryStore, profiles ProfileStore, converter AmountConverter, logger *log.Logger) *ExpenseService {
	if logger == nil {
		logger = log.Default()
	}
	return &ExpenseService{
		expenses:   expenses,
		categories: categories,
		profiles:   profiles,
		converter:  converter,
		logger:     logger.WithComponent(log.ComponentExpense),
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// OnChange registers a hook fired after every successful write.
func (s *ExpenseService) OnChange(hook ChangeHook) {
	s.onChange = hook
}

func (s *ExpenseService) changed(ownerID string) {
	if s.onChange != nil {
		s.onChange(ownerID)
	}
}

// BaseCurrency returns the owner's base currency.
func (s *ExpenseService) BaseCurrency(ctx context.Context, ownerID string) (string, error) {
	p, err := s.profiles.GetProfile(ctx, ownerID)
	if err != nil {
		return "", fmt.Errorf("load profile: %w", err)
	}
	return p.BaseCurrency, nil
}

func (s *ExpenseService) prepare(ctx context.Context, ownerID string, in ExpenseInput) (core.Expense, error) {
	currency := core.NormalizeCurrency(in.Currency)
	if !core.IsSupportedCurrency(currency) {
		return core.Expense{}, fmt.Errorf("prepare expense: %w", core.ErrUnsupportedCurrency)
	}
	if err := core.ValidateAmount(in.Amount); err != nil {
		return core.Expense{}, err
	}
	if _, err := s.categories.GetCategory(ctx, ownerID, in.CategoryID); err != nil {
		return core.Expense{}, err
	}

	base, err := s.BaseCurrency(ctx, ownerID)
	if err != nil {
		return core.Expense{}, err
	}
	conv, err := s.converter.Convert(ctx, in.Amount, currency, base)
	if err != nil {
		return core.Expense{}, err
	}

	return core.Expense{
		OwnerID:          ownerID,
		CategoryID:       in.CategoryID,
		Description:      strings.TrimSpace(in.Description),
		Amount:           in.Amount,
		Currency:         currency,
		AmountInBase:     conv.AmountInBase,
		ExchangeRateUsed: conv.ExchangeRateUsed,
		ExpenseDate:      in.ExpenseDate,
		Source:           core.SourceManual,
	}, nil
}

// Create converts the amount into the owner's base currency and stores the expense.
func (s *ExpenseService) Create(ctx context.Context, ownerID string, in ExpenseInput) (core.Expense, error) {
	e, err := s.prepare(ctx, ownerID, in)
	if err != nil {
		return core.Expense{}, err
	}
	now := s.now().UTC()
	e.ID = s.newID()
	e.CreatedAt, e.UpdatedAt = now, now

	if err := s.expenses.InsertExpense(ctx, e); err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}
	s.changed(ownerID)
	return e, nil
}

// Update re-runs conversion with the current rate and base currency.
func (s *ExpenseService) Update(ctx context.Context, ownerID, id string, in ExpenseInput) (core.Expense, error) {
	current, err := s.expenses.GetExpense(ctx, ownerID, id)
	if err != nil {
		return core.Expense{}, err
	}
	e, err := s.prepare(ctx, ownerID, in)
	if err != nil {
		return core.Expense{}, err
	}
	e.ID = id
	e.Source = current.Source
	e.CreatedAt = current.CreatedAt
	e.UpdatedAt = s.now().UTC()

	if err := s.expenses.UpdateExpense(ctx, e); err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}
	s.changed(ownerID)
	return e, nil
}

func (s *ExpenseService) Delete(ctx context.Context, ownerID, id string) error {
	if err := s.expenses.DeleteExpense(ctx, ownerID, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Expense deleted", log.FieldOwnerID, ownerID, log.FieldExpenseID, id)
	s.changed(ownerID)
	return nil
}

// Get returns one of the owner's expenses with its category.
func (s *ExpenseService) Get(ctx context.Context, ownerID, id string) (core.ExpenseWithCategory, error) {
	return s.expenses.GetExpense(ctx, ownerID, id)
}

// Recent returns the owner's latest expenses, newest expense date first.
func (s *ExpenseService) Recent(ctx context.Context, ownerID string, limit int) ([]core.ExpenseWithCategory, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	limit = min(limit, MaxRecentLimit)
	page, err := s.expenses.ListExpenses(ctx, ownerID, core.ExpenseFilter{Page: 1, PageSize: limit})
	if err != nil {
		return nil, fmt.Errorf("recent expenses: %w", err)
	}
	return page.Items, nil
}

func (s *ExpenseService) List(ctx context.Context, ownerID string, f core.ExpenseFilter) (core.ExpensePage, error) {
	return s.expenses.ListExpenses(ctx, ownerID, f.Normalize())
}

// MonthFilter returns a filter covering one calendar month.
func MonthFilter(year, month int) core.ExpenseFilter {
	from := core.NewDate(year, month, 1)
	to := core.NewDate(year, month+1, 1)
	return core.ExpenseFilter{From: &from, To: &to}
}
