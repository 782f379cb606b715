package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"smartexpense/internal/core"
	"smartexpense/internal/exchange"
	"smartexpense/internal/log"
)

func newTestExpenseService(store *fakeStore, rates map[string]string) *ExpenseService {
	conv := exchange.NewConverter(newCountingResolver(rates))
	s := NewExpenseService(store, store, store, conv, log.Nop())
	s.now = func() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC) }
	s.newID = func() string { return "exp-1" }
	return s
}

func TestExpenseService_Create(t *testing.T) {
	store := newFakeStore()
	store.categories["cat-1"] = core.Category{ID: "cat-1", Name: "Alimentación"}
	store.profiles["u1"] = core.Profile{ID: "u1", BaseCurrency: "EUR"}
	s := newTestExpenseService(store, map[string]string{"USD": "0.9"})

	var changed []string
	s.OnChange(func(owner string) { changed = append(changed, owner) })

	e, err := s.Create(context.Background(), "u1", ExpenseInput{
		CategoryID:  "cat-1",
		Description: "  Almuerzo ",
		Amount:      dec("45.50"),
		Currency:    "usd",
		ExpenseDate: core.NewDate(2026, 3, 9),
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if e.ID != "exp-1" || e.Source != core.SourceManual {
		t.Errorf("expense = %+v", e)
	}
	if e.Description != "Almuerzo" || e.Currency != "USD" {
		t.Errorf("normalised fields = %q %q", e.Description, e.Currency)
	}
	// 45.50 * 0.9 = 40.95
	if !e.AmountInBase.Equal(dec("40.95")) || !e.ExchangeRateUsed.Equal(dec("0.9")) {
		t.Errorf("conversion = %s @ %s", e.AmountInBase, e.ExchangeRateUsed)
	}
	if _, ok := store.expenses["exp-1"]; !ok {
		t.Error("expense not stored")
	}
	if len(changed) != 1 {
		t.Errorf("change hook calls = %d, want 1", len(changed))
	}
}

func TestExpenseService_CreateRejects(t *testing.T) {
	store := newFakeStore()
	store.categories["cat-1"] = core.Category{ID: "cat-1", Name: "Otros"}
	s := newTestExpenseService(store, nil)

	tests := []struct {
		name string
		in   ExpenseInput
		want error
	}{
		{"unsupported currency", ExpenseInput{CategoryID: "cat-1", Amount: dec("1"), Currency: "XYZ"}, core.ErrUnsupportedCurrency},
		{"unknown category", ExpenseInput{CategoryID: "missing", Amount: dec("1"), Currency: "USD"}, core.ErrCategoryNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Create(context.Background(), "u1", tt.in)
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}

	t.Run("zero amount", func(t *testing.T) {
		_, err := s.Create(context.Background(), "u1", ExpenseInput{CategoryID: "cat-1", Amount: dec("0"), Currency: "USD"})
		if !core.IsKind(err, core.KindValidation) {
			t.Errorf("error = %v, want validation kind", err)
		}
	})
	if len(store.expenses) != 0 {
		t.Error("rejected input must not be stored")
	}
}

func TestExpenseService_UpdateKeepsSourceAndCreation(t *testing.T) {
	store := newFakeStore()
	store.categories["cat-1"] = core.Category{ID: "cat-1", Name: "Otros"}
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store.expenses["exp-1"] = core.Expense{ID: "exp-1", OwnerID: "u1", Source: core.SourceCSV, CreatedAt: created, Currency: "USD"}
	s := newTestExpenseService(store, nil)

	e, err := s.Update(context.Background(), "u1", "exp-1", ExpenseInput{
		CategoryID: "cat-1", Amount: dec("12.345"), Currency: "USD", ExpenseDate: core.NewDate(2026, 3, 1),
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if e.Source != core.SourceCSV || !e.CreatedAt.Equal(created) {
		t.Errorf("source/created_at changed: %+v", e)
	}
	if !e.AmountInBase.Equal(dec("12.35")) {
		t.Errorf("amount_in_base = %s, want 12.35", e.AmountInBase)
	}

	if _, err := s.Update(context.Background(), "u2", "exp-1", ExpenseInput{}); !errors.Is(err, core.ErrExpenseNotFound) {
		t.Errorf("other owner update error = %v, want not found", err)
	}
}

func TestExpenseService_Delete(t *testing.T) {
	store := newFakeStore()
	store.expenses["exp-1"] = core.Expense{ID: "exp-1", OwnerID: "u1"}
	s := newTestExpenseService(store, nil)

	if err := s.Delete(context.Background(), "u1", "exp-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := s.Delete(context.Background(), "u1", "exp-1"); !errors.Is(err, core.ErrExpenseNotFound) {
		t.Errorf("second Delete() error = %v, want not found", err)
	}
}

func TestMonthFilter(t *testing.T) {
	f := MonthFilter(2026, 12)
	if !f.From.Equal(core.NewDate(2026, 12, 1).Time) || !f.To.Equal(core.NewDate(2027, 1, 1).Time) {
		t.Errorf("MonthFilter(2026, 12) = %v..%v", f.From, f.To)
	}
}

func TestExpenseService_GetScopesToOwner(t *testing.T) {
	store := newFakeStore()
	store.expenses["exp-1"] = core.Expense{ID: "exp-1", OwnerID: "u1"}
	s := newTestExpenseService(store, nil)

	got, err := s.Get(context.Background(), "u1", "exp-1")
	if err != nil || got.ID != "exp-1" {
		t.Fatalf("Get() = %+v, %v", got, err)
	}
	if _, err := s.Get(context.Background(), "u2", "exp-1"); !errors.Is(err, core.ErrExpenseNotFound) {
		t.Errorf("other owner error = %v, want not found", err)
	}
}

func TestExpenseService_RecentLimit(t *testing.T) {
	tests := []struct {
		limit, want int
	}{
		{limit: 0, want: DefaultRecentLimit},
		{limit: -3, want: DefaultRecentLimit},
		{limit: 3, want: 3},
		{limit: 500, want: MaxRecentLimit},
	}
	for _, tt := range tests {
		store := newFakeStore()
		s := newTestExpenseService(store, nil)
		if _, err := s.Recent(context.Background(), "u1", tt.limit); err != nil {
			t.Fatalf("Recent(%d) error = %v", tt.limit, err)
		}
		if store.lastFilter.PageSize != tt.want || store.lastFilter.Page != 1 {
			t.Errorf("Recent(%d) filter = %+v, want page size %d", tt.limit, store.lastFilter, tt.want)
		}
	}
}
