package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"smartexpense/internal/core"
)

const (
	globalFood = "8c1f0b2e-5a3d-4e6f-9a01-000000000001"
	globalMisc = "8c1f0b2e-5a3d-4e6f-9a01-000000000008"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"), "USD")
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	repo.now = func() time.Time { return time.Date(2026, 1, 20, 10, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { repo.Close() })
	return repo
}

func testExpense(id, owner, category, amount string, day core.Date, created time.Time) core.Expense {
	return core.Expense{
		ID:               id,
		OwnerID:          owner,
		CategoryID:       category,
		Description:      "expense " + id,
		Amount:           decimal.RequireFromString(amount),
		Currency:         "USD",
		AmountInBase:     decimal.RequireFromString(amount),
		ExchangeRateUsed: decimal.NewFromInt(1),
		ExpenseDate:      day,
		Source:           core.SourceManual,
		CreatedAt:        created,
		UpdatedAt:        created,
	}
}

func TestMigrationsSeedGlobalCategories(t *testing.T) {
	repo := newTestRepo(t)

	categories, err := repo.ListCategories(context.Background(), "owner-1")
	if err != nil {
		t.Fatalf("list categories: %v", err)
	}
	if len(categories) != 8 {
		t.Fatalf("expected 8 global categories, got %d", len(categories))
	}
	for _, c := range categories {
		if !c.IsGlobal() {
			t.Errorf("expected only global categories, got %+v", c)
		}
	}
}

func TestRunMigrationsIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twice.db")
	if err := RunMigrations(DSN(path)); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := RunMigrations(DSN(path)); err != nil {
		t.Fatalf("second run: %v", err)
	}
}

func TestRateStore(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, ok, err := repo.GetRate(ctx, "USD", "EUR", core.NewDate(2026, 1, 20)); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}

	rates := []core.ExchangeRate{
		{Base: "USD", Target: "EUR", Rate: decimal.RequireFromString("0.91"), FetchedAt: core.NewDate(2026, 1, 18)},
		{Base: "USD", Target: "EUR", Rate: decimal.RequireFromString("0.92"), FetchedAt: core.NewDate(2026, 1, 20)},
		{Base: "USD", Target: "EUR", Rate: decimal.RequireFromString("0.93"), FetchedAt: core.NewDate(2026, 1, 20)},
		{Base: "EUR", Target: "CZK", Rate: decimal.RequireFromString("25.1"), FetchedAt: core.NewDate(2026, 1, 19)},
	}
	for _, r := range rates {
		if err := repo.UpsertRate(ctx, r); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	rate, ok, err := repo.GetRate(ctx, "USD", "EUR", core.NewDate(2026, 1, 20))
	if err != nil || !ok || rate.String() != "0.93" {
		t.Errorf("expected same-day upsert to overwrite with 0.93, got %s ok=%v err=%v", rate, ok, err)
	}

	latest, ok, err := repo.LatestRate(ctx, "EUR", "CZK")
	if err != nil || !ok || latest.String() != "25.1" {
		t.Errorf("expected latest 25.1, got %s ok=%v err=%v", latest, ok, err)
	}

	pairs, err := repo.ListRatePairs(ctx)
	if err != nil || len(pairs) != 2 {
		t.Fatalf("expected 2 pairs, got %v (%v)", pairs, err)
	}
	if pairs[0].Key() != "EUR:CZK" || pairs[1].Key() != "USD:EUR" {
		t.Errorf("unexpected pair order %v", pairs)
	}
}

func TestProfileDefaultsAndUpsert(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	p, err := repo.GetProfile(ctx, "owner-1")
	if err != nil || p.BaseCurrency != "USD" {
		t.Fatalf("expected default USD profile, got %+v (%v)", p, err)
	}

	if err := repo.SetBaseCurrency(ctx, "owner-1", "EUR"); err != nil {
		t.Fatalf("set base currency: %v", err)
	}
	if err := repo.SetBaseCurrency(ctx, "owner-1", "CZK"); err != nil {
		t.Fatalf("set base currency again: %v", err)
	}
	p, _ = repo.GetProfile(ctx, "owner-1")
	if p.BaseCurrency != "CZK" {
		t.Errorf("expected CZK, got %s", p.BaseCurrency)
	}
}

func TestCategoryConstraints(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	c := core.Category{ID: "cat-1", OwnerID: "owner-1", Name: "Mascotas", Icon: "🐶", Color: "#112233", CreatedAt: created}
	if err := repo.InsertCategory(ctx, c); err != nil {
		t.Fatalf("insert: %v", err)
	}

	dup := c
	dup.ID = "cat-2"
	dup.Name = "MASCOTAS"
	err := repo.InsertCategory(ctx, dup)
	if !errors.Is(err, core.ErrDuplicateCategory) {
		t.Fatalf("expected duplicate category error, got %v", err)
	}
	if core.KindOf(err) != core.KindConflict {
		t.Errorf("expected conflict kind, got %s", core.KindOf(err))
	}

	other := dup
	other.OwnerID = "owner-2"
	if err := repo.InsertCategory(ctx, other); err != nil {
		t.Errorf("same name for a different owner should be allowed: %v", err)
	}

	if err := repo.InsertExpense(ctx, testExpense("e1", "owner-1", "cat-1", "10", core.NewDate(2026, 1, 5), created)); err != nil {
		t.Fatalf("insert expense: %v", err)
	}
	err = repo.DeleteCategory(ctx, "owner-1", "cat-1")
	if !errors.Is(err, core.ErrCategoryInUse) {
		t.Fatalf("expected category in use, got %v", err)
	}
	if msg := core.Message(err, ""); msg != "No se puede eliminar: hay gastos asociados a esta categoría" {
		t.Errorf("unexpected in-use message %q", msg)
	}
	if _, err := repo.GetCategory(ctx, "owner-1", "cat-1"); err != nil {
		t.Errorf("category should survive a refused delete: %v", err)
	}

	err = repo.DeleteCategory(ctx, "owner-1", globalFood)
	if !core.IsKind(err, core.KindNotFound) {
		t.Errorf("expected global category delete to be not found, got %v", err)
	}

	err = repo.InsertExpense(ctx, testExpense("e2", "owner-1", "missing", "10", core.NewDate(2026, 1, 5), created))
	if !errors.Is(err, core.ErrCategoryNotFound) {
		t.Errorf("expected unknown category to be rejected, got %v", err)
	}
}

func TestFindCategoryByName(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	c, ok, err := repo.FindCategoryByName(ctx, "owner-1", "  alimentación ")
	if err != nil || !ok || c.ID != globalFood {
		t.Fatalf("expected global Alimentación, got %+v ok=%v err=%v", c, ok, err)
	}

	if _, ok, _ := repo.FindCategoryByName(ctx, "owner-1", "Viajes"); ok {
		t.Error("did not expect a match for Viajes")
	}

	own := core.Category{ID: "own-otros", OwnerID: "owner-1", Name: "otros", Icon: "x", Color: "#000000", CreatedAt: time.Now()}
	if err := repo.InsertCategory(ctx, own); err != nil {
		t.Fatalf("insert: %v", err)
	}
	c, ok, _ = repo.FindCategoryByName(ctx, "owner-1", "OTROS")
	if !ok || c.ID != "own-otros" {
		t.Errorf("expected the owner's category to win, got %+v", c)
	}
	c, _, _ = repo.FindCategoryByName(ctx, "owner-2", "OTROS")
	if c.ID != globalMisc {
		t.Errorf("expected global Otros for another owner, got %+v", c)
	}
}

func TestExpenseListingAndConversionUpdate(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	expenses := []core.Expense{
		testExpense("a", "owner-1", globalFood, "10", core.NewDate(2026, 1, 5), base),
		testExpense("b", "owner-1", globalFood, "20", core.NewDate(2026, 1, 7), base),
		testExpense("c", "owner-1", globalMisc, "30", core.NewDate(2026, 1, 7), base.Add(time.Hour)),
		testExpense("d", "owner-1", globalMisc, "40", core.NewDate(2026, 2, 1), base),
		testExpense("z", "owner-2", globalMisc, "50", core.NewDate(2026, 1, 7), base),
	}
	for _, e := range expenses {
		if err := repo.InsertExpense(ctx, e); err != nil {
			t.Fatalf("insert %s: %v", e.ID, err)
		}
	}

	from, to := core.NewDate(2026, 1, 1), core.NewDate(2026, 2, 1)
	page, err := repo.ListExpenses(ctx, "owner-1", core.ExpenseFilter{From: &from, To: &to, PageSize: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 3 || len(page.Items) != 2 {
		t.Fatalf("expected 3 total and 2 items, got %d/%d", page.Total, len(page.Items))
	}
	if page.Items[0].ID != "c" || page.Items[1].ID != "b" {
		t.Errorf("expected order c, b (date desc, created desc), got %s, %s", page.Items[0].ID, page.Items[1].ID)
	}
	if page.Items[0].Category.Name != "Otros" {
		t.Errorf("expected joined category name, got %q", page.Items[0].Category.Name)
	}

	between, err := repo.ListExpensesBetween(ctx, "owner-1", from, to)
	if err != nil || len(between) != 3 {
		t.Fatalf("expected 3 expenses in January, got %d (%v)", len(between), err)
	}

	amounts, err := repo.ListExpenseAmounts(ctx, "owner-1")
	if err != nil || len(amounts) != 4 {
		t.Fatalf("expected 4 amounts, got %d (%v)", len(amounts), err)
	}

	err = repo.UpdateExpenseConversion(ctx, "owner-1", core.ExpenseConversion{
		ID:               "a",
		AmountInBase:     decimal.RequireFromString("9.2"),
		ExchangeRateUsed: decimal.RequireFromString("0.92"),
	})
	if err != nil {
		t.Fatalf("update conversion: %v", err)
	}
	got, err := repo.GetExpense(ctx, "owner-1", "a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.AmountInBase.String() != "9.2" || got.ExchangeRateUsed.String() != "0.92" || got.Amount.String() != "10" {
		t.Errorf("unexpected converted expense %+v", got.Expense)
	}

	if _, err := repo.GetExpense(ctx, "owner-2", "a"); !errors.Is(err, core.ErrExpenseNotFound) {
		t.Errorf("expected other owners not to see the expense, got %v", err)
	}
	if err := repo.DeleteExpense(ctx, "owner-1", "a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.DeleteExpense(ctx, "owner-1", "a"); !errors.Is(err, core.ErrExpenseNotFound) {
		t.Errorf("expected not found on second delete, got %v", err)
	}
}

func TestDisplayNameUpsert(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.SetDisplayName(ctx, "owner-1", "Ana"); err != nil {
		t.Fatalf("set display name: %v", err)
	}
	p, err := repo.GetProfile(ctx, "owner-1")
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if p.DisplayName != "Ana" || p.BaseCurrency != "USD" {
		t.Errorf("expected new profile with default currency, got %+v", p)
	}

	if err := repo.SetBaseCurrency(ctx, "owner-1", "EUR"); err != nil {
		t.Fatalf("set base currency: %v", err)
	}
	if err := repo.SetDisplayName(ctx, "owner-1", "Ana María"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	p, _ = repo.GetProfile(ctx, "owner-1")
	if p.DisplayName != "Ana María" || p.BaseCurrency != "EUR" {
		t.Errorf("rename should keep the base currency, got %+v", p)
	}
}

func TestInsertProductEvent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	events := []core.ProductEvent{
		{ID: "ev-1", OwnerID: "owner-1", Name: "insights_viewed", Context: "insights", Metadata: []byte(`{"month":3}`), CreatedAt: time.Now()},
		{ID: "ev-2", OwnerID: "owner-1", Name: "insights_viewed", Context: "insights", CreatedAt: time.Now()},
	}
	for _, e := range events {
		if err := repo.InsertProductEvent(ctx, e); err != nil {
			t.Fatalf("insert %s: %v", e.ID, err)
		}
	}
	n, err := repo.queries.CountProductEvents(ctx, "owner-1", "insights_viewed")
	if err != nil || n != 2 {
		t.Errorf("expected 2 stored events, got %d (err %v)", n, err)
	}

	err = repo.InsertProductEvent(ctx, events[0])
	if !core.IsKind(err, core.KindConflict) {
		t.Errorf("expected duplicate id to be a conflict, got %v", err)
	}
}
