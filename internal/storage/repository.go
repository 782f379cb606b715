package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"smartexpense/internal/core"
	"smartexpense/internal/log"

	_ "modernc.org/sqlite"
)

// SQLiteRepository implements every persistence port of the application.
type SQLiteRepository struct {
	db                  *sql.DB
	queries             *Queries
	defaultBaseCurrency string
	now                 func() time.Time
}

// DSN builds a modernc sqlite data source name with foreign keys enforced.
func DSN(dbPath string) string {
	return "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// NewSQLiteRepository opens (creating if needed) the database at dbPath and
// applies migrations. defaultBaseCurrency is reported for owners without a profile row.
func NewSQLiteRepository(dbPath, defaultBaseCurrency string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := DSN(dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	if defaultBaseCurrency == "" {
		defaultBaseCurrency = core.DefaultBaseCurrency
	}

	return &SQLiteRepository{
		db:                  db,
		queries:             New(db),
		defaultBaseCurrency: defaultBaseCurrency,
		now:                 time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping is used by the readiness probe.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// --- exchange rates ---

func (r *SQLiteRepository) GetRate(ctx context.Context, base, target string, day core.Date) (decimal.Decimal, bool, error) {
	rate, ok, err := r.queries.GetRate(ctx, base, target, day)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("get rate %s:%s: %w", base, target, err)
	}
	return rate, ok, nil
}

func (r *SQLiteRepository) LatestRate(ctx context.Context, base, target string) (decimal.Decimal, bool, error) {
	rate, ok, err := r.queries.LatestRate(ctx, base, target)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("latest rate %s:%s: %w", base, target, err)
	}
	return rate, ok, nil
}

func (r *SQLiteRepository) UpsertRate(ctx context.Context, rate core.ExchangeRate) error {
	if err := r.queries.UpsertRate(ctx, rate); err != nil {
		return fmt.Errorf("upsert rate %s:%s: %w", rate.Base, rate.Target, err)
	}
	logger().DebugContext(ctx, "Exchange rate stored",
		log.FieldCurrencyPair, rate.Base+":"+rate.Target,
		log.FieldRate, rate.Rate.String(),
		"fetched_at", rate.FetchedAt.String())
	return nil
}

func (r *SQLiteRepository) ListRatePairs(ctx context.Context) ([]core.CurrencyPair, error) {
	pairs, err := r.queries.ListRatePairs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rate pairs: %w", err)
	}
	return pairs, nil
}

// --- profiles ---

// GetProfile returns the owner's profile, or a default one when none is stored.
func (r *SQLiteRepository) GetProfile(ctx context.Context, ownerID string) (core.Profile, error) {
	p, err := r.queries.GetProfile(ctx, ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Profile{ID: ownerID, BaseCurrency: r.defaultBaseCurrency}, nil
	}
	if err != nil {
		return core.Profile{}, translate("get profile", err, constraintErrors{})
	}
	return p, nil
}

func (r *SQLiteRepository) SetDisplayName(ctx context.Context, ownerID, name string) error {
	if err := r.queries.UpsertDisplayName(ctx, ownerID, name, r.defaultBaseCurrency, r.now()); err != nil {
		return translate("set display name", err, constraintErrors{})
	}
	return nil
}

func (r *SQLiteRepository) SetBaseCurrency(ctx context.Context, ownerID, currency string) error {
	if err := r.queries.UpsertBaseCurrency(ctx, ownerID, currency, r.now()); err != nil {
		return translate("set base currency", err, constraintErrors{})
	}
	logger().InfoContext(ctx, "Base currency updated", log.FieldOwnerID, ownerID, log.FieldCurrency, currency)
	return nil
}

// --- categories ---

func (r *SQLiteRepository) ListCategories(ctx context.Context, ownerID string) ([]core.Category, error) {
	categories, err := r.queries.ListCategories(ctx, ownerID)
	if err != nil {
		return nil, translate("list categories", err, constraintErrors{})
	}
	return categories, nil
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, ownerID, id string) (core.Category, error) {
	c, err := r.queries.GetCategory(ctx, ownerID, id)
	if err != nil {
		return core.Category{}, translate("get category", err, constraintErrors{notFound: core.ErrCategoryNotFound})
	}
	return c, nil
}

// FindCategoryByName matches name case-insensitively (Unicode aware) among
// the owner's and global categories, preferring the owner's own category.
func (r *SQLiteRepository) FindCategoryByName(ctx context.Context, ownerID, name string) (core.Category, bool, error) {
	categories, err := r.ListCategories(ctx, ownerID)
	if err != nil {
		return core.Category{}, false, err
	}
	name = strings.TrimSpace(name)
	var global *core.Category
	for i := range categories {
		c := categories[i]
		if !strings.EqualFold(c.Name, name) {
			continue
		}
		if !c.IsGlobal() {
			return c, true, nil
		}
		if global == nil {
			global = &categories[i]
		}
	}
	if global != nil {
		return *global, true, nil
	}
	return core.Category{}, false, nil
}

func (r *SQLiteRepository) InsertCategory(ctx context.Context, c core.Category) error {
	if err := r.queries.InsertCategory(ctx, c); err != nil {
		return translate("insert category", err, constraintErrors{unique: core.ErrDuplicateCategory})
	}
	logger().InfoContext(ctx, "Category created", log.FieldOwnerID, c.OwnerID, log.FieldCategoryID, c.ID, "name", c.Name)
	return nil
}

func (r *SQLiteRepository) UpdateCategory(ctx context.Context, c core.Category) error {
	n, err := r.queries.UpdateCategory(ctx, c)
	if err != nil {
		return translate("update category", err, constraintErrors{unique: core.ErrDuplicateCategory})
	}
	if n == 0 {
		return fmt.Errorf("update category: %w", core.ErrCategoryNotFound)
	}
	return nil
}

func (r *SQLiteRepository) DeleteCategory(ctx context.Context, ownerID, id string) error {
	n, err := r.queries.DeleteCategory(ctx, ownerID, id)
	if err != nil {
		return translate("delete category", err, constraintErrors{foreignKey: core.ErrCategoryInUse})
	}
	if n == 0 {
		return fmt.Errorf("delete category: %w", core.ErrCategoryNotFound)
	}
	return nil
}

// --- expenses ---

func (r *SQLiteRepository) InsertExpense(ctx context.Context, e core.Expense) error {
	if err := r.queries.InsertExpense(ctx, e); err != nil {
		return translate("insert expense", err, constraintErrors{foreignKey: core.ErrCategoryNotFound})
	}
	logger().InfoContext(ctx, "Expense saved to SQLite",
		"id", e.ID,
		log.FieldOwnerID, e.OwnerID,
		"amount", e.Amount.String(),
		"currency", e.Currency,
		"amount_in_base", e.AmountInBase.String(),
		"source", string(e.Source))
	return nil
}

func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.Expense) error {
	n, err := r.queries.UpdateExpense(ctx, e)
	if err != nil {
		return translate("update expense", err, constraintErrors{foreignKey: core.ErrCategoryNotFound})
	}
	if n == 0 {
		return fmt.Errorf("update expense: %w", core.ErrExpenseNotFound)
	}
	return nil
}

func (r *SQLiteRepository) UpdateExpenseConversion(ctx context.Context, ownerID string, c core.ExpenseConversion) error {
	n, err := r.queries.UpdateExpenseConversion(ctx, ownerID, c, formatTimestamp(r.now()))
	if err != nil {
		return translate("update expense conversion", err, constraintErrors{})
	}
	if n == 0 {
		return fmt.Errorf("update expense conversion %s: %w", c.ID, core.ErrExpenseNotFound)
	}
	return nil
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, ownerID, id string) error {
	n, err := r.queries.DeleteExpense(ctx, ownerID, id)
	if err != nil {
		return translate("delete expense", err, constraintErrors{})
	}
	if n == 0 {
		return fmt.Errorf("delete expense: %w", core.ErrExpenseNotFound)
	}
	return nil
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, ownerID, id string) (core.ExpenseWithCategory, error) {
	e, err := r.queries.GetExpense(ctx, ownerID, id)
	if err != nil {
		return core.ExpenseWithCategory{}, translate("get expense", err, constraintErrors{notFound: core.ErrExpenseNotFound})
	}
	return e, nil
}

func (r *SQLiteRepository) ListExpenses(ctx context.Context, ownerID string, f core.ExpenseFilter) (core.ExpensePage, error) {
	f = f.Normalize()
	total, err := r.queries.CountExpenses(ctx, ownerID, f)
	if err != nil {
		return core.ExpensePage{}, translate("count expenses", err, constraintErrors{})
	}
	items, err := r.queries.ListExpenses(ctx, ownerID, f)
	if err != nil {
		return core.ExpensePage{}, translate("list expenses", err, constraintErrors{})
	}
	return core.ExpensePage{Items: items, Total: total, Page: f.Page, PageSize: f.PageSize}, nil
}

func (r *SQLiteRepository) ListExpensesBetween(ctx context.Context, ownerID string, from, to core.Date) ([]core.ExpenseWithCategory, error) {
	items, err := r.queries.ListExpensesBetween(ctx, ownerID, from, to)
	if err != nil {
		return nil, translate("list expenses between", err, constraintErrors{})
	}
	return items, nil
}

func (r *SQLiteRepository) ListExpenseAmounts(ctx context.Context, ownerID string) ([]core.ExpenseAmount, error) {
	amounts, err := r.queries.ListExpenseAmounts(ctx, ownerID)
	if err != nil {
		return nil, translate("list expense amounts", err, constraintErrors{})
	}
	return amounts, nil
}

func (r *SQLiteRepository) InsertProductEvent(ctx context.Context, e core.ProductEvent) error {
	if err := r.queries.InsertProductEvent(ctx, e); err != nil {
		return translate("insert product event", err, constraintErrors{})
	}
	return nil
}

func logger() *log.Logger {
	return log.Default().WithComponent(log.ComponentStorage)
}
