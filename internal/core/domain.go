package core

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar-date wire format used everywhere (YYYY-MM-DD).
const DateLayout = "2006-01-02"

const (
	SourceManual Source = "manual"
	SourceCSV    Source = "csv"
)

// Placeholder values written when a row or form leaves a field empty.
const (
	PlaceholderCategory    = "Sin categoría"
	PlaceholderDescription = "Sin descripción"
)

// Defaults for categories created on the fly during imports.
const (
	DefaultCategoryIcon  = "📦"
	DefaultCategoryColor = "#6B7280"
)

type (
	// Source records how an expense entered the system.
	Source string

	// Date is a calendar date at UTC midnight.
	Date struct {
		time.Time
	}

	Profile struct {
		ID           string    `json:"id"`
		DisplayName  string    `json:"display_name"`
		BaseCurrency string    `json:"base_currency"`
		UpdatedAt    time.Time `json:"updated_at"`
	}

	// Category is global when OwnerID is empty.
	Category struct {
		ID        string    `json:"id"`
		OwnerID   string    `json:"owner_id,omitempty"`
		Name      string    `json:"name"`
		Icon      string    `json:"icon"`
		Color     string    `json:"color"`
		CreatedAt time.Time `json:"created_at"`
	}

	Expense struct {
		ID               string          `json:"id"`
		OwnerID          string          `json:"owner_id"`
		CategoryID       string          `json:"category_id"`
		Description      string          `json:"description"`
		Amount           decimal.Decimal `json:"amount"`
		Currency         string          `json:"currency"`
		AmountInBase     decimal.Decimal `json:"amount_in_base"`
		ExchangeRateUsed decimal.Decimal `json:"exchange_rate_used"`
		ExpenseDate      Date            `json:"expense_date"`
		Source           Source          `json:"source"`
		CreatedAt        time.Time       `json:"created_at"`
		UpdatedAt        time.Time       `json:"updated_at"`
	}

	// CategoryRef is the category projection joined onto listed expenses.
	CategoryRef struct {
		Name  string `json:"name"`
		Icon  string `json:"icon"`
		Color string `json:"color"`
	}

	ExpenseWithCategory struct {
		Expense
		Category CategoryRef `json:"category"`
	}

	// ExpenseAmount is the minimal projection needed to recompute base amounts.
	ExpenseAmount struct {
		ID       string
		Amount   decimal.Decimal
		Currency string
	}

	// ExpenseConversion is a recomputed base amount for one expense.
	ExpenseConversion struct {
		ID               string
		AmountInBase     decimal.Decimal
		ExchangeRateUsed decimal.Decimal
	}

	ExchangeRate struct {
		Base      string          `json:"base"`
		Target    string          `json:"target"`
		Rate      decimal.Decimal `json:"rate"`
		FetchedAt Date            `json:"fetched_at"`
	}

	// CurrencyPair identifies a base/target combination.
	CurrencyPair struct {
		Base   string
		Target string
	}

	ExpenseFilter struct {
		Page       int
		PageSize   int
		CategoryID string
		From       *Date
		To         *Date
	}

	ExpensePage struct {
		Items    []ExpenseWithCategory `json:"items"`
		Total    int                   `json:"total"`
		Page     int                   `json:"page"`
		PageSize int                   `json:"page_size"`
	}
)

// DefaultPageSize is used when a listing request leaves page size unset.
const DefaultPageSize = 15

// NewDate builds a UTC calendar date. Out of range components normalise like time.Date.
func NewDate(year, month, day int) Date {
	return Date{time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its UTC calendar date.
func DateOf(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a strict YYYY-MM-DD string into a real calendar date.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if len(s) != len(DateLayout) {
		return Date{}, fmt.Errorf("date %q: expected YYYY-MM-DD", s)
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("date %q: %w", s, err)
	}
	return Date{t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// AddDays returns the date n days later (or earlier for negative n).
func (d Date) AddDays(n int) Date {
	return Date{d.Time.AddDate(0, 0, n)}
}

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("date cannot be zero")
	}
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value stores dates as TEXT.
func (d Date) Value() (driver.Value, error) {
	return d.String(), nil
}

func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case string:
		parsed, err := ParseDate(v)
		if err != nil {
			return err
		}
		*d = parsed
	case []byte:
		return d.Scan(string(v))
	case time.Time:
		*d = DateOf(v)
	case nil:
		*d = Date{}
	default:
		return fmt.Errorf("scan date: unsupported type %T", src)
	}
	return nil
}

// IsGlobal reports whether the category is shared by every owner.
func (c Category) IsGlobal() bool {
	return c.OwnerID == ""
}

// Key returns the pair as BASE:TARGET.
func (p CurrencyPair) Key() string {
	return p.Base + ":" + p.Target
}

// Offset returns the SQL offset for the filter's page.
func (f ExpenseFilter) Offset() int {
	if f.Page <= 1 {
		return 0
	}
	return (f.Page - 1) * f.PageSize
}

// Normalize fills in default paging values.
func (f ExpenseFilter) Normalize() ExpenseFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > 100 {
		f.PageSize = 100
	}
	return f
}
