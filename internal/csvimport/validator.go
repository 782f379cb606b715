// Package csvimport turns bank-export style CSV files into expenses.
//
// Rows are first normalised by Validator, which fills gaps with defaults
// and records a human readable note for each one, and then inserted one by
// one by Importer, which never stops at the first failing row.
package csvimport

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"smartexpense/internal/core"
)

// Notes recorded in ValidatedRow.DefaultsApplied.
const (
	NoteDateToday       = "date → hoy"
	NoteDateFuture      = "date → hoy (era futura)"
	NoteAmountAbs       = "amount → abs()"
	NoteCategoryDefault = "category → 'Sin categoría'"
	NoteDescDefault     = "description → 'Sin descripción'"
)

var dateShape = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// RawRow is a CSV row keyed by lower-cased header.
type RawRow struct {
	Date        string `json:"date"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

// ValidatedRow is a row after defaults were applied. When Discarded is true
// only DiscardReason, DefaultsApplied and the placeholder fields are meaningful.
type ValidatedRow struct {
	ExpenseDate     core.Date       `json:"expense_date"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	Category        string          `json:"category"`
	Description     string          `json:"description"`
	DefaultsApplied []string        `json:"defaults_applied"`
	Discarded       bool            `json:"discarded"`
	DiscardReason   string          `json:"discard_reason,omitempty"`
}

// Raw renders the row back into its canonical raw form.
func (r ValidatedRow) Raw() RawRow {
	return RawRow{
		Date:        r.ExpenseDate.String(),
		Amount:      r.Amount.String(),
		Currency:    r.Currency,
		Category:    r.Category,
		Description: r.Description,
	}
}

// Validator applies row defaults relative to a clock.
type Validator struct {
	now func() time.Time
}

// NewValidator creates a validator. A nil clock uses time.Now.
func NewValidator(now func() time.Time) *Validator {
	if now == nil {
		now = time.Now
	}
	return &Validator{now: now}
}

// Validate normalises one raw row. It never fails: unusable amounts mark
// the row as discarded instead.
func (v *Validator) Validate(raw RawRow, baseCurrency string) ValidatedRow {
	defaults := []string{}
	today := core.DateOf(v.now())

	date, err := core.ParseDate(raw.Date)
	switch {
	case !dateShape.MatchString(strings.TrimSpace(raw.Date)) || err != nil:
		date = today
		defaults = append(defaults, NoteDateToday)
	case date.After(today.AddDays(1).Time):
		date = today
		defaults = append(defaults, NoteDateFuture)
	}

	amount, err := core.ParseAmount(raw.Amount)
	if err != nil || amount.IsZero() {
		return ValidatedRow{
			ExpenseDate:     date,
			Currency:        baseCurrency,
			Category:        orDefault(strings.TrimSpace(raw.Category), core.PlaceholderCategory),
			Description:     orDefault(strings.TrimSpace(raw.Description), core.PlaceholderDescription),
			DefaultsApplied: defaults,
			Discarded:       true,
			DiscardReason:   `Monto inválido: "` + raw.Amount + `"`,
		}
	}
	if amount.IsNegative() {
		amount = amount.Abs()
		defaults = append(defaults, NoteAmountAbs)
	}

	currency := core.NormalizeCurrency(raw.Currency)
	switch {
	case currency == "":
		currency = baseCurrency
		defaults = append(defaults, "currency → "+baseCurrency)
	case !core.IsSupportedCurrency(currency):
		defaults = append(defaults, fmt.Sprintf(`currency → %s (no reconocido: "%s")`, baseCurrency, strings.TrimSpace(raw.Currency)))
		currency = baseCurrency
	}

	category := strings.TrimSpace(raw.Category)
	if category == "" {
		category = core.PlaceholderCategory
		defaults = append(defaults, NoteCategoryDefault)
	}

	description := strings.TrimSpace(raw.Description)
	if description == "" {
		description = core.PlaceholderDescription
		defaults = append(defaults, NoteDescDefault)
	}

	return ValidatedRow{
		ExpenseDate:     date,
		Amount:          amount,
		Currency:        currency,
		Category:        category,
		Description:     description,
		DefaultsApplied: defaults,
	}
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
