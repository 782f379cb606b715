package csvimport

import (
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func fixedNow() time.Time {
	return time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)
}

func TestValidateAppliesDefaults(t *testing.T) {
	v := NewValidator(fixedNow)

	tests := []struct {
		name         string
		raw          RawRow
		wantDate     string
		wantAmount   string
		wantCurrency string
		wantCategory string
		wantDesc     string
		wantDefaults []string
	}{
		{
			name:         "clean row",
			raw:          RawRow{Date: "2026-02-01", Amount: "45.50", Currency: "eur", Category: "Comida", Description: "Cena"},
			wantDate:     "2026-02-01",
			wantAmount:   "45.5",
			wantCurrency: "EUR",
			wantCategory: "Comida",
			wantDesc:     "Cena",
			wantDefaults: []string{},
		},
		{
			name:         "everything defaulted but amount",
			raw:          RawRow{Date: "", Amount: "-12,3", Currency: "XYZ", Category: " ", Description: ""},
			wantDate:     "2026-03-10",
			wantAmount:   "12.3",
			wantCurrency: "USD",
			wantCategory: "Sin categoría",
			wantDesc:     "Sin descripción",
			wantDefaults: []string{
				"date → hoy",
				"amount → abs()",
				`currency → USD (no reconocido: "XYZ")`,
				"category → 'Sin categoría'",
				"description → 'Sin descripción'",
			},
		},
		{
			name:         "padded unknown currency is quoted trimmed",
			raw:          RawRow{Date: "2026-03-01", Amount: "5", Currency: "  xyz ", Category: "Ocio", Description: "Cine"},
			wantDate:     "2026-03-01",
			wantAmount:   "5",
			wantCurrency: "USD",
			wantCategory: "Ocio",
			wantDesc:     "Cine",
			wantDefaults: []string{`currency → USD (no reconocido: "xyz")`},
		},
		{
			name:         "empty currency",
			raw:          RawRow{Date: "2026-03-01", Amount: "5", Category: "Ocio", Description: "Cine"},
			wantDate:     "2026-03-01",
			wantAmount:   "5",
			wantCurrency: "USD",
			wantCategory: "Ocio",
			wantDesc:     "Cine",
			wantDefaults: []string{"currency → USD"},
		},
		{
			name:         "impossible calendar date",
			raw:          RawRow{Date: "2026-02-30", Amount: "5", Currency: "USD", Category: "Ocio", Description: "Cine"},
			wantDate:     "2026-03-10",
			wantAmount:   "5",
			wantCurrency: "USD",
			wantCategory: "Ocio",
			wantDesc:     "Cine",
			wantDefaults: []string{"date → hoy"},
		},
		{
			name:         "tomorrow is within grace",
			raw:          RawRow{Date: "2026-03-11", Amount: "5", Currency: "USD", Category: "Ocio", Description: "Cine"},
			wantDate:     "2026-03-11",
			wantAmount:   "5",
			wantCurrency: "USD",
			wantCategory: "Ocio",
			wantDesc:     "Cine",
			wantDefaults: []string{},
		},
		{
			name:         "day after tomorrow is future",
			raw:          RawRow{Date: "2026-03-12", Amount: "5", Currency: "USD", Category: "Ocio", Description: "Cine"},
			wantDate:     "2026-03-10",
			wantAmount:   "5",
			wantCurrency: "USD",
			wantCategory: "Ocio",
			wantDesc:     "Cine",
			wantDefaults: []string{"date → hoy (era futura)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := v.Validate(tt.raw, "USD")
			if got.Discarded {
				t.Fatalf("unexpected discard: %s", got.DiscardReason)
			}
			if got.ExpenseDate.String() != tt.wantDate {
				t.Errorf("expected date %s, got %s", tt.wantDate, got.ExpenseDate)
			}
			if !got.Amount.Equal(decimal.RequireFromString(tt.wantAmount)) {
				t.Errorf("expected amount %s, got %s", tt.wantAmount, got.Amount)
			}
			if got.Currency != tt.wantCurrency {
				t.Errorf("expected currency %s, got %s", tt.wantCurrency, got.Currency)
			}
			if got.Category != tt.wantCategory || got.Description != tt.wantDesc {
				t.Errorf("expected %q/%q, got %q/%q", tt.wantCategory, tt.wantDesc, got.Category, got.Description)
			}
			if !reflect.DeepEqual(got.DefaultsApplied, tt.wantDefaults) {
				t.Errorf("expected defaults %q, got %q", tt.wantDefaults, got.DefaultsApplied)
			}
		})
	}
}

func TestValidateDiscardsUnusableAmounts(t *testing.T) {
	v := NewValidator(fixedNow)

	for _, amount := range []string{"abc", "", "0", "0,00", "12.3.4", "12.50 USD"} {
		got := v.Validate(RawRow{Date: "2026-01-01", Amount: amount, Currency: "XYZ"}, "EUR")
		if !got.Discarded {
			t.Errorf("amount %q: expected discard", amount)
			continue
		}
		want := `Monto inválido: "` + amount + `"`
		if got.DiscardReason != want {
			t.Errorf("amount %q: expected reason %q, got %q", amount, want, got.DiscardReason)
		}
		if got.Currency != "EUR" || got.Category != "Sin categoría" || got.Description != "Sin descripción" {
			t.Errorf("amount %q: expected placeholders on discarded row, got %+v", amount, got)
		}
	}
}

func TestValidateDiscardedRowKeepsEarlierDefaults(t *testing.T) {
	got := NewValidator(fixedNow).Validate(RawRow{Amount: "abc", Currency: "XYZ"}, "USD")
	if !got.Discarded {
		t.Fatal("expected discard")
	}
	if !reflect.DeepEqual(got.DefaultsApplied, []string{"date → hoy"}) {
		t.Errorf("expected only the date default, got %q", got.DefaultsApplied)
	}
}

func TestValidateIsIdempotentOnCanonicalRows(t *testing.T) {
	v := NewValidator(fixedNow)
	first := v.Validate(RawRow{Date: "", Amount: "-7,25", Currency: "", Category: "", Description: ""}, "USD")

	second := v.Validate(first.Raw(), "USD")

	if len(second.DefaultsApplied) != 0 {
		t.Errorf("expected no defaults on second pass, got %q", second.DefaultsApplied)
	}
	if !second.Amount.Equal(first.Amount) || !second.ExpenseDate.Equal(first.ExpenseDate.Time) ||
		second.Currency != first.Currency || second.Category != first.Category ||
		second.Description != first.Description {
		t.Errorf("expected identical rows, got %+v and %+v", first, second)
	}
}

func TestValidateDiscardedRowKeepsTrimmedText(t *testing.T) {
	got := NewValidator(fixedNow).Validate(RawRow{Date: "2026-01-01", Amount: "n/a", Category: "  Ocio ", Description: " Cine"}, "USD")
	if !got.Discarded {
		t.Fatal("expected discard")
	}
	if got.Category != "Ocio" || got.Description != "Cine" {
		t.Errorf("expected trimmed category and description, got %q/%q", got.Category, got.Description)
	}
}
