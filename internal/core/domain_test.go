package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseDate(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"2026-02-01", true},
		{"2024-02-29", true},
		{"2026-02-30", false},
		{"2026-2-1", false},
		{"01/02/2026", false},
		{"", false},
	}
	for _, tc := range cases {
		_, err := ParseDate(tc.in)
		if tc.ok && err != nil {
			t.Errorf("ParseDate(%q) expected ok, got %v", tc.in, err)
		}
		if !tc.ok && err == nil {
			t.Errorf("ParseDate(%q) expected error", tc.in)
		}
	}
}

func TestDateOfTruncatesToUTC(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	d := DateOf(time.Date(2026, 3, 10, 22, 0, 0, 0, loc))
	if d.String() != "2026-03-11" {
		t.Errorf("expected 2026-03-11, got %s", d)
	}
}

func TestDateJSONRoundTrip(t *testing.T) {
	in := NewDate(2026, 1, 31)
	b, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"2026-01-31"` {
		t.Fatalf("unexpected JSON %s", b)
	}
	var out Date
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !out.Equal(in.Time) {
		t.Errorf("expected %s, got %s", in, out)
	}
}

func TestDateScan(t *testing.T) {
	var d Date
	if err := d.Scan("2025-12-24"); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if d.String() != "2025-12-24" {
		t.Errorf("expected 2025-12-24, got %s", d)
	}
	if err := d.Scan(42); err == nil {
		t.Error("expected error scanning int")
	}
}

func TestDateValidate(t *testing.T) {
	if err := NewDate(2025, 1, 1).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Date{}).Validate(); err == nil {
		t.Fatal("expected error for zero date")
	}
}

func TestSupportedCurrencies(t *testing.T) {
	if len(SupportedCurrencies) != 12 {
		t.Fatalf("expected 12 currencies, got %d", len(SupportedCurrencies))
	}
	for _, code := range []string{"USD", "EUR", "CZK", "JPY", "CAD"} {
		if !IsSupportedCurrency(code) {
			t.Errorf("expected %s to be supported", code)
		}
	}
	if IsSupportedCurrency("XYZ") || IsSupportedCurrency("usd") {
		t.Error("expected XYZ and lower-case usd to be unsupported")
	}
	if NormalizeCurrency(" eur ") != "EUR" {
		t.Error("expected NormalizeCurrency to trim and upper-case")
	}
}

func TestRoundMoney(t *testing.T) {
	cases := map[string]string{
		"1.005": "1.01",
		"1.004": "1",
		"45.5":  "45.5",
		"2.675": "2.68",
		"0.125": "0.13",
		"9.999": "10",
	}
	for in, want := range cases {
		got := RoundMoney(decimal.RequireFromString(in))
		if !got.Equal(decimal.RequireFromString(want)) {
			t.Errorf("RoundMoney(%s) = %s, want %s", in, got, want)
		}
	}
}

func TestConvertAmount(t *testing.T) {
	got := ConvertAmount(decimal.RequireFromString("100"), decimal.RequireFromString("0.92"))
	if !got.Equal(decimal.RequireFromString("92")) {
		t.Errorf("expected 92.00, got %s", got)
	}
	got = ConvertAmount(decimal.RequireFromString("500"), decimal.RequireFromString("0.04321"))
	if got.StringFixed(2) != "21.61" {
		t.Errorf("expected 21.61, got %s", got.StringFixed(2))
	}
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"12.50", "12.5", true},
		{"12,50", "12.5", true},
		{" -3 ", "-3", true},
		{"abc", "", false},
		{"", "", false},
		{"1,2,3", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil {
				t.Errorf("ParseAmount(%q) unexpected error %v", tc.in, err)
				continue
			}
			if !got.Equal(decimal.RequireFromString(tc.want)) {
				t.Errorf("ParseAmount(%q) = %s, want %s", tc.in, got, tc.want)
			}
		} else if err == nil {
			t.Errorf("ParseAmount(%q) expected error", tc.in)
		}
	}
}

func TestValidateAmount(t *testing.T) {
	if err := ValidateAmount(decimal.RequireFromString("0.01")); err != nil {
		t.Errorf("expected ok, got %v", err)
	}
	if err := ValidateAmount(decimal.Zero); !IsKind(err, KindValidation) {
		t.Errorf("expected validation error for zero, got %v", err)
	}
	if err := ValidateAmount(decimal.RequireFromString("1000000000")); !IsKind(err, KindValidation) {
		t.Errorf("expected validation error for huge amount, got %v", err)
	}
}

func TestErrorKinds(t *testing.T) {
	wrapped := fmt.Errorf("insert category: %w", ErrDuplicateCategory)
	if KindOf(wrapped) != KindConflict {
		t.Errorf("expected conflict, got %s", KindOf(wrapped))
	}
	if !errors.Is(wrapped, ErrDuplicateCategory) {
		t.Error("expected errors.Is to match sentinel through wrapping")
	}
	if errors.Is(wrapped, ErrCategoryInUse) {
		t.Error("did not expect match against a different conflict")
	}
	if Message(wrapped, "fallback") != "Ya existe una categoría con ese nombre" {
		t.Errorf("unexpected message %q", Message(wrapped, "fallback"))
	}
	if KindOf(errors.New("boom")) != KindInternal {
		t.Error("plain errors should be internal")
	}
	if Message(errors.New("boom"), "fallback") != "fallback" {
		t.Error("plain errors should use the fallback message")
	}

	up := Upstream("fetch rate", errors.New("timeout"))
	if !IsKind(fmt.Errorf("wrap: %w", up), KindUpstream) {
		t.Error("expected upstream kind")
	}
	if !errors.Is(up, up.Err) {
		t.Error("expected Unwrap to expose the cause")
	}
}

func TestExpenseFilterNormalize(t *testing.T) {
	f := ExpenseFilter{}.Normalize()
	if f.Page != 1 || f.PageSize != DefaultPageSize {
		t.Errorf("unexpected defaults %+v", f)
	}
	f = ExpenseFilter{Page: 3, PageSize: 15}.Normalize()
	if f.Offset() != 30 {
		t.Errorf("expected offset 30, got %d", f.Offset())
	}
}
