package csvimport

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"smartexpense/internal/core"
)

// Messages used for rows the CSV reader itself could not decode.
const (
	noteMalformedRow   = "Fila con formato inválido"
	reasonMalformedRow = "Formato de fila inválido"
)

// ErrEmptyFile is returned when the input has no header row.
var ErrEmptyFile = core.Validation("parse csv", "El archivo CSV está vacío")

// ParseResult splits a file into rows ready for import and discarded rows.
type ParseResult struct {
	ValidRows     []ValidatedRow `json:"valid_rows"`
	DiscardedRows []ValidatedRow `json:"discarded_rows"`
	TotalRows     int            `json:"total_rows"`
	// DefaultsCount is the number of valid rows that needed at least one default.
	DefaultsCount int `json:"defaults_count"`
}

// Parse reads a header-first CSV (columns date, amount, currency, category,
// description in any order, case-insensitive) and validates every data row.
// Blank lines are skipped. Missing columns read as empty strings. Records
// the CSV reader cannot decode (broken quoting) become discarded rows.
func Parse(r io.Reader, baseCurrency string, v *Validator) (ParseResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return ParseResult{}, ErrEmptyFile
	}
	if err != nil {
		return ParseResult{}, core.Validation("parse csv header", "No se pudo leer la cabecera del CSV")
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, seen := index[name]; !seen {
			index[name] = i
		}
	}
	field := func(record []string, name string) string {
		if i, ok := index[name]; ok && i < len(record) {
			return record[i]
		}
		return ""
	}

	result := ParseResult{ValidRows: []ValidatedRow{}, DiscardedRows: []ValidatedRow{}}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			result.TotalRows++
			result.DiscardedRows = append(result.DiscardedRows, ValidatedRow{
				Currency:        baseCurrency,
				Category:        core.PlaceholderCategory,
				Description:     core.PlaceholderDescription,
				DefaultsApplied: []string{noteMalformedRow},
				Discarded:       true,
				DiscardReason:   reasonMalformedRow,
			})
			continue
		}
		if err != nil {
			return ParseResult{}, fmt.Errorf("read csv: %w", err)
		}
		if isBlank(record) {
			continue
		}

		result.TotalRows++
		row := v.Validate(RawRow{
			Date:        field(record, "date"),
			Amount:      field(record, "amount"),
			Currency:    field(record, "currency"),
			Category:    field(record, "category"),
			Description: field(record, "description"),
		}, baseCurrency)

		if row.Discarded {
			result.DiscardedRows = append(result.DiscardedRows, row)
			continue
		}
		if len(row.DefaultsApplied) > 0 {
			result.DefaultsCount++
		}
		result.ValidRows = append(result.ValidRows, row)
	}

	return result, nil
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
