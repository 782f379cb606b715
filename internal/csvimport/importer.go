package csvimport

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"smartexpense/internal/core"
	"smartexpense/internal/exchange"
	"smartexpense/internal/log"
)

const unknownInsertError = "Error desconocido al insertar"

// CategoryResolver finds a category by case-insensitive name among the
// owner's and global categories, creating an owner category when absent.
type CategoryResolver interface {
	FindOrCreate(ctx context.Context, ownerID, name string) (core.Category, error)
}

// ExpenseWriter persists a fully built expense.
type ExpenseWriter interface {
	InsertExpense(ctx context.Context, e core.Expense) error
}

// AmountConverter converts an amount into the owner's base currency.
type AmountConverter interface {
	Convert(ctx context.Context, amount decimal.Decimal, from, to string) (exchange.Conversion, error)
}

// RowResult is the per-row outcome. RowIndex is the position in the batch.
type RowResult struct {
	RowIndex        int      `json:"row_index"`
	Success         bool     `json:"success"`
	DefaultsApplied []string `json:"defaults_applied"`
	Error           string   `json:"error,omitempty"`
}

// Result summarises one import batch.
type Result struct {
	Inserted  int         `json:"inserted"`
	Defaulted int         `json:"defaulted"`
	Errors    int         `json:"errors"`
	Discarded int         `json:"discarded"`
	Details   []RowResult `json:"details"`
}

// Importer inserts validated rows one at a time.
type Importer struct {
	categories CategoryResolver
	expenses   ExpenseWriter
	converter  AmountConverter
	logger     *log.Logger
	now        func() time.Time
	newID      func() string
}

// NewImporter wires an importer. logger may be nil.
func NewImporter(categories CategoryResolver, expenses ExpenseWriter, converter AmountConverter, logger *log.Logger) *Importer {
	if logger == nil {
		logger = log.Default()
	}
	return &Importer{
		categories: categories,
		expenses:   expenses,
		converter:  converter,
		logger:     logger.WithComponent(log.ComponentImport),
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// ImportBatch processes rows in order. A failing row is reported and the
// next row is attempted; the batch itself never fails. Every input index
// appears exactly once in Details.
func (im *Importer) ImportBatch(ctx context.Context, ownerID, baseCurrency string, rows []ValidatedRow) Result {
	result := Result{Details: make([]RowResult, 0, len(rows))}
	categoryIDs := make(map[string]string)

	for i, row := range rows {
		detail := RowResult{RowIndex: i, DefaultsApplied: row.DefaultsApplied}
		if detail.DefaultsApplied == nil {
			detail.DefaultsApplied = []string{}
		}

		if err := im.importRow(ctx, ownerID, baseCurrency, row, categoryIDs); err != nil {
			result.Errors++
			detail.Error = rowErrorMessage(err)
			im.logger.WarnContext(ctx, "CSV row failed",
				log.FieldOwnerID, ownerID,
				log.FieldRowIndex, i,
				log.FieldErrorKind, core.KindOf(err).String(),
				log.FieldError, err)
		} else {
			result.Inserted++
			detail.Success = true
			if len(row.DefaultsApplied) > 0 {
				result.Defaulted++
			}
		}
		result.Details = append(result.Details, detail)
	}

	im.logger.InfoContext(ctx, "CSV batch imported",
		log.FieldOwnerID, ownerID,
		"inserted", result.Inserted,
		"defaulted", result.Defaulted,
		"errors", result.Errors)
	return result
}

func (im *Importer) importRow(ctx context.Context, ownerID, baseCurrency string, row ValidatedRow, categoryIDs map[string]string) error {
	if row.Discarded {
		return core.Validation("import row", row.DiscardReason)
	}
	if err := ctx.Err(); err != nil {
		return core.Internal("import row", err)
	}

	key := strings.ToLower(strings.TrimSpace(row.Category))
	categoryID, ok := categoryIDs[key]
	if !ok {
		category, err := im.categories.FindOrCreate(ctx, ownerID, row.Category)
		if err != nil {
			return err
		}
		categoryID = category.ID
		categoryIDs[key] = categoryID
	}

	conv, err := im.converter.Convert(ctx, row.Amount, row.Currency, baseCurrency)
	if err != nil {
		return err
	}

	now := im.now().UTC()
	return im.expenses.InsertExpense(ctx, core.Expense{
		ID:               im.newID(),
		OwnerID:          ownerID,
		CategoryID:       categoryID,
		Description:      row.Description,
		Amount:           row.Amount,
		Currency:         row.Currency,
		AmountInBase:     conv.AmountInBase,
		ExchangeRateUsed: conv.ExchangeRateUsed,
		ExpenseDate:      row.ExpenseDate,
		Source:           core.SourceCSV,
		CreatedAt:        now,
		UpdatedAt:        now,
	})
}

// rowErrorMessage prefers the user facing message of a typed error and
// falls back to the raw error text, then to a generic message.
func rowErrorMessage(err error) string {
	if msg := core.Message(err, ""); msg != "" {
		return msg
	}
	if err.Error() != "" {
		return err.Error()
	}
	return unknownInsertError
}
