package storage

import (
	"context"
	"strings"

	"smartexpense/internal/core"
)

const expenseColumns = `e.id, e.owner_id, e.category_id, e.description, e.amount, e.currency,
e.amount_in_base, e.exchange_rate_used, e.expense_date, e.source, e.created_at, e.updated_at,
c.name, c.icon, c.color`

const expenseFrom = ` FROM expenses e JOIN categories c ON c.id = e.category_id`

func scanExpense(row interface{ Scan(...any) error }) (core.ExpenseWithCategory, error) {
	var (
		e                    core.ExpenseWithCategory
		createdAt, updatedAt string
	)
	err := row.Scan(
		&e.ID, &e.OwnerID, &e.CategoryID, &e.Description, &e.Amount, &e.Currency,
		&e.AmountInBase, &e.ExchangeRateUsed, &e.ExpenseDate, &e.Source, &createdAt, &updatedAt,
		&e.Category.Name, &e.Category.Icon, &e.Category.Color,
	)
	if err != nil {
		return core.ExpenseWithCategory{}, err
	}
	e.CreatedAt = parseTimestamp(createdAt)
	e.UpdatedAt = parseTimestamp(updatedAt)
	return e, nil
}

const insertExpense = `INSERT INTO expenses (
    id, owner_id, category_id, description, amount, currency,
    amount_in_base, exchange_rate_used, expense_date, source, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertExpense(ctx context.Context, e core.Expense) error {
	_, err := q.db.ExecContext(ctx, insertExpense,
		e.ID, e.OwnerID, e.CategoryID, e.Description, e.Amount, e.Currency,
		e.AmountInBase, e.ExchangeRateUsed, e.ExpenseDate, string(e.Source),
		formatTimestamp(e.CreatedAt), formatTimestamp(e.UpdatedAt))
	return err
}

const updateExpense = `UPDATE expenses SET
    category_id = ?, description = ?, amount = ?, currency = ?,
    amount_in_base = ?, exchange_rate_used = ?, expense_date = ?, updated_at = ?
WHERE id = ? AND owner_id = ?`

func (q *Queries) UpdateExpense(ctx context.Context, e core.Expense) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateExpense,
		e.CategoryID, e.Description, e.Amount, e.Currency,
		e.AmountInBase, e.ExchangeRateUsed, e.ExpenseDate, formatTimestamp(e.UpdatedAt),
		e.ID, e.OwnerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const updateExpenseConversion = `UPDATE expenses SET amount_in_base = ?, exchange_rate_used = ?, updated_at = ?
WHERE id = ? AND owner_id = ?`

func (q *Queries) UpdateExpenseConversion(ctx context.Context, ownerID string, c core.ExpenseConversion, at string) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateExpenseConversion, c.AmountInBase, c.ExchangeRateUsed, at, c.ID, ownerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteExpense = `DELETE FROM expenses WHERE id = ? AND owner_id = ?`

func (q *Queries) DeleteExpense(ctx context.Context, ownerID, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteExpense, id, ownerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const getExpense = `SELECT ` + expenseColumns + expenseFrom + ` WHERE e.id = ? AND e.owner_id = ?`

func (q *Queries) GetExpense(ctx context.Context, ownerID, id string) (core.ExpenseWithCategory, error) {
	return scanExpense(q.db.QueryRowContext(ctx, getExpense, id, ownerID))
}

// expenseFilterClause builds the WHERE clause shared by the list and count queries.
func expenseFilterClause(ownerID string, f core.ExpenseFilter) (string, []any) {
	conds := []string{"e.owner_id = ?"}
	args := []any{ownerID}
	if f.CategoryID != "" {
		conds = append(conds, "e.category_id = ?")
		args = append(args, f.CategoryID)
	}
	if f.From != nil {
		conds = append(conds, "e.expense_date >= ?")
		args = append(args, *f.From)
	}
	if f.To != nil {
		conds = append(conds, "e.expense_date < ?")
		args = append(args, *f.To)
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (q *Queries) CountExpenses(ctx context.Context, ownerID string, f core.ExpenseFilter) (int, error) {
	where, args := expenseFilterClause(ownerID, f)
	var n int
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM expenses e`+where, args...).Scan(&n)
	return n, err
}

func (q *Queries) ListExpenses(ctx context.Context, ownerID string, f core.ExpenseFilter) ([]core.ExpenseWithCategory, error) {
	where, args := expenseFilterClause(ownerID, f)
	query := `SELECT ` + expenseColumns + expenseFrom + where +
		` ORDER BY e.expense_date DESC, e.created_at DESC LIMIT ? OFFSET ?`
	args = append(args, f.PageSize, f.Offset())
	return q.queryExpenses(ctx, query, args...)
}

const listExpensesBetween = `SELECT ` + expenseColumns + expenseFrom + `
WHERE e.owner_id = ? AND e.expense_date >= ? AND e.expense_date < ?
ORDER BY e.expense_date, e.created_at`

func (q *Queries) ListExpensesBetween(ctx context.Context, ownerID string, from, to core.Date) ([]core.ExpenseWithCategory, error) {
	return q.queryExpenses(ctx, listExpensesBetween, ownerID, from, to)
}

func (q *Queries) queryExpenses(ctx context.Context, query string, args ...any) ([]core.ExpenseWithCategory, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []core.ExpenseWithCategory{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

const listExpenseAmounts = `SELECT id, amount, currency FROM expenses WHERE owner_id = ? ORDER BY id`

func (q *Queries) ListExpenseAmounts(ctx context.Context, ownerID string) ([]core.ExpenseAmount, error) {
	rows, err := q.db.QueryContext(ctx, listExpenseAmounts, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.ExpenseAmount
	for rows.Next() {
		var a core.ExpenseAmount
		if err := rows.Scan(&a.ID, &a.Amount, &a.Currency); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
