package storage

import (
	"context"
	"database/sql"

	"smartexpense/internal/core"
)

const categoryColumns = `id, owner_id, name, icon, color, created_at`

func scanCategory(row interface{ Scan(...any) error }) (core.Category, error) {
	var (
		c         core.Category
		owner     sql.NullString
		createdAt string
	)
	if err := row.Scan(&c.ID, &owner, &c.Name, &c.Icon, &c.Color, &createdAt); err != nil {
		return core.Category{}, err
	}
	c.OwnerID = owner.String
	c.CreatedAt = parseTimestamp(createdAt)
	return c, nil
}

// Owner categories sort before global ones with the same name.
const listCategories = `SELECT ` + categoryColumns + ` FROM categories
WHERE owner_id IS NULL OR owner_id = ?
ORDER BY name COLLATE NOCASE, owner_id IS NULL`

func (q *Queries) ListCategories(ctx context.Context, ownerID string) ([]core.Category, error) {
	rows, err := q.db.QueryContext(ctx, listCategories, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := []core.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

const getCategory = `SELECT ` + categoryColumns + ` FROM categories
WHERE id = ? AND (owner_id IS NULL OR owner_id = ?)`

func (q *Queries) GetCategory(ctx context.Context, ownerID, id string) (core.Category, error) {
	return scanCategory(q.db.QueryRowContext(ctx, getCategory, id, ownerID))
}

const insertCategory = `INSERT INTO categories (id, owner_id, name, icon, color, created_at)
VALUES (?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertCategory(ctx context.Context, c core.Category) error {
	_, err := q.db.ExecContext(ctx, insertCategory,
		c.ID, nullString(c.OwnerID), c.Name, c.Icon, c.Color, formatTimestamp(c.CreatedAt))
	return err
}

const updateCategory = `UPDATE categories SET name = ?, icon = ?, color = ?
WHERE id = ? AND owner_id = ?`

func (q *Queries) UpdateCategory(ctx context.Context, c core.Category) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateCategory, c.Name, c.Icon, c.Color, c.ID, c.OwnerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteCategory = `DELETE FROM categories WHERE id = ? AND owner_id = ?`

func (q *Queries) DeleteCategory(ctx context.Context, ownerID, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteCategory, id, ownerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
