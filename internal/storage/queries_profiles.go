package storage

import (
	"context"
	"time"

	"smartexpense/internal/core"
)

const getProfile = `SELECT id, display_name, base_currency, updated_at FROM profiles WHERE id = ?`

func (q *Queries) GetProfile(ctx context.Context, id string) (core.Profile, error) {
	var (
		p         core.Profile
		updatedAt string
	)
	if err := q.db.QueryRowContext(ctx, getProfile, id).Scan(&p.ID, &p.DisplayName, &p.BaseCurrency, &updatedAt); err != nil {
		return core.Profile{}, err
	}
	p.UpdatedAt = parseTimestamp(updatedAt)
	return p, nil
}

const upsertBaseCurrency = `INSERT INTO profiles (id, base_currency, updated_at)
VALUES (?, ?, ?)
ON CONFLICT (id) DO UPDATE SET base_currency = excluded.base_currency, updated_at = excluded.updated_at`

func (q *Queries) UpsertBaseCurrency(ctx context.Context, id, currency string, at time.Time) error {
	_, err := q.db.ExecContext(ctx, upsertBaseCurrency, id, currency, formatTimestamp(at))
	return err
}

const upsertDisplayName = `INSERT INTO profiles (id, display_name, base_currency, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET display_name = excluded.display_name, updated_at = excluded.updated_at`

// UpsertDisplayName sets the name, creating the profile with baseCurrency when absent.
func (q *Queries) UpsertDisplayName(ctx context.Context, id, name, baseCurrency string, at time.Time) error {
	_, err := q.db.ExecContext(ctx, upsertDisplayName, id, name, baseCurrency, formatTimestamp(at))
	return err
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTimestamp(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
