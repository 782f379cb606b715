package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"

	"smartexpense/internal/core"
)

const getRate = `SELECT rate FROM exchange_rates
WHERE base = ? AND target = ? AND fetched_at = ?`

func (q *Queries) GetRate(ctx context.Context, base, target string, day core.Date) (decimal.Decimal, bool, error) {
	var rate decimal.Decimal
	err := q.db.QueryRowContext(ctx, getRate, base, target, day).Scan(&rate)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, err
	}
	return rate, true, nil
}

const latestRate = `SELECT rate FROM exchange_rates
WHERE base = ? AND target = ?
ORDER BY fetched_at DESC
LIMIT 1`

func (q *Queries) LatestRate(ctx context.Context, base, target string) (decimal.Decimal, bool, error) {
	var rate decimal.Decimal
	err := q.db.QueryRowContext(ctx, latestRate, base, target).Scan(&rate)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, err
	}
	return rate, true, nil
}

const upsertRate = `INSERT INTO exchange_rates (base, target, rate, fetched_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (base, target, fetched_at) DO UPDATE SET rate = excluded.rate`

func (q *Queries) UpsertRate(ctx context.Context, r core.ExchangeRate) error {
	_, err := q.db.ExecContext(ctx, upsertRate, r.Base, r.Target, r.Rate, r.FetchedAt)
	return err
}

const listRatePairs = `SELECT DISTINCT base, target FROM exchange_rates ORDER BY base, target`

func (q *Queries) ListRatePairs(ctx context.Context) ([]core.CurrencyPair, error) {
	rows, err := q.db.QueryContext(ctx, listRatePairs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pairs []core.CurrencyPair
	for rows.Next() {
		var p core.CurrencyPair
		if err := rows.Scan(&p.Base, &p.Target); err != nil {
			return nil, err
		}
		pairs = append(pairs, p)
	}
	return pairs, rows.Err()
}
