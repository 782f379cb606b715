package storage

import (
	"context"

	"smartexpense/internal/core"
)

const insertProductEvent = `INSERT INTO product_events (id, owner_id, event_name, event_context, metadata, created_at)
VALUES (?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertProductEvent(ctx context.Context, e core.ProductEvent) error {
	metadata := string(e.Metadata)
	if metadata == "" {
		metadata = "{}"
	}
	_, err := q.db.ExecContext(ctx, insertProductEvent,
		e.ID, e.OwnerID, e.Name, e.Context, metadata, formatTimestamp(e.CreatedAt))
	return err
}

const countProductEvents = `SELECT COUNT(*) FROM product_events WHERE owner_id = ? AND event_name = ?`

func (q *Queries) CountProductEvents(ctx context.Context, ownerID, name string) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx, countProductEvents, ownerID, name).Scan(&n)
	return n, err
}
