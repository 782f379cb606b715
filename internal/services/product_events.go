package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"smartexpense/internal/core"
	"smartexpense/internal/log"
)

// ProductEventInput is one client usage event before validation.
type ProductEventInput struct {
	Name     string
	Context  string
	Metadata json.RawMessage
}

// ProductEvents stores allow-listed usage events.
type ProductEvents struct {
	store  ProductEventStore
	logger *log.Logger
	now    func() time.Time
	newID  func() string
}

func NewProductEvents(store ProductEventStore, logger *log.Logger) *ProductEvents {
	if logger == nil {
		logger = log.Default()
	}
	return &ProductEvents{
		store:  store,
		logger: logger.WithComponent(log.ComponentTracking),
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Track validates in against the allow-lists and stores it. Metadata must be
// a JSON object when present.
func (p *ProductEvents) Track(ctx context.Context, ownerID string, in ProductEventInput) (core.ProductEvent, error) {
	if !core.IsProductEventName(in.Name) || !core.IsProductEventContext(in.Context) {
		return core.ProductEvent{}, core.Validation("track product event", "Invalid payload")
	}
	metadata := in.Metadata
	if len(metadata) == 0 || string(metadata) == "null" {
		metadata = json.RawMessage("{}")
	}
	var obj map[string]any
	if err := json.Unmarshal(metadata, &obj); err != nil {
		return core.ProductEvent{}, core.Validation("track product event", "Invalid payload")
	}

	e := core.ProductEvent{
		ID:        p.newID(),
		OwnerID:   ownerID,
		Name:      in.Name,
		Context:   in.Context,
		Metadata:  metadata,
		CreatedAt: p.now().UTC(),
	}
	if err := p.store.InsertProductEvent(ctx, e); err != nil {
		p.logger.WarnContext(ctx, "Product event not stored",
			log.FieldOwnerID, ownerID,
			log.FieldEventType, in.Name,
			log.FieldError, err)
		return e, fmt.Errorf("store product event: %w", err)
	}
	return e, nil
}
