package services

import (
	"context"

	"smartexpense/internal/amqp"
	"smartexpense/internal/core"
	"smartexpense/internal/log"
)

// Events publishes domain events when a publisher is configured. Failures
// are logged and swallowed: the local write has already succeeded.
type Events struct {
	publisher EventPublisher
	logger    *log.Logger
}

// NewEvents accepts a nil publisher, in which case every publish is a logged no-op.
func NewEvents(publisher EventPublisher, logger *log.Logger) *Events {
	if logger == nil {
		logger = log.Default()
	}
	return &Events{publisher: publisher, logger: logger.WithComponent(log.ComponentAMQP)}
}

func (e *Events) publish(ctx context.Context, eventType amqp.EventType, ownerID string, payload any) {
	if e == nil || e.publisher == nil {
		return
	}
	event, err := amqp.NewEvent(eventType, ownerID, payload)
	if err != nil {
		e.logger.ErrorContext(ctx, "Failed to build event", log.FieldEventType, string(eventType), log.FieldError, err)
		return
	}
	if err := e.publisher.PublishEvent(ctx, event); err != nil {
		e.logger.ErrorContext(ctx, "Failed to publish event",
			log.FieldEventType, string(eventType),
			log.FieldOwnerID, ownerID,
			log.FieldError, err)
	}
}

// ExpensesImported announces a finished CSV import.
func (e *Events) ExpensesImported(ctx context.Context, ownerID string, p amqp.ExpensesImportedPayload) {
	e.publish(ctx, amqp.EventExpensesImported, ownerID, p)
}

// BaseCurrencyChanged announces a completed migration.
func (e *Events) BaseCurrencyChanged(ctx context.Context, ownerID string, p amqp.BaseCurrencyChangedPayload) {
	e.publish(ctx, amqp.EventBaseCurrencyChanged, ownerID, p)
}

// RateDegraded matches exchange.DegradedFunc so it can be registered on the resolver.
func (e *Events) RateDegraded(ctx context.Context, pair core.CurrencyPair) {
	e.publish(ctx, amqp.EventRateDegraded, "", amqp.RateDegradedPayload{Base: pair.Base, Target: pair.Target})
}
