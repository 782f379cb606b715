package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType names a domain event published on the exchange.
type EventType string

const (
	EventExpensesImported    EventType = "expenses.imported"
	EventBaseCurrencyChanged EventType = "profile.base_currency_changed"
	EventRateDegraded        EventType = "rate.degraded"
)

// Event is the envelope for every message. Payload holds the type specific body.
type Event struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	OwnerID   string          `json:"owner_id,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// ExpensesImportedPayload summarises a finished CSV import.
type ExpensesImportedPayload struct {
	Inserted  int `json:"inserted"`
	Defaulted int `json:"defaulted"`
	Errors    int `json:"errors"`
	Discarded int `json:"discarded"`
}

// BaseCurrencyChangedPayload describes a completed base-currency migration.
type BaseCurrencyChangedPayload struct {
	OldCurrency string `json:"old_currency"`
	NewCurrency string `json:"new_currency"`
	Migrated    int    `json:"migrated"`
}

// RateDegradedPayload identifies a pair that resolved to the identity rate.
type RateDegradedPayload struct {
	Base   string `json:"base"`
	Target string `json:"target"`
}

// NewEvent wraps payload in an envelope with a fresh id and timestamp.
func NewEvent(eventType EventType, ownerID string, payload any) (*Event, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		OwnerID:   ownerID,
		Timestamp: time.Now().UTC(),
		Payload:   body,
	}, nil
}

// Decode unmarshals the payload into v.
func (e *Event) Decode(v any) error {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return nil
}

// ToJSON converts the event to JSON bytes
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// EventFromJSON parses an event envelope. Envelopes without a type are rejected.
func EventFromJSON(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	if e.Type == "" {
		return nil, fmt.Errorf("event without type")
	}
	return &e, nil
}
