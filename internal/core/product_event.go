package core

import (
	"encoding/json"
	"slices"
	"time"
)

// Product event names and contexts accepted by the tracking endpoint.
var (
	ProductEventNames = []string{
		"auth_login_success",
		"auth_signup_success",
		"expense_created",
		"expense_updated",
		"expense_deleted",
		"insights_viewed",
		"insights_whatif_changed",
		"insights_goal_updated",
	}
	ProductEventContexts = []string{"auth", "expenses", "insights", "dashboard", "settings"}
)

// ProductEvent is a usage signal sent by the client.
type ProductEvent struct {
	ID        string          `json:"id"`
	OwnerID   string          `json:"owner_id"`
	Name      string          `json:"name"`
	Context   string          `json:"context"`
	Metadata  json.RawMessage `json:"metadata"`
	CreatedAt time.Time       `json:"created_at"`
}

func IsProductEventName(name string) bool {
	return slices.Contains(ProductEventNames, name)
}

func IsProductEventContext(ctx string) bool {
	return slices.Contains(ProductEventContexts, ctx)
}
