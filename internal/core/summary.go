package core

import "github.com/shopspring/decimal"

// CategorySpending aggregates one category's spend within a month.
type CategorySpending struct {
	CategoryID string          `json:"category_id"`
	Name       string          `json:"name"`
	Icon       string          `json:"icon"`
	Color      string          `json:"color"`
	Total      decimal.Decimal `json:"total"`
	Count      int             `json:"count"`
	Percentage float64         `json:"percentage"`
}

// MonthlySummary is the dashboard view of a single month in the owner's base currency.
type MonthlySummary struct {
	Year              int                `json:"year"`
	Month             int                `json:"month"`
	BaseCurrency      string             `json:"base_currency"`
	Total             decimal.Decimal    `json:"total"`
	Count             int                `json:"count"`
	AvgPerExpense     decimal.Decimal    `json:"avg_per_expense"`
	CategoryBreakdown []CategorySpending `json:"category_breakdown"`
}
