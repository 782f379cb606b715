// Package insights derives month analytics from expenses that are already
// expressed in the owner's base currency.
package insights

import (
	"github.com/shopspring/decimal"
)

// Idea severities.
const (
	SeverityInfo    = "info"
	SeveritySuccess = "success"
	SeverityWarning = "warning"
)

// Health labels.
const (
	HealthSolid  = "Sólida"
	HealthStable = "Estable"
	HealthAtRisk = "En riesgo"
)

const (
	solidThreshold  = 75
	stableThreshold = 55
)

type (
	MonthlyTrendPoint struct {
		Key   string          `json:"key"`
		Month string          `json:"month"`
		Total decimal.Decimal `json:"total"`
		Count int             `json:"count"`
		Avg   decimal.Decimal `json:"avg"`
	}

	CategoryInsight struct {
		Name  string          `json:"name"`
		Icon  string          `json:"icon"`
		Color string          `json:"color"`
		Total decimal.Decimal `json:"total"`
		// Share is the percentage of the month total, one decimal place.
		Share float64 `json:"share"`
		Count int     `json:"count"`
	}

	WeekdayPoint struct {
		Day   string          `json:"day"`
		Total decimal.Decimal `json:"total"`
		Count int             `json:"count"`
	}

	DailyPoint struct {
		Day   int             `json:"day"`
		Total decimal.Decimal `json:"total"`
		Count int             `json:"count"`
	}

	TopExpense struct {
		Label    string          `json:"label"`
		Amount   decimal.Decimal `json:"amount"`
		Category string          `json:"category"`
		Icon     string          `json:"icon"`
		Date     string          `json:"date"`
	}

	Idea struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Severity    string `json:"severity"`
	}

	Pillar struct {
		Key    string  `json:"key"`
		Label  string  `json:"label"`
		Score  int     `json:"score"`
		Weight float64 `json:"weight"`
	}

	Health struct {
		Score   int      `json:"score"`
		Label   string   `json:"label"`
		Pillars []Pillar `json:"pillars"`
	}

	// Snapshot is the full analytics view of one month.
	Snapshot struct {
		Year                  int                 `json:"year"`
		Month                 int                 `json:"month"`
		BaseCurrency          string              `json:"base_currency"`
		CurrentMonthTotal     decimal.Decimal     `json:"current_month_total"`
		PreviousMonthTotal    decimal.Decimal     `json:"previous_month_total"`
		VariationVsLastMonth  float64             `json:"variation_vs_last_month"`
		ProjectedMonthTotal   decimal.Decimal     `json:"projected_month_total"`
		HasActionableInsights bool                `json:"has_actionable_insights"`
		MonthlyTrend          []MonthlyTrendPoint `json:"monthly_trend"`
		TopCategories         []CategoryInsight   `json:"top_categories"`
		WeekdayTrend          []WeekdayPoint      `json:"weekday_trend"`
		DailyTrend            []DailyPoint        `json:"daily_trend"`
		TopSingleExpenses     []TopExpense        `json:"top_single_expenses"`
		FinancialHealth       Health              `json:"financial_health"`
		ActionableIdeas       []Idea              `json:"actionable_ideas"`
	}
)

// Category returns the top category with the given name.
func (s Snapshot) Category(name string) (CategoryInsight, bool) {
	for _, c := range s.TopCategories {
		if c.Name == name {
			return c, true
		}
	}
	return CategoryInsight{}, false
}
