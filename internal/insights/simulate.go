package insights

import (
	"math"

	"github.com/shopspring/decimal"

	"smartexpense/internal/core"
)

// DefaultReductionPct is used when the caller does not pick a percentage.
const DefaultReductionPct = 10

const (
	minReductionPct = 1
	maxReductionPct = 80
	weeksPerMonth   = "4.33"
)

// SimulationInput describes a what-if scenario on one of the top categories.
type SimulationInput struct {
	// Category names one of Snapshot.TopCategories. Empty or unknown picks the first.
	Category     string
	ReductionPct float64
	MonthlyGoal  decimal.Decimal
}

// Simulation is the outcome of cutting a category by a percentage.
type Simulation struct {
	Category             string          `json:"category"`
	ReductionPct         float64         `json:"reduction_pct"`
	MonthlyGoal          decimal.Decimal `json:"monthly_goal"`
	MonthlySavings       decimal.Decimal `json:"monthly_savings"`
	AnnualSavings        decimal.Decimal `json:"annual_savings"`
	WeeklySavings        decimal.Decimal `json:"weekly_savings"`
	SimulatedTotal       decimal.Decimal `json:"simulated_total"`
	ImpactPct            float64         `json:"impact_pct"`
	GoalCoveragePct      float64         `json:"goal_coverage_pct"`
	GoalGap              decimal.Decimal `json:"goal_gap"`
	GoalReached          bool            `json:"goal_reached"`
	RequiredReductionPct int             `json:"required_reduction_pct"`
	GoalReachable        bool            `json:"goal_reachable"`
}

// ClampReduction bounds a reduction percentage to the accepted range.
func ClampReduction(pct float64) float64 {
	return clamp(pct, minReductionPct, maxReductionPct)
}

// Simulate projects the savings of reducing spend in one category.
func Simulate(s Snapshot, in SimulationInput) Simulation {
	goal := decimal.Max(decimal.Zero, in.MonthlyGoal)
	out := Simulation{
		ReductionPct: ClampReduction(in.ReductionPct),
		MonthlyGoal:  goal,
	}

	category, ok := s.Category(in.Category)
	if !ok && len(s.TopCategories) > 0 {
		category, ok = s.TopCategories[0], true
	}

	monthly := decimal.Zero
	if ok {
		out.Category = category.Name
		monthly = category.Total.Mul(decimal.NewFromFloat(out.ReductionPct)).Div(hundred)
	}

	out.MonthlySavings = core.RoundMoney(monthly)
	out.AnnualSavings = core.RoundMoney(monthly.Mul(decimal.NewFromInt(12)))
	out.WeeklySavings = core.RoundMoney(monthly.Div(decimal.RequireFromString(weeksPerMonth)))
	out.SimulatedTotal = core.RoundMoney(decimal.Max(decimal.Zero, s.CurrentMonthTotal.Sub(monthly)))
	out.ImpactPct = round1(percentOf(monthly, s.CurrentMonthTotal))
	out.GoalGap = core.RoundMoney(decimal.Max(decimal.Zero, goal.Sub(monthly)))

	if goal.IsPositive() {
		out.GoalCoveragePct = round1(math.Min(100, percentOf(monthly, goal)))
		out.GoalReached = monthly.GreaterThanOrEqual(goal)
	}

	required := percentOf(goal, category.Total)
	out.RequiredReductionPct = int(ClampReduction(math.Round(required)))
	out.GoalReachable = !goal.IsPositive() || (category.Total.IsPositive() && required <= maxReductionPct)
	return out
}
