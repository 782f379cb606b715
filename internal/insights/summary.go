package insights

import (
	"sort"

	"github.com/shopspring/decimal"

	"smartexpense/internal/core"
)

// BuildSummary aggregates one month of expenses for the dashboard. Categories
// are grouped by id and sorted by total, largest first.
func BuildSummary(rows []core.ExpenseWithCategory, year, month int, baseCurrency string) core.MonthlySummary {
	out := core.MonthlySummary{
		Year:              year,
		Month:             month,
		BaseCurrency:      baseCurrency,
		Total:             decimal.Zero,
		AvgPerExpense:     decimal.Zero,
		CategoryBreakdown: []core.CategorySpending{},
	}

	var order []string
	byID := map[string]*core.CategorySpending{}
	for _, r := range rows {
		out.Total = out.Total.Add(r.AmountInBase)
		out.Count++

		c, ok := byID[r.CategoryID]
		if !ok {
			c = &core.CategorySpending{CategoryID: r.CategoryID, Name: r.Category.Name, Icon: r.Category.Icon, Color: r.Category.Color}
			byID[r.CategoryID] = c
			order = append(order, r.CategoryID)
		}
		c.Total = c.Total.Add(r.AmountInBase)
		c.Count++
	}

	if out.Count > 0 {
		out.AvgPerExpense = core.RoundMoney(out.Total.Div(decimal.NewFromInt(int64(out.Count))))
	}
	for _, id := range order {
		c := *byID[id]
		c.Percentage = round1(percentOf(c.Total, out.Total))
		c.Total = core.RoundMoney(c.Total)
		out.CategoryBreakdown = append(out.CategoryBreakdown, c)
	}
	sort.SliceStable(out.CategoryBreakdown, func(i, j int) bool {
		return out.CategoryBreakdown[i].Total.GreaterThan(out.CategoryBreakdown[j].Total)
	})
	out.Total = core.RoundMoney(out.Total)
	return out
}
