package insights

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"smartexpense/internal/core"
)

const (
	trendMonths      = 6
	topCategoryLimit = 6
	topExpenseLimit  = 5

	minIdeaExpenses   = 8
	minIdeaActiveDays = 4
	minIdeaCategories = 2

	minVariation = -100
	maxVariation = 999
)

var (
	monthLabels   = [12]string{"ene", "feb", "mar", "abr", "may", "jun", "jul", "ago", "sept", "oct", "nov", "dic"}
	weekdayLabels = [7]string{"Dom", "Lun", "Mar", "Mié", "Jue", "Vie", "Sáb"}
	hundred       = decimal.NewFromInt(100)
)

// Window returns the [from, to) date range a snapshot of year/month reads:
// the requested month and the five before it.
func Window(year, month int) (from, to core.Date) {
	return core.NewDate(year, month-trendMonths+1, 1), core.NewDate(year, month+1, 1)
}

// DaysIn returns the number of days in the month.
func DaysIn(year, month int) int {
	return core.NewDate(year, month+1, 0).Day()
}

func monthKey(year int, month time.Month) string {
	return fmt.Sprintf("%04d-%02d", year, int(month))
}

// percentOf returns part/whole*100, or 0 when whole is not positive.
func percentOf(part, whole decimal.Decimal) float64 {
	if !whole.IsPositive() {
		return 0
	}
	return part.Div(whole).Mul(hundred).InexactFloat64()
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Max(lo, math.Min(hi, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

type bucket struct {
	total decimal.Decimal
	count int
}

func (b *bucket) add(amount decimal.Decimal) {
	b.total = b.total.Add(amount)
	b.count++
}

// Build computes the snapshot for year/month from rows covering Window(year, month).
// Rows outside the window are ignored. today decides how much of the month
// has elapsed for projection and consistency.
func Build(rows []core.ExpenseWithCategory, year, month int, baseCurrency string, today core.Date) Snapshot {
	from, _ := Window(year, month)
	monthStart := core.NewDate(year, month, 1)
	nextMonth := core.NewDate(year, month+1, 1)
	prevStart := core.NewDate(year, month-1, 1)
	days := DaysIn(year, month)

	rows = append([]core.ExpenseWithCategory(nil), rows...)
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].ExpenseDate.Before(rows[j].ExpenseDate.Time)
	})

	months := make([]time.Time, trendMonths)
	buckets := make(map[string]*bucket, trendMonths)
	for i := range months {
		months[i] = from.AddDate(0, i, 0)
		buckets[monthKey(months[i].Year(), months[i].Month())] = &bucket{}
	}

	weekdays := make([]bucket, 7)
	daily := make([]bucket, days)
	var current []core.ExpenseWithCategory

	for _, r := range rows {
		d := r.ExpenseDate
		if b, ok := buckets[monthKey(d.Year(), d.Month())]; ok {
			b.add(r.AmountInBase)
		}
		if d.Before(monthStart.Time) || !d.Before(nextMonth.Time) {
			continue
		}
		current = append(current, r)
		weekdays[d.Weekday()].add(r.AmountInBase)
		daily[d.Day()-1].add(r.AmountInBase)
	}

	s := Snapshot{
		Year:         year,
		Month:        month,
		BaseCurrency: baseCurrency,
	}

	for _, m := range months {
		k := monthKey(m.Year(), m.Month())
		b := buckets[k]
		p := MonthlyTrendPoint{Key: k, Month: monthLabels[m.Month()-1], Total: core.RoundMoney(b.total), Count: b.count, Avg: decimal.Zero}
		if b.count > 0 {
			p.Avg = core.RoundMoney(b.total.Div(decimal.NewFromInt(int64(b.count))))
		}
		s.MonthlyTrend = append(s.MonthlyTrend, p)
	}

	currentTotal := decimal.Zero
	for _, r := range current {
		currentTotal = currentTotal.Add(r.AmountInBase)
	}
	previousTotal := decimal.Zero
	if b, ok := buckets[monthKey(prevStart.Year(), prevStart.Month())]; ok {
		previousTotal = b.total
	}

	variation := 0.0
	if previousTotal.IsPositive() {
		variation = currentTotal.Sub(previousTotal).Div(previousTotal).Mul(hundred).InexactFloat64()
	}
	variation = clamp(variation, minVariation, maxVariation)

	elapsed := days
	if today.Year() == year && int(today.Month()) == month {
		elapsed = max(1, today.Day())
	}
	projected := currentTotal.Div(decimal.NewFromInt(int64(elapsed))).Mul(decimal.NewFromInt(int64(days)))

	s.CurrentMonthTotal = core.RoundMoney(currentTotal)
	s.PreviousMonthTotal = core.RoundMoney(previousTotal)
	s.VariationVsLastMonth = variation
	s.ProjectedMonthTotal = core.RoundMoney(projected)

	s.TopCategories = topCategories(current, currentTotal)

	weekendTotal := decimal.Zero
	for i, b := range weekdays {
		s.WeekdayTrend = append(s.WeekdayTrend, WeekdayPoint{Day: weekdayLabels[i], Total: core.RoundMoney(b.total), Count: b.count})
		if time.Weekday(i) == time.Saturday || time.Weekday(i) == time.Sunday {
			weekendTotal = weekendTotal.Add(b.total)
		}
	}
	for i, b := range daily {
		s.DailyTrend = append(s.DailyTrend, DailyPoint{Day: i + 1, Total: core.RoundMoney(b.total), Count: b.count})
	}

	s.TopSingleExpenses = topExpenses(current)

	activeDays := 0
	for _, b := range daily {
		if b.count > 0 {
			activeDays++
		}
	}

	st := stats{
		currentTotal: currentTotal,
		projected:    projected,
		weekendTotal: weekendTotal,
		weekdayTotal: decimal.Max(decimal.Zero, currentTotal.Sub(weekendTotal)),
		activeDays:   activeDays,
		elapsedDays:  elapsed,
		variation:    variation,
	}
	if len(s.TopCategories) > 0 {
		st.topCategory = &s.TopCategories[0]
	}
	if len(s.TopSingleExpenses) > 0 {
		st.topExpense = &s.TopSingleExpenses[0]
	}

	s.FinancialHealth = financialHealth(st)
	s.HasActionableInsights = len(current) >= minIdeaExpenses &&
		activeDays >= minIdeaActiveDays &&
		len(s.TopCategories) >= minIdeaCategories
	s.ActionableIdeas = []Idea{}
	if s.HasActionableInsights {
		s.ActionableIdeas = ideas(st)
	}
	return s
}

func topCategories(rows []core.ExpenseWithCategory, monthTotal decimal.Decimal) []CategoryInsight {
	var order []string
	byName := map[string]*CategoryInsight{}
	for _, r := range rows {
		c, ok := byName[r.Category.Name]
		if !ok {
			c = &CategoryInsight{Name: r.Category.Name, Icon: r.Category.Icon, Color: r.Category.Color}
			byName[r.Category.Name] = c
			order = append(order, r.Category.Name)
		}
		c.Total = c.Total.Add(r.AmountInBase)
		c.Count++
	}

	out := make([]CategoryInsight, 0, len(order))
	for _, name := range order {
		c := *byName[name]
		c.Share = round1(percentOf(c.Total, monthTotal))
		c.Total = core.RoundMoney(c.Total)
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Total.GreaterThan(out[j].Total) })
	if len(out) > topCategoryLimit {
		out = out[:topCategoryLimit]
	}
	return out
}

func topExpenses(rows []core.ExpenseWithCategory) []TopExpense {
	sorted := append([]core.ExpenseWithCategory(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].AmountInBase.GreaterThan(sorted[j].AmountInBase) })
	if len(sorted) > topExpenseLimit {
		sorted = sorted[:topExpenseLimit]
	}

	out := make([]TopExpense, 0, len(sorted))
	for _, r := range sorted {
		label := strings.TrimSpace(r.Description)
		if label == "" {
			label = r.Category.Name
		}
		out = append(out, TopExpense{
			Label:    label,
			Amount:   r.AmountInBase,
			Category: r.Category.Name,
			Icon:     r.Category.Icon,
			Date:     r.ExpenseDate.String(),
		})
	}
	return out
}
