package insights

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

const (
	weightStability       = 0.30
	weightDiversification = 0.25
	weightConsistency     = 0.20
	weightWeekend         = 0.25

	concentrationWarnShare = 35
)

// stats holds the month figures shared by the health score and the ideas.
type stats struct {
	currentTotal decimal.Decimal
	projected    decimal.Decimal
	weekendTotal decimal.Decimal
	weekdayTotal decimal.Decimal
	activeDays   int
	elapsedDays  int
	variation    float64
	topCategory  *CategoryInsight
	topExpense   *TopExpense
}

func (s stats) weekendShare() float64 {
	return percentOf(s.weekendTotal, s.currentTotal)
}

func financialHealth(s stats) Health {
	topShare := 0.0
	if s.topCategory != nil {
		topShare = s.topCategory.Share
	}

	pillars := []struct {
		key, label string
		weight     float64
		score      float64
	}{
		{"stability", "Estabilidad", weightStability, 100 - math.Min(100, math.Abs(s.variation)*1.25)},
		{"diversification", "Diversificación", weightDiversification, 100 - math.Max(0, (topShare-25)*2.8)},
		{"consistency", "Constancia", weightConsistency, float64(s.activeDays) / float64(max(1, s.elapsedDays)) * 100},
		{"weekend_control", "Control de fin de semana", weightWeekend, 100 - math.Max(0, (s.weekendShare()-35)*2)},
	}

	h := Health{Pillars: make([]Pillar, 0, len(pillars))}
	composite := 0.0
	for _, p := range pillars {
		score := clamp(p.score, 0, 100)
		composite += score * p.weight
		h.Pillars = append(h.Pillars, Pillar{Key: p.key, Label: p.label, Score: int(math.Round(score)), Weight: p.weight})
	}
	h.Score = int(clamp(math.Round(composite), 0, 100))
	h.Label = HealthLabel(h.Score)
	return h
}

// HealthLabel maps a composite score to its label.
func HealthLabel(score int) string {
	switch {
	case score >= solidThreshold:
		return HealthSolid
	case score >= stableThreshold:
		return HealthStable
	default:
		return HealthAtRisk
	}
}

func ideas(s stats) []Idea {
	hasSpend := s.currentTotal.IsPositive()
	out := make([]Idea, 0, 5)

	projection := Idea{Title: "Proyección de cierre mensual", Severity: SeverityWarning,
		Description: "Aún no hay gasto suficiente este mes para proyectar con precisión."}
	if hasSpend {
		projection.Severity = SeverityInfo
		projection.Description = fmt.Sprintf("Si mantienes este ritmo, cerrarías en %s unidades base.", s.projected.StringFixed(0))
	}
	out = append(out, projection)

	concentration := Idea{Title: "Concentración por categoría", Severity: SeveritySuccess,
		Description: "No hay categorías dominantes todavía este mes."}
	if c := s.topCategory; c != nil {
		concentration.Description = fmt.Sprintf("%s %s representa %.1f%% del mes. Conviene fijar un tope específico.", c.Icon, c.Name, c.Share)
		if c.Share >= concentrationWarnShare {
			concentration.Severity = SeverityWarning
		}
	}
	out = append(out, concentration)

	weekend := Idea{Title: "Patrón fin de semana", Severity: SeverityInfo,
		Description: "No hay suficiente actividad para detectar patrón semanal."}
	if hasSpend {
		weekend.Description = fmt.Sprintf("El %.1f%% del gasto sucede en fin de semana. Comparado con días hábiles: %s vs %s.",
			s.weekendShare(), s.weekdayTotal.StringFixed(0), s.weekendTotal.StringFixed(0))
		if s.weekendTotal.GreaterThan(s.weekdayTotal.Mul(decimal.RequireFromString("0.45"))) {
			weekend.Severity = SeverityWarning
		}
	}
	out = append(out, weekend)

	ticket := Idea{Title: "Ticket más alto del mes", Severity: SeverityInfo,
		Description: "Todavía no hay gastos destacados este mes."}
	if e := s.topExpense; e != nil {
		ticket.Description = fmt.Sprintf("%s %s fue el mayor gasto unitario.", e.Icon, e.Label)
	}
	out = append(out, ticket)

	habit := Idea{Title: "Pulso de hábito de gasto", Severity: SeverityInfo,
		Description: "Empieza registrando algunos gastos para obtener hábito y tendencias."}
	if s.activeDays > 0 {
		avg := s.currentTotal.Div(decimal.NewFromInt(int64(s.activeDays)))
		habit.Description = fmt.Sprintf("Registraste movimientos en %d días del mes, con un promedio de %s por día activo.", s.activeDays, avg.StringFixed(0))
		if s.activeDays >= 10 {
			habit.Severity = SeveritySuccess
		}
	}
	out = append(out, habit)

	return out
}
