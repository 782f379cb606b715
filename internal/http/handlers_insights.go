package http

import (
	"net/http"
	"strconv"
	"strings"

	"smartexpense/internal/actions"
	"smartexpense/internal/insights"
)

func (s *Server) handleChangeBaseCurrency(w http.ResponseWriter, r *http.Request, ownerID string) {
	var form actions.BaseCurrencyForm
	if !decodeJSON(w, r, &form) {
		return
	}
	writeResult(w, s.actions.ChangeBaseCurrency(r.Context(), ownerID, form), http.StatusOK)
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request, ownerID string) {
	q, ok := monthQuery(w, r)
	if !ok {
		return
	}
	writeResult(w, s.actions.Insights(r.Context(), ownerID, q, s.rates.Today()), http.StatusOK)
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request, ownerID string) {
	q, ok := monthQuery(w, r)
	if !ok {
		return
	}
	sim := actions.SimulationQuery{
		MonthQuery:   q,
		Category:     r.URL.Query().Get("category"),
		MonthlyGoal:  r.URL.Query().Get("goal"),
		ReductionPct: insights.DefaultReductionPct,
	}
	if v := strings.TrimSpace(r.URL.Query().Get("reduction")); v != "" {
		pct, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", "Porcentaje de reducción inválido")
			return
		}
		sim.ReductionPct = pct
	}
	writeResult(w, s.actions.Simulate(r.Context(), ownerID, sim, s.rates.Today()), http.StatusOK)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request, ownerID string) {
	q, ok := monthQuery(w, r)
	if !ok {
		return
	}
	writeResult(w, s.actions.Summary(r.Context(), ownerID, q, s.rates.Today()), http.StatusOK)
}
