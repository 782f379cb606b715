package http

import (
	"net/http"
	"strings"

	"smartexpense/internal/core"
	"smartexpense/internal/log"
)

type exchangeRateResponse struct {
	From string    `json:"from"`
	To   string    `json:"to"`
	Rate float64   `json:"rate"`
	Date core.Date `json:"date"`
}

// handleExchangeRate proxies one quote from the rate provider. Each pair is
// fetched upstream at most once per pair window.
func (s *Server) handleExchangeRate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	from := core.NormalizeCurrency(r.URL.Query().Get("from"))
	to := core.NormalizeCurrency(r.URL.Query().Get("to"))

	if from == "" || to == "" {
		writeError(w, http.StatusBadRequest, core.KindValidation.String(), "Missing 'from' and 'to' query parameters")
		return
	}
	if !core.IsSupportedCurrency(from) || !core.IsSupportedCurrency(to) {
		writeError(w, http.StatusBadRequest, core.KindValidation.String(),
			"Unsupported currency. Supported: "+strings.Join(core.CurrencyCodes(), ", "))
		return
	}

	today := s.rates.Today()
	if from == to {
		writeJSON(w, http.StatusOK, exchangeRateResponse{From: from, To: to, Rate: 1, Date: today})
		return
	}

	pair := from + ":" + to
	logger := log.FromContext(ctx)
	reserved, err := s.pairs.Reserve(ctx, pair)
	if err != nil {
		// fail open
		logger.WarnContext(ctx, "Pair window reservation failed", log.FieldCurrencyPair, pair, log.FieldError, err)
	} else if !reserved {
		writeError(w, http.StatusTooManyRequests, "rate_limited", "Rate limited. Max 1 request per currency pair per day.")
		return
	}

	rate, err := s.rates.Refresh(ctx, from, to)
	if err != nil {
		logger.ErrorContext(ctx, "Exchange rate fetch failed", log.FieldCurrencyPair, pair, log.FieldError, err)
		if reserved {
			if rerr := s.pairs.Release(ctx, pair); rerr != nil {
				logger.WarnContext(ctx, "Failed to release pair window", log.FieldCurrencyPair, pair, log.FieldError, rerr)
			}
		}
		writeError(w, http.StatusBadGateway, core.KindUpstream.String(), "Failed to fetch exchange rate")
		return
	}

	writeJSON(w, http.StatusOK, exchangeRateResponse{From: from, To: to, Rate: rate.InexactFloat64(), Date: today})
}
