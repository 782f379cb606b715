// Package http exposes the expense tracker as a JSON API.
package http

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"smartexpense/internal/actions"
	"smartexpense/internal/core"
	"smartexpense/internal/csvimport"
	"smartexpense/internal/insights"
	"smartexpense/internal/log"
	"smartexpense/internal/middleware/ratelimit"
	"smartexpense/internal/middleware/security"
	"smartexpense/internal/middleware/trace"
	"smartexpense/internal/services"
)

// Handlers is the action layer the server delegates to. *actions.Actions
// satisfies it.
type Handlers interface {
	CreateExpense(ctx context.Context, ownerID string, form actions.ExpenseForm) actions.Result[core.Expense]
	UpdateExpense(ctx context.Context, ownerID, id string, form actions.ExpenseForm) actions.Result[core.Expense]
	DeleteExpense(ctx context.Context, ownerID, id string) actions.Result[struct{}]
	ListExpenses(ctx context.Context, ownerID string, q actions.ListQuery) actions.Result[core.ExpensePage]
	ImportCSV(ctx context.Context, ownerID string, r io.Reader) actions.Result[csvimport.Result]
	GetExpense(ctx context.Context, ownerID, id string) actions.Result[core.ExpenseWithCategory]
	RecentExpenses(ctx context.Context, ownerID string, limit int) actions.Result[[]core.ExpenseWithCategory]

	ListCategories(ctx context.Context, ownerID string) actions.Result[[]core.Category]
	CreateCategory(ctx context.Context, ownerID string, form actions.CategoryForm) actions.Result[core.Category]
	UpdateCategory(ctx context.Context, ownerID, id string, form actions.CategoryForm) actions.Result[core.Category]
	DeleteCategory(ctx context.Context, ownerID, id string) actions.Result[struct{}]

	ChangeBaseCurrency(ctx context.Context, ownerID string, form actions.BaseCurrencyForm) actions.Result[services.MigrationResult]
	GetProfile(ctx context.Context, ownerID string) actions.Result[core.Profile]
	UpdateProfile(ctx context.Context, ownerID string, form actions.ProfileForm) actions.Result[core.Profile]
	TrackEvent(ctx context.Context, ownerID string, form actions.EventForm) actions.Result[actions.TrackResult]
	Insights(ctx context.Context, ownerID string, q actions.MonthQuery, today core.Date) actions.Result[insights.Snapshot]
	Simulate(ctx context.Context, ownerID string, q actions.SimulationQuery, today core.Date) actions.Result[insights.Simulation]
	Summary(ctx context.Context, ownerID string, q actions.MonthQuery, today core.Date) actions.Result[core.MonthlySummary]
}

// RateFetcher fetches a pair from upstream and stores it. *exchange.Resolver
// satisfies it.
type RateFetcher interface {
	Refresh(ctx context.Context, base, target string) (decimal.Decimal, error)
	Today() core.Date
}

// Options configures a Server. Actions, Rates and Pairs are required.
type Options struct {
	Actions Handlers
	Rates   RateFetcher
	Pairs   ratelimit.PairWindow
	// Limiter throttles mutating routes per client IP. Nil uses the default limiter.
	Limiter *ratelimit.Limiter
	// Ready is probed by /readyz. Nil means always ready.
	Ready  func(ctx context.Context) error
	Logger *log.Logger
	// MaxUploadBytes caps CSV uploads. Zero uses DefaultMaxUploadBytes.
	MaxUploadBytes int64
}

// DefaultMaxUploadBytes is the largest accepted CSV upload.
const DefaultMaxUploadBytes = 5 << 20

type Server struct {
	http.Server
	actions   Handlers
	rates     RateFetcher
	pairs     ratelimit.PairWindow
	limiter   *ratelimit.Limiter
	detector  *security.Detector
	tracer    *trace.Middleware
	ready     func(ctx context.Context) error
	logger    *log.Logger
	maxUpload int64
}

// NewServer builds the server and its routes.
func NewServer(addr string, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	limiter := opts.Limiter
	if limiter == nil {
		limiter = ratelimit.NewLimiter(ratelimit.DefaultConfig())
	}
	maxUpload := opts.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUploadBytes
	}

	s := &Server{
		actions:   opts.Actions,
		rates:     opts.Rates,
		pairs:     opts.Pairs,
		limiter:   limiter,
		detector:  security.NewDetector(),
		ready:     opts.Ready,
		logger:    logger,
		maxUpload: maxUpload,
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ExtractClientIP)

	mux := http.NewServeMux()
	s.routes(mux)

	var handler http.Handler = mux
	handler = s.detector.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	throttle := s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimited)
	mutating := func(h ownerHandler) http.Handler { return throttle(s.owner(h)) }
	reading := func(h ownerHandler) http.Handler { return s.owner(h) }

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)
	mux.HandleFunc("GET /exchange-rate", s.handleExchangeRate)

	mux.Handle("GET /expenses", reading(s.handleListExpenses))
	mux.Handle("GET /expenses/recent", reading(s.handleRecentExpenses))
	mux.Handle("GET /expenses/{id}", reading(s.handleGetExpense))
	mux.Handle("POST /expenses", mutating(s.handleCreateExpense))
	mux.Handle("PUT /expenses/{id}", mutating(s.handleUpdateExpense))
	mux.Handle("DELETE /expenses/{id}", mutating(s.handleDeleteExpense))
	mux.Handle("POST /expenses/import", mutating(s.handleImport))

	mux.Handle("GET /categories", reading(s.handleListCategories))
	mux.Handle("POST /categories", mutating(s.handleCreateCategory))
	mux.Handle("PUT /categories/{id}", mutating(s.handleUpdateCategory))
	mux.Handle("DELETE /categories/{id}", mutating(s.handleDeleteCategory))

	mux.Handle("PUT /settings/base-currency", mutating(s.handleChangeBaseCurrency))
	mux.Handle("GET /settings/profile", reading(s.handleGetProfile))
	mux.Handle("PUT /settings/profile", mutating(s.handleUpdateProfile))

	mux.Handle("POST /events/track", mutating(s.handleTrackEvent))

	mux.Handle("GET /insights", reading(s.handleInsights))
	mux.Handle("GET /insights/simulate", reading(s.handleSimulate))
	mux.Handle("GET /dashboard/summary", reading(s.handleSummary))
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusTooManyRequests, "rate_limited", "Demasiadas solicitudes. Intenta de nuevo más tarde.")
}

// Shutdown stops the limiter cleanup goroutine and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	return s.Server.Shutdown(ctx)
}
