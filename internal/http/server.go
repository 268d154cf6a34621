package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"rateio/internal/core"
	"rateio/internal/ledger"
	applog "rateio/internal/log"
	"rateio/internal/middleware/ratelimit"
	"rateio/internal/middleware/security"
	"rateio/internal/middleware/trace"
	"rateio/internal/services"
)

// Ledger is what the API needs from the ledger service.
type Ledger interface {
	Owners(ctx context.Context, userID string) ([]core.Owner, error)
	UpdateOwner(ctx context.Context, userID, ownerID string, patch core.OwnerPatch) (core.Owner, error)
	Period(ctx context.Context, userID string, p core.Period) (ledger.Bucket, error)
	AddEntry(ctx context.Context, userID string, p core.Period, draft core.EntryDraft) ([]core.Entry, error)
	UpdateEntry(ctx context.Context, userID, entryID string, patch core.EntryPatch) (core.Entry, error)
	DeleteEntry(ctx context.Context, userID, entryID string) error
	SetRentalIncome(ctx context.Context, userID string, p core.Period, r core.RentalIncome) (core.RentalIncome, error)
	Balances(ctx context.Context, userID string, p core.Period) ([]core.OwnerBalance, error)
	Projection(ctx context.Context, userID string, year int) (services.Projection, error)
	Ready(ctx context.Context) error
	CacheStats() (hits, misses uint64)
}

type ServerConfig struct {
	Addr               string
	RateLimitPerMinute int
	Logger             *applog.Logger
}

type Server struct {
	http.Server
	ledger Ledger
	logger *applog.Logger

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	startedAt        time.Time

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(cfg ServerConfig, l Ledger) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = applog.Default()
	}
	detector := security.NewDetector(logger)
	s := &Server{
		ledger:           l,
		logger:           logger.WithComponent(applog.ComponentHTTP),
		rateLimiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute}),
		securityDetector: detector,
		traceMiddleware:  trace.NewMiddleware(logger, detector.ExtractClientIP),
		startedAt:        time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /api/owners", s.handleListOwners)
	mux.HandleFunc("PATCH /api/owners/{id}", s.handleUpdateOwner)

	mux.HandleFunc("GET /api/periods/{period}", s.handleGetPeriod)
	mux.HandleFunc("POST /api/periods/{period}/entries", s.handleCreateEntry)
	mux.HandleFunc("PUT /api/periods/{period}/rental-income", s.handleSetRentalIncome)
	mux.HandleFunc("GET /api/periods/{period}/balances", s.handleBalances)
	mux.HandleFunc("PATCH /api/entries/{id}", s.handleUpdateEntry)
	mux.HandleFunc("DELETE /api/entries/{id}", s.handleDeleteEntry)

	mux.HandleFunc("GET /api/projections/{year}", s.handleProjection)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limit := s.rateLimiter.Middleware(detector.ExtractClientIP, false, func(w http.ResponseWriter, r *http.Request) {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded")
		ErrorResponse(http.StatusTooManyRequests, "Muitas requisições, tente novamente em instantes").Write(w)
	})

	var h http.Handler = mux
	h = limit(h)
	h = detector.Middleware(h)
	h = headers.Middleware(h)
	h = s.traceMiddleware.Middleware(h)

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Shutdown stops background goroutines and drains connections.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
