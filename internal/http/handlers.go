package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	applog "rateio/internal/log"
)

// handleHealth performs basic liveness check.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
	}).Write(w)
}

// handleReady reports 503 until storage answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := map[string]any{"rate_limiter": map[string]any{"active_clients": s.rateLimiter.ActiveClients()}}
	if err := s.ledger.Ready(ctx); err != nil {
		status, code = "not_ready", http.StatusServiceUnavailable
		checks["storage"] = fmt.Sprintf("failed: %v", err)
		applog.FromContext(ctx).WarnContext(ctx, "Readiness check failed", applog.FieldError, err)
	} else {
		checks["storage"] = "ok"
	}

	NewResponse().Status(code).JSON(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

// handleMetrics provides counters in plain text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	traceMetrics := s.traceMiddleware.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	hits, misses := s.ledger.CacheStats()

	w.WriteHeader(http.StatusOK)
	metric := func(name, kind, help string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, kind, name, value)
	}
	metric("http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	metric("period_cache_hits_total", "counter", "Period cache hits", hits)
	metric("period_cache_misses_total", "counter", "Period cache misses", misses)
	metric("rate_limit_hits_total", "counter", "Requests rejected by the rate limiter", rateLimitMetrics.TotalHits)
	metric("rate_limit_active_clients", "gauge", "Clients tracked by the rate limiter", rateLimitMetrics.ClientCount)
	metric("security_suspicious_requests_total", "counter", "Requests blocked as suspicious", s.securityDetector.SuspiciousRequests())
	metric("uptime_seconds", "gauge", "Seconds since the server started", int64(time.Since(s.startedAt).Seconds()))
}

func (s *Server) handleListOwners(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.user(w, r)
	if !ok {
		return
	}
	owners, err := s.ledger.Owners(r.Context(), userID)
	if err != nil {
		s.fail(w, r, "list owners", err)
		return
	}
	NewResponse().JSON(owners).Write(w)
}

func (s *Server) handleUpdateOwner(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.user(w, r)
	if !ok {
		return
	}
	body, ok := s.body(w, r)
	if !ok {
		return
	}
	owner, err := s.ledger.UpdateOwner(r.Context(), userID, r.PathValue("id"), parseOwnerPatch(body))
	if err != nil {
		s.fail(w, r, "update owner", err)
		return
	}
	NewResponse().
		TriggerOwnersChanged().
		TriggerSuccessNotification("Proprietário atualizado").
		JSON(owner).
		Write(w)
}

// user resolves the caller or writes a 400.
func (s *Server) user(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, err := userIDFrom(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return "", false
	}
	return userID, true
}

// body parses the request body or writes a 400.
func (s *Server) body(w http.ResponseWriter, r *http.Request) (*RequestBodyParser, bool) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Unreadable request body", applog.FieldError, err)
		BadRequestError("Formato de requisição inválido").Write(w)
		return nil, false
	}
	return p, true
}

// fail writes the response for err. Server errors were already logged and
// reported by the ledger; they are logged here with the request context.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, action string, err error) {
	resp := ErrorFor(err)
	if resp.statusCode >= http.StatusInternalServerError {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			applog.FieldOperation, action,
			applog.FieldError, err)
	} else {
		applog.FromContext(r.Context()).DebugContext(r.Context(), "Request rejected",
			applog.FieldOperation, action,
			applog.FieldError, err)
	}
	resp.Write(w)
}
