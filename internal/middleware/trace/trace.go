package trace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	applog "rateio/internal/log"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// HeaderRequestID carries the request ID in both directions.
const HeaderRequestID = "X-Request-ID"

// Middleware assigns request IDs and logs every request.
type Middleware struct {
	logger    *applog.Logger
	extractIP func(*http.Request) string

	totalRequests atomic.Int64
	lastLatencyUs atomic.Int64
}

// Metrics is a snapshot of request counters.
type Metrics struct {
	TotalRequests     int64
	LastResponseMicro int64
}

func NewMiddleware(logger *applog.Logger, extractIP func(*http.Request) string) *Middleware {
	if logger == nil {
		logger = applog.Default()
	}
	return &Middleware{
		logger:    logger.WithComponent(applog.ComponentHTTP),
		extractIP: extractIP,
	}
}

// Middleware stores a request-scoped logger in the context, echoes the
// request ID and logs completion at a level chosen by status code.
func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := ""
		if m.extractIP != nil {
			clientIP = m.extractIP(r)
		}
		requestID := r.Header.Get(HeaderRequestID)
		if !validRequestID(requestID) {
			requestID = GenerateRequestID()
		}

		logger := m.logger.With(
			applog.NewFields().WithRequestID(requestID).WithClientIP(clientIP).ToSlice()...)
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		ctx = applog.NewContext(ctx, logger)
		r = r.WithContext(ctx)

		w.Header().Set(HeaderRequestID, requestID)
		m.totalRequests.Add(1)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		duration := time.Since(start)
		m.lastLatencyUs.Store(duration.Microseconds())

		fields := applog.NewFields().
			WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent")).
			WithHTTPResponse(rw.statusCode, duration.Milliseconds())
		logger.Log(ctx, levelFor(rw.statusCode), "HTTP request completed", fields.ToSlice()...)
	})
}

func levelFor(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// validRequestID accepts short printable IDs from upstream proxies.
func validRequestID(id string) bool {
	if id == "" || len(id) > 64 {
		return false
	}
	for _, c := range id {
		if c < '!' || c > '~' {
			return false
		}
	}
	return true
}

type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

// GenerateRequestID returns "req_" followed by 16 hex characters.
func GenerateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

// GetRequestID extracts the request ID from context.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

func (m *Middleware) GetMetrics() Metrics {
	return Metrics{
		TotalRequests:     m.totalRequests.Load(),
		LastResponseMicro: m.lastLatencyUs.Load(),
	}
}
