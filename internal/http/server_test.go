package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rateio/internal/core"
	applog "rateio/internal/log"
	"rateio/internal/services"
	"rateio/internal/storage/memory"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	ledger := services.NewLedgerService(memory.NewStore(), services.Options{
		Cache:  services.NewPeriodCache(64, time.Minute),
		Logger: applog.Discard(),
	})
	srv := NewServer(ServerConfig{Logger: applog.Discard(), RateLimitPerMinute: 1000}, ledger)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func do(t *testing.T, srv *Server, method, path, user, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if strings.HasPrefix(body, "{") {
		req.Header.Set("Content-Type", "application/json")
	} else if body != "" {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if user != "" {
		req.Header.Set(headerUserID, user)
	}
	w := httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), "body: %s", w.Body.String())
	return v
}

type periodResponse struct {
	Period       string            `json:"period"`
	Entries      []core.Entry      `json:"entries"`
	RentalIncome core.RentalIncome `json:"rentalIncome"`
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t)

	w := do(t, srv, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode[map[string]any](t, w)["status"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = do(t, srv, http.MethodGet, "/readyz", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ready", decode[map[string]any](t, w)["status"])
}

type unreadyLedger struct{ Ledger }

func (unreadyLedger) Ready(context.Context) error { return errors.New("database is locked") }

func TestReadyReportsStorageFailure(t *testing.T) {
	srv := NewServer(ServerConfig{Logger: applog.Discard()}, unreadyLedger{})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	w := do(t, srv, http.MethodGet, "/readyz", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "not_ready", decode[map[string]any](t, w)["status"])
}

func TestMetrics(t *testing.T) {
	srv := newTestServer(t)
	do(t, srv, http.MethodGet, "/api/periods/2024-03", "", "")

	w := do(t, srv, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "http_requests_total")
	assert.Contains(t, body, "period_cache_misses_total")
	assert.Contains(t, body, "rate_limit_active_clients")
}

func TestOwnersSeededAndUpdated(t *testing.T) {
	srv := newTestServer(t)

	w := do(t, srv, http.MethodGet, "/api/owners", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	owners := decode[[]core.Owner](t, w)
	require.Len(t, owners, 3)
	assert.Equal(t, "Proprietário 1", owners[0].Name)

	w = do(t, srv, http.MethodPatch, "/api/owners/"+owners[1].ID, "", `{"name": "Ana"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Ana", decode[core.Owner](t, w).Name)
	assert.Contains(t, w.Header().Get("HX-Trigger"), "owners:changed")

	w = do(t, srv, http.MethodPatch, "/api/owners/missing", "", `{"name": "Ana"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEmptyPeriod(t *testing.T) {
	srv := newTestServer(t)

	w := do(t, srv, http.MethodGet, "/api/periods/2030-01", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[periodResponse](t, w)
	assert.Equal(t, "2030-01", got.Period)
	assert.Empty(t, got.Entries)
	assert.Equal(t, core.DefaultRentalName, got.RentalIncome.Name)
	assert.False(t, got.RentalIncome.IsActive)
}

func TestInvalidPeriod(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/api/periods/2024-13", "/api/periods/march", "/api/projections/abc"} {
		w := do(t, srv, http.MethodGet, path, "", "")
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
	}
}

func TestCreateEntryWithInstallments(t *testing.T) {
	srv := newTestServer(t)

	w := do(t, srv, http.MethodPost, "/api/periods/2024-11/entries", "",
		`{"name": "Financiamento", "value": "1.500,00", "category": "financing_bank", "totalInstallments": 3}`)
	require.Equal(t, http.StatusCreated, w.Code)
	entries := decode[[]core.Entry](t, w)
	require.Len(t, entries, 3)
	assert.Contains(t, w.Header().Get("HX-Trigger"), "ledger:changed")

	for i, want := range []string{"2024-11", "2024-12", "2025-01"} {
		w := do(t, srv, http.MethodGet, "/api/periods/"+want, "", "")
		got := decode[periodResponse](t, w)
		require.Len(t, got.Entries, 1, want)
		assert.Equal(t, i+1, got.Entries[0].CurrentInstallment)
		assert.Equal(t, entries[0].ParentID, got.Entries[0].ParentID)
		assert.True(t, got.Entries[0].Value.Equal(entries[0].Value))
	}
}

func TestUpdateAndDeleteEntry(t *testing.T) {
	srv := newTestServer(t)

	w := do(t, srv, http.MethodPost, "/api/periods/2024-03/entries", "", "name=Condomínio&value=450&category=condominium")
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[[]core.Entry](t, w)[0].ID

	w = do(t, srv, http.MethodPatch, "/api/entries/"+id, "", `{"value": "500"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "500", decode[core.Entry](t, w).Value.String())

	w = do(t, srv, http.MethodPatch, "/api/entries/"+id, "", `{"category": "unknown", "periodicity": "weekly"}`)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	fields := decode[errorBody](t, w).Fields
	assert.Contains(t, fields, "category")
	assert.Contains(t, fields, "periodicity")

	w = do(t, srv, http.MethodDelete, "/api/entries/"+id, "", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	got := decode[periodResponse](t, do(t, srv, http.MethodGet, "/api/periods/2024-03", "", ""))
	assert.Empty(t, got.Entries)

	w = do(t, srv, http.MethodDelete, "/api/entries/"+id, "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBalancesEqualSplit(t *testing.T) {
	srv := newTestServer(t)

	do(t, srv, http.MethodPost, "/api/periods/2024-03/entries", "", `{"name": "Condomínio", "value": 600}`)
	w := do(t, srv, http.MethodPut, "/api/periods/2024-03/rental-income", "", `{"value": 300, "isActive": true}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, srv, http.MethodGet, "/api/periods/2024-03/balances", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[struct {
		Balances []core.OwnerBalance `json:"balances"`
	}](t, w)
	require.Len(t, got.Balances, 3)
	for _, b := range got.Balances {
		assert.Equal(t, "200", b.TotalExpenses.String())
		assert.Equal(t, "100", b.RentalCredit.String())
		assert.Equal(t, "100", b.FinalBalance.String())
	}
}

func TestRentalContractRequiresBothFields(t *testing.T) {
	srv := newTestServer(t)

	w := do(t, srv, http.MethodPut, "/api/periods/2024-03/rental-income", "", `{"value": 2500, "isActive": true, "contractDuration": 12}`)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, decode[errorBody](t, w).Fields, "contractStartDate")

	w = do(t, srv, http.MethodPut, "/api/periods/2024-03/rental-income", "", `{"value": 2500, "isActive": true, "contractStartDate": "2024-03"}`)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, decode[errorBody](t, w).Fields, "contractDuration")

	w = do(t, srv, http.MethodPut, "/api/periods/2024-03/rental-income", "", `{"value": 2500, "isActive": true, "contractDuration": "twelve"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestProjectionHonoursContractWindow(t *testing.T) {
	srv := newTestServer(t)

	w := do(t, srv, http.MethodPut, "/api/periods/2024-03/rental-income", "",
		`{"value": 1000, "isActive": true, "contractDuration": 2, "contractStartDate": "2024-03"}`)
	require.Equal(t, http.StatusOK, w.Code)
	// The same contract stored in April as well; only March and April fall
	// inside the window.
	do(t, srv, http.MethodPut, "/api/periods/2024-04/rental-income", "",
		`{"value": 1000, "isActive": true, "contractDuration": 2, "contractStartDate": "2024-03"}`)
	do(t, srv, http.MethodPut, "/api/periods/2024-05/rental-income", "",
		`{"value": 1000, "isActive": true, "contractDuration": 2, "contractStartDate": "2024-03"}`)

	w = do(t, srv, http.MethodGet, "/api/projections/2024", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	proj := decode[services.Projection](t, w)
	require.Len(t, proj.Rows, 12)
	assert.Equal(t, 2024, proj.Year)
	assert.Equal(t, "1000", proj.Rows[2].Revenue.String())
	assert.Equal(t, "1000", proj.Rows[3].Revenue.String())
	assert.True(t, proj.Rows[4].Revenue.IsZero())
	assert.Equal(t, "2000", proj.Summary.TotalRevenue.String())
}

func TestUsersAreIsolated(t *testing.T) {
	srv := newTestServer(t)

	w := do(t, srv, http.MethodPost, "/api/periods/2024-03/entries", "alice", `{"name": "IPTU", "value": 120}`)
	require.Equal(t, http.StatusCreated, w.Code)

	alice := decode[periodResponse](t, do(t, srv, http.MethodGet, "/api/periods/2024-03", "alice", ""))
	bob := decode[periodResponse](t, do(t, srv, http.MethodGet, "/api/periods/2024-03", "bob", ""))
	assert.Len(t, alice.Entries, 1)
	assert.Empty(t, bob.Entries)

	id := alice.Entries[0].ID
	w = do(t, srv, http.MethodDelete, "/api/entries/"+id, "bob", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, srv, http.MethodGet, "/api/periods/2024-03", "a|b", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMalformedBody(t *testing.T) {
	srv := newTestServer(t)

	w := do(t, srv, http.MethodPost, "/api/periods/2024-03/entries", "", `{"name": `)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSecurityHeadersAndProbes(t *testing.T) {
	srv := newTestServer(t)

	w := do(t, srv, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	w = do(t, srv, http.MethodGet, "/api/periods/2024-03?q=../../etc/passwd", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
