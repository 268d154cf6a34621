package http

import (
	"fmt"
	"net/http"

	"rateio/internal/core"
)

func (s *Server) handleGetPeriod(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.user(w, r)
	if !ok {
		return
	}
	p, err := pathPeriod(r)
	if err != nil {
		s.fail(w, r, "get period", err)
		return
	}
	bucket, err := s.ledger.Period(r.Context(), userID, p)
	if err != nil {
		s.fail(w, r, "get period", err)
		return
	}
	NewResponse().JSON(map[string]any{
		"period":       p,
		"entries":      bucket.Entries,
		"rentalIncome": bucket.Rental,
	}).Write(w)
}

// handleCreateEntry adds an entry, expanded into installments when
// totalInstallments > 1.
func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.user(w, r)
	if !ok {
		return
	}
	p, err := pathPeriod(r)
	if err != nil {
		s.fail(w, r, "create entry", err)
		return
	}
	body, ok := s.body(w, r)
	if !ok {
		return
	}

	entries, err := s.ledger.AddEntry(r.Context(), userID, p, parseEntryDraft(body))
	if err != nil {
		s.fail(w, r, "create entry", err)
		return
	}

	message := "Lançamento registrado"
	if len(entries) > 1 {
		message = fmt.Sprintf("Lançamento registrado em %d parcelas", len(entries))
	}
	NewResponse().
		Status(http.StatusCreated).
		TriggerLedgerChanged(p).
		TriggerSuccessNotification(message).
		JSON(entries).
		Write(w)
}

func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.user(w, r)
	if !ok {
		return
	}
	body, ok := s.body(w, r)
	if !ok {
		return
	}
	entry, err := s.ledger.UpdateEntry(r.Context(), userID, r.PathValue("id"), parseEntryPatch(body))
	if err != nil {
		s.fail(w, r, "update entry", err)
		return
	}
	NewResponse().
		TriggerLedgerChanged(entry.Period).
		TriggerSuccessNotification("Lançamento atualizado").
		JSON(entry).
		Write(w)
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.user(w, r)
	if !ok {
		return
	}
	if err := s.ledger.DeleteEntry(r.Context(), userID, r.PathValue("id")); err != nil {
		s.fail(w, r, "delete entry", err)
		return
	}
	NewResponse().
		Status(http.StatusNoContent).
		TriggerSuccessNotification("Lançamento removido").
		Write(w)
}

func (s *Server) handleSetRentalIncome(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.user(w, r)
	if !ok {
		return
	}
	p, err := pathPeriod(r)
	if err != nil {
		s.fail(w, r, "set rental income", err)
		return
	}
	body, ok := s.body(w, r)
	if !ok {
		return
	}
	rental, err := parseRentalDraft(body).Parse()
	if err != nil {
		s.fail(w, r, "set rental income", err)
		return
	}

	stored, err := s.ledger.SetRentalIncome(r.Context(), userID, p, rental)
	if err != nil {
		s.fail(w, r, "set rental income", err)
		return
	}
	NewResponse().
		TriggerLedgerChanged(p).
		TriggerSuccessNotification("Receita de aluguel salva").
		JSON(stored).
		Write(w)
}

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.user(w, r)
	if !ok {
		return
	}
	p, err := pathPeriod(r)
	if err != nil {
		s.fail(w, r, "balances", err)
		return
	}
	balances, err := s.ledger.Balances(r.Context(), userID, p)
	if err != nil {
		s.fail(w, r, "balances", err)
		return
	}
	if balances == nil {
		balances = []core.OwnerBalance{}
	}
	NewResponse().JSON(map[string]any{
		"period":   p,
		"balances": balances,
	}).Write(w)
}

func (s *Server) handleProjection(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.user(w, r)
	if !ok {
		return
	}
	year, err := pathYear(r)
	if err != nil {
		s.fail(w, r, "projection", err)
		return
	}
	proj, err := s.ledger.Projection(r.Context(), userID, year)
	if err != nil {
		s.fail(w, r, "projection", err)
		return
	}
	NewResponse().JSON(proj).Write(w)
}
