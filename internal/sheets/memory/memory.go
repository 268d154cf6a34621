package memory

import (
	"context"
	"sync"

	"rateio/internal/core"
	"rateio/internal/ledger"
	ports "rateio/internal/sheets"
)

var _ ports.Exporter = (*Exporter)(nil)

type periodKey struct {
	user   string
	period core.Period
}

type yearKey struct {
	user string
	year int
}

// Exporter keeps the last export of every period and projection year.
type Exporter struct {
	mu          sync.Mutex
	periods     map[periodKey]ledger.Bucket
	projections map[yearKey][]core.ProjectionRow
	writes      int
}

func New() *Exporter {
	return &Exporter{
		periods:     make(map[periodKey]ledger.Bucket),
		projections: make(map[yearKey][]core.ProjectionRow),
	}
}

func (e *Exporter) ExportPeriod(ctx context.Context, userID string, p core.Period, b ledger.Bucket) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.periods[periodKey{userID, p}] = b.Clone()
	e.writes++
	return nil
}

func (e *Exporter) ExportProjection(ctx context.Context, userID string, year int, rows []core.ProjectionRow) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.projections[yearKey{userID, year}] = append([]core.ProjectionRow(nil), rows...)
	e.writes++
	return nil
}

// Period returns the last exported bucket for the user's period.
func (e *Exporter) Period(userID string, p core.Period) (ledger.Bucket, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	b, ok := e.periods[periodKey{userID, p}]
	if !ok {
		return ledger.Bucket{}, false
	}
	return b.Clone(), true
}

func (e *Exporter) Projection(userID string, year int) ([]core.ProjectionRow, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	rows, ok := e.projections[yearKey{userID, year}]
	return append([]core.ProjectionRow(nil), rows...), ok
}

// Writes counts export calls, including overwrites.
func (e *Exporter) Writes() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.writes
}
