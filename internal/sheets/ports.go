package sheets

import (
	"context"

	"rateio/internal/core"
	"rateio/internal/ledger"
)

// Ports for outbound spreadsheet adapters. Exports are idempotent: writing
// the same period or year twice leaves one copy of its rows.
type (
	PeriodExporter interface {
		// ExportPeriod replaces everything previously exported for the
		// user's period with the given bucket.
		ExportPeriod(ctx context.Context, userID string, p core.Period, b ledger.Bucket) error
	}

	ProjectionExporter interface {
		// ExportProjection replaces the user's projection block for year.
		ExportProjection(ctx context.Context, userID string, year int, rows []core.ProjectionRow) error
	}

	Exporter interface {
		PeriodExporter
		ProjectionExporter
	}
)
