package worker

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"rateio/internal/amqp"
	"rateio/internal/core"
	"rateio/internal/ledger"
	applog "rateio/internal/log"
	"rateio/internal/services"
	"rateio/internal/sheets"
)

// Ledger is the read side of the ledger the worker exports from.
type Ledger interface {
	Period(ctx context.Context, userID string, p core.Period) (ledger.Bucket, error)
	Projection(ctx context.Context, userID string, year int) (services.Projection, error)
	Snapshot(ctx context.Context, userID string) (*ledger.Book, error)
	Users(ctx context.Context) ([]string, error)
}

// SyncWorker mirrors committed ledger changes into a spreadsheet.
type SyncWorker struct {
	ledger      Ledger
	periods     sheets.PeriodExporter
	projections sheets.ProjectionExporter
	logger      *applog.Logger
	parallelism int
	now         func() time.Time
}

type Option func(*SyncWorker)

// WithParallelism bounds how many users are exported at once.
func WithParallelism(n int) Option {
	return func(w *SyncWorker) {
		if n > 0 {
			w.parallelism = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(w *SyncWorker) { w.now = now }
}

func NewSyncWorker(l Ledger, exporter sheets.Exporter, logger *applog.Logger, opts ...Option) *SyncWorker {
	if logger == nil {
		logger = applog.Default()
	}
	w := &SyncWorker{
		ledger:      l,
		periods:     exporter,
		projections: exporter,
		logger:      logger.WithComponent(applog.ComponentWorker),
		parallelism: 4,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// HandleLedgerChange reloads the period named by msg and exports it along
// with its year's projection. Owner changes carry no period and are skipped.
func (w *SyncWorker) HandleLedgerChange(ctx context.Context, msg *amqp.LedgerChangeMessage) error {
	fields := applog.NewFields().WithLedger(msg.UserID, msg.Period)
	fields[applog.FieldMessageID] = msg.ID
	fields[applog.FieldChangeKind] = msg.Kind
	logger := w.logger.With(fields.ToSlice()...)

	switch msg.Kind {
	case amqp.KindTransaction, amqp.KindRentalIncome:
	case amqp.KindOwner:
		logger.DebugContext(ctx, "Owner change has nothing to export")
		return nil
	default:
		logger.WarnContext(ctx, "Unknown change kind, skipping")
		return nil
	}

	p, err := core.ParsePeriod(msg.Period)
	if err != nil {
		return fmt.Errorf("ledger change %s: %w", msg.ID, err)
	}
	if err := w.ExportPeriod(ctx, msg.UserID, p); err != nil {
		return err
	}
	if err := w.ExportProjection(ctx, msg.UserID, p.Year); err != nil {
		return err
	}
	logger.InfoContext(ctx, "Ledger change exported", applog.FieldOperation, msg.Operation)
	return nil
}

// ExportPeriod loads the current bucket and writes it out.
func (w *SyncWorker) ExportPeriod(ctx context.Context, userID string, p core.Period) error {
	bucket, err := w.ledger.Period(ctx, userID, p)
	if err != nil {
		return fmt.Errorf("load period %s: %w", p, err)
	}
	if err := w.periods.ExportPeriod(ctx, userID, p, bucket); err != nil {
		return fmt.Errorf("export period %s: %w", p, err)
	}
	return nil
}

func (w *SyncWorker) ExportProjection(ctx context.Context, userID string, year int) error {
	proj, err := w.ledger.Projection(ctx, userID, year)
	if err != nil {
		return fmt.Errorf("load projection %d: %w", year, err)
	}
	if err := w.projections.ExportProjection(ctx, userID, year, proj.Rows); err != nil {
		return fmt.Errorf("export projection %d: %w", year, err)
	}
	return nil
}

// ExportLedger exports every period the user has data in, followed by the
// projection of the current year, from a single snapshot.
func (w *SyncWorker) ExportLedger(ctx context.Context, userID string) error {
	book, err := w.ledger.Snapshot(ctx, userID)
	if err != nil {
		return err
	}
	for _, p := range book.Periods() {
		if err := w.periods.ExportPeriod(ctx, userID, p, book.Bucket(p)); err != nil {
			return fmt.Errorf("export period %s: %w", p, err)
		}
	}
	year := w.now().Year()
	if err := w.projections.ExportProjection(ctx, userID, year, ledger.ProjectFor(year, book)); err != nil {
		return fmt.Errorf("export projection %d: %w", year, err)
	}
	return nil
}

// ExportAllProjections exports the current year's projection of every known
// user.
func (w *SyncWorker) ExportAllProjections(ctx context.Context) error {
	year := w.now().Year()
	w.logger.DebugContext(ctx, "Exporting projections", applog.FieldYear, year)
	return w.forEachUser(ctx, "Projection export", func(ctx context.Context, user string) error {
		return w.ExportProjection(ctx, user, year)
	})
}

// ExportAllLedgers runs ExportLedger for every known user.
func (w *SyncWorker) ExportAllLedgers(ctx context.Context) error {
	return w.forEachUser(ctx, "Ledger export", w.ExportLedger)
}

// forEachUser runs fn for every known user, at most parallelism at a time.
// A failing user does not stop the others; the first error is returned.
func (w *SyncWorker) forEachUser(ctx context.Context, what string, fn func(ctx context.Context, user string) error) error {
	users, err := w.ledger.Users(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	var failed atomic.Int64
	var g errgroup.Group
	g.SetLimit(w.parallelism)
	for _, user := range users {
		g.Go(func() error {
			if err := fn(ctx, user); err != nil {
				failed.Add(1)
				w.logger.LogError(ctx, what+" failed", err, applog.OpExport,
					applog.FieldUserID, user)
				return err
			}
			return nil
		})
	}
	err = g.Wait()

	w.logger.InfoContext(ctx, what+" completed",
		"users", len(users),
		"errors", failed.Load())
	return err
}
