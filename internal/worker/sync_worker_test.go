package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rateio/internal/amqp"
	"rateio/internal/core"
	applog "rateio/internal/log"
	"rateio/internal/services"
	sheetsmem "rateio/internal/sheets/memory"
	"rateio/internal/storage/memory"
)

var march2024 = core.NewPeriod(2024, time.March)

func newFixture(t *testing.T) (*services.LedgerService, *sheetsmem.Exporter, *SyncWorker) {
	t.Helper()
	svc := services.NewLedgerService(memory.NewStore(), services.Options{Logger: applog.Discard()})
	exp := sheetsmem.New()
	w := NewSyncWorker(svc, exp, applog.Discard(),
		WithClock(func() time.Time { return time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC) }))
	return svc, exp, w
}

func TestHandleLedgerChangeExportsPeriodAndYear(t *testing.T) {
	ctx := context.Background()
	svc, exp, w := newFixture(t)

	entries, err := svc.AddEntry(ctx, "alice", march2024, core.EntryDraft{
		Name: "Condomínio", Value: "300", Category: "condominium", Type: "expense",
	})
	require.NoError(t, err)

	msg := amqp.NewLedgerChangeMessage(amqp.KindTransaction, applog.OpCreate, "alice", march2024.Key(), entries[0].ID)
	require.NoError(t, w.HandleLedgerChange(ctx, msg))

	bucket, ok := exp.Period("alice", march2024)
	require.True(t, ok)
	require.Len(t, bucket.Entries, 1)
	assert.Equal(t, "Condomínio", bucket.Entries[0].Name)

	rows, ok := exp.Projection("alice", 2024)
	require.True(t, ok)
	require.Len(t, rows, 12)
	assert.True(t, rows[2].Expenses.Equal(decimal.NewFromInt(300)))
}

func TestHandleLedgerChangeSkipsOwners(t *testing.T) {
	_, exp, w := newFixture(t)
	msg := amqp.NewLedgerChangeMessage(amqp.KindOwner, applog.OpUpdate, "alice", "")
	require.NoError(t, w.HandleLedgerChange(context.Background(), msg))
	assert.Zero(t, exp.Writes())
}

func TestHandleLedgerChangeRejectsBadPeriod(t *testing.T) {
	_, exp, w := newFixture(t)
	msg := amqp.NewLedgerChangeMessage(amqp.KindRentalIncome, applog.OpUpsert, "alice", "2024-13")
	err := w.HandleLedgerChange(context.Background(), msg)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInvalidPeriod)
	assert.Zero(t, exp.Writes())
}

func TestExportAllProjectionsCoversEveryUser(t *testing.T) {
	ctx := context.Background()
	svc, exp, w := newFixture(t)
	for _, user := range []string{"alice", "bob"} {
		_, err := svc.AddEntry(ctx, user, core.NewPeriod(2024, time.January), core.EntryDraft{Name: "x", Value: "10"})
		require.NoError(t, err)
	}

	require.NoError(t, w.ExportAllProjections(ctx))
	for _, user := range []string{"alice", "bob"} {
		_, ok := exp.Projection(user, 2024)
		assert.True(t, ok, user)
	}
}

type failingExporter struct {
	*sheetsmem.Exporter
	failUser string
}

func (f failingExporter) ExportProjection(ctx context.Context, userID string, year int, rows []core.ProjectionRow) error {
	if userID == f.failUser {
		return errors.New("quota exceeded")
	}
	return f.Exporter.ExportProjection(ctx, userID, year, rows)
}

func TestExportAllProjectionsContinuesPastFailures(t *testing.T) {
	ctx := context.Background()
	svc := services.NewLedgerService(memory.NewStore(), services.Options{Logger: applog.Discard()})
	for _, user := range []string{"alice", "bob", "carol"} {
		_, err := svc.AddEntry(ctx, user, core.NewPeriod(2024, time.January), core.EntryDraft{Name: "x", Value: "10"})
		require.NoError(t, err)
	}
	exp := failingExporter{Exporter: sheetsmem.New(), failUser: "bob"}
	w := NewSyncWorker(svc, exp, applog.Discard(), WithParallelism(1),
		WithClock(func() time.Time { return time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC) }))

	err := w.ExportAllProjections(ctx)
	require.Error(t, err)
	_, ok := exp.Projection("alice", 2024)
	assert.True(t, ok)
	_, ok = exp.Projection("carol", 2024)
	assert.True(t, ok)
}

func TestExportAllLedgersWritesEveryPeriod(t *testing.T) {
	ctx := context.Background()
	svc, exp, w := newFixture(t)

	_, err := svc.AddEntry(ctx, "alice", core.NewPeriod(2024, time.November), core.EntryDraft{
		Name: "Parcela", Value: "100", Type: "expense", TotalInstallments: "3",
	})
	require.NoError(t, err)
	_, err = svc.SetRentalIncome(ctx, "bob", march2024, core.RentalIncome{Value: decimal.NewFromInt(700), IsActive: true})
	require.NoError(t, err)

	require.NoError(t, w.ExportAllLedgers(ctx))

	for _, p := range []core.Period{core.NewPeriod(2024, time.November), core.NewPeriod(2024, time.December), core.NewPeriod(2025, time.January)} {
		bucket, ok := exp.Period("alice", p)
		require.True(t, ok, p.Key())
		assert.Len(t, bucket.Entries, 1, p.Key())
	}
	bucket, ok := exp.Period("bob", march2024)
	require.True(t, ok)
	assert.True(t, bucket.Rental.Value.Equal(decimal.NewFromInt(700)))

	rows, ok := exp.Projection("alice", 2024)
	require.True(t, ok)
	assert.True(t, rows[10].Expenses.Equal(decimal.NewFromInt(100)))
	assert.True(t, rows[11].Expenses.Equal(decimal.NewFromInt(100)))
	bobRows, ok := exp.Projection("bob", 2024)
	require.True(t, ok)
	assert.True(t, bobRows[2].Revenue.Equal(decimal.NewFromInt(700)))
}
