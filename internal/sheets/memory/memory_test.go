package memory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"rateio/internal/core"
	"rateio/internal/ledger"
)

func TestExporterOverwritesPeriod(t *testing.T) {
	e := New()
	ctx := context.Background()
	p := core.NewPeriod(2024, time.March)

	first := ledger.EmptyBucket()
	first.Entries = append(first.Entries, core.Entry{ID: "a", Value: decimal.NewFromInt(10)})
	if err := e.ExportPeriod(ctx, "alice", p, first); err != nil {
		t.Fatalf("export: %v", err)
	}
	if err := e.ExportPeriod(ctx, "alice", p, ledger.EmptyBucket()); err != nil {
		t.Fatalf("export: %v", err)
	}

	got, ok := e.Period("alice", p)
	if !ok || len(got.Entries) != 0 {
		t.Fatalf("expected latest empty export, got %+v ok=%v", got, ok)
	}
	if _, ok := e.Period("bob", p); ok {
		t.Fatal("bob has no exports")
	}
	if e.Writes() != 2 {
		t.Fatalf("writes = %d", e.Writes())
	}
}

func TestExporterProjection(t *testing.T) {
	e := New()
	rows := ledger.ProjectFor(2025, ledger.NewBook())
	if err := e.ExportProjection(context.Background(), "alice", 2025, rows); err != nil {
		t.Fatalf("export: %v", err)
	}
	got, ok := e.Projection("alice", 2025)
	if !ok || len(got) != 12 {
		t.Fatalf("unexpected projection: %d rows ok=%v", len(got), ok)
	}
}

func TestExporterHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := New().ExportPeriod(ctx, "alice", core.NewPeriod(2024, time.May), ledger.EmptyBucket()); err == nil {
		t.Fatal("expected context error")
	}
}
