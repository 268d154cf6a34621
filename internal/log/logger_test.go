package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"":      slog.LevelInfo,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Fatalf("ParseLevel(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestJSONLoggerCarriesComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf, Format: "json", Level: slog.LevelDebug, Component: ComponentLedger})

	logger.LogError(context.Background(), "write failed", errors.New("disk full"), OpCreate, FieldPeriod, "2024-03")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("output is not json: %v: %s", err, buf.String())
	}
	if record[FieldComponent] != ComponentLedger {
		t.Fatalf("component = %v", record[FieldComponent])
	}
	if record[FieldError] != "disk full" || record[FieldOperation] != OpCreate || record[FieldPeriod] != "2024-03" {
		t.Fatalf("unexpected record %v", record)
	}
}

func TestWithComponentOverrides(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf}).WithComponent(ComponentHTTP)
	if logger.Component() != ComponentHTTP {
		t.Fatalf("component = %s", logger.Component())
	}
	logger.Info("hello")
	if !strings.Contains(buf.String(), "component=http") {
		t.Fatalf("missing component in %q", buf.String())
	}
}

func TestContextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf}).With(FieldRequestID, "req_abc")

	FromContext(NewContext(context.Background(), logger)).Info("inside")
	if !strings.Contains(buf.String(), "request_id=req_abc") {
		t.Fatalf("request id not logged: %q", buf.String())
	}
}

func TestFromContextDefault(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatal("expected default logger")
	}
}
