package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRequestBodyParser_JSON(t *testing.T) {
	body := `{"name": "Condomínio", "value": 450.5, "totalInstallments": 3, "isActive": true}`
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if !parser.IsJSON() {
		t.Error("Expected IsJSON() to be true")
	}
	if name := parser.Get("name"); name != "Condomínio" {
		t.Errorf("Get('name') = %q, want 'Condomínio'", name)
	}
	if value := parser.Get("value"); value != "450.5" {
		t.Errorf("Get('value') = %q, want '450.5'", value)
	}
	if n := parser.Get("totalInstallments"); n != "3" {
		t.Errorf("Get('totalInstallments') = %q, want '3'", n)
	}
	if active := parser.Get("isActive"); active != "true" {
		t.Errorf("Get('isActive') = %q, want 'true'", active)
	}
}

func TestRequestBodyParser_FormData(t *testing.T) {
	body := "name=form+test&value=100&dueDay="
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if parser.IsJSON() {
		t.Error("Expected IsJSON() to be false for form data")
	}
	if name := parser.Get("name"); name != "form test" {
		t.Errorf("Get('name') = %q, want 'form test'", name)
	}
	if !parser.Has("dueDay") {
		t.Error("Expected Has('dueDay') for an empty form field")
	}
}

func TestRequestBodyParser_EmptyBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(""))

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if val := parser.Get("nonexistent"); val != "" {
		t.Errorf("Get('nonexistent') = %q, want empty string", val)
	}
	if parser.Optional("nonexistent") != nil {
		t.Error("Optional('nonexistent') should be nil")
	}
}

func TestRequestBodyParser_Optional(t *testing.T) {
	req := httptest.NewRequest(http.MethodPatch, "/test", strings.NewReader(`{"name": "Aluguel", "dueDay": null}`))

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	name := parser.Optional("name")
	if name == nil || *name != "Aluguel" {
		t.Errorf("Optional('name') = %v, want 'Aluguel'", name)
	}
	// A JSON null clears the field.
	if due := parser.Optional("dueDay"); due == nil || *due != "" {
		t.Errorf("Optional('dueDay') = %v, want empty string", due)
	}
	if parser.Optional("value") != nil {
		t.Error("Optional('value') should be nil when absent")
	}
}

func TestRequestBodyParser_Sanitizes(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader("{\"name\": \"  IPTU\\u0000 \"}"))

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if name := parser.Get("name"); name != "IPTU" {
		t.Errorf("Get('name') = %q, want 'IPTU'", name)
	}
}

func TestRequestBodyParser_MalformedJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(`{"name": `))

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err == nil {
		t.Fatal("Parse() should fail on truncated JSON")
	}
	// The error is sticky.
	if err := parser.Parse(); err == nil {
		t.Fatal("second Parse() should return the same error")
	}
}

func TestRequestBodyParser_TooLarge(t *testing.T) {
	body := "name=" + strings.Repeat("a", maxBodyBytes)
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); !errors.Is(err, errBodyTooLarge) {
		t.Fatalf("Parse() error = %v, want %v", err, errBodyTooLarge)
	}
}

func TestParseRentalDraft(t *testing.T) {
	req := httptest.NewRequest(http.MethodPut, "/test", strings.NewReader("value=2500&isActive=on&contractDuration=12&contractStartDate=2024-03"))

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	rental, err := parseRentalDraft(parser).Parse()
	if err != nil {
		t.Fatalf("RentalDraft.Parse() error = %v", err)
	}
	if !rental.IsActive {
		t.Error("checkbox value 'on' should activate the rental")
	}
	if rental.ContractDuration == nil || *rental.ContractDuration != 12 {
		t.Errorf("ContractDuration = %v, want 12", rental.ContractDuration)
	}
	if rental.ContractStartDate == nil || rental.ContractStartDate.Key() != "2024-03" {
		t.Errorf("ContractStartDate = %v, want 2024-03", rental.ContractStartDate)
	}
}

func TestUserIDFrom(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{name: "missing header uses default", header: "", want: defaultUserID},
		{name: "plain id", header: "alice", want: "alice"},
		{name: "trimmed", header: "  bob ", want: "bob"},
		{name: "separator rejected", header: "a|b", wantErr: true},
		{name: "too long", header: strings.Repeat("x", maxUserIDLen+1), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set(headerUserID, tt.header)
			}
			got, err := userIDFrom(req)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("userIDFrom() = %q, want error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("userIDFrom() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("userIDFrom() = %q, want %q", got, tt.want)
			}
		})
	}
}
