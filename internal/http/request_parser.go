// Package http serves the ledger as a JSON API.
//
// This file implements utilities for reading request bodies. Handlers accept
// either JSON or form-encoded bodies and read every field as a string, so
// the lenient parsing in core applies to both.

package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"rateio/internal/core"
)

const maxBodyBytes = 1 << 20

var errBodyTooLarge = errors.New("request body too large")

// RequestBodyParser handles different content types for request body parsing.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser reads the body once, up to maxBodyBytes.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{contentType: r.Header.Get("Content-Type")}
	if r.Body == nil {
		return p
	}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if p.err == nil && len(p.body) > maxBodyBytes {
		p.err = errBodyTooLarge
	}
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	trimmed := strings.TrimSpace(string(p.body))
	if trimmed == "" {
		p.formData = url.Values{}
		return nil
	}

	if trimmed[0] == '{' {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal([]byte(trimmed), &p.jsonData); err != nil {
			p.jsonData = nil
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(trimmed)
	return p.err
}

// Get returns a sanitized string value from the parsed data.
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// Has reports whether key was sent at all, even as null or empty.
func (p *RequestBodyParser) Has(key string) bool {
	if p.jsonData != nil {
		_, ok := p.jsonData[key]
		return ok
	}
	if p.formData != nil {
		_, ok := p.formData[key]
		return ok
	}
	return false
}

// Optional returns nil for an absent key, else its value.
func (p *RequestBodyParser) Optional(key string) *string {
	if !p.Has(key) {
		return nil
	}
	v := p.Get(key)
	return &v
}

func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

func parseEntryDraft(p *RequestBodyParser) core.EntryDraft {
	return core.EntryDraft{
		Name:              p.Get("name"),
		Value:             p.Get("value"),
		Category:          p.Get("category"),
		Periodicity:       p.Get("periodicity"),
		Type:              p.Get("type"),
		DueDay:            p.Get("dueDay"),
		StartDate:         p.Get("startDate"),
		TotalInstallments: p.Get("totalInstallments"),
	}
}

func parseEntryPatch(p *RequestBodyParser) core.EntryPatch {
	return core.EntryPatch{
		Name:        p.Optional("name"),
		Value:       p.Optional("value"),
		Category:    p.Optional("category"),
		Periodicity: p.Optional("periodicity"),
		Type:        p.Optional("type"),
		DueDay:      p.Optional("dueDay"),
		StartDate:   p.Optional("startDate"),
	}
}

func parseOwnerPatch(p *RequestBodyParser) core.OwnerPatch {
	return core.OwnerPatch{
		Name:       p.Optional("name"),
		Percentage: p.Optional("percentage"),
		ImageRef:   p.Optional("imageRef"),
	}
}

func parseRentalDraft(p *RequestBodyParser) core.RentalDraft {
	return core.RentalDraft{
		Name:              p.Get("name"),
		Value:             p.Get("value"),
		IsActive:          p.Get("isActive"),
		ContractDuration:  p.Get("contractDuration"),
		ContractStartDate: p.Get("contractStartDate"),
		StartDate:         p.Get("startDate"),
	}
}
