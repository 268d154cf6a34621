package http

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"rateio/internal/core"
)

const (
	headerUserID  = "X-User-ID"
	defaultUserID = "default"
	maxUserIDLen  = 128
)

// userIDFrom reads the caller's ledger identity. Authentication happens
// upstream; the header is trusted as given.
func userIDFrom(r *http.Request) (string, error) {
	id := sanitizeInput(r.Header.Get(headerUserID))
	if id == "" {
		return defaultUserID, nil
	}
	if len(id) > maxUserIDLen || strings.ContainsAny(id, "|\t\r\n") {
		return "", fmt.Errorf("invalid %s header", headerUserID)
	}
	return id, nil
}

func pathPeriod(r *http.Request) (core.Period, error) {
	return core.ParsePeriod(r.PathValue("period"))
}

func pathYear(r *http.Request) (int, error) {
	year, err := strconv.Atoi(r.PathValue("year"))
	if err != nil {
		return 0, fmt.Errorf("%w: year %q", core.ErrInvalidPeriod, r.PathValue("year"))
	}
	return year, nil
}

// sanitizeInput removes control characters except tab, newline and carriage
// return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
