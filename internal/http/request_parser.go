// This file contains helpers for reading path, query and body values.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"spendtrack/internal/core"
)

var errMissingUserID = errors.New("missing userId parameter")

// decodeJSON reads a single JSON object from the request body. Unknown fields
// are ignored.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// parseUserID validates a user id taken from a path or query parameter.
func parseUserID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errMissingUserID
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid userId parameter: %q", raw)
	}
	return id.String(), nil
}

// ParseDateRange reads the optional startDate/endDate query parameters. Both
// must be present for the range to apply; a single bound is ignored.
func ParseDateRange(r *http.Request) (core.DateRange, error) {
	q := r.URL.Query()
	return core.NewDateRange(q.Get("startDate"), q.Get("endDate"))
}

// sanitizeInput trims whitespace and removes control characters other than
// tab, newline and carriage return.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
