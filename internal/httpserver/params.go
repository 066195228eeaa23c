package httpserver

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"mushroom-dashboard/internal/domain"
)

const dateLayout = "2006-01-02"

// parseTime accepts RFC 3339 or a bare date. With endOfRange a bare date covers the
// whole day, so "to=2026-01-31" includes sales made on the 31st.
func parseTime(field, raw string, endOfRange bool) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be YYYY-MM-DD or RFC 3339", domain.ErrInvalidInput, field)
	}
	if endOfRange {
		t = t.AddDate(0, 0, 1)
	}
	return &t, nil
}

func parseLimit(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: limit must be a non-negative integer", domain.ErrInvalidInput)
	}
	return n, nil
}

func badRequest(err error) error {
	return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
}
