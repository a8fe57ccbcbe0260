package removaltime

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseTimeToLive parses a history time-to-live given either as a plain
// number of days ("5") or as an ISO-8601 day period ("P5D"). An empty string
// means no time-to-live and returns nil.
func ParseTimeToLive(s string) (*int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	raw := s
	upper := strings.ToUpper(s)
	if strings.HasPrefix(upper, "P") {
		if !strings.HasSuffix(upper, "D") || len(upper) < 3 {
			return nil, fmt.Errorf("invalid time to live %q: only day periods (PnD) are supported", s)
		}
		raw = upper[1 : len(upper)-1]
	}

	days, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid time to live %q: %w", s, err)
	}
	if days < 0 {
		return nil, fmt.Errorf("invalid time to live %q: must not be negative", s)
	}
	return &days, nil
}

// AddDays returns trigger + ttl calendar days, or nil when ttl is nil.
func AddDays(trigger time.Time, ttl *int) *time.Time {
	if ttl == nil {
		return nil
	}
	t := trigger.AddDate(0, 0, *ttl)
	return &t
}
