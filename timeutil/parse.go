package timeutil

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"
)

// iso8601Layouts are tried in order. Minute precision covers
// worldclockapi ("2025-09-04T22:10Z"); zone-less forms are read as UTC.
var iso8601Layouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// targetLayouts are the forms accepted for a configured countdown target.
var targetLayouts = []string{
	"January 2, 2006 15:04:05",
	"January 2, 2006 15:04",
	"January 2, 2006",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Location loads the named zone, falling back to UTC on empty or unknown names.
func Location(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ParseISO8601 parses the ISO-8601 variants returned by public time APIs.
func ParseISO8601(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty time")
	}
	for _, layout := range iso8601Layouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse iso8601 %q: unsupported layout", value)
}

// ParseUnixSeconds converts a JSON number of seconds since the epoch.
// Fractional seconds are kept at millisecond precision.
func ParseUnixSeconds(n json.Number) (time.Time, error) {
	if sec, err := n.Int64(); err == nil {
		return time.Unix(sec, 0).UTC(), nil
	}
	f, err := n.Float64()
	if err != nil {
		return time.Time{}, fmt.Errorf("parse unix seconds %q: %w", n.String(), err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return time.Time{}, fmt.Errorf("parse unix seconds %q: not finite", n.String())
	}
	return time.UnixMilli(int64(math.Round(f * 1000))).UTC(), nil
}

// ParseHTTPDate parses an HTTP Date header value.
func ParseHTTPDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty date header")
	}
	t, err := http.ParseTime(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date header %q: %w", value, err)
	}
	return t.UTC(), nil
}

// ParseTarget parses a countdown target. Values without a zone are read
// in loc.
func ParseTarget(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty target")
	}
	if loc == nil {
		loc = time.UTC
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	for _, layout := range targetLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse target %q: unsupported layout", value)
}
