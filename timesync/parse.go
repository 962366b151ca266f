package timesync

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tnicklin/birthday_countdown/timeutil"
)

var (
	// ErrUnrecognizedFormat is returned when a response carries no known
	// instant field.
	ErrUnrecognizedFormat = errors.New("timesync: unrecognized time format")
	// ErrOffsetTooLarge is returned when a measured offset exceeds MaxOffset.
	ErrOffsetTooLarge = errors.New("timesync: offset exceeds maximum allowable delta")
	// ErrBadStatus is returned for non-2xx responses.
	ErrBadStatus = errors.New("timesync: unexpected status")
	// ErrNoSources is returned by Sync when nothing is configured.
	ErrNoSources = errors.New("timesync: no time sources configured")
)

type fieldKind int

const (
	unixSeconds fieldKind = iota
	isoDateTime
	isoOrMillis
)

// instantFields lists recognized JSON fields in lookup order. Keys are
// matched exactly; "unixtime" and "UnixTime" come from different APIs.
var instantFields = []struct {
	name string
	kind fieldKind
}{
	{"unixtime", unixSeconds},        // worldtimeapi.org
	{"currentDateTime", isoDateTime}, // worldclockapi.com
	{"UnixTime", unixSeconds},
	{"timestamp", isoOrMillis},
}

// ParseInstant extracts the server-reported instant from a JSON body.
func ParseInstant(body []byte) (time.Time, error) {
	var fields map[string]json.RawMessage
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrUnrecognizedFormat, err)
	}

	for _, f := range instantFields {
		raw, ok := fields[f.name]
		if !ok || isNull(raw) {
			continue
		}
		t, err := parseField(raw, f.kind)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: field %s: %v", ErrUnrecognizedFormat, f.name, err)
		}
		return t, nil
	}
	return time.Time{}, ErrUnrecognizedFormat
}

func parseField(raw json.RawMessage, kind fieldKind) (time.Time, error) {
	var s string
	isString := json.Unmarshal(raw, &s) == nil

	switch kind {
	case unixSeconds:
		if isString {
			return timeutil.ParseUnixSeconds(json.Number(s))
		}
		return timeutil.ParseUnixSeconds(json.Number(raw))
	case isoDateTime:
		if !isString {
			return time.Time{}, fmt.Errorf("expected string, got %s", raw)
		}
		return timeutil.ParseISO8601(s)
	default:
		if isString {
			return timeutil.ParseISO8601(s)
		}
		// A bare number is epoch milliseconds, as JavaScript's Date reads it.
		ms, err := json.Number(raw).Int64()
		if err != nil {
			return time.Time{}, err
		}
		return time.UnixMilli(ms).UTC(), nil
	}
}

func isNull(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) == 0 || string(bytes.TrimSpace(raw)) == "null"
}
