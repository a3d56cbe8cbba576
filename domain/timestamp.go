package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Timestamp is a point in time normalized from the shapes moments have been
// stored in over the years: ISO-8601 strings, {seconds, nanoseconds} objects
// and raw epoch milliseconds. The zero value is an invalid timestamp and
// compares as zero.
type Timestamp struct {
	ms    int64
	valid bool
}

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// TimestampOf converts a time.Time. The zero time yields an invalid timestamp.
func TimestampOf(t time.Time) Timestamp {
	if t.IsZero() {
		return Timestamp{}
	}
	return Timestamp{ms: t.UnixMilli(), valid: true}
}

// TimestampFromMillis wraps epoch milliseconds.
func TimestampFromMillis(ms int64) Timestamp {
	return Timestamp{ms: ms, valid: true}
}

// TimestampFromSeconds wraps an epoch seconds/nanoseconds pair.
func TimestampFromSeconds(sec, nanos int64) Timestamp {
	return Timestamp{ms: sec*1000 + nanos/int64(time.Millisecond), valid: true}
}

// ParseTimestamp parses an ISO-8601 string. Unparseable input yields an
// invalid timestamp rather than an error.
func ParseTimestamp(s string) Timestamp {
	s = strings.TrimSpace(s)
	if s == "" {
		return Timestamp{}
	}
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return TimestampOf(t)
		}
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return TimestampFromMillis(ms)
	}
	return Timestamp{}
}

// Valid reports whether the timestamp was parsed from a usable value.
func (t Timestamp) Valid() bool { return t.valid }

// Millis is the comparable sort key. Invalid timestamps return 0.
func (t Timestamp) Millis() int64 {
	if !t.valid {
		return 0
	}
	return t.ms
}

// Time converts back to time.Time; invalid timestamps return the zero time.
func (t Timestamp) Time() time.Time {
	if !t.valid {
		return time.Time{}
	}
	return time.UnixMilli(t.ms)
}

// Before reports whether t sorts strictly before o.
func (t Timestamp) Before(o Timestamp) bool { return t.Millis() < o.Millis() }

// String renders an RFC 3339 UTC time, or "" when invalid.
func (t Timestamp) String() string {
	if !t.valid {
		return ""
	}
	return t.Time().UTC().Format(time.RFC3339Nano)
}

type secondsObject struct {
	Seconds           *int64 `json:"seconds"`
	Nanoseconds       int64  `json:"nanoseconds"`
	ExportSeconds     *int64 `json:"_seconds"`
	ExportNanoseconds int64  `json:"_nanoseconds"`
}

// UnmarshalJSON accepts a string, a seconds object or a number (epoch ms).
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*t = Timestamp{}
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = ParseTimestamp(s)
	case '{':
		var obj secondsObject
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		switch {
		case obj.Seconds != nil:
			*t = TimestampFromSeconds(*obj.Seconds, obj.Nanoseconds)
		case obj.ExportSeconds != nil:
			*t = TimestampFromSeconds(*obj.ExportSeconds, obj.ExportNanoseconds)
		}
	default:
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*t = TimestampFromMillis(int64(n))
	}
	return nil
}

// MarshalJSON writes an RFC 3339 string, or null when invalid.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if !t.valid {
		return []byte("null"), nil
	}
	return json.Marshal(t.String())
}
