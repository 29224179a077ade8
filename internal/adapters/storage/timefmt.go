package storage

import (
	"fmt"
	"time"
)

// TimeLayout is the text layout for every timestamp column.
const TimeLayout = "2006-01-02T15:04:05.999999999Z07:00"

// FormatTime renders t for a NOT NULL timestamp column.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// NullTime renders t for a nullable timestamp column; the zero time is NULL.
func NullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return FormatTime(t)
}

// NullString maps "" to NULL for optional reference columns.
func NullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// ParseTime parses a stored timestamp, accepting the legacy layouts sqlite defaults produce.
func ParseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, f := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse time: %s", s)
}
