package repository

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Row is one backend record keyed by column name. Values arrive either from
// JSON (strings, float64, json.Number, nested maps) or from Firestore
// (native Go types), so the accessors below accept both.
type Row map[string]interface{}

func (r Row) String(key string) string {
	switch v := r[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// OptString returns nil for missing, null or empty values.
func (r Row) OptString(key string) *string {
	s := r.String(key)
	if s == "" {
		return nil
	}
	return &s
}

func (r Row) Has(key string) bool {
	v, ok := r[key]
	return ok && v != nil
}

func (r Row) Int64(key string) int64 {
	switch v := r[key].(type) {
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case int64:
		return v
	case float64:
		return int64(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n
		}
		if f, err := v.Float64(); err == nil {
			return int64(f)
		}
	case string:
		if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			return n
		}
	}
	return 0
}

func (r Row) Float64(key string) float64 {
	switch v := r[key].(type) {
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case float32:
		return float64(v)
	case float64:
		return v
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f
		}
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return 0
}

// OptFloat64 returns nil when the column is missing or null.
func (r Row) OptFloat64(key string) *float64 {
	if !r.Has(key) {
		return nil
	}
	f := r.Float64(key)
	return &f
}

// Time parses a timestamp column. ok is false when the value is missing or
// unparsable.
func (r Row) Time(key string) (t time.Time, ok bool) {
	switch v := r[key].(type) {
	case time.Time:
		return v, !v.IsZero()
	case string:
		return ParseTimestamp(v)
	case json.Number:
		if ms, err := v.Int64(); err == nil {
			return time.UnixMilli(ms), true
		}
	case float64:
		return time.UnixMilli(int64(v)), true
	case int64:
		return time.UnixMilli(v), true
	}
	return time.Time{}, false
}

// Nested returns an embedded row, or nil.
func (r Row) Nested(key string) Row {
	switch v := r[key].(type) {
	case Row:
		return v
	case map[string]interface{}:
		return Row(v)
	case []interface{}:
		// one-to-many embeds come back as arrays
		if len(v) > 0 {
			if m, ok := v[0].(map[string]interface{}); ok {
				return Row(m)
			}
		}
	}
	return nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseTimestamp accepts the timestamp shapes the backend emits. Values
// without a zone are read as UTC.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms), true
	}
	return time.Time{}, false
}
