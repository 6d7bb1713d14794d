package schema

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/volatiletech/null/v8"
)

// Record holds field values keyed by storage name.
type Record map[string]interface{}

// Extract keeps the payload entries (keyed by presentation name) that are writable
// fields of the schema, keyed by storage name. Values are coerced to the field type
// where the conversion is lossless; anything else is left for Validate to reject.
func (s *Schema) Extract(payload map[string]interface{}) Record {
	rec := make(Record, len(payload))
	for name, v := range payload {
		f, ok := s.byName[name]
		if !ok {
			continue
		}
		rec[f.Column] = coerce(f.Type, v)
	}
	return rec
}

// Present maps a record back to presentation names.
func (s *Schema) Present(rec Record) map[string]interface{} {
	out := make(map[string]interface{}, len(rec))
	for col, v := range rec {
		if name, ok := s.ToPresentation(col); ok {
			out[name] = v
		}
	}
	return out
}

// recordColumns returns the record's storage names, in schema order.
func (s *Schema) recordColumns(rec Record) []string {
	cols := make([]string, 0, len(rec))
	for _, f := range s.fields {
		if _, ok := rec[f.Column]; ok {
			cols = append(cols, f.Column)
		}
	}
	return cols
}

// Split returns the record's columns (in schema order) and their values.
func (rec Record) Split(s *Schema) ([]string, []interface{}) {
	cols := s.recordColumns(rec)
	vals := make([]interface{}, 0, len(cols))
	for _, col := range cols {
		vals = append(vals, rec[col])
	}
	return cols, vals
}

// Coerce converts v to the Go representation of the named field, if possible.
func (s *Schema) Coerce(name string, v interface{}) interface{} {
	if name == s.Key.Name {
		return coerce(s.Key.Type, v)
	}
	if f, ok := s.byName[name]; ok {
		return coerce(f.Type, v)
	}
	return v
}

func coerce(ft FieldType, v interface{}) interface{} {
	switch val := v.(type) {
	case nil:
		return nil
	case null.String:
		if !val.Valid {
			return nil
		}
		v = val.String
	case null.Int:
		if !val.Valid {
			return nil
		}
		v = val.Int
	case null.Time:
		if !val.Valid {
			return nil
		}
		v = val.Time
	case []interface{}:
		out := make([]interface{}, 0, len(val))
		for _, item := range val {
			out = append(out, coerce(ft, item))
		}
		return out
	}

	switch ft {
	case Int:
		switch val := v.(type) {
		case int:
			return val
		case int32:
			return int(val)
		case int64:
			return int(val)
		case float64:
			if val == math.Trunc(val) && math.Abs(val) <= 1<<53 {
				return int(val)
			}
		case json.Number:
			if i, err := val.Int64(); err == nil {
				return int(i)
			}
		case string:
			if i, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
				return i
			}
		}
	case Float:
		switch val := v.(type) {
		case float64:
			return val
		case float32:
			return float64(val)
		case int:
			return float64(val)
		case int64:
			return float64(val)
		case json.Number:
			if f, err := val.Float64(); err == nil {
				return f
			}
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
				return f
			}
		}
	case String:
		switch val := v.(type) {
		case float64:
			return strconv.FormatFloat(val, 'f', -1, 64)
		case int:
			return strconv.Itoa(val)
		case json.Number:
			return val.String()
		}
	case Bool:
		if val, ok := v.(string); ok {
			if b, err := strconv.ParseBool(val); err == nil {
				return b
			}
		}
	case Time:
		if val, ok := v.(string); ok {
			if t, err := time.Parse(time.RFC3339, strings.TrimSpace(val)); err == nil {
				return t.UTC()
			}
		}
		if val, ok := v.(time.Time); ok {
			return val.UTC()
		}
	}
	return v
}

func accepts(ft FieldType, v interface{}) bool {
	switch v.(type) {
	case string:
		return ft == String
	case int:
		return ft == Int
	case float64:
		return ft == Float
	case bool:
		return ft == Bool
	case time.Time:
		return ft == Time
	}
	return false
}
