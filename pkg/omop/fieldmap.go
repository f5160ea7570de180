package omop

import (
	"fmt"
	"time"
)

// FieldMap is a parsed source row: field name to value, with NULL and
// sentinel entries already dropped. Key presence, never value truthiness,
// is the signal downstream logic branches on.
type FieldMap map[string]interface{}

func (f FieldMap) Has(key string) bool {
	_, ok := f[key]
	return ok
}

func (f FieldMap) HasAny(keys ...string) bool {
	for _, k := range keys {
		if _, ok := f[k]; ok {
			return true
		}
	}
	return false
}

// String returns the value under key rendered as a string. Database drivers
// hand back concatenated concept codes as strings, but identifiers scanned
// from integer columns arrive as int64; both render the same way.
func (f FieldMap) String(key string) (string, bool) {
	v, ok := f[key]
	if !ok {
		return "", false
	}
	switch s := v.(type) {
	case string:
		return s, true
	case []byte:
		return string(s), true
	default:
		return fmt.Sprint(v), true
	}
}

func (f FieldMap) Int(key string) (int64, bool) {
	v, ok := f[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float32:
		return int64(n), true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}

func (f FieldMap) Float(key string) (float64, bool) {
	v, ok := f[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func (f FieldMap) Time(key string) (time.Time, bool) {
	v, ok := f[key]
	if !ok {
		return time.Time{}, false
	}
	t, ok := v.(time.Time)
	return t, ok
}

// PersonID returns the patient key the record groups under.
func (f FieldMap) PersonID() (string, bool) {
	if s, ok := f.String("person_id"); ok {
		return s, true
	}
	return f.String("id")
}
