// Package record holds the data shapes shared by the API clients, the query engine
// and the storage adapter: a decoded remote entity (Record) and an ordered,
// key-unique collection of them (Set).
package record

import (
	"reflect"
	"strconv"

	"github.com/spf13/cast"
)

// Record is one decoded remote entity, keyed by field name.
type Record map[string]any

// Has reports whether the field is present and not null.
func (r Record) Has(field string) bool {
	if r == nil {
		return false
	}
	v, ok := r[field]
	return ok && v != nil
}

// String returns the field value coerced to a string, or "" when absent.
func (r Record) String(field string) string {
	if !r.Has(field) {
		return ""
	}
	return KeyOf(r[field])
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// KeyOf renders a field value as a Set key. Integral floats (the shape JSON numbers
// decode into) render without a fractional part so 5 and "5" share a key.
func KeyOf(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return KeyOf(float64(t))
	}
	return cast.ToString(v)
}

// Truthy reports whether a loosely typed value counts as set: false, zero numbers,
// "", "0", nil and empty collections are falsy.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != "" && t != "0"
	case float64:
		return t != 0
	case float32:
		return t != 0
	case int:
		return t != 0
	case int64:
		return t != 0
	case int32:
		return t != 0
	case uint:
		return t != 0
	case uint64:
		return t != 0
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() > 0
	case reflect.Ptr, reflect.Interface:
		return !rv.IsNil()
	}
	return true
}
