package query

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/goliatone/go-remote-entities/record"
	"github.com/spf13/cast"
)

// compareValues orders two loosely typed values. Numbers and numeric strings
// compare numerically, booleans by truthiness, everything else as strings.
func compareValues(a, b any) int {
	if fa, ok := numeric(a); ok {
		if fb, ok := numeric(b); ok {
			return compareFloats(fa, fb)
		}
	}

	_, aBool := a.(bool)
	_, bBool := b.(bool)
	if aBool || bBool {
		return compareBools(record.Truthy(a), record.Truthy(b))
	}

	return strings.Compare(stringOf(a), stringOf(b))
}

func looseEqual(a, b any) bool {
	return compareValues(a, b) == 0
}

func numeric(v any) (float64, bool) {
	switch t := v.(type) {
	case nil, bool:
		return 0, false
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	}

	switch reflect.ValueOf(v).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		f, err := cast.ToFloat64E(v)
		return f, err == nil
	}
	return 0, false
}

func stringOf(v any) string {
	return record.KeyOf(v)
}

func compareFloats(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareBools(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	}
	return 1
}

// listOf turns a slice or array into []any. Scalars become a one element list.
func listOf(v any) []any {
	if v == nil {
		return nil
	}
	if list, ok := v.([]any); ok {
		return list
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out
	}
	return []any{v}
}
