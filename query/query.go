package query

import (
	"strings"

	"github.com/goliatone/go-remote-entities/record"
)

// Matches applies op between r[field] and value. Absent or null fields, unknown
// operators and malformed list values never match.
func Matches(r record.Record, field string, value any, op Operator) bool {
	if !r.Has(field) {
		return false
	}
	if op == "" {
		op = Equal
	}
	actual := r[field]

	switch op {
	case Equal:
		return looseEqual(actual, value)
	case NotEqual:
		return !looseEqual(actual, value)
	case Greater:
		return compareValues(actual, value) > 0
	case GreaterOrEqual:
		return compareValues(actual, value) >= 0
	case Less:
		return compareValues(actual, value) < 0
	case LessOrEqual:
		return compareValues(actual, value) <= 0
	case StartsWith:
		return strings.HasPrefix(stringOf(actual), stringOf(value))
	case Contains:
		return strings.Contains(strings.ToLower(stringOf(actual)), strings.ToLower(stringOf(value)))
	case In:
		return inList(actual, value)
	case NotIn:
		return !inList(actual, value)
	case Between:
		bounds := listOf(value)
		if len(bounds) < 2 {
			return false
		}
		return compareValues(bounds[0], actual) <= 0 && compareValues(actual, bounds[1]) <= 0
	}
	return false
}

func inList(actual, value any) bool {
	for _, candidate := range listOf(value) {
		if looseEqual(actual, candidate) {
			return true
		}
	}
	return false
}

// Compare orders a and b on field: -1, 0 or 1, negated for Desc. It returns 0
// when either record lacks the field or the direction is unknown.
func Compare(a, b record.Record, field string, dir Direction) int {
	if !a.Has(field) || !b.Has(field) {
		return 0
	}

	switch {
	case strings.EqualFold(string(dir), string(Asc)):
		return compareValues(a[field], b[field])
	case strings.EqualFold(string(dir), string(Desc)):
		return compareValues(b[field], a[field])
	}
	return 0
}

// Filter returns the records of set that satisfy every condition. Conditions
// with an empty field or a nil value are ignored.
func Filter(set *record.Set, conditions []Condition) *record.Set {
	active := make([]Condition, 0, len(conditions))
	for _, c := range conditions {
		if c.Field == "" || c.Value == nil {
			continue
		}
		active = append(active, c)
	}
	if len(active) == 0 {
		return set.Clone()
	}

	return set.Filter(func(r record.Record) bool {
		for _, c := range active {
			if !Matches(r, c.Field, c.Value, c.Operator) {
				return false
			}
		}
		return true
	})
}

// Sort returns set ordered by the sort keys in turn; the first non-zero
// comparison decides. Records that tie on every key keep their input order.
// Keys with an empty field are ignored and an empty direction is Asc.
func Sort(set *record.Set, sorts []SortSpec) *record.Set {
	active := make([]SortSpec, 0, len(sorts))
	for _, s := range sorts {
		if s.Field == "" {
			continue
		}
		if s.Direction == "" {
			s.Direction = Asc
		}
		active = append(active, s)
	}
	if len(active) == 0 {
		return set.Clone()
	}

	return set.SortStable(func(a, b record.Record) int {
		for _, s := range active {
			if c := Compare(a, b, s.Field, s.Direction); c != 0 {
				return c
			}
		}
		return 0
	})
}

// Apply filters, sorts and then slices set to [offset, offset+limit). A
// negative limit keeps everything after offset.
func Apply(set *record.Set, conditions []Condition, sorts []SortSpec, offset, limit int) *record.Set {
	return Sort(Filter(set, conditions), sorts).Slice(offset, limit)
}
