package query

import (
	"strings"
)

// Operator is a comparison applied between a record field and a condition value.
type Operator string

const (
	Equal          Operator = "="
	NotEqual       Operator = "<>"
	Greater        Operator = ">"
	GreaterOrEqual Operator = ">="
	Less           Operator = "<"
	LessOrEqual    Operator = "<="
	StartsWith     Operator = "STARTS_WITH"
	Contains       Operator = "CONTAINS"
	In             Operator = "IN"
	NotIn          Operator = "NOT IN"
	Between        Operator = "BETWEEN"
)

// Operators lists every supported operator.
func Operators() []Operator {
	return []Operator{Equal, NotEqual, Greater, GreaterOrEqual, Less, LessOrEqual, StartsWith, Contains, In, NotIn, Between}
}

// ParseOperator normalizes case and surrounding space. An empty string is Equal.
// The second result is false for unknown operators.
func ParseOperator(s string) (Operator, bool) {
	s = strings.ToUpper(strings.Join(strings.Fields(s), " "))
	if s == "" {
		return Equal, true
	}
	for _, op := range Operators() {
		if string(op) == s {
			return op, true
		}
	}
	return Operator(s), false
}

// Direction orders a sort key.
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// Condition filters records on one field.
type Condition struct {
	Field    string   `json:"field" mapstructure:"field"`
	Value    any      `json:"value" mapstructure:"value"`
	Operator Operator `json:"operator,omitempty" mapstructure:"operator"`
}

// SortSpec orders records on one field.
type SortSpec struct {
	Field     string    `json:"field" mapstructure:"field"`
	Direction Direction `json:"direction,omitempty" mapstructure:"direction"`
}
