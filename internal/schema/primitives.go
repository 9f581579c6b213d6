package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// StringSchema accepts strings.
type StringSchema struct{}

func String() *StringSchema { return &StringSchema{} }

func (s *StringSchema) Parse(v any, path Path) (any, Issues) {
	str, ok := v.(string)
	if !ok {
		return nil, invalidType(path, "string", v)
	}
	return str, nil
}

// NumberSchema accepts finite numbers. Integer schemas reject fractions and
// normalize to int64; float schemas normalize to float64.
type NumberSchema struct {
	Integer bool
}

func Float() *NumberSchema { return &NumberSchema{} }

func Int() *NumberSchema { return &NumberSchema{Integer: true} }

func (s *NumberSchema) Parse(v any, path Path) (any, Issues) {
	expected := "number"
	if s.Integer {
		expected = "integer"
	}
	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, invalidType(path, expected, v)
	}
	if !s.Integer {
		return f, nil
	}
	if i, ok := v.(int64); ok {
		return i, nil
	}
	if f != math.Trunc(f) || f > math.MaxInt64 || f < math.MinInt64 {
		return nil, invalidType(path, expected, v)
	}
	return int64(f), nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// BoolSchema accepts booleans.
type BoolSchema struct{}

func Bool() *BoolSchema { return &BoolSchema{} }

func (s *BoolSchema) Parse(v any, path Path) (any, Issues) {
	b, ok := v.(bool)
	if !ok {
		return nil, invalidType(path, "boolean", v)
	}
	return b, nil
}

// DateTimeSchema accepts time.Time values and RFC 3339 strings (a plain
// calendar date is read as midnight UTC). Output is always time.Time.
type DateTimeSchema struct{}

func DateTime() *DateTimeSchema { return &DateTimeSchema{} }

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

func (s *DateTimeSchema) Parse(v any, path Path) (any, Issues) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		for _, layout := range dateLayouts {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, nil
			}
		}
		return nil, Issues{{
			Code:     CodeInvalidType,
			Path:     path,
			Message:  fmt.Sprintf("Invalid date %q", t),
			Expected: "date",
			Received: "string",
		}}
	}
	return nil, invalidType(path, "date", v)
}

// EnumSchema accepts exactly one of a closed, case-sensitive set of tokens.
type EnumSchema struct {
	Name   string
	Values []string
	index  map[string]struct{}
}

func Enum(name string, values ...string) *EnumSchema {
	index := make(map[string]struct{}, len(values))
	for _, v := range values {
		index[v] = struct{}{}
	}
	return &EnumSchema{Name: name, Values: append([]string(nil), values...), index: index}
}

func (s *EnumSchema) Parse(v any, path Path) (any, Issues) {
	str, ok := v.(string)
	if !ok {
		return nil, invalidType(path, s.expected(), v)
	}
	if _, ok := s.index[str]; !ok {
		return nil, Issues{{
			Code:     CodeInvalidEnumValue,
			Path:     path,
			Message:  fmt.Sprintf("Invalid enum value. Expected %s, received '%s'", s.expected(), str),
			Received: str,
			Options:  append([]string(nil), s.Values...),
		}}
	}
	return str, nil
}

func (s *EnumSchema) expected() string {
	quoted := make([]string, len(s.Values))
	for i, v := range s.Values {
		quoted[i] = "'" + v + "'"
	}
	return strings.Join(quoted, " | ")
}

// LiteralSchema accepts a single comparable value.
type LiteralSchema struct {
	Value any
}

func Literal(v any) *LiteralSchema { return &LiteralSchema{Value: v} }

func (s *LiteralSchema) Parse(v any, path Path) (any, Issues) {
	if v != s.Value {
		return nil, Issues{{
			Code:     CodeInvalidLiteral,
			Path:     path,
			Message:  fmt.Sprintf("Invalid literal value, expected %v", s.Value),
			Expected: fmt.Sprintf("%v", s.Value),
			Received: TypeOf(v),
		}}
	}
	return v, nil
}

// AnySchema accepts every value unchanged.
type AnySchema struct{}

func Any() *AnySchema { return &AnySchema{} }

func (s *AnySchema) Parse(v any, _ Path) (any, Issues) { return v, nil }
