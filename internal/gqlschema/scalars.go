package gqlschema

import (
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"
)

// DateTime carries RFC 3339 timestamps. Input values stay strings so the
// registry's DateTime schema sees the same shape as over HTTP.
func DateTime() *graphql.Scalar {
	return graphql.NewScalar(graphql.ScalarConfig{
		Name:        "DateTime",
		Description: "An RFC 3339 timestamp.",
		Serialize: func(value interface{}) interface{} {
			switch v := value.(type) {
			case time.Time:
				return v.UTC().Format(time.RFC3339Nano)
			case *time.Time:
				if v == nil {
					return nil
				}
				return v.UTC().Format(time.RFC3339Nano)
			case string:
				return v
			}
			return nil
		},
		ParseValue: func(value interface{}) interface{} {
			if s, ok := value.(string); ok && parseTimestamp(s) {
				return s
			}
			return nil
		},
		ParseLiteral: func(valueAST ast.Value) interface{} {
			if sv, ok := valueAST.(*ast.StringValue); ok && parseTimestamp(sv.Value) {
				return sv.Value
			}
			return nil
		},
	})
}

func parseTimestamp(s string) bool {
	if _, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return true
	}
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

// JSON passes arbitrary JSON through unchanged. Output values are
// normalized through encoding/json so sentinels and timestamps render the
// way the HTTP API renders them.
func JSON() *graphql.Scalar {
	return graphql.NewScalar(graphql.ScalarConfig{
		Name:        "Json",
		Description: "Arbitrary JSON value.",
		Serialize: func(value interface{}) interface{} {
			if value == nil {
				return nil
			}
			raw, err := json.Marshal(value)
			if err != nil {
				slog.Default().Warn("failed to serialize Json scalar", slog.String("error", err.Error()))
				return nil
			}
			var out interface{}
			if err := json.Unmarshal(raw, &out); err != nil {
				return nil
			}
			return out
		},
		ParseValue: func(value interface{}) interface{} {
			return value
		},
		ParseLiteral: literalValue,
	})
}

// literalValue converts an inline GraphQL literal to the shapes
// encoding/json would produce. Integers stay int64.
func literalValue(valueAST ast.Value) interface{} {
	switch v := valueAST.(type) {
	case *ast.StringValue:
		return v.Value
	case *ast.BooleanValue:
		return v.Value
	case *ast.EnumValue:
		return v.Value
	case *ast.IntValue:
		if i, err := strconv.ParseInt(v.Value, 10, 64); err == nil {
			return i
		}
		if f, err := strconv.ParseFloat(v.Value, 64); err == nil {
			return f
		}
	case *ast.FloatValue:
		if f, err := strconv.ParseFloat(v.Value, 64); err == nil {
			return f
		}
	case *ast.ListValue:
		out := make([]interface{}, 0, len(v.Values))
		for _, item := range v.Values {
			out = append(out, literalValue(item))
		}
		return out
	case *ast.ObjectValue:
		out := make(map[string]interface{}, len(v.Fields))
		for _, field := range v.Fields {
			out[field.Name.Value] = literalValue(field.Value)
		}
		return out
	}
	return nil
}
