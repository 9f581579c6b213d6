package jsonvalue

import (
	"encoding/json"

	"github.com/TakashiAihara/preppin-sub000/internal/schema"
)

// Token enums, named the way the generated inputs refer to them.
const (
	NullValueInputName         = "JsonNullValueInput"
	NullableNullValueInputName = "NullableJsonNullValueInput"
	NullValueFilterName        = "JsonNullValueFilter"
)

var (
	nullValueInput         = schema.Enum(NullValueInputName, "JsonNull")
	nullableNullValueInput = schema.Enum(NullableNullValueInputName, "DbNull", "JsonNull")
	nullValueFilter        = schema.Enum(NullValueFilterName, "DbNull", "JsonNull", "AnyNull")
)

func writeToken(tok string) Write {
	if tok == "DbNull" {
		return DbNull
	}
	return JsonNull
}

func matchToken(tok string) Match {
	switch tok {
	case "DbNull":
		return Match{Mode: ModeDbNull}
	case "JsonNull":
		return Match{Mode: ModeJsonNull}
	}
	return AnyNull
}

// NullValueInput accepts 'JsonNull' for non-nullable JSON columns.
func NullValueInput() schema.Schema {
	return schema.Transform(nullValueInput, func(v any) any { return writeToken(v.(string)) })
}

// NullableNullValueInput accepts 'DbNull' or 'JsonNull'.
func NullableNullValueInput() schema.Schema {
	return schema.Transform(nullableNullValueInput, func(v any) any { return writeToken(v.(string)) })
}

// NullValueFilter accepts 'DbNull', 'JsonNull' or 'AnyNull', each mapping to
// its own sentinel.
func NullValueFilter() schema.Schema {
	return schema.Transform(nullValueFilter, func(v any) any { return matchToken(v.(string)) })
}

type valueSchema struct{}

// ValueSchema accepts any plain JSON value, null included, and returns it
// unchanged.
func ValueSchema() schema.Schema { return valueSchema{} }

func (valueSchema) Parse(v any, path schema.Path) (any, schema.Issues) {
	if issues := Check(v, path); len(issues) > 0 {
		return nil, issues
	}
	return v, nil
}

func (valueSchema) Describe() schema.Description { return schema.Description{Kind: "json"} }

type inputSchema struct{}

// InputSchema accepts a non-null JSON value or any json.Marshaler, whose
// serialized form is decoded back into plain data.
func InputSchema() schema.Schema { return inputSchema{} }

func (inputSchema) Parse(v any, path schema.Path) (any, schema.Issues) {
	if v == nil {
		return nil, schema.Issues{{
			Code:     schema.CodeInvalidType,
			Path:     path,
			Message:  "Expected JSON value, received null",
			Expected: "json",
			Received: "null",
		}}
	}
	if m, ok := v.(json.Marshaler); ok {
		flat, err := fromMarshaler(m)
		if err != nil {
			return nil, schema.Custom(path, "%v", err)
		}
		return flat, nil
	}
	if issues := Check(v, path); len(issues) > 0 {
		return nil, issues
	}
	return v, nil
}

func (inputSchema) Describe() schema.Description { return schema.Description{Kind: "json"} }

type writeSchema struct {
	nullable bool
	model    bool
}

// WriteSchema validates a create or update payload for a JSON column and
// yields a Write. Nullable columns take 'DbNull', 'JsonNull' or null (read as
// DbNull); required columns take only 'JsonNull'.
func WriteSchema(nullable bool) schema.Schema { return writeSchema{nullable: nullable} }

// ModelSchema validates a JSON column inside a full record. Null and the
// sentinel tokens map as in WriteSchema, except that a required column reads
// a bare null as the JSON literal null.
func ModelSchema(nullable bool) schema.Schema { return writeSchema{nullable: nullable, model: true} }

func (s writeSchema) Parse(v any, path schema.Path) (any, schema.Issues) {
	switch t := v.(type) {
	case nil:
		if s.nullable {
			return DbNull, nil
		}
		if s.model {
			return JsonNull, nil
		}
		return nil, schema.Issues{{
			Code:     schema.CodeInvalidType,
			Path:     path,
			Message:  "Expected JSON value or 'JsonNull', received null",
			Expected: "json",
			Received: "null",
		}}
	case string:
		switch t {
		case "JsonNull":
			return JsonNull, nil
		case "DbNull":
			if s.nullable {
				return DbNull, nil
			}
			return nil, schema.Custom(path, "'DbNull' is not allowed on a non-nullable JSON column, use 'JsonNull'")
		}
	}
	out, issues := inputSchema{}.Parse(v, path)
	if len(issues) > 0 {
		return nil, issues
	}
	return ValueOf(out), nil
}

func (s writeSchema) Describe() schema.Description {
	opts := []string{"JsonNull"}
	if s.nullable {
		opts = []string{"DbNull", "JsonNull"}
	}
	return schema.Description{Kind: "json", Nullable: s.nullable, Options: opts}
}

type matchSchema struct{}

// MatchSchema validates a JSON filter operand, yielding a Match.
func MatchSchema() schema.Schema { return matchSchema{} }

func (matchSchema) Parse(v any, path schema.Path) (any, schema.Issues) {
	if tok, ok := v.(string); ok {
		switch tok {
		case "DbNull", "JsonNull", "AnyNull":
			return matchToken(tok), nil
		}
	}
	if issues := Check(v, path); len(issues) > 0 {
		return nil, issues
	}
	return Match{Mode: ModeValue, Value: v}, nil
}

func (matchSchema) Describe() schema.Description {
	return schema.Description{Kind: "json", Options: append([]string(nil), nullValueFilter.Values...)}
}
