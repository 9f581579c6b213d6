// Package jsonvalue models JSON column payloads and the sentinels that tell
// SQL NULL apart from a stored JSON null.
package jsonvalue

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/TakashiAihara/preppin-sub000/internal/schema"
)

// Mode tags a JSON column operand.
type Mode uint8

const (
	// ModeValue carries a JSON document.
	ModeValue Mode = iota
	// ModeDbNull means the column is SQL NULL.
	ModeDbNull
	// ModeJsonNull means the column holds the JSON literal null.
	ModeJsonNull
	// ModeAnyNull matches either null form. Filters only.
	ModeAnyNull
)

func (m Mode) String() string {
	switch m {
	case ModeValue:
		return "Value"
	case ModeDbNull:
		return "DbNull"
	case ModeJsonNull:
		return "JsonNull"
	case ModeAnyNull:
		return "AnyNull"
	}
	return fmt.Sprintf("Mode(%d)", uint8(m))
}

// Write is a validated payload for a JSON column write. Mode is never
// ModeAnyNull.
type Write struct {
	Mode  Mode
	Value any
}

// Match is a validated operand of a JSON filter.
type Match struct {
	Mode  Mode
	Value any
}

var (
	DbNull   = Write{Mode: ModeDbNull}
	JsonNull = Write{Mode: ModeJsonNull}
	AnyNull  = Match{Mode: ModeAnyNull}
)

// ValueOf wraps a plain document.
func ValueOf(v any) Write { return Write{Mode: ModeValue, Value: v} }

// IsNull reports whether w writes a null sentinel instead of a document.
func (w Write) IsNull() bool { return w.Mode != ModeValue }

func (w Write) MarshalJSON() ([]byte, error) {
	if w.IsNull() {
		return json.Marshal(w.Mode.String())
	}
	return json.Marshal(w.Value)
}

func (m Match) MarshalJSON() ([]byte, error) {
	if m.Mode != ModeValue {
		return json.Marshal(m.Mode.String())
	}
	return json.Marshal(m.Value)
}

// Check reports whether v is a plain JSON value: string, number, bool,
// null, or arrays and string-keyed maps of those.
func Check(v any, path schema.Path) schema.Issues {
	switch t := v.(type) {
	case nil, string, bool, json.Number:
		return nil
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return schema.Custom(path, "JSON numbers must be finite")
		}
		return nil
	case float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return nil
	case []any:
		var issues schema.Issues
		for i, item := range t {
			issues = append(issues, Check(item, path.Index(i))...)
		}
		return issues
	case map[string]any:
		var issues schema.Issues
		for k, item := range t {
			issues = append(issues, Check(item, path.With(k))...)
		}
		return issues
	}
	return schema.Issues{{
		Code:     schema.CodeInvalidType,
		Path:     path,
		Message:  fmt.Sprintf("Expected JSON value, received %s", schema.TypeOf(v)),
		Expected: "json",
		Received: schema.TypeOf(v),
	}}
}

// fromMarshaler flattens a json.Marshaler into plain JSON data.
func fromMarshaler(m json.Marshaler) (any, error) {
	raw, err := m.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("serialize %T: %w", m, err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode serialized %T: %w", m, err)
	}
	return out, nil
}
