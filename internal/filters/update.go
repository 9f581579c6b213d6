package filters

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/TakashiAihara/preppin-sub000/internal/jsonvalue"
	"github.com/TakashiAihara/preppin-sub000/internal/model"
	"github.com/TakashiAihara/preppin-sub000/internal/schema"
)

// Op is a field update operator.
type Op uint8

const (
	OpSet Op = iota + 1
	OpIncrement
	OpDecrement
	OpMultiply
	OpDivide
	OpPush
)

var opNames = map[Op]string{
	OpSet:       "set",
	OpIncrement: "increment",
	OpDecrement: "decrement",
	OpMultiply:  "multiply",
	OpDivide:    "divide",
	OpPush:      "push",
}

func (o Op) String() string {
	if name, ok := opNames[o]; ok {
		return name
	}
	return fmt.Sprintf("Op(%d)", uint8(o))
}

func opFromKey(key string) Op {
	for op, name := range opNames {
		if name == key {
			return op
		}
	}
	return 0
}

// Update is one validated field mutation. Push values are always []any.
type Update struct {
	Op    Op
	Value any
}

func (u Update) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{u.Op.String(): u.Value})
}

// UpdateName names the update-operations object for spec, e.g.
// NullableFloatFieldUpdateOperationsInput.
func UpdateName(spec Spec) string {
	if spec.List {
		return spec.label() + "ListUpdateOperationsInput"
	}
	prefix := ""
	if spec.Nullable {
		prefix = "Nullable"
	}
	if spec.Kind == model.KindJson {
		return prefix + "JsonUpdateInput"
	}
	return prefix + spec.label() + "FieldUpdateOperationsInput"
}

// ListCreateName names the {set: [...]} form accepted for list columns on create.
func ListCreateName(spec Spec) string {
	return spec.label() + "ListCreateInput"
}

// UpdateOps returns the operations object for spec. Exactly one operator
// must be present.
func (l *Library) UpdateOps(spec Spec) schema.Schema {
	name := UpdateName(spec)
	return l.memo(name, func() schema.Schema {
		if spec.Kind == model.KindJson {
			return schema.Transform(jsonvalue.WriteSchema(spec.Nullable), setOf)
		}
		elem := valueSchema(spec)
		var obj *schema.ObjectSchema
		switch {
		case spec.List:
			obj = schema.Object(
				schema.Field("set", schema.Optional(schema.Array(elem))),
				schema.Field("push", schema.Optional(schema.OneOrMany(elem))),
			)
		case spec.Kind.IsNumeric():
			obj = schema.Object(
				schema.Field("set", schema.Optional(nullableIf(spec, elem))),
				schema.Field("increment", schema.Optional(elem)),
				schema.Field("decrement", schema.Optional(elem)),
				schema.Field("multiply", schema.Optional(elem)),
				schema.Field("divide", schema.Optional(elem)),
			)
		default:
			obj = schema.Object(schema.Field("set", schema.Optional(nullableIf(spec, elem))))
		}
		return schema.Transform(schema.Refine(obj.Strict().Named(name), exactlyOneOp), toUpdate)
	})
}

func exactlyOneOp(v any, path schema.Path) schema.Issues {
	m := v.(map[string]any)
	if len(m) == 1 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) == 0 {
		return schema.Custom(path, "update operation requires exactly one operator")
	}
	return schema.Custom(path, "update operation requires exactly one operator, got %v", keys)
}

func toUpdate(v any) any {
	for k, val := range v.(map[string]any) {
		return Update{Op: opFromKey(k), Value: val}
	}
	return nil
}

func setOf(v any) any {
	return Update{Op: OpSet, Value: v}
}

// UpdateField accepts an operations object or a bare value, read as set.
func (l *Library) UpdateField(spec Spec) schema.Schema {
	return l.memo("update:"+UpdateName(spec), func() schema.Schema {
		ops := l.UpdateOps(spec)
		if spec.Kind == model.KindJson {
			return ops
		}
		bare := nullableIf(spec, valueSchema(spec))
		if spec.List {
			bare = schema.Array(valueSchema(spec))
		}
		return schema.Union(ops, schema.Transform(bare, setOf))
	})
}

func (l *Library) listCreateObject(spec Spec) schema.Schema {
	name := ListCreateName(spec)
	return l.memo(name, func() schema.Schema {
		return schema.Object(schema.Field("set", schema.Array(valueSchema(spec)))).Strict().Named(name)
	})
}

// ListCreate accepts a list or {set: list} and yields the list.
func (l *Library) ListCreate(spec Spec) schema.Schema {
	return l.memo("create:"+ListCreateName(spec), func() schema.Schema {
		elems := schema.Array(valueSchema(spec))
		return schema.Union(
			elems,
			schema.Transform(l.listCreateObject(spec), func(v any) any { return v.(map[string]any)["set"] }),
		)
	})
}
