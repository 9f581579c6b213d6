// Package filters builds the predicate and update-operation shapes for
// scalar columns: plain filters, their with-aggregates forms for HAVING
// clauses, list filters, JSON filters and field update operations.
package filters

import (
	"sync"

	"github.com/TakashiAihara/preppin-sub000/internal/enums"
	"github.com/TakashiAihara/preppin-sub000/internal/jsonvalue"
	"github.com/TakashiAihara/preppin-sub000/internal/model"
	"github.com/TakashiAihara/preppin-sub000/internal/schema"
)

// Spec identifies the column shape a filter is built for.
type Spec struct {
	Kind     model.Kind
	Enum     enums.Enum
	Nullable bool
	List     bool
}

// SpecOf derives the filter spec of a model field.
func SpecOf(m *model.Schema, f model.Field) Spec {
	spec := Spec{Kind: f.Kind, Nullable: f.Nullable, List: f.List}
	if f.Kind == model.KindEnum {
		spec.Enum = m.EnumOf(f)
	}
	return spec
}

func (s Spec) label() string {
	switch s.Kind {
	case model.KindEnum:
		return "Enum" + s.Enum.Name
	case model.KindBoolean:
		return "Bool"
	}
	return s.Kind.String()
}

// Library memoizes every shape by name. Safe for concurrent use.
type Library struct {
	mu    sync.RWMutex
	cache map[string]schema.Schema
}

func NewLibrary() *Library {
	return &Library{cache: make(map[string]schema.Schema)}
}

func (l *Library) memo(key string, build func() schema.Schema) schema.Schema {
	l.mu.RLock()
	s, ok := l.cache[key]
	l.mu.RUnlock()
	if ok {
		return s
	}

	built := build()

	l.mu.Lock()
	defer l.mu.Unlock()
	if s, ok := l.cache[key]; ok {
		return s
	}
	l.cache[key] = built
	return built
}

// FilterName names the filter for spec, e.g. StringNullableWithAggregatesFilter.
func FilterName(spec Spec, aggregates, nested bool) string {
	name := ""
	if nested {
		name = "Nested"
	}
	name += spec.label()
	switch {
	case spec.List:
		return name + "NullableListFilter"
	case spec.Nullable:
		name += "Nullable"
	}
	if aggregates {
		name += "WithAggregates"
	}
	return name + "Filter"
}

// Named returns every named shape the library can build for spec, keyed by
// name. Callers register these so lookups by name resolve.
func (l *Library) Named(spec Spec) map[string]func() schema.Schema {
	out := map[string]func() schema.Schema{
		FilterName(spec, false, false): func() schema.Schema { return l.Filter(spec) },
		FilterName(spec, true, false):  func() schema.Schema { return l.AggregateFilter(spec) },
		UpdateName(spec):               func() schema.Schema { return l.UpdateOps(spec) },
	}
	if spec.List {
		out[ListCreateName(spec)] = func() schema.Schema { return l.listCreateObject(spec) }
		return out
	}
	out[FilterName(spec, false, true)] = func() schema.Schema { return l.filter(spec, false, true) }
	out[FilterName(spec, true, true)] = func() schema.Schema { return l.filter(spec, true, true) }
	return out
}

// Filter returns the WHERE filter object for spec.
func (l *Library) Filter(spec Spec) schema.Schema {
	return l.filter(spec, false, false)
}

// AggregateFilter returns the HAVING filter object for spec.
func (l *Library) AggregateFilter(spec Spec) schema.Schema {
	return l.filter(spec, true, false)
}

func (l *Library) filter(spec Spec, aggregates, nested bool) schema.Schema {
	name := FilterName(spec, aggregates, nested)
	return l.memo(name, func() schema.Schema {
		switch {
		case spec.List:
			return l.listFilter(spec, name)
		case spec.Kind == model.KindJson:
			return l.jsonFilter(spec, aggregates, name)
		}
		return l.scalarFilter(spec, aggregates, nested, name)
	})
}

// WhereField accepts a filter object or a bare value, which is normalized
// to {equals: value}. List and JSON columns take only the filter object.
func (l *Library) WhereField(spec Spec) schema.Schema {
	return l.shorthand("where:", spec, false)
}

// HavingField is WhereField for HAVING clauses.
func (l *Library) HavingField(spec Spec) schema.Schema {
	return l.shorthand("having:", spec, true)
}

func (l *Library) shorthand(prefix string, spec Spec, aggregates bool) schema.Schema {
	return l.memo(prefix+FilterName(spec, aggregates, false), func() schema.Schema {
		f := l.filter(spec, aggregates, false)
		if spec.List || spec.Kind == model.KindJson {
			return f
		}
		return schema.Union(f, schema.Transform(nullableIf(spec, valueSchema(spec)), equalsOf))
	})
}

func equalsOf(v any) any {
	return map[string]any{"equals": v}
}

func valueSchema(spec Spec) schema.Schema {
	switch spec.Kind {
	case model.KindString:
		return schema.String()
	case model.KindInt:
		return schema.Int()
	case model.KindFloat:
		return schema.Float()
	case model.KindBoolean:
		return schema.Bool()
	case model.KindDateTime:
		return schema.DateTime()
	case model.KindEnum:
		return spec.Enum.Schema()
	case model.KindJson:
		return jsonvalue.ValueSchema()
	}
	return schema.Any()
}

// ValueSchema validates a single value of the column described by spec.
func ValueSchema(spec Spec) schema.Schema {
	return valueSchema(spec)
}

func nullableIf(spec Spec, s schema.Schema) schema.Schema {
	if spec.Nullable {
		return schema.Nullable(s)
	}
	return s
}
