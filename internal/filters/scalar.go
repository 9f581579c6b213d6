package filters

import (
	"github.com/TakashiAihara/preppin-sub000/internal/enums"
	"github.com/TakashiAihara/preppin-sub000/internal/jsonvalue"
	"github.com/TakashiAihara/preppin-sub000/internal/model"
	"github.com/TakashiAihara/preppin-sub000/internal/schema"
)

var (
	countSpec = Spec{Kind: model.KindInt}
	avgSpec   = Spec{Kind: model.KindFloat}
)

func (l *Library) scalarFilter(spec Spec, aggregates, nested bool, name string) schema.Schema {
	elem := valueSchema(spec)
	opt := func(s schema.Schema) schema.Schema { return schema.Optional(nullableIf(spec, s)) }

	props := []schema.Prop{schema.Field("equals", opt(elem))}
	if spec.Kind != model.KindBoolean {
		props = append(props,
			schema.Field("in", opt(schema.Array(elem))),
			schema.Field("notIn", opt(schema.Array(elem))),
		)
	}
	if spec.Kind != model.KindBoolean && spec.Kind != model.KindEnum {
		props = append(props,
			schema.Field("lt", opt(elem)),
			schema.Field("lte", opt(elem)),
			schema.Field("gt", opt(elem)),
			schema.Field("gte", opt(elem)),
		)
	}
	if spec.Kind == model.KindString {
		props = append(props,
			schema.Field("contains", opt(schema.String())),
			schema.Field("startsWith", opt(schema.String())),
			schema.Field("endsWith", opt(schema.String())),
		)
		if !nested {
			props = append(props, schema.Field("mode", schema.Optional(enums.QueryMode.Schema())))
		}
	}

	props = append(props, schema.Field("not", schema.Optional(schema.Union(
		schema.Lazy(func() schema.Schema { return l.filter(spec, aggregates, true) }),
		schema.Transform(nullableIf(spec, elem), equalsOf),
	))))

	if aggregates {
		props = append(props, l.aggregateProps(spec)...)
	}
	return schema.Object(props...).Strict().Named(name)
}

func (l *Library) aggregateProps(spec Spec) []schema.Prop {
	plain := spec
	props := []schema.Prop{
		schema.Field("_count", schema.Optional(schema.Lazy(func() schema.Schema {
			return l.filter(countSpec, false, true)
		}))),
	}
	if spec.Kind.IsNumeric() {
		avg := avgSpec
		avg.Nullable = spec.Nullable
		props = append(props,
			schema.Field("_avg", schema.Optional(schema.Lazy(func() schema.Schema { return l.filter(avg, false, true) }))),
			schema.Field("_sum", schema.Optional(schema.Lazy(func() schema.Schema { return l.filter(plain, false, true) }))),
		)
	}
	props = append(props,
		schema.Field("_min", schema.Optional(schema.Lazy(func() schema.Schema { return l.filter(plain, false, true) }))),
		schema.Field("_max", schema.Optional(schema.Lazy(func() schema.Schema { return l.filter(plain, false, true) }))),
	)
	return props
}

// listFilter covers scalar-list columns. There are no ordering or
// positional predicates.
func (l *Library) listFilter(spec Spec, name string) schema.Schema {
	elem := valueSchema(spec)
	return schema.Object(
		schema.Field("equals", schema.Optional(schema.Nullable(schema.Array(elem)))),
		schema.Field("has", schema.Optional(schema.Nullable(elem))),
		schema.Field("hasEvery", schema.Optional(schema.Array(elem))),
		schema.Field("hasSome", schema.Optional(schema.Array(elem))),
		schema.Field("isEmpty", schema.Optional(schema.Bool())),
	).Strict().Named(name)
}

func (l *Library) jsonFilter(spec Spec, aggregates bool, name string) schema.Schema {
	value := jsonvalue.ValueSchema()
	props := []schema.Prop{
		schema.Field("equals", schema.Optional(jsonvalue.MatchSchema())),
		schema.Field("path", schema.Optional(schema.Array(schema.String()))),
		schema.Field("string_contains", schema.Optional(schema.String())),
		schema.Field("string_starts_with", schema.Optional(schema.String())),
		schema.Field("string_ends_with", schema.Optional(schema.String())),
		schema.Field("array_contains", schema.Optional(schema.Nullable(value))),
		schema.Field("array_starts_with", schema.Optional(schema.Nullable(value))),
		schema.Field("array_ends_with", schema.Optional(schema.Nullable(value))),
		schema.Field("lt", schema.Optional(value)),
		schema.Field("lte", schema.Optional(value)),
		schema.Field("gt", schema.Optional(value)),
		schema.Field("gte", schema.Optional(value)),
		schema.Field("not", schema.Optional(jsonvalue.MatchSchema())),
	}
	if aggregates {
		plain := spec
		props = append(props,
			schema.Field("_count", schema.Optional(schema.Lazy(func() schema.Schema { return l.filter(countSpec, false, true) }))),
			schema.Field("_min", schema.Optional(schema.Lazy(func() schema.Schema { return l.filter(plain, false, true) }))),
			schema.Field("_max", schema.Optional(schema.Lazy(func() schema.Schema { return l.filter(plain, false, true) }))),
		)
	}
	return schema.Object(props...).Strict().Named(name)
}
