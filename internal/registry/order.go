package registry

import (
	"sort"

	"github.com/TakashiAihara/preppin-sub000/internal/enums"
	"github.com/TakashiAihara/preppin-sub000/internal/model"
	"github.com/TakashiAihara/preppin-sub000/internal/schema"
)

// sortField is SortOrder, or for nullable columns also {sort, nulls}.
func (r *Registry) sortField(f model.Field) schema.Schema {
	order := enums.SortOrder.Schema()
	if f.Nullable {
		return schema.Union(order, r.ref(SortOrderInputName))
	}
	return order
}

// atMostOneKey keeps each ordering object to a single column. Callers pass
// a list of objects to sort by several columns in a fixed order.
func atMostOneKey(v any, path schema.Path) schema.Issues {
	m := v.(map[string]any)
	if len(m) <= 1 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return schema.Custom(path, "orderBy objects take exactly one key, got %v; pass an array to sort by several", keys)
}

func orderable(e *model.Entity) []model.Field {
	var out []model.Field
	for _, f := range e.Fields {
		if f.Orderable() {
			out = append(out, f)
		}
	}
	return out
}

// sortProps gives every field in fields a plain SortOrder property.
func sortProps(fields []model.Field) []schema.Prop {
	props := make([]schema.Prop, 0, len(fields))
	for _, f := range fields {
		props = append(props, schema.Field(f.Name, schema.Optional(enums.SortOrder.Schema())))
	}
	return props
}

func (r *Registry) declareOrderBy(e *model.Entity) {
	numeric := e.NumericFields()
	obj := func(n string, props []schema.Prop) func() schema.Schema {
		return func() schema.Schema { return schema.Object(props...).Strict().Named(n) }
	}

	withRelation := e.Name + orderByWithRelationInput
	r.declare(e.Name, withRelation, func() schema.Schema {
		var props []schema.Prop
		for _, f := range orderable(e) {
			props = append(props, schema.Field(f.Name, schema.Optional(r.sortField(f))))
		}
		for _, rel := range e.Relations {
			target := rel.Target + orderByWithRelationInput
			if rel.ToMany {
				target = rel.Target + orderByRelationAggregate
			}
			props = append(props, schema.Field(rel.Name, schema.Optional(r.ref(target))))
		}
		return schema.Refine(schema.Object(props...).Strict().Named(withRelation), atMostOneKey)
	})

	withAggregation := e.Name + orderByWithAggregationInput
	r.declare(e.Name, withAggregation, func() schema.Schema {
		var props []schema.Prop
		for _, f := range orderable(e) {
			props = append(props, schema.Field(f.Name, schema.Optional(r.sortField(f))))
		}
		props = append(props, schema.Field("_count", schema.Optional(r.ref(e.Name+countOrderByAggregateInput))))
		if len(numeric) > 0 {
			props = append(props,
				schema.Field("_avg", schema.Optional(r.ref(e.Name+avgOrderByAggregateInput))),
				schema.Field("_sum", schema.Optional(r.ref(e.Name+sumOrderByAggregateInput))),
			)
		}
		props = append(props,
			schema.Field("_min", schema.Optional(r.ref(e.Name+minOrderByAggregateInput))),
			schema.Field("_max", schema.Optional(r.ref(e.Name+maxOrderByAggregateInput))),
		)
		return schema.Refine(schema.Object(props...).Strict().Named(withAggregation), atMostOneKey)
	})

	relAgg := e.Name + orderByRelationAggregate
	r.declare(e.Name, relAgg, obj(relAgg, []schema.Prop{
		schema.Field("_count", schema.Optional(enums.SortOrder.Schema())),
	}))

	var countable []model.Field
	for _, f := range e.Fields {
		if !f.List {
			countable = append(countable, f)
		}
	}
	r.declare(e.Name, e.Name+countOrderByAggregateInput, obj(e.Name+countOrderByAggregateInput, sortProps(countable)))
	r.declare(e.Name, e.Name+minOrderByAggregateInput, obj(e.Name+minOrderByAggregateInput, sortProps(orderable(e))))
	r.declare(e.Name, e.Name+maxOrderByAggregateInput, obj(e.Name+maxOrderByAggregateInput, sortProps(orderable(e))))
	if len(numeric) > 0 {
		r.declare(e.Name, e.Name+avgOrderByAggregateInput, obj(e.Name+avgOrderByAggregateInput, sortProps(numeric)))
		r.declare(e.Name, e.Name+sumOrderByAggregateInput, obj(e.Name+sumOrderByAggregateInput, sortProps(numeric)))
	}
}

// trueProps gives every field in fields a property that accepts only true.
func trueProps(fields []model.Field) []schema.Prop {
	props := make([]schema.Prop, 0, len(fields)+1)
	for _, f := range fields {
		props = append(props, schema.Field(f.Name, schema.Optional(schema.Literal(true))))
	}
	return props
}

func (r *Registry) declareAggregates(e *model.Entity) {
	selector := func(suffix string, props []schema.Prop) {
		n := e.Name + suffix
		r.declare(e.Name, n, func() schema.Schema { return schema.Object(props...).Strict().Named(n) })
	}

	count := append(trueProps(e.Fields), schema.Field("_all", schema.Optional(schema.Literal(true))))
	selector(countAggregateInput, count)
	selector(minAggregateInput, trueProps(orderable(e)))
	selector(maxAggregateInput, trueProps(orderable(e)))
	if numeric := e.NumericFields(); len(numeric) > 0 {
		selector(avgAggregateInput, trueProps(numeric))
		selector(sumAggregateInput, trueProps(numeric))
	}
}
