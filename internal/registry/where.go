package registry

import (
	"github.com/TakashiAihara/preppin-sub000/internal/model"
	"github.com/TakashiAihara/preppin-sub000/internal/schema"
)

func isOf(v any) any { return map[string]any{"is": v} }

// combinators are AND, OR and NOT over self. A single operand is accepted
// and always normalized to a list.
func (r *Registry) combinators(self string) []schema.Prop {
	item := r.ref(self)
	return []schema.Prop{
		schema.Field("AND", schema.Optional(schema.OneOrMany(item))),
		schema.Field("OR", schema.Optional(schema.OneOrMany(item))),
		schema.Field("NOT", schema.Optional(schema.OneOrMany(item))),
	}
}

// relationWhere filters through one relation. A to-one relation also takes
// a bare WhereInput for the target, normalized to {is: ...}.
func (r *Registry) relationWhere(rel model.Relation) schema.Schema {
	t := rel.Target
	switch {
	case rel.ToMany:
		return r.ref(t + listRelationFilter)
	case rel.Nullable || !rel.Owner():
		return schema.Union(
			r.ref(t+nullableRelationFilter),
			schema.Transform(schema.Nullable(r.ref(t+whereInput)), isOf),
		)
	}
	return schema.Union(
		r.ref(t+relationFilter),
		schema.Transform(r.ref(t+whereInput), isOf),
	)
}

func (r *Registry) whereObject(e *model.Entity, n string) schema.Schema {
	props := r.combinators(n)
	for _, f := range e.Fields {
		props = append(props, schema.Field(f.Name, schema.Optional(r.lib.WhereField(r.spec(f)))))
	}
	for _, rel := range e.Relations {
		props = append(props, schema.Field(rel.Name, schema.Optional(r.relationWhere(rel))))
	}
	return schema.Object(props...).Strict().Named(n)
}

func (r *Registry) scalarWhereObject(e *model.Entity, n string, aggregates bool) schema.Schema {
	props := r.combinators(n)
	for _, f := range e.Fields {
		field := r.lib.WhereField(r.spec(f))
		if aggregates {
			field = r.lib.HavingField(r.spec(f))
		}
		props = append(props, schema.Field(f.Name, schema.Optional(field)))
	}
	return schema.Object(props...).Strict().Named(n)
}

func (r *Registry) declareWhere(e *model.Entity) {
	w := e.Name + whereInput
	r.declare(e.Name, w, func() schema.Schema { return r.whereObject(e, w) })

	sw := e.Name + scalarWhereInput
	r.declare(e.Name, sw, func() schema.Schema { return r.scalarWhereObject(e, sw, false) })

	swa := e.Name + scalarWhereWithAggregatesInput
	r.declare(e.Name, swa, func() schema.Schema { return r.scalarWhereObject(e, swa, true) })

	u := e.Name + whereUniqueInput
	r.declare(e.Name, u, func() schema.Schema { return r.uniqueWhere(e, u) })

	rf := e.Name + relationFilter
	r.declare(e.Name, rf, func() schema.Schema {
		return schema.Object(
			schema.Field("is", schema.Optional(r.ref(w))),
			schema.Field("isNot", schema.Optional(r.ref(w))),
		).Strict().Named(rf)
	})

	nrf := e.Name + nullableRelationFilter
	r.declare(e.Name, nrf, func() schema.Schema {
		return schema.Object(
			schema.Field("is", schema.Nullish(r.ref(w))),
			schema.Field("isNot", schema.Nullish(r.ref(w))),
		).Strict().Named(nrf)
	})

	lrf := e.Name + listRelationFilter
	r.declare(e.Name, lrf, func() schema.Schema {
		return schema.Object(
			schema.Field("every", schema.Optional(r.ref(w))),
			schema.Field("some", schema.Optional(r.ref(w))),
			schema.Field("none", schema.Optional(r.ref(w))),
		).Strict().Named(lrf)
	})
}
