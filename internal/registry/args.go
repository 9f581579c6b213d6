package registry

import (
	"github.com/TakashiAihara/preppin-sub000/internal/model"
	"github.com/TakashiAihara/preppin-sub000/internal/schema"
)

func selectOrInclude(v any, path schema.Path) schema.Issues {
	m := v.(map[string]any)
	_, hasSelect := m["select"]
	_, hasInclude := m["include"]
	if hasSelect && hasInclude {
		return schema.Custom(path, "select and include cannot be used together")
	}
	return nil
}

func nonNegative(v any, path schema.Path) schema.Issues {
	if v.(int64) < 0 {
		return schema.Custom(path, "skip must not be negative")
	}
	return nil
}

func (r *Registry) declareProjections(e *model.Entity) {
	toMany := e.ToManyRelations()

	relationProps := func() []schema.Prop {
		var props []schema.Prop
		for _, rel := range e.Relations {
			args := rel.Target + argsName
			if rel.ToMany {
				args = rel.Target + findManyArgs
			}
			props = append(props, schema.Field(rel.Name, schema.Optional(schema.Union(schema.Bool(), r.ref(args)))))
		}
		if len(toMany) > 0 {
			props = append(props, schema.Field("_count", schema.Optional(
				schema.Union(schema.Bool(), r.ref(e.Name+countOutputTypeArgs)),
			)))
		}
		return props
	}

	sel := e.Name + selectName
	r.declare(e.Name, sel, func() schema.Schema {
		var props []schema.Prop
		for _, f := range e.Fields {
			props = append(props, schema.Field(f.Name, schema.Optional(schema.Bool())))
		}
		return schema.Object(append(props, relationProps()...)...).Strict().Named(sel)
	})

	inc := e.Name + includeName
	r.declare(e.Name, inc, func() schema.Schema {
		return schema.Object(relationProps()...).Strict().Named(inc)
	})

	args := e.Name + argsName
	r.declare(e.Name, args, func() schema.Schema {
		obj := schema.Object(
			schema.Field("select", schema.Optional(r.ref(sel))),
			schema.Field("include", schema.Optional(r.ref(inc))),
		).Strict().Named(args)
		return schema.Refine(obj, selectOrInclude)
	})

	if len(toMany) == 0 {
		return
	}
	countSel := e.Name + countOutputTypeSelect
	r.declare(e.Name, countSel, func() schema.Schema {
		props := make([]schema.Prop, 0, len(toMany))
		for _, rel := range toMany {
			props = append(props, schema.Field(rel.Name, schema.Optional(schema.Bool())))
		}
		return schema.Object(props...).Strict().Named(countSel)
	})
	countArgs := e.Name + countOutputTypeArgs
	r.declare(e.Name, countArgs, func() schema.Schema {
		return schema.Object(schema.Field("select", schema.Optional(r.ref(countSel)))).Strict().Named(countArgs)
	})
}

func (r *Registry) declareArgs(e *model.Entity) {
	fieldEnum := e.Name + scalarFieldEnum
	r.declare(e.Name, fieldEnum, func() schema.Schema {
		names := make([]string, len(e.Fields))
		for i, f := range e.Fields {
			names[i] = f.Name
		}
		return schema.Enum(fieldEnum, names...)
	})

	paging := func() []schema.Prop {
		return []schema.Prop{
			schema.Field("where", schema.Optional(r.ref(e.Name+whereInput))),
			schema.Field("cursor", schema.Optional(r.ref(e.Name+whereUniqueInput))),
			schema.Field("take", schema.Optional(schema.Int())),
			schema.Field("skip", schema.Optional(schema.Refine(schema.Int(), nonNegative))),
		}
	}
	aggregates := func() []schema.Prop {
		props := []schema.Prop{
			schema.Field("_count", schema.Optional(schema.Union(schema.Literal(true), r.ref(e.Name+countAggregateInput)))),
		}
		if len(e.NumericFields()) > 0 {
			props = append(props,
				schema.Field("_avg", schema.Optional(r.ref(e.Name+avgAggregateInput))),
				schema.Field("_sum", schema.Optional(r.ref(e.Name+sumAggregateInput))),
			)
		}
		return append(props,
			schema.Field("_min", schema.Optional(r.ref(e.Name+minAggregateInput))),
			schema.Field("_max", schema.Optional(r.ref(e.Name+maxAggregateInput))),
		)
	}
	projection := func() []schema.Prop {
		return []schema.Prop{
			schema.Field("select", schema.Optional(r.ref(e.Name+selectName))),
			schema.Field("include", schema.Optional(r.ref(e.Name+includeName))),
		}
	}

	fm := e.Name + findManyArgs
	r.declare(e.Name, fm, func() schema.Schema {
		props := append(projection(), paging()...)
		props = append(props,
			schema.Field("orderBy", schema.Optional(schema.OneOrMany(r.ref(e.Name+orderByWithRelationInput)))),
			schema.Field("distinct", schema.Optional(schema.OneOrMany(r.ref(fieldEnum)))),
		)
		return schema.Refine(schema.Object(props...).Strict().Named(fm), selectOrInclude)
	})

	fu := e.Name + findUniqueArgs
	r.declare(e.Name, fu, func() schema.Schema {
		props := append(projection(), schema.Field("where", r.ref(e.Name+whereUniqueInput)))
		return schema.Refine(schema.Object(props...).Strict().Named(fu), selectOrInclude)
	})

	agg := e.Name + aggregateArgs
	r.declare(e.Name, agg, func() schema.Schema {
		props := append(paging(),
			schema.Field("orderBy", schema.Optional(schema.OneOrMany(r.ref(e.Name+orderByWithRelationInput)))),
		)
		return schema.Object(append(props, aggregates()...)...).Strict().Named(agg)
	})

	gb := e.Name + groupByArgs
	r.declare(e.Name, gb, func() schema.Schema {
		props := []schema.Prop{
			schema.Field("where", schema.Optional(r.ref(e.Name+whereInput))),
			schema.Field("orderBy", schema.Optional(schema.OneOrMany(r.ref(e.Name+orderByWithAggregationInput)))),
			schema.Field("by", schema.OneOrMany(r.ref(fieldEnum))),
			schema.Field("having", schema.Optional(r.ref(e.Name+scalarWhereWithAggregatesInput))),
			schema.Field("take", schema.Optional(schema.Int())),
			schema.Field("skip", schema.Optional(schema.Refine(schema.Int(), nonNegative))),
		}
		return schema.Object(append(props, aggregates()...)...).Strict().Named(gb)
	})
}

func (r *Registry) declareEntity(e *model.Entity) {
	r.declareModels(e)
	r.declareWhere(e)
	r.declareWrites(e)
	r.declareOrderBy(e)
	r.declareAggregates(e)
	r.declareProjections(e)
	r.declareArgs(e)
}
