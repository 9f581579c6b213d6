package registry

import (
	"github.com/TakashiAihara/preppin-sub000/internal/filters"
	"github.com/TakashiAihara/preppin-sub000/internal/jsonvalue"
	"github.com/TakashiAihara/preppin-sub000/internal/model"
	"github.com/TakashiAihara/preppin-sub000/internal/schema"
)

// createField validates one column of a create payload. Nullable JSON
// columns that are left out are written as SQL NULL.
func (r *Registry) createField(f model.Field) schema.Schema {
	spec := r.spec(f)
	var s schema.Schema
	switch {
	case f.List:
		return schema.Optional(r.lib.ListCreate(spec))
	case f.Kind == model.KindJson && f.Nullable:
		return schema.Default(jsonvalue.WriteSchema(true), dbNull)
	case f.Kind == model.KindJson:
		s = jsonvalue.WriteSchema(false)
	case f.Nullable:
		return schema.Nullish(filters.ValueSchema(spec))
	default:
		s = filters.ValueSchema(spec)
	}
	if f.HasDefault() {
		return schema.Optional(s)
	}
	return s
}

func (r *Registry) updateField(f model.Field) schema.Schema {
	return schema.Optional(r.lib.UpdateField(r.spec(f)))
}

// scalarProps builds one property per scalar of e. Foreign keys are kept
// only when fks is set; omit drops further columns.
func scalarProps(e *model.Entity, fks bool, omit []string, field func(model.Field) schema.Schema) []schema.Prop {
	owned := e.ForeignKeys()
	skip := make(map[string]struct{}, len(omit))
	for _, name := range omit {
		skip[name] = struct{}{}
	}
	props := make([]schema.Prop, 0, len(e.Fields))
	for _, f := range e.Fields {
		if _, isFK := owned[f.Name]; isFK && !fks {
			continue
		}
		if _, ok := skip[f.Name]; ok {
			continue
		}
		props = append(props, schema.Field(f.Name, field(f)))
	}
	return props
}

// omittedFKs returns the foreign keys implied by writing through without.
func omittedFKs(without *model.Relation) []string {
	if without == nil {
		return nil
	}
	return without.Fields
}

func (r *Registry) nestedFor(e *model.Entity, rel model.Relation) nested {
	return nested{t: r.model.Target(rel), back: r.model.BackRelation(e, rel)}
}

// createObject builds a create input for e. The checked form nests to-one
// relations and hides their foreign keys. The unchecked form exposes the
// keys instead. without names the relation the payload is written through.
func (r *Registry) createObject(e *model.Entity, checked bool, without *model.Relation, n string) schema.Schema {
	props := scalarProps(e, !checked, omittedFKs(without), r.createField)
	for _, rel := range e.Relations {
		if without != nil && rel.Name == without.Name {
			continue
		}
		nest := r.nestedFor(e, rel)
		var s schema.Schema
		switch {
		case rel.ToMany && checked:
			s = schema.Optional(r.ref(nest.createNestedMany()))
		case rel.ToMany:
			s = schema.Optional(r.ref(nest.uncheckedCreateNestedMany()))
		case !checked && rel.Owner():
			continue
		case rel.Nullable || !rel.Owner():
			s = schema.Optional(r.ref(nest.createNestedOne()))
		default:
			s = r.ref(nest.createNestedOne())
		}
		props = append(props, schema.Field(rel.Name, s))
	}
	return r.materialize(e, schema.Object(props...).Strict().Named(n))
}

// updateObject builds an update input for e. Every property is optional.
func (r *Registry) updateObject(e *model.Entity, checked bool, without *model.Relation, n string) schema.Schema {
	props := scalarProps(e, !checked, omittedFKs(without), r.updateField)
	for _, rel := range e.Relations {
		if without != nil && rel.Name == without.Name {
			continue
		}
		nest := r.nestedFor(e, rel)
		var s schema.Schema
		switch {
		case rel.ToMany && checked:
			s = r.ref(nest.updateManyNested())
		case rel.ToMany:
			s = r.ref(nest.uncheckedUpdateManyNested())
		case !checked && rel.Owner():
			continue
		case rel.Nullable || !rel.Owner():
			s = r.ref(nest.updateOneNested())
		default:
			s = r.ref(nest.updateOneRequiredNested())
		}
		props = append(props, schema.Field(rel.Name, schema.Optional(s)))
	}
	return schema.Object(props...).Strict().Named(n)
}

func (r *Registry) declareWrites(e *model.Entity) {
	input := func(suffix string, build func(n string) schema.Schema) {
		n := e.Name + suffix
		r.declare(e.Name, n, func() schema.Schema { return build(n) })
	}

	input(createInput, func(n string) schema.Schema { return r.createObject(e, true, nil, n) })
	input(uncheckedCreateInput, func(n string) schema.Schema { return r.createObject(e, false, nil, n) })
	input(updateInput, func(n string) schema.Schema { return r.updateObject(e, true, nil, n) })
	input(uncheckedUpdateInput, func(n string) schema.Schema { return r.updateObject(e, false, nil, n) })
	input(createManyInput, func(n string) schema.Schema {
		return r.materialize(e, schema.Object(scalarProps(e, true, nil, r.createField)...).Strict().Named(n))
	})
	input(updateManyMutationInput, func(n string) schema.Schema {
		return schema.Object(scalarProps(e, false, nil, r.updateField)...).Strict().Named(n)
	})
	input(uncheckedUpdateManyInput, func(n string) schema.Schema {
		return schema.Object(scalarProps(e, true, nil, r.updateField)...).Strict().Named(n)
	})

	for _, back := range e.Relations {
		r.declareNested(e, back)
	}
}

// declareNested declares the inputs used when another entity writes rows of
// t through the relation paired with back.
func (r *Registry) declareNested(t *model.Entity, back model.Relation) {
	n := nested{t: t, back: back}
	forward := r.model.BackRelation(t, back)
	unique := t.Name + whereUniqueInput
	without := back

	slot := func(name string, build func() schema.Schema) { r.declare(t.Name, name, build) }
	createEither := func() schema.Schema {
		return schema.Union(r.ref(n.createWithout()), r.ref(n.uncheckedCreateWithout()))
	}
	updateEither := func() schema.Schema {
		return schema.Union(r.ref(n.updateWithout()), r.ref(n.uncheckedUpdateWithout()))
	}
	object := func(name string, props ...schema.Prop) *schema.ObjectSchema {
		return schema.Object(props...).Strict().Named(name)
	}

	slot(n.createWithout(), func() schema.Schema { return r.createObject(t, true, &without, n.createWithout()) })
	slot(n.uncheckedCreateWithout(), func() schema.Schema {
		return r.createObject(t, false, &without, n.uncheckedCreateWithout())
	})
	slot(n.updateWithout(), func() schema.Schema { return r.updateObject(t, true, &without, n.updateWithout()) })
	slot(n.uncheckedUpdateWithout(), func() schema.Schema {
		return r.updateObject(t, false, &without, n.uncheckedUpdateWithout())
	})
	slot(n.createOrConnectWithout(), func() schema.Schema {
		return object(n.createOrConnectWithout(),
			schema.Field("where", r.ref(unique)),
			schema.Field("create", createEither()),
		)
	})

	if !forward.ToMany {
		slot(n.createNestedOne(), func() schema.Schema {
			obj := object(n.createNestedOne(),
				schema.Field("create", schema.Optional(createEither())),
				schema.Field("connectOrCreate", schema.Optional(r.ref(n.createOrConnectWithout()))),
				schema.Field("connect", schema.Optional(r.ref(unique))),
			)
			return schema.Refine(obj, atLeastOneKey)
		})
		slot(n.upsertWithout(), func() schema.Schema {
			return object(n.upsertWithout(),
				schema.Field("update", updateEither()),
				schema.Field("create", createEither()),
				schema.Field("where", schema.Optional(r.ref(t.Name+whereInput))),
			)
		})
		props := func() []schema.Prop {
			return []schema.Prop{
				schema.Field("create", schema.Optional(createEither())),
				schema.Field("connectOrCreate", schema.Optional(r.ref(n.createOrConnectWithout()))),
				schema.Field("upsert", schema.Optional(r.ref(n.upsertWithout()))),
				schema.Field("connect", schema.Optional(r.ref(unique))),
				schema.Field("update", schema.Optional(updateEither())),
			}
		}
		if forward.Nullable || !forward.Owner() {
			slot(n.updateOneNested(), func() schema.Schema {
				orWhere := schema.Optional(schema.Union(schema.Bool(), r.ref(t.Name+whereInput)))
				return object(n.updateOneNested(), append(props(),
					schema.Field("disconnect", orWhere),
					schema.Field("delete", orWhere),
				)...)
			})
		} else {
			slot(n.updateOneRequiredNested(), func() schema.Schema {
				return object(n.updateOneRequiredNested(), props()...)
			})
		}
		return
	}

	many := func(name string) schema.Schema {
		return schema.Optional(schema.OneOrMany(r.ref(name)))
	}
	createManyProps := func() []schema.Prop {
		return []schema.Prop{
			schema.Field("create", schema.Optional(schema.OneOrMany(createEither()))),
			schema.Field("connectOrCreate", many(n.createOrConnectWithout())),
			schema.Field("createMany", schema.Optional(r.ref(n.createManyEnvelope()))),
			schema.Field("connect", many(unique)),
		}
	}
	updateManyProps := func() []schema.Prop {
		return append(createManyProps(),
			schema.Field("upsert", many(n.upsertWithWhereUnique())),
			schema.Field("set", many(unique)),
			schema.Field("disconnect", many(unique)),
			schema.Field("delete", many(unique)),
			schema.Field("update", many(n.updateWithWhereUnique())),
			schema.Field("updateMany", many(n.updateManyWithWhere())),
			schema.Field("deleteMany", many(t.Name+scalarWhereInput)),
		)
	}

	slot(n.createNestedMany(), func() schema.Schema { return object(n.createNestedMany(), createManyProps()...) })
	slot(n.uncheckedCreateNestedMany(), func() schema.Schema {
		return object(n.uncheckedCreateNestedMany(), createManyProps()...)
	})
	slot(n.updateManyNested(), func() schema.Schema { return object(n.updateManyNested(), updateManyProps()...) })
	slot(n.uncheckedUpdateManyNested(), func() schema.Schema {
		return object(n.uncheckedUpdateManyNested(), updateManyProps()...)
	})
	slot(n.createManyEnvelope(), func() schema.Schema {
		return object(n.createManyEnvelope(),
			schema.Field("data", schema.OneOrMany(r.ref(n.createMany()))),
			schema.Field("skipDuplicates", schema.Optional(schema.Bool())),
		)
	})
	slot(n.createMany(), func() schema.Schema {
		return r.materialize(t, object(n.createMany(), scalarProps(t, true, back.Fields, r.createField)...))
	})
	slot(n.upsertWithWhereUnique(), func() schema.Schema {
		return object(n.upsertWithWhereUnique(),
			schema.Field("where", r.ref(unique)),
			schema.Field("update", updateEither()),
			schema.Field("create", createEither()),
		)
	})
	slot(n.updateWithWhereUnique(), func() schema.Schema {
		return object(n.updateWithWhereUnique(),
			schema.Field("where", r.ref(unique)),
			schema.Field("data", updateEither()),
		)
	})
	slot(n.updateManyWithWhere(), func() schema.Schema {
		return object(n.updateManyWithWhere(),
			schema.Field("where", r.ref(t.Name+scalarWhereInput)),
			schema.Field("data", schema.Union(
				r.ref(t.Name+updateManyMutationInput),
				r.ref(n.uncheckedUpdateManyWithout()),
			)),
		)
	})
	slot(n.uncheckedUpdateManyWithout(), func() schema.Schema {
		return object(n.uncheckedUpdateManyWithout(), scalarProps(t, true, back.Fields, r.updateField)...)
	})
}

func atLeastOneKey(v any, path schema.Path) schema.Issues {
	if len(v.(map[string]any)) > 0 {
		return nil
	}
	return schema.Custom(path, "at least one of create, connectOrCreate or connect is required")
}
