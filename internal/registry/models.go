package registry

import (
	"github.com/TakashiAihara/preppin-sub000/internal/filters"
	"github.com/TakashiAihara/preppin-sub000/internal/jsonvalue"
	"github.com/TakashiAihara/preppin-sub000/internal/model"
	"github.com/TakashiAihara/preppin-sub000/internal/schema"
)

func dbNull() any { return jsonvalue.DbNull }

// modelField validates one column inside a full record.
func (r *Registry) modelField(f model.Field) schema.Schema {
	spec := r.spec(f)
	switch {
	case f.Kind == model.KindJson:
		if f.Nullable {
			return schema.Default(jsonvalue.ModelSchema(true), dbNull)
		}
		return jsonvalue.ModelSchema(false)
	case f.List:
		return schema.Array(filters.ValueSchema(spec))
	case f.Nullable:
		return schema.Nullish(filters.ValueSchema(spec))
	}
	return filters.ValueSchema(spec)
}

// modelObject is the record shape of e. With optionalDefaults, fields the
// server assigns may be left out.
func (r *Registry) modelObject(e *model.Entity, optionalDefaults bool) *schema.ObjectSchema {
	props := make([]schema.Prop, 0, len(e.Fields))
	for _, f := range e.Fields {
		s := r.modelField(f)
		if optionalDefaults && f.HasDefault() {
			s = schema.Optional(s)
		}
		props = append(props, schema.Field(f.Name, s))
	}
	return schema.Object(props...)
}

// materialize fills absent defaulted fields after parsing when enabled.
func (r *Registry) materialize(e *model.Entity, s schema.Schema) schema.Schema {
	if !r.opts.MaterializeDefaults {
		return s
	}
	return schema.Transform(s, func(v any) any {
		return model.Defaults(e, v.(map[string]any), r.opts.Now, r.opts.IDs)
	})
}

// withRelations extends base with one property per relation, each embedding
// the target's shape named by targetShape.
func (r *Registry) withRelations(e *model.Entity, base *schema.ObjectSchema, targetShape string, optional bool) *schema.ObjectSchema {
	props := make([]schema.Prop, 0, len(e.Relations))
	for _, rel := range e.Relations {
		var s schema.Schema = r.ref(rel.Target + targetShape)
		switch {
		case rel.ToMany:
			s = schema.Array(s)
		case rel.Nullable:
			s = schema.Nullable(s)
		}
		if optional {
			s = schema.Optional(s)
		}
		props = append(props, schema.Field(rel.Name, s))
	}
	return base.Extend(props...)
}

func (r *Registry) declareModels(e *model.Entity) {
	shape := func(suffix string, build func(name string) schema.Schema) {
		n := e.Name + suffix
		r.declare(e.Name, n, func() schema.Schema { return build(n) })
	}

	shape(shapeBase, func(n string) schema.Schema {
		return r.modelObject(e, false).Named(n)
	})
	shape(shapePartial, func(n string) schema.Schema {
		return r.modelObject(e, false).Partial().Named(n)
	})
	shape(shapeOptionalDefaults, func(n string) schema.Schema {
		return r.materialize(e, r.modelObject(e, true).Named(n))
	})
	shape(shapeWithRelations, func(n string) schema.Schema {
		return r.withRelations(e, r.modelObject(e, false), shapeWithRelations, false).Named(n)
	})
	shape(shapeOptionalDefaultsWithRelations, func(n string) schema.Schema {
		obj := r.withRelations(e, r.modelObject(e, true), shapeOptionalDefaultsWithRelations, false).Named(n)
		return r.materialize(e, obj)
	})
	shape(shapePartialWithRelations, func(n string) schema.Schema {
		return r.withRelations(e, r.modelObject(e, false).Partial(), shapePartialWithRelations, true).Named(n)
	})
	shape(shapeWithPartialRelations, func(n string) schema.Schema {
		return r.withRelations(e, r.modelObject(e, false), shapePartialWithRelations, true).Named(n)
	})
	shape(shapeOptionalDefaultsWithPartialRelations, func(n string) schema.Schema {
		obj := r.withRelations(e, r.modelObject(e, true), shapePartialWithRelations, true).Named(n)
		return r.materialize(e, obj)
	})
}
