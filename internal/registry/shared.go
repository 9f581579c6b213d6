package registry

import (
	"github.com/TakashiAihara/preppin-sub000/internal/enums"
	"github.com/TakashiAihara/preppin-sub000/internal/filters"
	"github.com/TakashiAihara/preppin-sub000/internal/jsonvalue"
	"github.com/TakashiAihara/preppin-sub000/internal/model"
	"github.com/TakashiAihara/preppin-sub000/internal/schema"
)

// declareShared declares the slots no single entity owns: enums, JSON
// sentinels, ordering helpers and every scalar filter and update shape a
// model field needs.
func (r *Registry) declareShared() {
	all := append(r.model.Enums.All(), enums.SortOrder, enums.NullsOrder, enums.QueryMode)
	for _, e := range all {
		r.declare("", e.Name, func() schema.Schema { return e.Schema() })
	}

	r.declare("", jsonvalue.NullValueInputName, jsonvalue.NullValueInput)
	r.declare("", jsonvalue.NullableNullValueInputName, jsonvalue.NullableNullValueInput)
	r.declare("", jsonvalue.NullValueFilterName, jsonvalue.NullValueFilter)
	r.declare("", JsonValueName, jsonvalue.ValueSchema)
	r.declare("", InputJsonValueName, jsonvalue.InputSchema)

	r.declare("", SortOrderInputName, func() schema.Schema {
		return schema.Object(
			schema.Field("sort", enums.SortOrder.Schema()),
			schema.Field("nulls", schema.Optional(enums.NullsOrder.Schema())),
		).Strict().Named(SortOrderInputName)
	})

	for _, spec := range r.fieldSpecs() {
		for slotName, build := range r.lib.Named(spec) {
			if _, dup := r.slots[slotName]; dup {
				continue
			}
			r.declare("", slotName, build)
		}
	}
}

// fieldSpecs collects the distinct filter specs used by model fields, plus
// the Int and Float specs aggregate sub-filters are typed with.
func (r *Registry) fieldSpecs() []filters.Spec {
	seen := make(map[string]struct{})
	var out []filters.Spec
	add := func(spec filters.Spec) {
		key := filters.FilterName(spec, false, false) + "|" + filters.UpdateName(spec)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		out = append(out, spec)
	}
	for _, e := range r.model.Entities {
		for _, f := range e.Fields {
			add(filters.SpecOf(r.model, f))
		}
	}
	add(filters.Spec{Kind: model.KindInt})
	add(filters.Spec{Kind: model.KindFloat})
	add(filters.Spec{Kind: model.KindFloat, Nullable: true})
	return out
}

func (r *Registry) spec(f model.Field) filters.Spec {
	return filters.SpecOf(r.model, f)
}
