package registry

import (
	"fmt"
	"strings"

	"github.com/TakashiAihara/preppin-sub000/internal/filters"
	"github.com/TakashiAihara/preppin-sub000/internal/model"
	"github.com/TakashiAihara/preppin-sub000/internal/schema"
)

// UniqueWhere is a validated unique lookup.
type UniqueWhere struct {
	// Selector is the first satisfied alternative in declaration order: the
	// id, then single unique fields, then compound keys such as
	// "organizationId_userId".
	Selector string `json:"selector"`
	// Keys maps every column of every satisfied alternative to its value.
	Keys map[string]any `json:"keys"`
	// Where holds the remaining filter fields, ANDed with Keys.
	Where map[string]any `json:"where,omitempty"`
}

type uniqueAlternative struct {
	key     string
	columns []string
	value   schema.Schema
}

// uniqueWhereSchema accepts an entity filter that pins at least one unique
// key. Key values must be plain values, never filter objects.
type uniqueWhereSchema struct {
	name         string
	alternatives []uniqueAlternative
	where        schema.Schema
}

func (r *Registry) uniqueWhere(e *model.Entity, n string) schema.Schema {
	s := &uniqueWhereSchema{name: n, where: r.ref(e.Name + whereInput)}

	id := e.IDField()
	s.alternatives = append(s.alternatives, uniqueAlternative{
		key:     id.Name,
		columns: []string{id.Name},
		value:   filters.ValueSchema(r.spec(id)),
	})
	for _, f := range e.UniqueFields() {
		s.alternatives = append(s.alternatives, uniqueAlternative{
			key:     f.Name,
			columns: []string{f.Name},
			value:   filters.ValueSchema(r.spec(f)),
		})
	}
	for _, cols := range e.CompoundUniques {
		props := make([]schema.Prop, 0, len(cols))
		for _, col := range cols {
			f, _ := e.Field(col)
			props = append(props, schema.Field(col, filters.ValueSchema(r.spec(f))))
		}
		s.alternatives = append(s.alternatives, uniqueAlternative{
			key:     strings.Join(cols, "_"),
			columns: append([]string(nil), cols...),
			value:   schema.Object(props...).Strict(),
		})
	}
	return s
}

func (s *uniqueWhereSchema) Parse(v any, path schema.Path) (any, schema.Issues) {
	m, ok := v.(map[string]any)
	if !ok {
		received := schema.TypeOf(v)
		return nil, schema.Issues{{
			Code:     schema.CodeInvalidType,
			Path:     path,
			Message:  fmt.Sprintf("Expected object, received %s", received),
			Expected: "object",
			Received: received,
		}}
	}

	out := UniqueWhere{Keys: make(map[string]any)}
	rest := make(map[string]any, len(m))
	for k, val := range m {
		rest[k] = val
	}

	var issues schema.Issues
	for _, alt := range s.alternatives {
		raw, present := m[alt.key]
		if !present {
			continue
		}
		delete(rest, alt.key)
		val, sub := alt.value.Parse(raw, path.With(alt.key))
		if len(sub) > 0 {
			issues = append(issues, sub...)
			continue
		}
		if len(alt.columns) == 1 {
			out.Keys[alt.columns[0]] = val
		} else {
			for col, colVal := range val.(map[string]any) {
				out.Keys[col] = colVal
			}
		}
		if out.Selector == "" {
			out.Selector = alt.key
		}
	}

	if out.Selector == "" {
		issues = append(issues, s.missingKey(path))
	}

	where, sub := s.where.Parse(rest, path)
	issues = append(issues, sub...)
	if len(issues) > 0 {
		return nil, issues
	}
	out.Where = where.(map[string]any)
	return out, nil
}

func (s *uniqueWhereSchema) missingKey(path schema.Path) schema.Issue {
	keys := make([]string, len(s.alternatives))
	alternatives := make([][]string, len(s.alternatives))
	for i, alt := range s.alternatives {
		keys[i] = alt.key
		alternatives[i] = append([]string(nil), alt.columns...)
	}
	return schema.Issue{
		Code:         schema.CodeInvalidUnion,
		Path:         path,
		Message:      fmt.Sprintf("%s requires at least one of: %s", s.name, strings.Join(keys, ", ")),
		Alternatives: alternatives,
	}
}

// Describe lists the key alternatives as optional fields. The filter they
// are ANDed with is the single variant.
func (s *uniqueWhereSchema) Describe() schema.Description {
	d := schema.Description{Kind: "unique", Name: s.name, Strict: true}
	for _, alt := range s.alternatives {
		fd := schema.Describe(alt.value)
		fd.Optional = true
		d.Fields = append(d.Fields, schema.FieldDescription{Key: alt.key, Schema: fd})
	}
	d.Variants = []schema.Description{{Kind: "object", Ref: strings.TrimSuffix(s.name, whereUniqueInput) + whereInput}}
	return d
}
