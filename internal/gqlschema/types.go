package gqlschema

import (
	"regexp"
	"strconv"

	"github.com/graphql-go/graphql"

	"github.com/TakashiAihara/preppin-sub000/internal/naming"
	"github.com/TakashiAihara/preppin-sub000/internal/registry"
	"github.com/TakashiAihara/preppin-sub000/internal/schema"
)

var (
	validName   = regexp.MustCompile(`^[_a-zA-Z][_a-zA-Z0-9]*$`)
	invalidRune = regexp.MustCompile(`[^_a-zA-Z0-9]`)
)

// typeMapper turns registry schemas into GraphQL input types. Objects map
// to input objects whose fields are thunks, so cyclic inputs are declared
// without recursing. Shapes GraphQL inputs cannot express (unions, bare
// value shorthands, JSON sentinels) map to the Json scalar.
type typeMapper struct {
	json     *graphql.Scalar
	dateTime *graphql.Scalar

	objects map[*schema.ObjectSchema]*graphql.InputObject
	enums   map[string]*graphql.Enum
	used    map[string]bool
}

func newTypeMapper(jsonScalar, dateTime *graphql.Scalar) *typeMapper {
	return &typeMapper{
		json:     jsonScalar,
		dateTime: dateTime,
		objects:  make(map[*schema.ObjectSchema]*graphql.InputObject),
		enums:    make(map[string]*graphql.Enum),
		used: map[string]bool{
			"String": true, "Int": true, "Float": true, "Boolean": true, "ID": true,
			jsonScalar.Name(): true, dateTime.Name(): true, "Query": true,
		},
	}
}

// claim reserves a type name, suffixing it when taken.
func (m *typeMapper) claim(name string) string {
	name = invalidRune.ReplaceAllString(name, "")
	if name == "" || !validName.MatchString(name) {
		name = "Input" + name
	}
	candidate := name
	for i := 2; m.used[candidate]; i++ {
		candidate = name + strconv.Itoa(i)
	}
	m.used[candidate] = true
	return candidate
}

// unwrapped is a schema stripped of its modifiers.
type unwrapped struct {
	inner    schema.Schema
	optional bool
	nullable bool
}

func unwrap(s schema.Schema) unwrapped {
	var u unwrapped
	for {
		switch t := s.(type) {
		case *schema.OptionalSchema:
			u.optional = true
			s = t.Inner
		case *schema.DefaultSchema:
			u.optional = true
			s = t.Inner
		case *schema.NullableSchema:
			u.nullable = true
			s = t.Inner
		case *schema.LazySchema:
			s = t.Resolve()
		case *schema.TransformSchema:
			s = t.Inner
		case *schema.RefineSchema:
			s = t.Inner
		default:
			u.inner = s
			return u
		}
	}
}

// slot registers the type for a registry slot under the slot's own name.
// Slots that do not map to a named input type return nil.
func (m *typeMapper) slot(name string, s schema.Schema) graphql.Type {
	switch t := unwrap(s).inner.(type) {
	case *schema.ObjectSchema:
		if len(t.Props()) == 0 {
			return nil
		}
		if existing, ok := m.objects[t]; ok {
			return existing
		}
		return m.object(t, name)
	case *schema.EnumSchema:
		return m.enum(t, name)
	}
	return nil
}

// input maps s as a field type. hint names anonymous objects.
func (m *typeMapper) input(s schema.Schema, hint string) graphql.Input {
	u := unwrap(s)
	var out graphql.Input
	switch t := u.inner.(type) {
	case *schema.StringSchema:
		out = graphql.String
	case *schema.NumberSchema:
		if t.Integer {
			out = graphql.Int
		} else {
			out = graphql.Float
		}
	case *schema.BoolSchema:
		out = graphql.Boolean
	case *schema.DateTimeSchema:
		out = m.dateTime
	case *schema.EnumSchema:
		out = m.enum(t, hint)
	case *schema.ArraySchema:
		out = graphql.NewList(m.input(t.Elem, hint+"Item"))
	case *schema.ObjectSchema:
		if len(t.Props()) == 0 {
			out = m.json
			break
		}
		if existing, ok := m.objects[t]; ok {
			out = existing
			break
		}
		name := t.Name()
		if name == "" {
			name = hint
		}
		out = m.object(t, name)
	default:
		out = m.json
	}
	if !u.optional && !u.nullable {
		return graphql.NewNonNull(out)
	}
	return out
}

func (m *typeMapper) enum(e *schema.EnumSchema, hint string) *graphql.Enum {
	key := e.Name
	if key == "" {
		key = hint
	}
	if existing, ok := m.enums[key]; ok {
		return existing
	}
	values := graphql.EnumValueConfigMap{}
	for _, v := range e.Values {
		if validName.MatchString(v) {
			values[v] = &graphql.EnumValueConfig{Value: v}
		}
	}
	out := graphql.NewEnum(graphql.EnumConfig{Name: m.claim(key), Values: values})
	m.enums[key] = out
	return out
}

func (m *typeMapper) object(o *schema.ObjectSchema, name string) *graphql.InputObject {
	typeName := m.claim(name)
	out := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: typeName,
		Fields: graphql.InputObjectConfigFieldMapThunk(func() graphql.InputObjectConfigFieldMap {
			fields := graphql.InputObjectConfigFieldMap{}
			for _, p := range o.Props() {
				if !validName.MatchString(p.Key) {
					continue
				}
				fields[p.Key] = &graphql.InputObjectFieldConfig{
					Type: m.input(p.Schema, typeName+naming.ToPascalCase(p.Key)),
				}
			}
			return fields
		}),
	})
	m.objects[o] = out
	return out
}

// registryTypes maps every registry slot that has a named GraphQL form.
func (m *typeMapper) registryTypes(r *registry.Registry) []graphql.Type {
	var out []graphql.Type
	for _, name := range r.Names() {
		s, err := r.Lookup(name)
		if err != nil {
			continue
		}
		if t := m.slot(name, s); t != nil {
			out = append(out, t)
		}
	}
	return out
}
