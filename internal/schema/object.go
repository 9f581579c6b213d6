package schema

import (
	"fmt"
	"sort"
	"strings"
)

// Prop is one named property of an object schema.
type Prop struct {
	Key    string
	Schema Schema
}

// Field is shorthand for a Prop literal.
func Field(key string, s Schema) Prop {
	return Prop{Key: key, Schema: s}
}

// ObjectSchema validates a map against an ordered list of properties.
// Unknown keys are dropped, or reported when the schema is strict.
type ObjectSchema struct {
	name   string
	props  []Prop
	index  map[string]int
	strict bool
}

func Object(props ...Prop) *ObjectSchema {
	o := &ObjectSchema{}
	for _, p := range props {
		o.set(p)
	}
	return o
}

func (o *ObjectSchema) set(p Prop) {
	if o.index == nil {
		o.index = make(map[string]int)
	}
	if i, ok := o.index[p.Key]; ok {
		o.props[i] = p
		return
	}
	o.index[p.Key] = len(o.props)
	o.props = append(o.props, p)
}

func (o *ObjectSchema) clone() *ObjectSchema {
	c := &ObjectSchema{name: o.name, strict: o.strict, index: make(map[string]int, len(o.props))}
	c.props = append(c.props, o.props...)
	for k, v := range o.index {
		c.index[k] = v
	}
	return c
}

// Name returns the registered name, or "" for anonymous objects.
func (o *ObjectSchema) Name() string { return o.name }

// IsStrict reports whether unknown keys are rejected.
func (o *ObjectSchema) IsStrict() bool { return o.strict }

// Props returns the properties in declaration order.
func (o *ObjectSchema) Props() []Prop {
	return append([]Prop(nil), o.props...)
}

// Prop looks up a property by key.
func (o *ObjectSchema) Prop(key string) (Schema, bool) {
	i, ok := o.index[key]
	if !ok {
		return nil, false
	}
	return o.props[i].Schema, true
}

// Named returns a copy carrying name.
func (o *ObjectSchema) Named(name string) *ObjectSchema {
	c := o.clone()
	c.name = name
	return c
}

// Strict returns a copy that rejects unknown keys.
func (o *ObjectSchema) Strict() *ObjectSchema {
	c := o.clone()
	c.strict = true
	return c
}

// Extend returns a copy with props added, replacing any with the same key.
func (o *ObjectSchema) Extend(props ...Prop) *ObjectSchema {
	c := o.clone()
	c.name = ""
	for _, p := range props {
		c.set(p)
	}
	return c
}

// Partial returns a copy in which every property is optional. Defaults are
// dropped so that absent keys stay absent.
func (o *ObjectSchema) Partial() *ObjectSchema {
	c := &ObjectSchema{strict: o.strict}
	for _, p := range o.props {
		c.set(Prop{Key: p.Key, Schema: Optional(stripDefault(p.Schema))})
	}
	return c
}

// Pick returns a copy restricted to keys.
func (o *ObjectSchema) Pick(keys ...string) *ObjectSchema {
	want := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		want[k] = struct{}{}
	}
	c := &ObjectSchema{strict: o.strict}
	for _, p := range o.props {
		if _, ok := want[p.Key]; ok {
			c.set(p)
		}
	}
	return c
}

// Omit returns a copy without keys.
func (o *ObjectSchema) Omit(keys ...string) *ObjectSchema {
	drop := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		drop[k] = struct{}{}
	}
	c := &ObjectSchema{strict: o.strict}
	for _, p := range o.props {
		if _, ok := drop[p.Key]; !ok {
			c.set(p)
		}
	}
	return c
}

func (o *ObjectSchema) Parse(v any, path Path) (any, Issues) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, invalidType(path, "object", v)
	}

	out := make(map[string]any, len(o.props))
	var issues Issues
	for _, p := range o.props {
		raw, present := m[p.Key]
		if !present {
			if def, ok := defaultOf(p.Schema); ok {
				out[p.Key] = def
				continue
			}
			if IsOptional(p.Schema) {
				continue
			}
			issues = append(issues, Issue{
				Code:    CodeRequired,
				Path:    path.With(p.Key),
				Message: "Required",
			})
			continue
		}
		val, sub := p.Schema.Parse(raw, path.With(p.Key))
		if len(sub) > 0 {
			issues = append(issues, sub...)
			continue
		}
		out[p.Key] = val
	}

	if o.strict {
		var unknown []string
		for k := range m {
			if _, ok := o.index[k]; !ok {
				unknown = append(unknown, k)
			}
		}
		if len(unknown) > 0 {
			sort.Strings(unknown)
			issues = append(issues, Issue{
				Code:    CodeUnrecognizedKeys,
				Path:    path,
				Message: fmt.Sprintf("Unrecognized key(s) in object: '%s'", strings.Join(unknown, "', '")),
				Keys:    unknown,
			})
		}
	}

	if len(issues) > 0 {
		return nil, issues
	}
	return out, nil
}
