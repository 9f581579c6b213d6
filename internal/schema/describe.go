package schema

// Description is a JSON-friendly outline of a schema. Named objects below
// the top level are referenced by name instead of expanded, which keeps the
// outline finite for cyclic schemas.
type Description struct {
	Kind       string             `json:"kind"`
	Name       string             `json:"name,omitempty"`
	Ref        string             `json:"ref,omitempty"`
	Optional   bool               `json:"optional,omitempty"`
	Nullable   bool               `json:"nullable,omitempty"`
	HasDefault bool               `json:"hasDefault,omitempty"`
	Strict     bool               `json:"strict,omitempty"`
	Options    []string           `json:"options,omitempty"`
	Fields     []FieldDescription `json:"fields,omitempty"`
	Elem       *Description       `json:"elem,omitempty"`
	Variants   []Description      `json:"variants,omitempty"`
}

// FieldDescription describes one object property.
type FieldDescription struct {
	Key    string      `json:"key"`
	Schema Description `json:"schema"`
}

// Describer lets schemas defined outside this package describe themselves.
type Describer interface {
	Describe() Description
}

const maxDescribeDepth = 12

// Describe outlines s.
func Describe(s Schema) Description {
	return describe(s, 0)
}

func describe(s Schema, depth int) Description {
	switch t := s.(type) {
	case *LazySchema:
		return describe(t.Resolve(), depth)
	case *OptionalSchema:
		d := describe(t.Inner, depth)
		d.Optional = true
		return d
	case *NullableSchema:
		d := describe(t.Inner, depth)
		d.Nullable = true
		return d
	case *DefaultSchema:
		d := describe(t.Inner, depth)
		d.Optional = true
		d.HasDefault = true
		return d
	case *TransformSchema:
		return describe(t.Inner, depth)
	case *RefineSchema:
		return describe(t.Inner, depth)
	case *StringSchema:
		return Description{Kind: "string"}
	case *NumberSchema:
		if t.Integer {
			return Description{Kind: "int"}
		}
		return Description{Kind: "float"}
	case *BoolSchema:
		return Description{Kind: "boolean"}
	case *DateTimeSchema:
		return Description{Kind: "datetime"}
	case *EnumSchema:
		return Description{Kind: "enum", Name: t.Name, Options: append([]string(nil), t.Values...)}
	case *LiteralSchema:
		return Description{Kind: "literal", Options: []string{TypeOf(t.Value)}}
	case *AnySchema:
		return Description{Kind: "any"}
	case *ArraySchema:
		elem := describe(t.Elem, depth+1)
		return Description{Kind: "array", Elem: &elem}
	case *oneOrManySchema:
		elem := describe(t.elem, depth+1)
		return Description{Kind: "oneOrMany", Elem: &elem}
	case *UnionSchema:
		d := Description{Kind: "union"}
		for _, opt := range t.Options {
			d.Variants = append(d.Variants, describe(opt, depth+1))
		}
		return d
	case *ObjectSchema:
		if t.name != "" && depth > 0 {
			return Description{Kind: "object", Ref: t.name}
		}
		if depth > maxDescribeDepth {
			return Description{Kind: "object"}
		}
		d := Description{Kind: "object", Name: t.name, Strict: t.strict}
		for _, p := range t.props {
			d.Fields = append(d.Fields, FieldDescription{Key: p.Key, Schema: describe(p.Schema, depth+1)})
		}
		return d
	case Describer:
		return t.Describe()
	}
	return Description{Kind: "unknown"}
}
