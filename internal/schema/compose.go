package schema

import (
	"reflect"
	"strings"
	"sync"
)

// Wrapper is implemented by schemas that decorate another schema.
type Wrapper interface {
	Unwrap() Schema
}

// ArraySchema validates every element of a slice. Output is []any.
type ArraySchema struct {
	Elem Schema
}

func Array(elem Schema) *ArraySchema { return &ArraySchema{Elem: elem} }

func (s *ArraySchema) Parse(v any, path Path) (any, Issues) {
	items, ok := toSlice(v)
	if !ok {
		return nil, invalidType(path, "array", v)
	}
	out := make([]any, len(items))
	var issues Issues
	for i, item := range items {
		val, sub := s.Elem.Parse(item, path.Index(i))
		if len(sub) > 0 {
			issues = append(issues, sub...)
			continue
		}
		out[i] = val
	}
	if len(issues) > 0 {
		return nil, issues
	}
	return out, nil
}

func isSlice(v any) bool {
	if v == nil {
		return false
	}
	if _, ok := v.([]byte); ok {
		return false
	}
	return reflect.TypeOf(v).Kind() == reflect.Slice
}

func toSlice(v any) ([]any, bool) {
	if items, ok := v.([]any); ok {
		return items, true
	}
	if !isSlice(v) {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// OneOrMany accepts either a single element or an array of them and always
// yields []any.
func OneOrMany(elem Schema) Schema {
	return &oneOrManySchema{elem: elem, many: Array(elem)}
}

type oneOrManySchema struct {
	elem Schema
	many *ArraySchema
}

func (s *oneOrManySchema) Parse(v any, path Path) (any, Issues) {
	if isSlice(v) {
		return s.many.Parse(v, path)
	}
	val, issues := s.elem.Parse(v, path)
	if len(issues) > 0 {
		return nil, issues
	}
	return []any{val}, nil
}

func (s *oneOrManySchema) Unwrap() Schema { return s.many }

// UnionSchema accepts a value matching any one of its options, tried in order.
type UnionSchema struct {
	Options []Schema
}

func Union(options ...Schema) *UnionSchema { return &UnionSchema{Options: options} }

// Parse returns the first matching option's output. When nothing matches,
// options rejected only for their outer type are folded into a single
// invalid_type issue. Otherwise the deeper failures are reported: directly if
// exactly one option got that far, as an invalid_union otherwise.
func (s *UnionSchema) Parse(v any, path Path) (any, Issues) {
	var deep []Issues
	var expected []string
	for _, opt := range s.Options {
		out, issues := opt.Parse(v, path)
		if len(issues) == 0 {
			return out, nil
		}
		if outerTypeOnly(issues, path) {
			for _, issue := range issues {
				if issue.Expected != "" {
					expected = append(expected, issue.Expected)
				}
			}
			continue
		}
		deep = append(deep, issues)
	}
	switch len(deep) {
	case 0:
		return nil, invalidType(path, strings.Join(expected, " | "), v)
	case 1:
		return nil, deep[0]
	}
	return nil, Issues{{
		Code:        CodeInvalidUnion,
		Path:        path,
		Message:     "Invalid input: no union option matched",
		UnionErrors: deep,
	}}
}

func outerTypeOnly(issues Issues, path Path) bool {
	for _, issue := range issues {
		if len(issue.Path) != len(path) {
			return false
		}
		switch issue.Code {
		case CodeInvalidType, CodeInvalidLiteral:
		case CodeInvalidUnion:
			if len(issue.UnionErrors) > 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// LazySchema defers construction of its target until the first Parse, which
// lets schemas refer to each other cyclically.
type LazySchema struct {
	once   sync.Once
	fn     func() Schema
	target Schema
}

func Lazy(fn func() Schema) *LazySchema { return &LazySchema{fn: fn} }

// Resolve builds the target on first call and returns it.
func (s *LazySchema) Resolve() Schema {
	s.once.Do(func() { s.target = s.fn() })
	return s.target
}

func (s *LazySchema) Parse(v any, path Path) (any, Issues) {
	return s.Resolve().Parse(v, path)
}

func (s *LazySchema) Unwrap() Schema { return s.Resolve() }

// OptionalSchema marks an object property that may be absent. A present
// value must still satisfy the inner schema.
type OptionalSchema struct {
	Inner Schema
}

func Optional(inner Schema) Schema {
	if IsOptional(inner) {
		return inner
	}
	return &OptionalSchema{Inner: inner}
}

func (s *OptionalSchema) Parse(v any, path Path) (any, Issues) { return s.Inner.Parse(v, path) }

func (s *OptionalSchema) Unwrap() Schema { return s.Inner }

// NullableSchema additionally accepts null.
type NullableSchema struct {
	Inner Schema
}

func Nullable(inner Schema) Schema {
	if _, ok := inner.(*NullableSchema); ok {
		return inner
	}
	return &NullableSchema{Inner: inner}
}

func (s *NullableSchema) Parse(v any, path Path) (any, Issues) {
	if v == nil {
		return nil, nil
	}
	return s.Inner.Parse(v, path)
}

func (s *NullableSchema) Unwrap() Schema { return s.Inner }

// Nullish accepts null or an absent key.
func Nullish(inner Schema) Schema { return Optional(Nullable(inner)) }

// DefaultSchema supplies a value when the property is absent.
type DefaultSchema struct {
	Inner Schema
	Value func() any
}

func Default(inner Schema, value func() any) *DefaultSchema {
	return &DefaultSchema{Inner: inner, Value: value}
}

func (s *DefaultSchema) Parse(v any, path Path) (any, Issues) { return s.Inner.Parse(v, path) }

func (s *DefaultSchema) Unwrap() Schema { return s.Inner }

// TransformSchema maps the inner schema's output.
type TransformSchema struct {
	Inner Schema
	Fn    func(any) any
}

func Transform(inner Schema, fn func(any) any) *TransformSchema {
	return &TransformSchema{Inner: inner, Fn: fn}
}

func (s *TransformSchema) Parse(v any, path Path) (any, Issues) {
	out, issues := s.Inner.Parse(v, path)
	if len(issues) > 0 {
		return nil, issues
	}
	return s.Fn(out), nil
}

func (s *TransformSchema) Unwrap() Schema { return s.Inner }

// RefineSchema runs an extra check on the inner schema's output.
type RefineSchema struct {
	Inner Schema
	Check func(v any, path Path) Issues
}

func Refine(inner Schema, check func(v any, path Path) Issues) *RefineSchema {
	return &RefineSchema{Inner: inner, Check: check}
}

func (s *RefineSchema) Parse(v any, path Path) (any, Issues) {
	out, issues := s.Inner.Parse(v, path)
	if len(issues) > 0 {
		return nil, issues
	}
	if issues := s.Check(out, path); len(issues) > 0 {
		return nil, issues
	}
	return out, nil
}

func (s *RefineSchema) Unwrap() Schema { return s.Inner }

// IsOptional reports whether an object property using s may be absent.
// Lazy schemas are never resolved here.
func IsOptional(s Schema) bool {
	switch t := s.(type) {
	case *OptionalSchema, *DefaultSchema:
		return true
	case *NullableSchema:
		return IsOptional(t.Inner)
	case *TransformSchema:
		return IsOptional(t.Inner)
	case *RefineSchema:
		return IsOptional(t.Inner)
	}
	return false
}

func defaultOf(s Schema) (any, bool) {
	switch t := s.(type) {
	case *DefaultSchema:
		return t.Value(), true
	case *OptionalSchema:
		return defaultOf(t.Inner)
	}
	return nil, false
}

func stripDefault(s Schema) Schema {
	switch t := s.(type) {
	case *DefaultSchema:
		return t.Inner
	case *OptionalSchema:
		return stripDefault(t.Inner)
	}
	return s
}
