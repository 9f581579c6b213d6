// Package model describes the relational entity graph that every derived
// validator is generated from.
package model

import (
	"errors"
	"fmt"

	"github.com/TakashiAihara/preppin-sub000/internal/enums"
)

// ErrInvalidModel is wrapped by every Schema consistency failure.
var ErrInvalidModel = errors.New("invalid model")

// Kind is the scalar type of a field.
type Kind uint8

const (
	KindString Kind = iota + 1
	KindInt
	KindFloat
	KindBoolean
	KindDateTime
	KindJson
	KindEnum
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "String"
	case KindInt:
		return "Int"
	case KindFloat:
		return "Float"
	case KindBoolean:
		return "Bool"
	case KindDateTime:
		return "DateTime"
	case KindJson:
		return "Json"
	case KindEnum:
		return "Enum"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// IsNumeric reports whether avg and sum make sense for the kind.
func (k Kind) IsNumeric() bool { return k == KindInt || k == KindFloat }

// DefaultKind says how a field gets its value when a create omits it.
type DefaultKind uint8

const (
	DefaultNone DefaultKind = iota
	DefaultID
	DefaultNow
	DefaultUpdatedAt
	DefaultStatic
)

// Default is a field's server-side default.
type Default struct {
	Kind  DefaultKind
	Value any
}

// Field is a scalar column.
type Field struct {
	Name     string
	Kind     Kind
	Enum     string
	List     bool
	Nullable bool
	ID       bool
	Unique   bool
	Default  Default
}

func (f Field) HasDefault() bool { return f.Default.Kind != DefaultNone }

// Orderable reports whether the field can appear in ORDER BY, min or max.
func (f Field) Orderable() bool { return !f.List && f.Kind != KindJson }

// Relation is a reference to another entity. The owning side of a to-one
// relation holds the foreign key Fields, pointing at References on the target.
type Relation struct {
	Name         string
	Target       string
	RelationName string
	ToMany       bool
	Nullable     bool
	Fields       []string
	References   []string
}

// Owner reports whether this side stores the foreign key.
func (r Relation) Owner() bool { return len(r.Fields) > 0 }

// Entity is one record type.
type Entity struct {
	Name            string
	Fields          []Field
	Relations       []Relation
	CompoundUniques [][]string
}

func (e *Entity) Field(name string) (Field, bool) {
	for _, f := range e.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

func (e *Entity) Relation(name string) (Relation, bool) {
	for _, r := range e.Relations {
		if r.Name == name {
			return r, true
		}
	}
	return Relation{}, false
}

// IDField returns the primary key field.
func (e *Entity) IDField() Field {
	for _, f := range e.Fields {
		if f.ID {
			return f
		}
	}
	return Field{}
}

// ForeignKeys returns the set of fields owned by to-one relations.
func (e *Entity) ForeignKeys() map[string]Relation {
	out := make(map[string]Relation)
	for _, r := range e.Relations {
		for _, f := range r.Fields {
			out[f] = r
		}
	}
	return out
}

// UniqueFields returns single-column unique fields other than the id, in
// declaration order.
func (e *Entity) UniqueFields() []Field {
	var out []Field
	for _, f := range e.Fields {
		if f.Unique && !f.ID {
			out = append(out, f)
		}
	}
	return out
}

// NumericFields returns the Int and Float scalars that are not lists.
func (e *Entity) NumericFields() []Field {
	var out []Field
	for _, f := range e.Fields {
		if f.Kind.IsNumeric() && !f.List {
			out = append(out, f)
		}
	}
	return out
}

// ToManyRelations returns relations that hold collections.
func (e *Entity) ToManyRelations() []Relation {
	var out []Relation
	for _, r := range e.Relations {
		if r.ToMany {
			out = append(out, r)
		}
	}
	return out
}

// Schema is a validated entity graph.
type Schema struct {
	Enums    *enums.Registry
	Entities []*Entity
	index    map[string]*Entity
}

// NewSchema checks that relations pair up, foreign keys exist and enum
// references resolve.
func NewSchema(enumRegistry *enums.Registry, entities ...*Entity) (*Schema, error) {
	s := &Schema{Enums: enumRegistry, Entities: entities, index: make(map[string]*Entity, len(entities))}
	for _, e := range entities {
		if _, dup := s.index[e.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate entity %s", ErrInvalidModel, e.Name)
		}
		s.index[e.Name] = e
	}
	for _, e := range entities {
		if err := s.validateEntity(e); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Schema) validateEntity(e *Entity) error {
	ids := 0
	names := make(map[string]struct{})
	for _, f := range e.Fields {
		if _, dup := names[f.Name]; dup {
			return fmt.Errorf("%w: %s.%s declared twice", ErrInvalidModel, e.Name, f.Name)
		}
		names[f.Name] = struct{}{}
		if f.ID {
			ids++
		}
		if f.Kind == KindEnum {
			if _, ok := s.Enums.Get(f.Enum); !ok {
				return fmt.Errorf("%w: %s.%s references unknown enum %s", ErrInvalidModel, e.Name, f.Name, f.Enum)
			}
		}
	}
	if ids != 1 {
		return fmt.Errorf("%w: %s must have exactly one id field, has %d", ErrInvalidModel, e.Name, ids)
	}

	for _, r := range e.Relations {
		if _, dup := names[r.Name]; dup {
			return fmt.Errorf("%w: %s.%s clashes with another field", ErrInvalidModel, e.Name, r.Name)
		}
		names[r.Name] = struct{}{}
		target, ok := s.index[r.Target]
		if !ok {
			return fmt.Errorf("%w: %s.%s targets unknown entity %s", ErrInvalidModel, e.Name, r.Name, r.Target)
		}
		if len(r.Fields) != len(r.References) {
			return fmt.Errorf("%w: %s.%s has %d fields but %d references", ErrInvalidModel, e.Name, r.Name, len(r.Fields), len(r.References))
		}
		for i, fk := range r.Fields {
			if _, ok := e.Field(fk); !ok {
				return fmt.Errorf("%w: %s.%s uses missing field %s", ErrInvalidModel, e.Name, r.Name, fk)
			}
			if _, ok := target.Field(r.References[i]); !ok {
				return fmt.Errorf("%w: %s.%s references missing field %s.%s", ErrInvalidModel, e.Name, r.Name, target.Name, r.References[i])
			}
		}
		if r.ToMany && r.Owner() {
			return fmt.Errorf("%w: %s.%s is to-many but holds foreign keys", ErrInvalidModel, e.Name, r.Name)
		}
		if _, err := s.back(e, r); err != nil {
			return err
		}
	}

	for _, cu := range e.CompoundUniques {
		if len(cu) < 2 {
			return fmt.Errorf("%w: %s compound unique needs at least two fields", ErrInvalidModel, e.Name)
		}
		for _, f := range cu {
			if _, ok := e.Field(f); !ok {
				return fmt.Errorf("%w: %s compound unique uses missing field %s", ErrInvalidModel, e.Name, f)
			}
		}
	}
	return nil
}

func (s *Schema) back(e *Entity, r Relation) (Relation, error) {
	target := s.index[r.Target]
	var found []Relation
	for _, candidate := range target.Relations {
		if candidate.RelationName != r.RelationName || candidate.Target != e.Name {
			continue
		}
		if target == e && candidate.Name == r.Name {
			continue
		}
		found = append(found, candidate)
	}
	if len(found) != 1 {
		return Relation{}, fmt.Errorf("%w: %s.%s (%s) has %d back relations, want 1", ErrInvalidModel, e.Name, r.Name, r.RelationName, len(found))
	}
	if found[0].Owner() == r.Owner() {
		return Relation{}, fmt.Errorf("%w: exactly one side of %s must hold the foreign key", ErrInvalidModel, r.RelationName)
	}
	return found[0], nil
}

// Entity looks an entity up by name.
func (s *Schema) Entity(name string) (*Entity, bool) {
	e, ok := s.index[name]
	return e, ok
}

// Target returns the entity a relation points at.
func (s *Schema) Target(r Relation) *Entity {
	return s.index[r.Target]
}

// BackRelation returns the relation on r's target that pairs with r.
func (s *Schema) BackRelation(e *Entity, r Relation) Relation {
	back, err := s.back(e, r)
	if err != nil {
		panic(err)
	}
	return back
}

// EnumOf returns the enum behind an enum-kind field.
func (s *Schema) EnumOf(f Field) enums.Enum {
	e, _ := s.Enums.Get(f.Enum)
	return e
}
