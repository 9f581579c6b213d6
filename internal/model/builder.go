package model

// Field constructors used to declare entities.

func ID() Field {
	return Field{Name: "id", Kind: KindString, ID: true, Default: Default{Kind: DefaultID}}
}

func String(name string) Field   { return Field{Name: name, Kind: KindString} }
func Int(name string) Field      { return Field{Name: name, Kind: KindInt} }
func Float(name string) Field    { return Field{Name: name, Kind: KindFloat} }
func Bool(name string) Field     { return Field{Name: name, Kind: KindBoolean} }
func DateTime(name string) Field { return Field{Name: name, Kind: KindDateTime} }
func Json(name string) Field     { return Field{Name: name, Kind: KindJson} }

func EnumField(name, enum string) Field {
	return Field{Name: name, Kind: KindEnum, Enum: enum}
}

func CreatedAt() Field { return DateTime("createdAt").DefaultNow() }

func UpdatedAt() Field {
	return Field{Name: "updatedAt", Kind: KindDateTime, Default: Default{Kind: DefaultUpdatedAt}}
}

func (f Field) Null() Field {
	f.Nullable = true
	return f
}

func (f Field) AsUnique() Field {
	f.Unique = true
	return f
}

func (f Field) AsList() Field {
	f.List = true
	return f
}

func (f Field) WithDefault(v any) Field {
	f.Default = Default{Kind: DefaultStatic, Value: v}
	return f
}

func (f Field) DefaultNow() Field {
	f.Default = Default{Kind: DefaultNow}
	return f
}

// HasMany declares the collection side of a one-to-many relation.
func HasMany(name, target, relationName string) Relation {
	return Relation{Name: name, Target: target, RelationName: relationName, ToMany: true}
}

// BelongsTo declares the owning side of a relation; each foreign key
// references the target's id.
func BelongsTo(name, target, relationName string, fields ...string) Relation {
	refs := make([]string, len(fields))
	for i := range refs {
		refs[i] = "id"
	}
	return Relation{Name: name, Target: target, RelationName: relationName, Fields: fields, References: refs}
}

func (r Relation) Optional() Relation {
	r.Nullable = true
	return r
}
