package model

import (
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TakashiAihara/preppin-sub000/internal/enums"
)

func TestInventoryModel(t *testing.T) {
	s := Inventory()
	require.Len(t, s.Entities, 10)

	member, ok := s.Entity("OrganizationMember")
	require.True(t, ok)
	assert.Equal(t, [][]string{{"organizationId", "userId"}}, member.CompoundUniques)

	org, ok := s.Entity("Organization")
	require.True(t, ok)
	settings, ok := org.Field("settings")
	require.True(t, ok)
	assert.Equal(t, KindJson, settings.Kind)
	assert.False(t, settings.Nullable)
	assert.False(t, settings.HasDefault())

	activity, _ := s.Entity("ActivityLog")
	_, hasUpdatedAt := activity.Field("updatedAt")
	assert.False(t, hasUpdatedAt)
}

func TestBackRelations(t *testing.T) {
	s := Inventory()
	user, _ := s.Entity("User")

	creator, ok := user.Relation("createdOrganizations")
	require.True(t, ok)
	back := s.BackRelation(user, creator)
	assert.Equal(t, "creator", back.Name)
	assert.Equal(t, []string{"createdById"}, back.Fields)

	updater, _ := user.Relation("updatedOrganizations")
	assert.Equal(t, "updater", s.BackRelation(user, updater).Name)

	org, _ := s.Entity("Organization")
	fks := org.ForeignKeys()
	keys := make([]string, 0, len(fks))
	for k := range fks {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	assert.Equal(t, []string{"createdById", "updatedById"}, keys)
}

func TestEntityHelpers(t *testing.T) {
	s := Inventory()
	item, _ := s.Entity("InventoryItem")

	var numeric []string
	for _, f := range item.NumericFields() {
		numeric = append(numeric, f.Name)
	}
	assert.Equal(t, []string{"quantity", "minQuantity"}, numeric)

	user, _ := s.Entity("User")
	var unique []string
	for _, f := range user.UniqueFields() {
		unique = append(unique, f.Name)
	}
	assert.Equal(t, []string{"email"}, unique)
	assert.Equal(t, "id", user.IDField().Name)
	assert.Len(t, user.ToManyRelations(), 11)

	tags, _ := item.Field("tags")
	assert.False(t, tags.Orderable())
}

func TestNewSchemaRejectsBrokenModels(t *testing.T) {
	reg := enums.Domain()
	parent := func(rels ...Relation) *Entity {
		return &Entity{Name: "Parent", Fields: []Field{ID()}, Relations: rels}
	}
	child := func(fields []Field, rels ...Relation) *Entity {
		return &Entity{Name: "Child", Fields: append([]Field{ID()}, fields...), Relations: rels}
	}

	tests := []struct {
		name     string
		entities []*Entity
	}{
		{
			name:     "unknown target",
			entities: []*Entity{parent(HasMany("kids", "Nobody", "R"))},
		},
		{
			name:     "missing back relation",
			entities: []*Entity{parent(HasMany("kids", "Child", "R")), child([]Field{String("parentId")})},
		},
		{
			name: "missing foreign key field",
			entities: []*Entity{
				parent(HasMany("kids", "Child", "R")),
				child(nil, BelongsTo("parent", "Parent", "R", "parentId")),
			},
		},
		{
			name:     "unknown enum",
			entities: []*Entity{{Name: "E", Fields: []Field{ID(), EnumField("x", "Nope")}}},
		},
		{
			name:     "no id",
			entities: []*Entity{{Name: "E", Fields: []Field{String("x")}}},
		},
		{
			name: "neither side owns",
			entities: []*Entity{
				parent(HasMany("kids", "Child", "R")),
				child([]Field{String("parentId")}, HasMany("parents", "Parent", "R")),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSchema(reg, tt.entities...)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidModel))
		})
	}
}

func TestDefaults(t *testing.T) {
	s := Inventory()
	member, _ := s.Entity("OrganizationMember")
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	got := Defaults(member, map[string]any{"organizationId": "o1", "userId": "u1", "role": "ADMIN"},
		func() time.Time { return at },
		func() string { return "fixed-id" },
	)
	assert.Equal(t, "fixed-id", got["id"])
	assert.Equal(t, "ADMIN", got["role"])
	assert.Equal(t, at, got["joinedAt"])
	assert.Equal(t, at, got["createdAt"])
	assert.Equal(t, at, got["updatedAt"])
	assert.NotContains(t, got, "invitedBy")
}

func TestIDGenerator(t *testing.T) {
	g := NewIDGenerator()
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	a := g.NewAt(at)
	b := g.NewAt(at)
	assert.True(t, IsID(a))
	assert.Less(t, a, b)
	assert.True(t, IsID(NewID()))
	assert.False(t, IsID("not-an-id"))
}
