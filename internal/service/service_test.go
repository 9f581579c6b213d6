package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TakashiAihara/preppin-sub000/internal/model"
	"github.com/TakashiAihara/preppin-sub000/internal/naming"
	"github.com/TakashiAihara/preppin-sub000/internal/registry"
	"github.com/TakashiAihara/preppin-sub000/internal/schema"
	"github.com/TakashiAihara/preppin-sub000/internal/sqlfilter"
	"github.com/TakashiAihara/preppin-sub000/internal/store"
)

func newTestService(t *testing.T, withStore bool) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	m := model.Inventory()
	compiler := sqlfilter.New(m, naming.Default())
	at := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	opts := Options{
		Registry: registry.New(m, registry.Options{}),
		Materialized: registry.New(m, registry.Options{
			MaterializeDefaults: true,
			Now:                 func() time.Time { return at },
			IDs:                 func() string { return "generated" },
		}),
		Compiler: compiler,
	}
	var mock sqlmock.Sqlmock
	if withStore {
		db, mk, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
		require.NoError(t, err)
		t.Cleanup(func() { _ = db.Close() })
		opts.Store = store.New(db, m, compiler, nil)
		mock = mk
	}
	return New(opts), mock
}

func TestSchemas(t *testing.T) {
	s, _ := newTestService(t, false)

	all, err := s.Schemas("")
	require.NoError(t, err)
	assert.Contains(t, all, "UserWhereInput")
	assert.Contains(t, all, "SortOrder")

	users, err := s.Schemas("User")
	require.NoError(t, err)
	assert.Contains(t, users, "UserCreateInput")
	assert.NotContains(t, users, "SessionCreateInput")

	_, err = s.Schemas("Pantry")
	assert.ErrorIs(t, err, sqlfilter.ErrUnknownEntity)
}

func TestDescribe(t *testing.T) {
	s, _ := newTestService(t, false)

	d, err := s.Describe("OrganizationMember")
	require.NoError(t, err)
	assert.Equal(t, "object", d.Kind)
	assert.NotEmpty(t, d.Fields)

	_, err = s.Describe("Nope")
	assert.ErrorIs(t, err, registry.ErrUnknownSchema)
}

func TestValidate(t *testing.T) {
	s, _ := newTestService(t, false)
	ctx := context.Background()

	payload := map[string]any{"organizationId": "o1", "userId": "u1"}

	out, err := s.Validate(ctx, "OrganizationMemberUncheckedCreateInput", payload, false)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"organizationId": "o1", "userId": "u1"}, out)

	out, err = s.Validate(ctx, "OrganizationMemberUncheckedCreateInput", map[string]any{"organizationId": "o1", "userId": "u1"}, true)
	require.NoError(t, err)
	assert.Equal(t, "generated", out.(map[string]any)["id"])
	assert.Equal(t, "VIEWER", out.(map[string]any)["role"])

	_, err = s.Validate(ctx, "OrganizationMemberUncheckedCreateInput", map[string]any{"organizationId": "o1", "role": "OWNER"}, false)
	var verr *schema.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.ElementsMatch(t, []schema.Code{schema.CodeRequired, schema.CodeInvalidEnumValue}, verr.Issues.Codes())

	_, err = s.Validate(ctx, "Missing", map[string]any{}, false)
	assert.ErrorIs(t, err, registry.ErrUnknownSchema)
}

func TestRenderWhere(t *testing.T) {
	s, _ := newTestService(t, false)
	ctx := context.Background()

	q, err := s.RenderWhere(ctx, "User", map[string]any{"email": "a@example.com"})
	require.NoError(t, err)
	assert.Equal(t, `"t0"."email" = $1`, q.SQL)
	assert.Equal(t, []any{"a@example.com"}, q.Args)

	_, err = s.RenderWhere(ctx, "User", map[string]any{"nope": 1})
	assert.ErrorIs(t, err, schema.ErrValidation)

	_, err = s.RenderWhere(ctx, "Pantry", map[string]any{})
	assert.ErrorIs(t, err, sqlfilter.ErrUnknownEntity)
}

func TestRenderFindMany(t *testing.T) {
	s, _ := newTestService(t, false)

	q, err := s.RenderFindMany(context.Background(), "Session", map[string]any{
		"select": map[string]any{"id": true},
		"take":   3.0,
	})
	require.NoError(t, err)
	assert.Equal(t, `SELECT "t0"."id" AS "id" FROM "sessions" AS "t0" LIMIT 3`, q.SQL)
	assert.Empty(t, q.Args)

	q, err = s.RenderFindMany(context.Background(), "Session", nil)
	require.NoError(t, err)
	assert.Contains(t, q.SQL, `FROM "sessions" AS "t0"`)
}

func TestFind(t *testing.T) {
	t.Run("disabled store", func(t *testing.T) {
		s, _ := newTestService(t, false)
		_, err := s.Find(context.Background(), "User", map[string]any{})
		assert.ErrorIs(t, err, store.ErrNotConfigured)
	})

	t.Run("runs validated args", func(t *testing.T) {
		s, mock := newTestService(t, true)
		q, err := s.RenderFindMany(context.Background(), "User", map[string]any{
			"select": map[string]any{"id": true},
			"where":  map[string]any{"isActive": true},
		})
		require.NoError(t, err)
		mock.ExpectQuery(q.SQL).WithArgs(true).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("u1"))

		rows, err := s.Find(context.Background(), "User", map[string]any{
			"select": map[string]any{"id": true},
			"where":  map[string]any{"isActive": true},
		})
		require.NoError(t, err)
		assert.Equal(t, []map[string]any{{"id": "u1"}}, rows)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalid args never reach the database", func(t *testing.T) {
		s, mock := newTestService(t, true)
		_, err := s.Find(context.Background(), "User", map[string]any{"take": "ten"})
		assert.ErrorIs(t, err, schema.ErrValidation)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
