package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TakashiAihara/preppin-sub000/internal/gqlschema"
	"github.com/TakashiAihara/preppin-sub000/internal/middleware"
	"github.com/TakashiAihara/preppin-sub000/internal/model"
	"github.com/TakashiAihara/preppin-sub000/internal/naming"
	"github.com/TakashiAihara/preppin-sub000/internal/registry"
	"github.com/TakashiAihara/preppin-sub000/internal/service"
	"github.com/TakashiAihara/preppin-sub000/internal/sqlfilter"
	"github.com/TakashiAihara/preppin-sub000/internal/store"
)

type fixture struct {
	handler http.Handler
	mock    sqlmock.Sqlmock
	svc     *service.Service
}

func newFixture(t *testing.T, withStore bool, mutate func(*Options)) fixture {
	t.Helper()
	m := model.Inventory()
	compiler := sqlfilter.New(m, naming.Default())
	opts := service.Options{
		Registry: registry.New(m, registry.Options{}),
		Materialized: registry.New(m, registry.Options{
			MaterializeDefaults: true,
			Now:                 func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) },
			IDs:                 func() string { return "generated" },
		}),
		Compiler: compiler,
	}
	var mock sqlmock.Sqlmock
	if withStore {
		db, mk, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual), sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		t.Cleanup(func() { _ = db.Close() })
		opts.Store = store.New(db, m, compiler, nil)
		mock = mk
	}
	svc := service.New(opts)
	gql, err := gqlschema.Build(svc)
	require.NoError(t, err)

	routerOpts := Options{Service: svc, GraphQL: &gql}
	if mutate != nil {
		mutate(&routerOpts)
	}
	return fixture{handler: NewRouter(routerOpts), mock: mock, svc: svc}
}

func (f fixture) do(t *testing.T, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &decoded)
	}
	return rec, decoded
}

func TestHealth(t *testing.T) {
	t.Run("without database", func(t *testing.T) {
		f := newFixture(t, false, nil)
		rec, body := f.do(t, http.MethodGet, "/health", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "disabled", body["database"])
	})

	t.Run("database down", func(t *testing.T) {
		f := newFixture(t, true, nil)
		f.mock.ExpectPing().WillReturnError(errors.New("refused"))
		rec, body := f.do(t, http.MethodGet, "/health", "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "unhealthy", body["status"])
	})

	t.Run("database up", func(t *testing.T) {
		f := newFixture(t, true, nil)
		f.mock.ExpectPing()
		rec, body := f.do(t, http.MethodGet, "/health", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ok", body["database"])
	})
}

func TestSchemaRoutes(t *testing.T) {
	f := newFixture(t, false, nil)

	tests := []struct {
		name   string
		target string
		status int
		check  func(t *testing.T, body map[string]any)
	}{
		{
			name:   "list by entity",
			target: "/v1/schemas?entity=Session",
			status: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				assert.Contains(t, body["schemas"], "SessionWhereInput")
				assert.NotContains(t, body["schemas"], "UserWhereInput")
			},
		},
		{name: "unknown entity", target: "/v1/schemas?entity=Pantry", status: http.StatusNotFound},
		{
			name:   "describe enum",
			target: "/v1/schemas/UserRole",
			status: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "enum", body["kind"])
				assert.Equal(t, []any{"ADMIN", "EDITOR", "VIEWER"}, body["options"])
			},
		},
		{name: "describe unknown", target: "/v1/schemas/Nope", status: http.StatusNotFound},
		{name: "unknown route", target: "/v2/anything", status: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := f.do(t, http.MethodGet, tt.target, "")
			assert.Equal(t, tt.status, rec.Code)
			if tt.check != nil {
				tt.check(t, body)
			}
		})
	}
}

func TestValidateRoute(t *testing.T) {
	f := newFixture(t, false, nil)

	rec, body := f.do(t, http.MethodPost, "/v1/schemas/UserRole/validate", `"ADMIN"`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["valid"])
	assert.Equal(t, "ADMIN", body["value"])

	rec, body = f.do(t, http.MethodPost, "/v1/schemas/OrganizationMemberUncheckedCreateInput/validate",
		`{"organizationId":"o1","role":"OWNER"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	issues, ok := body["errors"].([]any)
	require.True(t, ok)
	var codes []any
	for _, issue := range issues {
		codes = append(codes, issue.(map[string]any)["code"])
	}
	assert.ElementsMatch(t, []any{"required", "invalid_enum_value"}, codes)

	rec, _ = f.do(t, http.MethodPost, "/v1/schemas/UserRole/validate", `{"broken"`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = f.do(t, http.MethodPost, "/v1/schemas/UserRole/validate", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = f.do(t, http.MethodPost, "/v1/schemas/Nope/validate", `{}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = f.do(t, http.MethodGet, "/v1/schemas/UserRole/validate", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestValidateMaterialize(t *testing.T) {
	const target = "/v1/schemas/OrganizationMemberUncheckedCreateInput/validate"
	const payload = `{"organizationId":"o1","userId":"u1"}`

	tests := []struct {
		name        string
		serverWide  bool
		query       string
		materialize bool
	}{
		{name: "off by default", query: "", materialize: false},
		{name: "requested", query: "?materialize=true", materialize: true},
		{name: "server default", serverWide: true, query: "", materialize: true},
		{name: "request overrides server default", serverWide: true, query: "?materialize=false", materialize: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, false, func(o *Options) { o.MaterializeDefaults = tt.serverWide })
			rec, body := f.do(t, http.MethodPost, target+tt.query, payload)
			require.Equal(t, http.StatusOK, rec.Code)
			value, ok := body["value"].(map[string]any)
			require.True(t, ok)
			if tt.materialize {
				assert.Equal(t, "generated", value["id"])
				assert.Equal(t, "VIEWER", value["role"])
			} else {
				assert.NotContains(t, value, "id")
				assert.NotContains(t, value, "role")
			}
		})
	}
}

func TestRenderSQLRoute(t *testing.T) {
	f := newFixture(t, false, nil)

	rec, body := f.do(t, http.MethodPost, "/v1/entities/Session/sql", `{"select":{"id":true},"take":3}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `SELECT "t0"."id" AS "id" FROM "sessions" AS "t0" LIMIT 3`, body["sql"])
	assert.Equal(t, []any{}, body["args"])

	rec, _ = f.do(t, http.MethodPost, "/v1/entities/Session/sql", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = f.do(t, http.MethodPost, "/v1/entities/Session/sql", `{"take":-1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = f.do(t, http.MethodPost, "/v1/entities/Pantry/sql", `{}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFindRoute(t *testing.T) {
	t.Run("disabled store", func(t *testing.T) {
		f := newFixture(t, false, nil)
		rec, _ := f.do(t, http.MethodPost, "/v1/entities/User/find", `{}`)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("returns rows", func(t *testing.T) {
		f := newFixture(t, true, nil)
		args := `{"select":{"id":true,"email":true},"where":{"email":{"endsWith":"@example.com"}}}`
		q, err := f.svc.RenderFindMany(t.Context(), "User", map[string]any{
			"select": map[string]any{"id": true, "email": true},
			"where":  map[string]any{"email": map[string]any{"endsWith": "@example.com"}},
		})
		require.NoError(t, err)
		f.mock.ExpectQuery(q.SQL).WithArgs("%@example.com").
			WillReturnRows(sqlmock.NewRows([]string{"id", "email"}).AddRow("u1", "a@example.com"))

		rec, body := f.do(t, http.MethodPost, "/v1/entities/User/find", args)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []any{map[string]any{"id": "u1", "email": "a@example.com"}}, body["rows"])
		assert.NoError(t, f.mock.ExpectationsWereMet())
	})

	t.Run("database error is hidden", func(t *testing.T) {
		f := newFixture(t, true, nil)
		q, err := f.svc.RenderFindMany(t.Context(), "User", map[string]any{})
		require.NoError(t, err)
		f.mock.ExpectQuery(q.SQL).WillReturnError(errors.New("relation users does not exist"))

		rec, body := f.do(t, http.MethodPost, "/v1/entities/User/find", `{}`)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "internal error", body["error"])
	})
}

func TestGraphQLRoute(t *testing.T) {
	f := newFixture(t, false, nil)
	payload, err := json.Marshal(map[string]any{
		"query":     `query($input: Json) { validate(schema: "SortOrder", input: $input) { valid value } }`,
		"variables": map[string]any{"input": "desc"},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/graphql", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data struct {
			Validate struct {
				Valid bool `json:"valid"`
				Value any  `json:"value"`
			} `json:"validate"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Data.Validate.Valid)
	assert.Equal(t, "desc", body.Data.Validate.Value)
}

func TestAuthGuardsAPIButNotProbes(t *testing.T) {
	deny := func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})
	}
	f := newFixture(t, false, func(o *Options) {
		o.Auth = deny
		o.Metrics = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
		o.Middleware = []func(http.Handler) http.Handler{middleware.BodyLimit(1 << 10)}
	})

	rec, _ := f.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = f.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = f.do(t, http.MethodGet, "/v1/schemas", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec, _ = f.do(t, http.MethodPost, "/graphql", `{"query":"{ schemas }"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBodyTooLarge(t *testing.T) {
	f := newFixture(t, false, func(o *Options) {
		o.Middleware = []func(http.Handler) http.Handler{middleware.BodyLimit(16)}
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/schemas/UserRole/validate", strings.NewReader(`"`+strings.Repeat("A", 64)+`"`))
	req.ContentLength = -1
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestDecodeBody(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		allowEmpty bool
		want       any
		wantErr    error
	}{
		{name: "object", body: `{"id":"x"}`, want: map[string]any{"id": "x"}},
		{name: "trailing whitespace", body: "\"ADMIN\"\n  ", want: "ADMIN"},
		{name: "trailing garbage", body: `{"id":"x"} trailing-garbage`, wantErr: errMalformed},
		{name: "second value", body: `{"id":"x"} {"id":"y"}`, wantErr: errMalformed},
		{name: "empty", body: "", wantErr: errEmptyBody},
		{name: "empty allowed", body: "", allowEmpty: true, want: map[string]any{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			got, err := decodeBody(req, tt.allowEmpty)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateRejectsTrailingData(t *testing.T) {
	f := newFixture(t, false, nil)

	rec, _ := f.do(t, http.MethodPost, "/v1/schemas/UserRole/validate", `"ADMIN" trailing-garbage`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = f.do(t, http.MethodPost, "/v1/schemas/UserRole/validate", "\"ADMIN\"\n")
	assert.Equal(t, http.StatusOK, rec.Code)
}
