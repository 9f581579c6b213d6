package gqlschema

import (
	"context"
	"testing"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TakashiAihara/preppin-sub000/internal/model"
	"github.com/TakashiAihara/preppin-sub000/internal/naming"
	"github.com/TakashiAihara/preppin-sub000/internal/registry"
	"github.com/TakashiAihara/preppin-sub000/internal/service"
	"github.com/TakashiAihara/preppin-sub000/internal/sqlfilter"
)

func buildSchema(t *testing.T) graphql.Schema {
	t.Helper()
	m := model.Inventory()
	svc := service.New(service.Options{
		Registry: registry.New(m, registry.Options{}),
		Compiler: sqlfilter.New(m, naming.Default()),
	})
	s, err := Build(svc)
	require.NoError(t, err)
	return s
}

func run(t *testing.T, s graphql.Schema, query string, vars map[string]interface{}) map[string]interface{} {
	t.Helper()
	result := graphql.Do(graphql.Params{
		Schema:         s,
		RequestString:  query,
		VariableValues: vars,
		Context:        context.Background(),
	})
	require.Empty(t, result.Errors)
	data, ok := result.Data.(map[string]interface{})
	require.True(t, ok)
	return data
}

func TestRegistryInputsAreExported(t *testing.T) {
	s := buildSchema(t)

	tests := []struct {
		typeName string
		fields   []string
	}{
		{"UserWhereInput", []string{"AND", "OR", "NOT", "email", "sessions"}},
		{"OrganizationMemberCreateInput", []string{"role", "organization", "user"}},
		{"InventoryItemOrderByWithRelationInput", []string{"name", "organization"}},
		{"StringFilter", []string{"equals", "contains", "mode", "not"}},
	}
	for _, tt := range tests {
		t.Run(tt.typeName, func(t *testing.T) {
			typ := s.Type(tt.typeName)
			require.NotNil(t, typ)
			obj, ok := typ.(*graphql.InputObject)
			require.True(t, ok, "expected input object, got %T", typ)
			fields := obj.Fields()
			for _, name := range tt.fields {
				assert.Contains(t, fields, name)
			}
		})
	}

	role, ok := s.Type("UserRole").(*graphql.Enum)
	require.True(t, ok)
	var values []string
	for _, v := range role.Values() {
		values = append(values, v.Name)
	}
	assert.ElementsMatch(t, []string{"ADMIN", "EDITOR", "VIEWER"}, values)
}

func TestRequiredFieldsAreNonNull(t *testing.T) {
	s := buildSchema(t)
	obj, ok := s.Type("SessionCreateManyInput").(*graphql.InputObject)
	require.True(t, ok)

	_, required := obj.Fields()["token"].Type.(*graphql.NonNull)
	assert.True(t, required)
	_, required = obj.Fields()["ipAddress"].Type.(*graphql.NonNull)
	assert.False(t, required)
}

func TestSchemasQuery(t *testing.T) {
	s := buildSchema(t)
	data := run(t, s, `{ schemas(entity: "Session") }`, nil)
	names, ok := data["schemas"].([]interface{})
	require.True(t, ok)
	assert.Contains(t, names, "SessionWhereInput")
	assert.NotContains(t, names, "UserWhereInput")
}

func TestValidateQuery(t *testing.T) {
	s := buildSchema(t)
	query := `query($input: Json) {
		validate(schema: "UserRole", input: $input) {
			valid
			value
			issues { code path options }
		}
	}`

	data := run(t, s, query, map[string]interface{}{"input": "EDITOR"})
	result := data["validate"].(map[string]interface{})
	assert.Equal(t, true, result["valid"])
	assert.Equal(t, "EDITOR", result["value"])
	assert.Empty(t, result["issues"])

	data = run(t, s, query, map[string]interface{}{"input": "OWNER"})
	result = data["validate"].(map[string]interface{})
	assert.Equal(t, false, result["valid"])
	issues := result["issues"].([]interface{})
	require.Len(t, issues, 1)
	issue := issues[0].(map[string]interface{})
	assert.Equal(t, "invalid_enum_value", issue["code"])
	assert.Equal(t, []interface{}{"ADMIN", "EDITOR", "VIEWER"}, issue["options"])
}

func TestValidateUnknownSchemaIsAnError(t *testing.T) {
	s := buildSchema(t)
	result := graphql.Do(graphql.Params{
		Schema:        s,
		RequestString: `{ validate(schema: "Nope", input: 1) { valid } }`,
	})
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0].Message, "unknown schema")
}

func TestRenderWhereQuery(t *testing.T) {
	s := buildSchema(t)
	data := run(t, s, `{ renderWhere(entity: "User", where: {email: "a@example.com"}) { sql args } }`, nil)
	rendered := data["renderWhere"].(map[string]interface{})
	assert.Equal(t, `"t0"."email" = $1`, rendered["sql"])
	assert.Equal(t, []interface{}{"a@example.com"}, rendered["args"])
}

func TestLiteralValue(t *testing.T) {
	lit := &ast.ObjectValue{Fields: []*ast.ObjectField{
		{Name: &ast.Name{Value: "take"}, Value: &ast.IntValue{Value: "5"}},
		{Name: &ast.Name{Value: "ratio"}, Value: &ast.FloatValue{Value: "0.5"}},
		{Name: &ast.Name{Value: "tags"}, Value: &ast.ListValue{Values: []ast.Value{
			&ast.StringValue{Value: "a"}, &ast.BooleanValue{Value: true}, &ast.EnumValue{Value: "desc"},
		}}},
	}}
	assert.Equal(t, map[string]interface{}{
		"take":  int64(5),
		"ratio": 0.5,
		"tags":  []interface{}{"a", true, "desc"},
	}, literalValue(lit))
}

func TestDateTimeScalar(t *testing.T) {
	scalar := DateTime()
	assert.Equal(t, "2025-01-02T03:04:05Z", scalar.ParseValue("2025-01-02T03:04:05Z"))
	assert.Equal(t, "2025-01-02", scalar.ParseValue("2025-01-02"))
	assert.Nil(t, scalar.ParseValue("yesterday"))
	assert.Nil(t, scalar.ParseLiteral(&ast.IntValue{Value: "1"}))
}
