package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand("test")
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestSchemasCommand(t *testing.T) {
	out, err := execute(t, "", "schemas", "list", "--entity", "Session")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Contains(t, lines, "SessionWhereInput")
	assert.Contains(t, lines, "SessionFindManyArgs")
	assert.NotContains(t, lines, "UserWhereInput")

	_, err = execute(t, "", "schemas", "list", "--entity", "Pantry")
	assert.Error(t, err)
}

func TestDescribeCommand(t *testing.T) {
	out, err := execute(t, "", "schemas", "describe", "UserRole")
	require.NoError(t, err)
	var d map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &d))
	assert.Equal(t, "enum", d["kind"])

	_, err = execute(t, "", "schemas", "describe")
	assert.Error(t, err, "a name is required")
}

func TestValidateCommand(t *testing.T) {
	tests := []struct {
		name    string
		stdin   string
		args    []string
		wantErr error
		check   func(t *testing.T, body map[string]any)
	}{
		{
			name:  "valid enum",
			stdin: `"EDITOR"`,
			args:  []string{"validate", "--schema", "UserRole"},
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, true, body["valid"])
				assert.Equal(t, "EDITOR", body["value"])
			},
		},
		{
			name:    "invalid enum",
			stdin:   `"OWNER"`,
			args:    []string{"validate", "--schema", "UserRole"},
			wantErr: ErrInvalid,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, false, body["valid"])
				issues := body["issues"].([]any)
				require.Len(t, issues, 1)
				assert.Equal(t, "invalid_enum_value", issues[0].(map[string]any)["code"])
			},
		},
		{
			name:  "materialized defaults",
			stdin: `{"organizationId":"o1","userId":"u1"}`,
			args:  []string{"validate", "--schema", "OrganizationMemberUncheckedCreateInput", "--materialize"},
			check: func(t *testing.T, body map[string]any) {
				value := body["value"].(map[string]any)
				assert.Equal(t, "VIEWER", value["role"])
				assert.NotEmpty(t, value["id"])
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, tt.stdin, tt.args...)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			var body map[string]any
			require.NoError(t, json.Unmarshal([]byte(out), &body))
			tt.check(t, body)
		})
	}
}

func TestValidateCommandReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "where.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"email":{"contains":"@"}}`), 0o600))

	out, err := execute(t, "", "validate", "--schema", "UserWhereInput", "--file", path)
	require.NoError(t, err)
	assert.Contains(t, out, `"valid": true`)

	_, err = execute(t, "", "validate", "--schema", "UserWhereInput", "--file", filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestSQLCommand(t *testing.T) {
	out, err := execute(t, `{"select":{"id":true},"take":3}`, "sql", "--entity", "Session", "-f", "-")
	require.NoError(t, err)
	var q map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &q))
	assert.Equal(t, `SELECT "t0"."id" AS "id" FROM "sessions" AS "t0" LIMIT 3`, q["sql"])

	_, err = execute(t, "", "sql", "--entity", "Session")
	assert.NoError(t, err, "no file renders the default query")

	_, err = execute(t, `{"take":"three"}`, "sql", "--entity", "Session", "-f", "-")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestWhereCommand(t *testing.T) {
	out, err := execute(t, `{"email":{"equals":"a@example.com"}}`, "where", "--entity", "User", "-f", "-")
	require.NoError(t, err)
	var q map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &q))
	assert.Equal(t, `"t0"."email" = $1`, q["sql"])
	assert.Equal(t, []any{"a@example.com"}, q["args"])
}

func TestRequiredFlags(t *testing.T) {
	_, err := execute(t, `"ADMIN"`, "validate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--schema is required")

	_, err = execute(t, "", "sql")
	assert.Error(t, err, "--entity is required")

	_, err = execute(t, "", "sql", "--entity", "Pantry")
	assert.Error(t, err)
}

func TestMigrateRequiresDSN(t *testing.T) {
	_, err := execute(t, "", "migrate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--db is required")
}
