package naming

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTableName(t *testing.T) {
	namer := Default()

	tests := []struct {
		input    string
		expected string
	}{
		{"User", "users"},
		{"OrganizationMember", "organization_members"},
		{"InventoryItem", "inventory_items"},
		{"ActivityLog", "activity_logs"},
		{"PasswordResetToken", "password_reset_tokens"},
		{"Category", "categories"},
		{"Person", "people"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, namer.TableName(tt.input))
		})
	}
}

func TestTableOverrides(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TableOverrides["ActivityLog"] = "audit_log"
	cfg.PluralOverrides["status"] = "statii"
	namer := New(cfg, nil)

	assert.Equal(t, "audit_log", namer.TableName("ActivityLog"))
	assert.Equal(t, "order_statii", namer.TableName("OrderStatus"))

	cfg = DefaultConfig()
	cfg.TableOverrides["inventoryitem"] = "stock"
	assert.Equal(t, "stock", New(cfg, nil).TableName("InventoryItem"))
}

func TestColumnName(t *testing.T) {
	namer := Default()

	tests := []struct {
		input    string
		expected string
	}{
		{"id", "id"},
		{"createdById", "created_by_id"},
		{"isEmailVerified", "is_email_verified"},
		{"inviteCodeExpiresAt", "invite_code_expires_at"},
		{"inviteURL", "invite_url"},
		{"HTTPServer", "http_server"},
		{"address2Line", "address2_line"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, namer.ColumnName(tt.input))
		})
	}
}

func TestCaseHelpers(t *testing.T) {
	assert.Equal(t, "CreatedOrganizations", ToPascalCase("createdOrganizations"))
	assert.Equal(t, "UserProfiles", ToPascalCase("user_profiles"))
	assert.Equal(t, "userProfiles", ToCamelCase("user_profiles"))
	assert.Equal(t, "organizationMember", ToCamelCase("OrganizationMember"))
	assert.Equal(t, "", ToPascalCase(""))
}

func TestPluralize(t *testing.T) {
	namer := Default()

	tests := []struct {
		input    string
		expected string
	}{
		{"user", "users"},
		{"category", "categories"},
		{"person", "people"},
		{"status", "statuses"},
		{"analysis", "analyses"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, namer.Pluralize(tt.input))
		})
	}
	assert.Equal(t, "person", namer.Singularize("people"))
}

func TestRegisterTableCollision(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	cfg := DefaultConfig()
	cfg.TableOverrides["Audit"] = "users"
	namer := New(cfg, logger)

	assert.Equal(t, "users", namer.RegisterTable("User"))
	assert.Equal(t, "users", namer.RegisterTable("User"), "re-registering is idempotent")
	assert.Equal(t, "users_2", namer.RegisterTable("Audit"))
	assert.Equal(t, "users_2", namer.RegisterTable("Audit"))
	assert.Contains(t, buf.String(), "naming collision detected")

	namer.Reset()
	assert.Equal(t, "users", namer.RegisterTable("Audit"))
}

func TestRegisterColumn(t *testing.T) {
	namer := Default()
	assert.Equal(t, "user_id", namer.RegisterColumn("sessions", "userId"))
	assert.Equal(t, "user_id_2", namer.RegisterColumn("sessions", "user_id"))
	assert.True(t, namer.resolver.ColumnExists("sessions", "user_id"))
	assert.False(t, namer.resolver.ColumnExists("users", "user_id"))
}
