package naming

import (
	"log/slog"
	"strings"
	"unicode"
)

// Namer converts model names to SQL names. It handles pluralization,
// overrides and collisions. Not safe for concurrent use; callers resolve
// every name up front.
type Namer struct {
	config   Config
	logger   *slog.Logger
	resolver *CollisionResolver
}

// New creates a Namer with the given configuration
func New(cfg Config, logger *slog.Logger) *Namer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Namer{
		config:   cfg,
		logger:   logger,
		resolver: NewCollisionResolver(logger),
	}
}

// Default returns a Namer with default configuration
func Default() *Namer {
	return New(DefaultConfig(), nil)
}

// Reset clears the collision resolver state, allowing the namer to be reused.
func (n *Namer) Reset() {
	n.resolver = NewCollisionResolver(n.logger)
}

// TableName converts an entity name to its table name.
// Example: "OrganizationMember" -> "organization_members"
func (n *Namer) TableName(entity string) string {
	if override, ok := lookupFold(n.config.TableOverrides, entity); ok {
		return override
	}
	snake := ToSnakeCase(entity)
	i := strings.LastIndex(snake, "_")
	return snake[:i+1] + n.Pluralize(snake[i+1:])
}

// ColumnName converts a field name to its column name.
// Example: "createdById" -> "created_by_id"
func (n *Namer) ColumnName(field string) string {
	return ToSnakeCase(field)
}

// RegisterTable resolves the table for an entity, suffixing it when another
// entity already claimed the name.
func (n *Namer) RegisterTable(entity string) string {
	return n.resolver.RegisterTable(n.TableName(entity), entity)
}

// RegisterColumn resolves the column for a field within table.
func (n *Namer) RegisterColumn(table, field string) string {
	return n.resolver.RegisterColumn(table, n.ColumnName(field), field)
}

// ToPascalCase converts snake_case or camelCase to PascalCase.
// Example: "created_organizations" -> "CreatedOrganizations", "sessions" -> "Sessions"
func ToPascalCase(s string) string {
	parts := strings.Split(s, "_")
	for i, part := range parts {
		if len(part) > 0 {
			parts[i] = strings.ToUpper(part[:1]) + part[1:]
		}
	}
	return strings.Join(parts, "")
}

// ToCamelCase converts snake_case or PascalCase to camelCase.
func ToCamelCase(s string) string {
	pascal := ToPascalCase(s)
	if pascal == "" {
		return ""
	}
	return strings.ToLower(pascal[:1]) + pascal[1:]
}

// ToSnakeCase converts camelCase or PascalCase to snake_case. Runs of
// capitals are kept together: "inviteURL" -> "invite_url".
func ToSnakeCase(s string) string {
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
