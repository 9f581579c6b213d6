// Package naming maps model names onto SQL identifiers: entity names become
// plural snake_case tables and field names become snake_case columns. It
// also supplies the case helpers used to build derived schema names.
package naming

// Config holds naming customization options
type Config struct {
	// PluralOverrides maps singular -> custom plural
	// Example: {"person": "people", "status": "statuses"}
	PluralOverrides map[string]string `mapstructure:"plural_overrides"`

	// SingularOverrides maps plural -> custom singular
	// Example: {"people": "person", "data": "datum"}
	SingularOverrides map[string]string `mapstructure:"singular_overrides"`

	// TableOverrides maps an entity name to its table, bypassing pluralization.
	// Example: {"ActivityLog": "audit_log"}
	TableOverrides map[string]string `mapstructure:"table_overrides"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		PluralOverrides:   make(map[string]string),
		SingularOverrides: make(map[string]string),
		TableOverrides:    make(map[string]string),
	}
}
