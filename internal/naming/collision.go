package naming

import (
	"fmt"
	"log/slog"
)

// CollisionResolver tracks registered SQL names and resolves collisions
// by applying numeric suffixes when duplicates are detected.
type CollisionResolver struct {
	seenTables  map[string]string            // table name → source entity
	seenColumns map[string]map[string]string // table name → column name → source field
	logger      *slog.Logger
}

// NewCollisionResolver creates a new collision resolver.
func NewCollisionResolver(logger *slog.Logger) *CollisionResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &CollisionResolver{
		seenTables:  make(map[string]string),
		seenColumns: make(map[string]map[string]string),
		logger:      logger,
	}
}

// RegisterTable registers a table name and returns the resolved name.
func (c *CollisionResolver) RegisterTable(table, entity string) string {
	return c.resolveCollision(table, c.seenTables, "entity:"+entity)
}

// RegisterColumn registers a column within a table and returns the resolved name.
func (c *CollisionResolver) RegisterColumn(table, column, field string) string {
	if c.seenColumns[table] == nil {
		c.seenColumns[table] = make(map[string]string)
	}
	return c.resolveCollision(column, c.seenColumns[table], "field:"+field)
}

// ColumnExists checks if a column name already exists for a table.
func (c *CollisionResolver) ColumnExists(table, column string) bool {
	if cols, ok := c.seenColumns[table]; ok {
		_, exists := cols[column]
		return exists
	}
	return false
}

// resolveCollision attempts to register a name in the given map.
// If the name is already held by another source, finds the next available
// numeric suffix. Re-registering the same source is idempotent.
func (c *CollisionResolver) resolveCollision(name string, seen map[string]string, source string) string {
	existingSource, exists := seen[name]
	if !exists {
		seen[name] = source
		return name
	}
	if existingSource == source {
		return name
	}

	for suffixed, src := range seen {
		if src == source && suffixed != name {
			return suffixed
		}
	}

	c.logger.Warn("naming collision detected, applying suffix",
		slog.String("name", name),
		slog.String("existing_source", existingSource),
		slog.String("new_source", source),
	)

	for i := 2; ; i++ {
		suffixed := fmt.Sprintf("%s_%d", name, i)
		if _, exists := seen[suffixed]; !exists {
			seen[suffixed] = source
			return suffixed
		}
	}
}
