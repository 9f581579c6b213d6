// Package sqlfilter renders validated query arguments as Postgres SQL.
//
// Inputs are the normalized outputs of the registry's WhereInput,
// WhereUniqueInput, OrderBy and FindManyArgs schemas. Rendering is single
// table: relation filters and relation ordering become correlated
// subqueries, never joins. The root table is always aliased t0 and every
// subquery takes the next alias (t1, t2, ...).
package sqlfilter

import (
	"errors"
	"fmt"
	"sort"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/TakashiAihara/preppin-sub000/internal/model"
	"github.com/TakashiAihara/preppin-sub000/internal/naming"
)

var (
	// ErrUnsupportedFilter is returned for valid input the SQL renderer
	// cannot express, such as aggregate filters outside a HAVING clause.
	ErrUnsupportedFilter = errors.New("unsupported filter")
	// ErrUnknownEntity is returned when an entity name is not in the model.
	ErrUnknownEntity = errors.New("unknown entity")
)

// Query is rendered SQL with its positional arguments.
type Query struct {
	SQL  string `json:"sql"`
	Args []any  `json:"args"`
}

type table struct {
	entity  *model.Entity
	name    string
	columns map[string]string
}

func (t *table) column(field string) string {
	return t.columns[field]
}

// Compiler renders SQL for one model. Table and column names are resolved
// once in New, so a Compiler is safe for concurrent use.
type Compiler struct {
	model  *model.Schema
	tables map[string]*table
}

// New resolves every table and column name of m through namer.
func New(m *model.Schema, namer *naming.Namer) *Compiler {
	if namer == nil {
		namer = naming.Default()
	}
	c := &Compiler{model: m, tables: make(map[string]*table, len(m.Entities))}
	for _, e := range m.Entities {
		t := &table{entity: e, name: namer.RegisterTable(e.Name), columns: make(map[string]string, len(e.Fields))}
		for _, f := range e.Fields {
			t.columns[f.Name] = namer.RegisterColumn(t.name, f.Name)
		}
		c.tables[e.Name] = t
	}
	return c
}

// TableName returns the SQL table an entity is stored in.
func (c *Compiler) TableName(entity string) (string, error) {
	t, err := c.table(entity)
	if err != nil {
		return "", err
	}
	return t.name, nil
}

// ColumnName returns the SQL column a field is stored in.
func (c *Compiler) ColumnName(entity, field string) (string, error) {
	t, err := c.table(entity)
	if err != nil {
		return "", err
	}
	col, ok := t.columns[field]
	if !ok {
		return "", fmt.Errorf("%w: %s has no field %s", ErrUnknownEntity, entity, field)
	}
	return col, nil
}

func (c *Compiler) table(entity string) (*table, error) {
	t, ok := c.tables[entity]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, entity)
	}
	return t, nil
}

// scope tracks subquery aliases for one rendered statement.
type scope struct {
	c       *Compiler
	aliases int
}

func (c *Compiler) newScope() *scope {
	return &scope{c: c}
}

func (s *scope) nextAlias() string {
	alias := fmt.Sprintf("t%d", s.aliases)
	s.aliases++
	return alias
}

func qualify(alias, column string) string {
	return pq.QuoteIdentifier(alias) + "." + pq.QuoteIdentifier(column)
}

func from(t *table, alias string) string {
	return pq.QuoteIdentifier(t.name) + " AS " + pq.QuoteIdentifier(alias)
}

// correlate returns the equalities tying a subquery over the relation's
// target (aliased sub) to the outer row.
func (s *scope) correlate(t *table, alias string, rel model.Relation, target *table, sub string) []sq.Sqlizer {
	var pairs []sq.Sqlizer
	if rel.Owner() {
		for i, fk := range rel.Fields {
			pairs = append(pairs, sq.Expr(qualify(sub, target.column(rel.References[i]))+" = "+qualify(alias, t.column(fk))))
		}
		return pairs
	}
	back := s.c.model.BackRelation(t.entity, rel)
	for i, fk := range back.Fields {
		pairs = append(pairs, sq.Expr(qualify(sub, target.column(fk))+" = "+qualify(alias, t.column(back.References[i]))))
	}
	return pairs
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func asMap(v any, what string) (map[string]any, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s must be an object, got %T", what, v)
	}
	return m, nil
}

func asList(v any, what string) ([]any, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%s must be a list, got %T", what, v)
	}
	return items, nil
}

// join ANDs conditions, collapsing the trivial cases.
func join(conds []sq.Sqlizer) sq.Sqlizer {
	switch len(conds) {
	case 0:
		return nil
	case 1:
		return conds[0]
	}
	return sq.And(conds)
}

func not(cond sq.Sqlizer) sq.Sqlizer {
	if cond == nil {
		return sq.Expr("FALSE")
	}
	return sq.Expr("NOT (?)", cond)
}

// notTrue is NOT for restrictions whose NULL outcome must count as a
// failure: (cond) IS NOT TRUE holds when cond is false or unknown.
func notTrue(cond sq.Sqlizer) sq.Sqlizer {
	if cond == nil {
		return sq.Expr("FALSE")
	}
	return sq.Expr("(?) IS NOT TRUE", cond)
}

func orTrue(cond sq.Sqlizer) sq.Sqlizer {
	if cond == nil {
		return sq.Expr("TRUE")
	}
	return cond
}

// render converts cond to Postgres SQL.
func render(cond sq.Sqlizer) (Query, error) {
	if cond == nil {
		return Query{SQL: "TRUE", Args: []any{}}, nil
	}
	sql, args, err := cond.ToSql()
	if err != nil {
		return Query{}, err
	}
	sql, err = sq.Dollar.ReplacePlaceholders(sql)
	if err != nil {
		return Query{}, err
	}
	if args == nil {
		args = []any{}
	}
	return Query{SQL: sql, Args: args}, nil
}
