package sqlfilter

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/TakashiAihara/preppin-sub000/internal/registry"
)

// FindMany renders validated FindManyArgs of entity as a SELECT over its
// table. Selected columns are aliased by field name. Relation selections
// and include are not rendered; callers load relations separately.
func (c *Compiler) FindMany(entity string, args map[string]any) (sq.SelectBuilder, error) {
	t, err := c.table(entity)
	if err != nil {
		return sq.SelectBuilder{}, err
	}
	s := c.newScope()
	root := s.nextAlias()

	cols, err := s.columns(t, root, args["select"])
	if err != nil {
		return sq.SelectBuilder{}, err
	}
	builder := sq.Select(cols...).From(from(t, root)).PlaceholderFormat(sq.Dollar)

	if raw, ok := args["where"]; ok {
		where, err := asMap(raw, "where")
		if err != nil {
			return sq.SelectBuilder{}, err
		}
		cond, err := s.where(t, root, where)
		if err != nil {
			return sq.SelectBuilder{}, err
		}
		if cond != nil {
			builder = builder.Where(cond)
		}
	}

	var terms []orderTerm
	if raw, ok := args["orderBy"]; ok {
		items, err := asList(raw, "orderBy")
		if err != nil {
			return sq.SelectBuilder{}, err
		}
		if terms, err = s.orderBy(t, root, items); err != nil {
			return sq.SelectBuilder{}, err
		}
	}

	if raw, ok := args["cursor"]; ok {
		uw, ok := raw.(registry.UniqueWhere)
		if !ok {
			return sq.SelectBuilder{}, fmt.Errorf("cursor must be a validated unique lookup, got %T", raw)
		}
		var cond sq.Sqlizer
		cond, terms, err = s.cursor(t, root, uw, terms)
		if err != nil {
			return sq.SelectBuilder{}, err
		}
		builder = builder.Where(cond)
	}

	if raw, ok := args["distinct"]; ok {
		fields, err := asList(raw, "distinct")
		if err != nil {
			return sq.SelectBuilder{}, err
		}
		var exprs []string
		exprs, terms = distinctOn(t, root, fields, terms)
		builder = builder.Options("DISTINCT ON (" + strings.Join(exprs, ", ") + ")")
	}

	for _, term := range terms {
		builder = builder.OrderBy(term.String())
	}

	if raw, ok := args["take"]; ok {
		take, _ := raw.(int64)
		if take < 0 {
			return sq.SelectBuilder{}, fmt.Errorf("%w: negative take", ErrUnsupportedFilter)
		}
		builder = builder.Limit(uint64(take))
	}
	if raw, ok := args["skip"]; ok {
		skip, _ := raw.(int64)
		if skip > 0 {
			builder = builder.Offset(uint64(skip))
		}
	}
	return builder, nil
}

// FindManySQL is FindMany rendered with $n placeholders.
func (c *Compiler) FindManySQL(entity string, args map[string]any) (Query, error) {
	builder, err := c.FindMany(entity, args)
	if err != nil {
		return Query{}, err
	}
	sql, params, err := builder.ToSql()
	if err != nil {
		return Query{}, err
	}
	if params == nil {
		params = []any{}
	}
	return Query{SQL: sql, Args: params}, nil
}

// columns lists the selected scalar columns, every scalar when sel is nil.
// A selection of relations only still returns the id.
func (s *scope) columns(t *table, alias string, sel any) ([]string, error) {
	var picked map[string]any
	if sel != nil {
		m, err := asMap(sel, "select")
		if err != nil {
			return nil, err
		}
		picked = m
	}
	var out []string
	for _, f := range t.entity.Fields {
		if picked != nil && picked[f.Name] != true {
			continue
		}
		out = append(out, qualify(alias, t.column(f.Name))+" AS "+pq.QuoteIdentifier(f.Name))
	}
	if len(out) == 0 {
		id := t.entity.IDField().Name
		out = append(out, qualify(alias, t.column(id))+" AS "+pq.QuoteIdentifier(id))
	}
	return out, nil
}

// cursor starts the page at the row uw identifies, using a row comparison
// over the ordering columns. The id is appended as a tiebreaker. Only plain
// columns of the root table sorted in one direction can be compared.
func (s *scope) cursor(t *table, alias string, uw registry.UniqueWhere, terms []orderTerm) (sq.Sqlizer, []orderTerm, error) {
	id := t.entity.IDField().Name
	desc := len(terms) > 0 && terms[0].desc
	hasID := false
	for _, term := range terms {
		if term.column == "" {
			return nil, nil, fmt.Errorf("%w: cursor with relation ordering", ErrUnsupportedFilter)
		}
		if term.desc != desc {
			return nil, nil, fmt.Errorf("%w: cursor with mixed sort directions", ErrUnsupportedFilter)
		}
		if f, _ := t.entity.Field(term.column); f.Nullable {
			return nil, nil, fmt.Errorf("%w: cursor ordered by nullable %s", ErrUnsupportedFilter, term.column)
		}
		hasID = hasID || term.column == id
	}
	if !hasID {
		terms = append(terms, orderTerm{expr: qualify(alias, t.column(id)), desc: desc, column: id})
	}

	sub := s.nextAlias()
	outer := make([]string, len(terms))
	inner := make([]string, len(terms))
	for i, term := range terms {
		outer[i] = term.expr
		inner[i] = qualify(sub, t.column(term.column))
	}
	cond, err := s.unique(t, sub, uw)
	if err != nil {
		return nil, nil, err
	}
	subquery, args, err := sq.Select(inner...).From(from(t, sub)).Where(cond).PlaceholderFormat(sq.Question).ToSql()
	if err != nil {
		return nil, nil, err
	}
	op := ">="
	if desc {
		op = "<="
	}
	expr := fmt.Sprintf("(%s) %s (%s)", strings.Join(outer, ", "), op, subquery)
	return sq.Expr(expr, args...), terms, nil
}

// distinctOn returns the DISTINCT ON expressions and reorders terms so
// they lead ORDER BY, as Postgres requires. Distinct columns without an
// explicit ordering sort ascending.
func distinctOn(t *table, alias string, fields []any, terms []orderTerm) ([]string, []orderTerm) {
	exprs := make([]string, 0, len(fields))
	lead := make([]orderTerm, 0, len(fields))
	used := make(map[int]bool)
	for _, raw := range fields {
		name, _ := raw.(string)
		expr := qualify(alias, t.column(name))
		exprs = append(exprs, expr)
		found := false
		for i, term := range terms {
			if term.column == name && !used[i] {
				lead = append(lead, term)
				used[i] = true
				found = true
				break
			}
		}
		if !found {
			lead = append(lead, orderTerm{expr: expr, column: name})
		}
	}
	for i, term := range terms {
		if !used[i] {
			lead = append(lead, term)
		}
	}
	return exprs, lead
}
