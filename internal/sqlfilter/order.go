package sqlfilter

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// orderTerm is one ORDER BY expression.
type orderTerm struct {
	expr   string
	desc   bool
	nulls  string
	column string // set when expr is a plain root column
}

func (o orderTerm) String() string {
	out := o.expr + " ASC"
	if o.desc {
		out = o.expr + " DESC"
	}
	if o.nulls != "" {
		out += " NULLS " + strings.ToUpper(o.nulls)
	}
	return out
}

// OrderBy renders validated OrderByWithRelationInput items against the
// root alias t0. Relations order through correlated scalar subqueries.
func (c *Compiler) OrderBy(entity string, orderBy []any) ([]string, error) {
	t, err := c.table(entity)
	if err != nil {
		return nil, err
	}
	s := c.newScope()
	terms, err := s.orderBy(t, s.nextAlias(), orderBy)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(terms))
	for i, term := range terms {
		out[i] = term.String()
	}
	return out, nil
}

func (s *scope) orderBy(t *table, alias string, orderBy []any) ([]orderTerm, error) {
	var terms []orderTerm
	for _, item := range orderBy {
		m, err := asMap(item, "orderBy item")
		if err != nil {
			return nil, err
		}
		for _, key := range sortedKeys(m) {
			term, err := s.orderTerm(t, alias, key, m[key])
			if err != nil {
				return nil, err
			}
			terms = append(terms, term)
		}
	}
	return terms, nil
}

func direction(v any) (desc bool, nulls string, err error) {
	switch d := v.(type) {
	case string:
		return d == "desc", "", nil
	case map[string]any:
		sort, _ := d["sort"].(string)
		nulls, _ = d["nulls"].(string)
		return sort == "desc", nulls, nil
	}
	return false, "", fmt.Errorf("sort order must be asc, desc or {sort, nulls}, got %T", v)
}

func (s *scope) orderTerm(t *table, alias, key string, v any) (orderTerm, error) {
	if f, ok := t.entity.Field(key); ok {
		desc, nulls, err := direction(v)
		if err != nil {
			return orderTerm{}, err
		}
		return orderTerm{expr: qualify(alias, t.column(f.Name)), desc: desc, nulls: nulls, column: f.Name}, nil
	}

	rel, ok := t.entity.Relation(key)
	if !ok {
		return orderTerm{}, fmt.Errorf("%w: %s cannot order by %s", ErrUnsupportedFilter, t.entity.Name, key)
	}
	nested, err := asMap(v, "orderBy."+key)
	if err != nil {
		return orderTerm{}, err
	}
	target, err := s.c.table(rel.Target)
	if err != nil {
		return orderTerm{}, err
	}
	sub := s.nextAlias()

	var term orderTerm
	var selectExpr string
	if rel.ToMany {
		dir, ok := nested["_count"]
		if !ok || len(nested) != 1 {
			return orderTerm{}, fmt.Errorf("%w: %s orders only by _count", ErrUnsupportedFilter, key)
		}
		if term.desc, term.nulls, err = direction(dir); err != nil {
			return orderTerm{}, err
		}
		selectExpr = "COUNT(*)"
	} else {
		if len(nested) != 1 {
			return orderTerm{}, fmt.Errorf("%w: orderBy.%s takes exactly one key", ErrUnsupportedFilter, key)
		}
		for _, k := range sortedKeys(nested) {
			inner, err := s.orderTerm(target, sub, k, nested[k])
			if err != nil {
				return orderTerm{}, err
			}
			term.desc, term.nulls = inner.desc, inner.nulls
			selectExpr = inner.expr
		}
	}

	builder := sq.Select(selectExpr).From(from(target, sub))
	for _, pair := range s.correlate(t, alias, rel, target, sub) {
		builder = builder.Where(pair)
	}
	if !rel.ToMany {
		builder = builder.Limit(1)
	}
	sql, _, err := builder.ToSql()
	if err != nil {
		return orderTerm{}, err
	}
	term.expr = "(" + sql + ")"
	return term, nil
}
