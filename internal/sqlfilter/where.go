package sqlfilter

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/TakashiAihara/preppin-sub000/internal/model"
	"github.com/TakashiAihara/preppin-sub000/internal/registry"
)

// Where renders a validated WhereInput of entity against the root alias t0.
// An empty filter renders as nil.
func (c *Compiler) Where(entity string, where map[string]any) (sq.Sqlizer, error) {
	t, err := c.table(entity)
	if err != nil {
		return nil, err
	}
	s := c.newScope()
	return s.where(t, s.nextAlias(), where)
}

// WhereSQL is Where rendered with $n placeholders.
func (c *Compiler) WhereSQL(entity string, where map[string]any) (Query, error) {
	cond, err := c.Where(entity, where)
	if err != nil {
		return Query{}, err
	}
	return render(cond)
}

// Unique renders a validated unique lookup against the root alias t0.
func (c *Compiler) Unique(entity string, uw registry.UniqueWhere) (sq.Sqlizer, error) {
	t, err := c.table(entity)
	if err != nil {
		return nil, err
	}
	s := c.newScope()
	return s.unique(t, s.nextAlias(), uw)
}

func (s *scope) unique(t *table, alias string, uw registry.UniqueWhere) (sq.Sqlizer, error) {
	if len(uw.Keys) == 0 {
		return nil, fmt.Errorf("%w: unique lookup on %s has no key", ErrUnsupportedFilter, t.entity.Name)
	}
	conds := make([]sq.Sqlizer, 0, len(uw.Keys)+1)
	for _, field := range sortedKeys(uw.Keys) {
		col, ok := t.columns[field]
		if !ok {
			return nil, fmt.Errorf("%w: %s has no field %s", ErrUnknownEntity, t.entity.Name, field)
		}
		conds = append(conds, sq.Eq{qualify(alias, col): uw.Keys[field]})
	}
	rest, err := s.where(t, alias, uw.Where)
	if err != nil {
		return nil, err
	}
	if rest != nil {
		conds = append(conds, rest)
	}
	return join(conds), nil
}

func (s *scope) where(t *table, alias string, where map[string]any) (sq.Sqlizer, error) {
	var conds []sq.Sqlizer
	for _, key := range sortedKeys(where) {
		value := where[key]
		switch key {
		case "AND", "OR", "NOT":
			cond, err := s.combinator(t, alias, key, value)
			if err != nil {
				return nil, err
			}
			if cond != nil {
				conds = append(conds, cond)
			}
			continue
		}

		if f, ok := t.entity.Field(key); ok {
			filter, err := asMap(value, "filter for "+key)
			if err != nil {
				return nil, err
			}
			cond, err := s.field(t, alias, f, filter)
			if err != nil {
				return nil, err
			}
			if cond != nil {
				conds = append(conds, cond)
			}
			continue
		}

		rel, ok := t.entity.Relation(key)
		if !ok {
			return nil, fmt.Errorf("%w: %s has no field %s", ErrUnknownEntity, t.entity.Name, key)
		}
		filter, err := asMap(value, "relation filter for "+key)
		if err != nil {
			return nil, err
		}
		cond, err := s.relation(t, alias, rel, filter)
		if err != nil {
			return nil, err
		}
		if cond != nil {
			conds = append(conds, cond)
		}
	}
	return join(conds), nil
}

// combinator renders AND, OR and NOT. NOT negates each operand, so
// NOT [a, b] means neither a nor b.
func (s *scope) combinator(t *table, alias, op string, value any) (sq.Sqlizer, error) {
	items, err := asList(value, op)
	if err != nil {
		return nil, err
	}
	conds := make([]sq.Sqlizer, 0, len(items))
	for _, item := range items {
		m, err := asMap(item, op+" operand")
		if err != nil {
			return nil, err
		}
		cond, err := s.where(t, alias, m)
		if err != nil {
			return nil, err
		}
		switch op {
		case "AND":
			if cond != nil {
				conds = append(conds, cond)
			}
		case "OR":
			conds = append(conds, orTrue(cond))
		case "NOT":
			conds = append(conds, not(cond))
		}
	}
	if op == "OR" {
		return sq.Or(conds), nil
	}
	return join(conds), nil
}

func (s *scope) field(t *table, alias string, f model.Field, filter map[string]any) (sq.Sqlizer, error) {
	col := qualify(alias, t.column(f.Name))
	switch {
	case f.List:
		return listFilter(col, f, filter)
	case f.Kind == model.KindJson:
		return jsonFilter(col, filter)
	}
	return scalarFilter(col, filter, filter["mode"] == "insensitive")
}
