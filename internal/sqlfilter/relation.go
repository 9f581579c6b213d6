package sqlfilter

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/TakashiAihara/preppin-sub000/internal/model"
)

// exists renders EXISTS over the relation's target rows tied to the outer
// row, optionally restricted by where. With negateWhere only rows that do
// not satisfy where are kept, including rows where it is unknown; every is
// NOT EXISTS over those.
func (s *scope) exists(t *table, alias string, rel model.Relation, where map[string]any, negateWhere bool) (sq.Sqlizer, error) {
	target, err := s.c.table(rel.Target)
	if err != nil {
		return nil, err
	}
	sub := s.nextAlias()

	builder := sq.Select("1").From(from(target, sub))
	for _, pair := range s.correlate(t, alias, rel, target, sub) {
		builder = builder.Where(pair)
	}
	if len(where) > 0 {
		cond, err := s.where(target, sub, where)
		if err != nil {
			return nil, err
		}
		if negateWhere {
			cond = notTrue(cond)
		}
		if cond != nil {
			builder = builder.Where(cond)
		}
	}

	sql, args, err := builder.PlaceholderFormat(sq.Question).ToSql()
	if err != nil {
		return nil, err
	}
	return sq.Expr(fmt.Sprintf("EXISTS (%s)", sql), args...), nil
}

func (s *scope) relation(t *table, alias string, rel model.Relation, filter map[string]any) (sq.Sqlizer, error) {
	var conds []sq.Sqlizer
	for _, op := range sortedKeys(filter) {
		cond, err := s.relationOp(t, alias, rel, op, filter[op])
		if err != nil {
			return nil, err
		}
		conds = append(conds, cond)
	}
	return join(conds), nil
}

func (s *scope) relationOp(t *table, alias string, rel model.Relation, op string, v any) (sq.Sqlizer, error) {
	if rel.ToMany {
		where, err := asMap(v, rel.Name+"."+op)
		if err != nil {
			return nil, err
		}
		switch op {
		case "some":
			return s.exists(t, alias, rel, where, false)
		case "none":
			cond, err := s.exists(t, alias, rel, where, false)
			return not(cond), err
		case "every":
			if len(where) == 0 {
				return sq.Expr("TRUE"), nil
			}
			cond, err := s.exists(t, alias, rel, where, true)
			return not(cond), err
		}
		return nil, fmt.Errorf("%w: relation operator %s", ErrUnsupportedFilter, op)
	}

	if op != "is" && op != "isNot" {
		return nil, fmt.Errorf("%w: relation operator %s", ErrUnsupportedFilter, op)
	}
	present := op == "isNot"
	if v == nil {
		return s.presence(t, alias, rel, present)
	}
	where, err := asMap(v, rel.Name+"."+op)
	if err != nil {
		return nil, err
	}
	cond, err := s.exists(t, alias, rel, where, false)
	if err != nil {
		return nil, err
	}
	if op == "isNot" {
		return not(cond), nil
	}
	return cond, nil
}

// presence tests whether a to-one relation is set. The owning side reads
// its foreign keys directly.
func (s *scope) presence(t *table, alias string, rel model.Relation, present bool) (sq.Sqlizer, error) {
	if rel.Owner() {
		conds := make([]sq.Sqlizer, 0, len(rel.Fields))
		for _, fk := range rel.Fields {
			col := qualify(alias, t.column(fk))
			if present {
				conds = append(conds, sq.NotEq{col: nil})
			} else {
				conds = append(conds, sq.Eq{col: nil})
			}
		}
		return join(conds), nil
	}
	cond, err := s.exists(t, alias, rel, nil, false)
	if err != nil {
		return nil, err
	}
	if present {
		return cond, nil
	}
	return not(cond), nil
}
