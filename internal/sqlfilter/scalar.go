package sqlfilter

import (
	"encoding/json"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/TakashiAihara/preppin-sub000/internal/jsonvalue"
	"github.com/TakashiAihara/preppin-sub000/internal/model"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func like(col, pattern string, insensitive bool) sq.Sqlizer {
	if insensitive {
		return sq.ILike{col: pattern}
	}
	return sq.Like{col: pattern}
}

func aggregateOperator(op string) bool {
	switch op {
	case "_count", "_avg", "_sum", "_min", "_max":
		return true
	}
	return false
}

// lowerAll lowercases a list of strings; ok is false if any item is not a
// string.
func lowerAll(items []any) ([]any, bool) {
	out := make([]any, len(items))
	for i, item := range items {
		str, ok := item.(string)
		if !ok {
			return nil, false
		}
		out[i] = strings.ToLower(str)
	}
	return out, true
}

// scalarFilter renders a String, Int, Float, Bool, DateTime or enum
// filter. Null operands of ordering and pattern operators match nothing
// and are skipped.
func scalarFilter(col string, filter map[string]any, insensitive bool) (sq.Sqlizer, error) {
	var conds []sq.Sqlizer
	for _, op := range sortedKeys(filter) {
		v := filter[op]
		switch op {
		case "mode":
			continue
		case "equals":
			if str, ok := v.(string); ok && insensitive {
				conds = append(conds, like(col, likeEscaper.Replace(str), true))
				continue
			}
			conds = append(conds, sq.Eq{col: v})
		case "in", "notIn":
			if v == nil {
				continue
			}
			items, err := asList(v, op)
			if err != nil {
				return nil, err
			}
			key := col
			if insensitive {
				if lowered, ok := lowerAll(items); ok {
					key, items = "LOWER("+col+")", lowered
				}
			}
			if op == "in" {
				conds = append(conds, sq.Eq{key: items})
			} else {
				conds = append(conds, sq.NotEq{key: items})
			}
		case "lt", "lte", "gt", "gte":
			if v == nil {
				continue
			}
			conds = append(conds, compare(op, col, v))
		case "contains", "startsWith", "endsWith":
			if v == nil {
				continue
			}
			str, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("%s operand must be a string, got %T", op, v)
			}
			pattern := likeEscaper.Replace(str)
			switch op {
			case "contains":
				pattern = "%" + pattern + "%"
			case "startsWith":
				pattern += "%"
			case "endsWith":
				pattern = "%" + pattern
			}
			conds = append(conds, like(col, pattern, insensitive))
		case "not":
			nested, err := asMap(v, "not")
			if err != nil {
				return nil, err
			}
			cond, err := scalarFilter(col, nested, insensitive)
			if err != nil {
				return nil, err
			}
			if cond != nil {
				conds = append(conds, not(cond))
			}
		default:
			if aggregateOperator(op) {
				return nil, fmt.Errorf("%w: %s is only valid in having", ErrUnsupportedFilter, op)
			}
			return nil, fmt.Errorf("%w: operator %s", ErrUnsupportedFilter, op)
		}
	}
	return join(conds), nil
}

func compare(op, col string, v any) sq.Sqlizer {
	switch op {
	case "lt":
		return sq.Lt{col: v}
	case "lte":
		return sq.LtOrEq{col: v}
	case "gt":
		return sq.Gt{col: v}
	}
	return sq.GtOrEq{col: v}
}

// arrayArg encodes list operands as a Postgres array parameter.
func arrayArg(f model.Field, items []any) any {
	switch f.Kind {
	case model.KindString, model.KindEnum:
		out := make(pq.StringArray, len(items))
		for i, item := range items {
			out[i], _ = item.(string)
		}
		return out
	case model.KindFloat:
		out := make(pq.Float64Array, len(items))
		for i, item := range items {
			out[i], _ = item.(float64)
		}
		return out
	case model.KindInt:
		out := make(pq.Int64Array, len(items))
		for i, item := range items {
			out[i], _ = item.(int64)
		}
		return out
	case model.KindBoolean:
		out := make(pq.BoolArray, len(items))
		for i, item := range items {
			out[i], _ = item.(bool)
		}
		return out
	}
	return pq.Array(items)
}

func listFilter(col string, f model.Field, filter map[string]any) (sq.Sqlizer, error) {
	var conds []sq.Sqlizer
	for _, op := range sortedKeys(filter) {
		v := filter[op]
		switch op {
		case "equals":
			if v == nil {
				conds = append(conds, sq.Eq{col: nil})
				continue
			}
			items, err := asList(v, op)
			if err != nil {
				return nil, err
			}
			conds = append(conds, sq.Expr(col+" = ?", arrayArg(f, items)))
		case "has":
			if v == nil {
				conds = append(conds, sq.Expr("array_position("+col+", NULL) IS NOT NULL"))
				continue
			}
			conds = append(conds, sq.Expr("? = ANY("+col+")", v))
		case "hasEvery", "hasSome":
			items, err := asList(v, op)
			if err != nil {
				return nil, err
			}
			operator := " @> ?"
			if op == "hasSome" {
				operator = " && ?"
			}
			conds = append(conds, sq.Expr(col+operator, arrayArg(f, items)))
		case "isEmpty":
			empty, ok := v.(bool)
			if !ok {
				return nil, fmt.Errorf("isEmpty must be a boolean, got %T", v)
			}
			if empty {
				conds = append(conds, sq.Expr("cardinality("+col+") = 0"))
			} else {
				conds = append(conds, sq.Expr("cardinality("+col+") > 0"))
			}
		default:
			return nil, fmt.Errorf("%w: list operator %s", ErrUnsupportedFilter, op)
		}
	}
	return join(conds), nil
}

func jsonArg(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode json operand: %w", err)
	}
	return string(b), nil
}

// matchCond renders equals (negate false) or not (negate true) against a
// JSON operand. DbNull is SQL NULL and JsonNull is the JSON literal null.
func matchCond(target sq.Sqlizer, v any, negate bool) (sq.Sqlizer, error) {
	m, ok := v.(jsonvalue.Match)
	if !ok {
		return nil, fmt.Errorf("json operand must be a validated match, got %T", v)
	}
	switch m.Mode {
	case jsonvalue.ModeDbNull:
		if negate {
			return sq.Expr("? IS NOT NULL", target), nil
		}
		return sq.Expr("? IS NULL", target), nil
	case jsonvalue.ModeJsonNull:
		if negate {
			return sq.Expr("? <> 'null'::jsonb", target), nil
		}
		return sq.Expr("? = 'null'::jsonb", target), nil
	case jsonvalue.ModeAnyNull:
		if negate {
			return sq.Expr("(? IS NOT NULL AND ? <> 'null'::jsonb)", target, target), nil
		}
		return sq.Expr("(? IS NULL OR ? = 'null'::jsonb)", target, target), nil
	}
	arg, err := jsonArg(m.Value)
	if err != nil {
		return nil, err
	}
	if negate {
		return sq.Expr("? <> ?::jsonb", target, arg), nil
	}
	return sq.Expr("? = ?::jsonb", target, arg), nil
}

func jsonFilter(col string, filter map[string]any) (sq.Sqlizer, error) {
	target := sq.Expr(col)
	if raw, ok := filter["path"]; ok {
		items, err := asList(raw, "path")
		if err != nil {
			return nil, err
		}
		path := make(pq.StringArray, len(items))
		for i, item := range items {
			path[i], _ = item.(string)
		}
		target = sq.Expr("("+col+" #> ?)", path)
	}

	var conds []sq.Sqlizer
	for _, op := range sortedKeys(filter) {
		v := filter[op]
		switch op {
		case "path":
			continue
		case "equals", "not":
			cond, err := matchCond(target, v, op == "not")
			if err != nil {
				return nil, err
			}
			conds = append(conds, cond)
		case "string_contains", "string_starts_with", "string_ends_with":
			str, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("%s operand must be a string, got %T", op, v)
			}
			pattern := likeEscaper.Replace(str)
			switch op {
			case "string_contains":
				pattern = "%" + pattern + "%"
			case "string_starts_with":
				pattern += "%"
			case "string_ends_with":
				pattern = "%" + pattern
			}
			conds = append(conds, sq.Expr("(jsonb_typeof(?) = 'string' AND ? #>> '{}' LIKE ?)", target, target, pattern))
		case "array_contains":
			operand := v
			if _, isList := v.([]any); !isList {
				operand = []any{v}
			}
			arg, err := jsonArg(operand)
			if err != nil {
				return nil, err
			}
			conds = append(conds, sq.Expr("(jsonb_typeof(?) = 'array' AND ? @> ?::jsonb)", target, target, arg))
		case "array_starts_with", "array_ends_with":
			arg, err := jsonArg(v)
			if err != nil {
				return nil, err
			}
			index := "0"
			if op == "array_ends_with" {
				index = "-1"
			}
			conds = append(conds, sq.Expr("? -> "+index+" = ?::jsonb", target, arg))
		case "lt", "lte", "gt", "gte":
			arg, err := jsonArg(v)
			if err != nil {
				return nil, err
			}
			operator := map[string]string{"lt": "<", "lte": "<=", "gt": ">", "gte": ">="}[op]
			conds = append(conds, sq.Expr("? "+operator+" ?::jsonb", target, arg))
		default:
			if aggregateOperator(op) {
				return nil, fmt.Errorf("%w: %s is only valid in having", ErrUnsupportedFilter, op)
			}
			return nil, fmt.Errorf("%w: json operator %s", ErrUnsupportedFilter, op)
		}
	}
	return join(conds), nil
}
