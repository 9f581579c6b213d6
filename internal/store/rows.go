package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"github.com/TakashiAihara/preppin-sub000/internal/model"
)

// scanRows decodes rows whose columns are aliased by field name.
func scanRows(e *model.Entity, rows Rows) ([]map[string]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	fields := make([]model.Field, len(cols))
	for i, col := range cols {
		f, ok := e.Field(col)
		if !ok {
			return nil, fmt.Errorf("column %q is not a field of %s", col, e.Name)
		}
		fields[i] = f
	}

	out := []map[string]any{}
	for rows.Next() {
		dest := make([]any, len(fields))
		for i, f := range fields {
			dest[i] = destination(f)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(fields))
		for i, f := range fields {
			v, err := decode(f, dest[i])
			if err != nil {
				return nil, fmt.Errorf("%s: %w", f.Name, err)
			}
			row[f.Name] = v
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func destination(f model.Field) any {
	if f.List {
		switch f.Kind {
		case model.KindInt:
			return &pq.Int64Array{}
		case model.KindFloat:
			return &pq.Float64Array{}
		case model.KindBoolean:
			return &pq.BoolArray{}
		}
		return &pq.StringArray{}
	}
	switch f.Kind {
	case model.KindInt:
		return &sql.NullInt64{}
	case model.KindFloat:
		return &sql.NullFloat64{}
	case model.KindBoolean:
		return &sql.NullBool{}
	case model.KindDateTime:
		return &sql.NullTime{}
	case model.KindJson:
		return &[]byte{}
	}
	return &sql.NullString{}
}

// decode turns a scanned destination into the value the schemas accept:
// lists as []any, SQL NULL as nil.
func decode(f model.Field, dest any) (any, error) {
	switch d := dest.(type) {
	case *pq.StringArray:
		return listOf(*d), nil
	case *pq.Int64Array:
		return listOf(*d), nil
	case *pq.Float64Array:
		return listOf(*d), nil
	case *pq.BoolArray:
		return listOf(*d), nil
	case *sql.NullInt64:
		if !d.Valid {
			return nil, nil
		}
		return d.Int64, nil
	case *sql.NullFloat64:
		if !d.Valid {
			return nil, nil
		}
		return d.Float64, nil
	case *sql.NullBool:
		if !d.Valid {
			return nil, nil
		}
		return d.Bool, nil
	case *sql.NullTime:
		if !d.Valid {
			return nil, nil
		}
		return d.Time.UTC(), nil
	case *[]byte:
		if *d == nil {
			return nil, nil
		}
		var v any
		if err := json.Unmarshal(*d, &v); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
		return v, nil
	case *sql.NullString:
		if !d.Valid {
			return nil, nil
		}
		return d.String, nil
	}
	return nil, fmt.Errorf("unexpected destination %T for %s", dest, f.Kind)
}

func listOf[T any](items []T) any {
	if items == nil {
		return nil
	}
	out := make([]any, len(items))
	for i, item := range items {
		out[i] = item
	}
	return out
}
