package ir

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"
)

// SQLValue converts a provider value into a value the store can bind as a
// column parameter.
//
// Scalars pass through with their kind normalized (named string types become
// string, sized ints become int64). Timestamps become RFC 3339 text. Maps,
// slices and arrays are serialized with MarshalCanonical. nil stays nil.
func SQLValue(v any) (any, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string, bool, int64, float64, []byte:
		return val, nil
	case int:
		return int64(val), nil
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i, nil
		}
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", val)
		}
		return f, nil
	case time.Time:
		return val.Format(time.RFC3339Nano), nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil, nil
		}
		return SQLValue(rv.Elem().Interface())
	case reflect.String:
		return rv.String(), nil
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return int64(rv.Uint()), nil
	case reflect.Uint64:
		u := rv.Uint()
		if u > 1<<63-1 {
			return float64(u), nil
		}
		return int64(u), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.Map, reflect.Slice, reflect.Array:
		if (rv.Kind() == reflect.Map || rv.Kind() == reflect.Slice) && rv.IsNil() {
			return nil, nil
		}
		data, err := MarshalCanonical(v)
		if err != nil {
			return nil, err
		}
		return string(data), nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

// RowValues converts item into a row aligned to columns.
func RowValues(item Item, columns []string) ([]any, error) {
	row := Values(item, columns)
	for i, v := range row {
		converted, err := SQLValue(v)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", columns[i], err)
		}
		row[i] = converted
	}
	return row, nil
}
