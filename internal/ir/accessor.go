package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// AccessorFunc is the name of the SQL scalar function that the path
// operator (a -> b) is rewritten into. The store registers JSONGet under
// this name.
const AccessorFunc = "json_get"

// JSONGet reads one step into a serialized structure, emulating the HSTORE
// `->` operator.
//
// serialized is JSON text (or NULL). An integer key indexes an array, a
// string key looks up an object field. The result is:
//   - nil when the input is NULL, encodes null, or the key is not present
//     (including an out-of-range index)
//   - the raw value when the looked-up value is a string, number or bool
//   - canonical JSON text when it is an array or object
//
// Text that is not valid JSON returns an error.
func JSONGet(serialized any, key any) (any, error) {
	var data []byte
	switch s := serialized.(type) {
	case nil:
		return nil, nil
	case string:
		data = []byte(s)
	case []byte:
		// go-sqlite3 hands SQL NULL to interface{} arguments as a nil []byte.
		if s == nil {
			return nil, nil
		}
		data = s
	default:
		// Plain numbers and bools have nothing to index into.
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var obj any
	if err := dec.Decode(&obj); err != nil {
		return nil, fmt.Errorf("%s: malformed JSON: %w", AccessorFunc, err)
	}
	if obj == nil {
		return nil, nil
	}

	var res any
	switch k := key.(type) {
	case int64:
		res = index(obj, k)
	case float64:
		if k != math.Trunc(k) {
			return nil, nil
		}
		res = index(obj, int64(k))
	case string:
		m, ok := obj.(map[string]any)
		if !ok {
			return nil, nil
		}
		res = m[k]
	case []byte:
		m, ok := obj.(map[string]any)
		if !ok {
			return nil, nil
		}
		res = m[string(k)]
	default:
		return nil, nil
	}

	switch v := res.(type) {
	case nil:
		return nil, nil
	case string, bool:
		return v, nil
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i, nil
		}
		f, err := v.Float64()
		if err != nil {
			return nil, err
		}
		return f, nil
	default:
		out, err := MarshalCanonical(v)
		if err != nil {
			return nil, err
		}
		return string(out), nil
	}
}

func index(obj any, i int64) any {
	arr, ok := obj.([]any)
	if !ok || i < 0 || i >= int64(len(arr)) {
		return nil
	}
	return arr[i]
}
