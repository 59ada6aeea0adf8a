package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"slices"
	"strconv"
	"time"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical encodes a structured attribute value as JSON text.
//
// The encoding is deterministic so that a refreshed table stores the same
// bytes for the same provider data:
//  1. Object keys sorted by UTF-16 code units
//  2. No HTML escaping (< > & are kept as is)
//  3. Strings are NFC normalized
//  4. Timestamps are RFC 3339 strings
//
// NaN and infinite floats cannot be represented and return an error.
func MarshalCanonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := marshalCanonical(&buf, reflect.ValueOf(v)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var (
	timeType   = reflect.TypeOf(time.Time{})
	numberType = reflect.TypeOf(json.Number(""))
)

func marshalCanonical(buf *bytes.Buffer, v reflect.Value) error {
	if !v.IsValid() {
		buf.WriteString("null")
		return nil
	}

	switch v.Type() {
	case timeType:
		return marshalCanonicalString(buf, v.Interface().(time.Time).Format(time.RFC3339Nano))
	case numberType:
		n := v.Interface().(json.Number)
		if _, err := n.Float64(); err != nil {
			return fmt.Errorf("invalid number %q", n)
		}
		buf.WriteString(n.String())
		return nil
	}

	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			buf.WriteString("null")
			return nil
		}
		return marshalCanonical(buf, v.Elem())
	case reflect.String:
		return marshalCanonicalString(buf, v.String())
	case reflect.Bool:
		buf.WriteString(strconv.FormatBool(v.Bool()))
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		buf.WriteString(strconv.FormatInt(v.Int(), 10))
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		buf.WriteString(strconv.FormatUint(v.Uint(), 10))
		return nil
	case reflect.Float32, reflect.Float64:
		f := v.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("unsupported float value: %v", f)
		}
		data, err := json.Marshal(f)
		if err != nil {
			return err
		}
		buf.Write(data)
		return nil
	case reflect.Slice:
		if v.IsNil() {
			buf.WriteString("null")
			return nil
		}
		if v.Type().Elem().Kind() == reflect.Uint8 {
			// Byte slices keep encoding/json's base64 form.
			data, err := json.Marshal(v.Bytes())
			if err != nil {
				return err
			}
			buf.Write(data)
			return nil
		}
		return marshalCanonicalArray(buf, v)
	case reflect.Array:
		return marshalCanonicalArray(buf, v)
	case reflect.Map:
		if v.IsNil() {
			buf.WriteString("null")
			return nil
		}
		return marshalCanonicalObject(buf, v)
	default:
		return fmt.Errorf("unsupported type for canonical JSON: %s", v.Type())
	}
}

// marshalCanonicalString writes s as a JSON string after NFC normalization.
func marshalCanonicalString(buf *bytes.Buffer, s string) error {
	normalized := norm.NFC.String(s)

	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(normalized); err != nil {
		return err
	}
	// json.Encoder adds a trailing newline.
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte("\n")))
	return nil
}

func marshalCanonicalArray(buf *bytes.Buffer, v reflect.Value) error {
	buf.WriteByte('[')
	for i := 0; i < v.Len(); i++ {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := marshalCanonical(buf, v.Index(i)); err != nil {
			return fmt.Errorf("array[%d]: %w", i, err)
		}
	}
	buf.WriteByte(']')
	return nil
}

func marshalCanonicalObject(buf *bytes.Buffer, v reflect.Value) error {
	keys := make([]string, 0, v.Len())
	values := make(map[string]reflect.Value, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		k := iter.Key()
		var key string
		if k.Kind() == reflect.String {
			key = k.String()
		} else {
			key = fmt.Sprint(k.Interface())
		}
		keys = append(keys, key)
		values[key] = iter.Value()
	}
	slices.SortFunc(keys, compareKeys)

	buf.WriteByte('{')
	for i, key := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := marshalCanonicalString(buf, key); err != nil {
			return err
		}
		buf.WriteByte(':')
		if err := marshalCanonical(buf, values[key]); err != nil {
			return fmt.Errorf("object[%q]: %w", key, err)
		}
	}
	buf.WriteByte('}')
	return nil
}

// compareKeys orders object keys by UTF-16 code units.
// Go's string comparison uses UTF-8 bytes, which orders some
// supplementary-plane characters differently.
func compareKeys(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	minLen := min(len(a16), len(b16))
	for i := 0; i < minLen; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}
