package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONGet(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		key      any
		expected any
	}{
		{"field", `{"foo": "bar"}`, "foo", "bar"},
		{"index", `[1, 2, 3]`, int64(1), int64(2)},
		{"integral float index", `[1, 2, 3]`, float64(2), int64(3)},
		{"nested object", `{"foo": {"bar": "blah"}}`, "foo", `{"bar":"blah"}`},
		{"nested array", `{"foo": [1, "a"]}`, "foo", `[1,"a"]`},
		{"float value", `{"n": 1.5}`, "n", 1.5},
		{"bool value", `{"ok": true}`, "ok", true},
		{"null input", nil, "foo", nil},
		{"null from sqlite", []byte(nil), "foo", nil},
		{"serialized null", "null", "foo", nil},
		{"missing field", `{"foo": "bar"}`, "nope", nil},
		{"null field", `{"foo": null}`, "foo", nil},
		{"index out of range", `[1, 2, 3]`, int64(3), nil},
		{"negative index", `[1, 2, 3]`, int64(-1), nil},
		{"string key on array", `[1, 2]`, "0", nil},
		{"int key on object", `{"0": 1}`, int64(0), nil},
		{"fractional index", `[1, 2]`, 0.5, nil},
		{"number input", int64(5), "foo", nil},
		{"blob input", []byte(`{"a": 1}`), "a", int64(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := JSONGet(tt.input, tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestJSONGetChained(t *testing.T) {
	inner, err := JSONGet(`{"foo": {"bar": "blah"}}`, "foo")
	require.NoError(t, err)

	got, err := JSONGet(inner, "bar")
	require.NoError(t, err)
	assert.Equal(t, "blah", got)
}

func TestJSONGetMalformed(t *testing.T) {
	_, err := JSONGet("not json", "foo")
	require.Error(t, err)
	assert.Contains(t, err.Error(), AccessorFunc)
}
