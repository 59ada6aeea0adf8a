package harness

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/lebinh/aq/internal/ir"
)

// AssertionError describes one mismatch between a step's expect clause and
// what happened.
type AssertionError struct {
	Field    string // columns, rows, fetches or error
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.Field, e.Expected, e.Actual)
}

// checkStep compares event against the step's expect clause and returns a
// message per mismatch.
func checkStep(step Step, event TraceEvent) []string {
	var errs []string
	add := func(err error) {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	expect := step.Expect
	if expect == nil {
		if event.Error != "" {
			add(&AssertionError{Field: "error", Expected: "success", Actual: event.Message})
		}
		return errs
	}

	if expect.Error != "" || event.Error != "" {
		add(assertError(expect.Error, event))
		if event.Error != "" {
			add(assertFetches(expect.Fetches, event.Fetches))
			return errs
		}
	}

	if expect.Columns != nil && !reflect.DeepEqual(expect.Columns, event.Columns) {
		add(&AssertionError{
			Field:    "columns",
			Expected: fmt.Sprintf("%v", expect.Columns),
			Actual:   fmt.Sprintf("%v", event.Columns),
		})
	}
	if expect.Rows != nil {
		add(assertRows(expect.Rows, event.Rows))
	}
	add(assertFetches(expect.Fetches, event.Fetches))
	return errs
}

func assertError(expected string, event TraceEvent) error {
	if expected == event.Error {
		return nil
	}
	actual := "success"
	if event.Error != "" {
		actual = event.Error + " (" + event.Message + ")"
	}
	if expected == "" {
		expected = "success"
	}
	return &AssertionError{Field: "error", Expected: expected, Actual: actual}
}

// assertRows compares rows by their canonical JSON encoding, so 1 in a YAML
// file matches the int64 1 the store returns.
func assertRows(expected, actual [][]any) error {
	want, err := ir.MarshalCanonical(expected)
	if err != nil {
		return fmt.Errorf("rows: cannot encode expected rows: %w", err)
	}
	got, err := ir.MarshalCanonical(actual)
	if err != nil {
		return fmt.Errorf("rows: cannot encode actual rows: %w", err)
	}
	if string(want) == string(got) {
		return nil
	}
	return &AssertionError{Field: "rows", Expected: string(want), Actual: string(got)}
}

// assertFetches checks the per-table fetch counts. A nil expectation skips
// the check; an empty one requires that nothing was fetched.
func assertFetches(expected, actual map[string]int) error {
	if expected == nil {
		return nil
	}

	var diffs []string
	for table, n := range expected {
		if actual[table] != n {
			diffs = append(diffs, fmt.Sprintf("%s=%d (want %d)", table, actual[table], n))
		}
	}
	for table, n := range actual {
		if _, ok := expected[table]; !ok {
			diffs = append(diffs, fmt.Sprintf("%s=%d (want 0)", table, n))
		}
	}
	if len(diffs) == 0 {
		return nil
	}
	sort.Strings(diffs)
	return &AssertionError{
		Field:    "fetches",
		Expected: formatFetches(expected),
		Actual:   strings.Join(diffs, ", "),
	}
}

func formatFetches(fetches map[string]int) string {
	if len(fetches) == 0 {
		return "none"
	}
	keys := make([]string, 0, len(fetches))
	for k := range fetches {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, fetches[k])
	}
	return strings.Join(parts, ", ")
}
