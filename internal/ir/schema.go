package ir

import "sort"

// CollectionSchema describes the columns a provider collection exposes.
//
// Identifiers are the fields that identify an item (e.g. "id"); Attributes
// are the remaining fields in the order the provider declares them.
type CollectionSchema struct {
	Identifiers []string `yaml:"identifiers" json:"identifiers"`
	Attributes  []string `yaml:"attributes" json:"attributes"`
}

// Columns returns the table column order for the collection: identifiers
// sorted lexically, then attributes in declared order.
//
// A name that appears more than once keeps its first position. The result is
// a fresh slice and is identical for identical schemas, so a rebuilt table
// always has the same shape as the rows inserted into it.
func (s CollectionSchema) Columns() []string {
	ids := make([]string, len(s.Identifiers))
	copy(ids, s.Identifiers)
	sort.Strings(ids)

	seen := make(map[string]bool, len(ids)+len(s.Attributes))
	cols := make([]string, 0, len(ids)+len(s.Attributes))
	for _, name := range append(ids, s.Attributes...) {
		if seen[name] {
			continue
		}
		seen[name] = true
		cols = append(cols, name)
	}
	return cols
}
