package ir

// Item is one record of a provider collection.
// Values are looked up by column name; a field the item does not carry reads
// as absent.
type Item interface {
	Get(field string) (any, bool)
}

// Record is a map-backed Item.
type Record map[string]any

// Get implements Item.
func (r Record) Get(field string) (any, bool) {
	v, ok := r[field]
	return v, ok
}

// overlay is an Item view with a single field replaced.
type overlay struct {
	base  Item
	field string
	value any
}

func (o overlay) Get(field string) (any, bool) {
	if field == o.field {
		return o.value, true
	}
	return o.base.Get(field)
}

// WithOverride returns a view of item in which field reads as value.
// The source item is left untouched.
func WithOverride(item Item, field string, value any) Item {
	return overlay{base: item, field: field, value: value}
}

// Values returns the values of item aligned to columns.
// Missing fields are nil.
func Values(item Item, columns []string) []any {
	vals := make([]any, len(columns))
	for i, col := range columns {
		if v, ok := item.Get(col); ok {
			vals[i] = v
		}
	}
	return vals
}
