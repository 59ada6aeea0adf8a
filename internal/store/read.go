package store

import (
	"context"
	"fmt"
)

// Query runs text and returns the column names and every row.
//
// Values are returned as the driver produces them: int64, float64, string,
// []byte or nil.
func (s *Store) Query(ctx context.Context, text string, args ...any) ([]string, [][]any, error) {
	rows, err := s.conn.QueryContext(ctx, text, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	result := [][]any{}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, fmt.Errorf("scan row: %w", err)
		}
		result = append(result, values)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return columns, result, nil
}

// TableColumns returns the column names of namespace.table in order, or
// nil if the table does not exist.
func (s *Store) TableColumns(ctx context.Context, namespace, table string) ([]string, error) {
	rows, err := s.conn.QueryContext(ctx,
		fmt.Sprintf("PRAGMA %s.table_info(%s)", quoteIdent(namespace), quoteIdent(table)))
	if err != nil {
		return nil, fmt.Errorf("table columns %s.%s: %w", namespace, table, err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var (
			cid       int
			name      string
			ctype     string
			notNull   int
			dfltValue any
			pk        int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dfltValue, &pk); err != nil {
			return nil, fmt.Errorf("table columns %s.%s: %w", namespace, table, err)
		}
		columns = append(columns, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("table columns %s.%s: %w", namespace, table, err)
	}
	return columns, nil
}
