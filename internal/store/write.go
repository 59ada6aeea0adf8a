package store

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// ReplaceTable rebuilds namespace.table with columns and fills it with rows.
//
// The drop, create and inserts run in one transaction. On any failure the
// transaction is rolled back and the previous table, if any, is left as it
// was.
//
// Every row must have exactly len(columns) values.
func (s *Store) ReplaceTable(ctx context.Context, namespace, table string, columns []string, rows [][]any) error {
	if len(columns) == 0 {
		return fmt.Errorf("replace table %s.%s: no columns", namespace, table)
	}
	for i, row := range rows {
		if len(row) != len(columns) {
			return fmt.Errorf("replace table %s.%s: row %d has %d values, want %d",
				namespace, table, i, len(row), len(columns))
		}
	}

	insertSQL, err := insertStatement(namespace, table, columns)
	if err != nil {
		return fmt.Errorf("replace table %s.%s: %w", namespace, table, err)
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("replace table %s.%s: begin transaction: %w", namespace, table, err)
	}
	defer tx.Rollback() // No-op if committed

	name := qualified(namespace, table)
	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+name); err != nil {
		return fmt.Errorf("replace table %s.%s: drop: %w", namespace, table, err)
	}
	if _, err := tx.ExecContext(ctx, createStatement(name, columns)); err != nil {
		return fmt.Errorf("replace table %s.%s: create: %w", namespace, table, err)
	}

	if len(rows) > 0 {
		stmt, err := tx.PrepareContext(ctx, insertSQL)
		if err != nil {
			return fmt.Errorf("replace table %s.%s: prepare insert: %w", namespace, table, err)
		}
		defer stmt.Close()

		for i, row := range rows {
			if _, err := stmt.ExecContext(ctx, row...); err != nil {
				return fmt.Errorf("replace table %s.%s: insert row %d: %w", namespace, table, i, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("replace table %s.%s: commit: %w", namespace, table, err)
	}

	s.logger.Debug("table replaced",
		"namespace", namespace,
		"table", table,
		"columns", len(columns),
		"rows", len(rows),
	)
	return nil
}

// createStatement builds CREATE TABLE with untyped columns, matching what
// the provider hands back (any column may hold text, numbers or NULL).
func createStatement(name string, columns []string) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = quoteIdent(c)
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", name, strings.Join(quoted, ", "))
}

// insertStatement builds the parameterized INSERT used for every row.
func insertStatement(namespace, table string, columns []string) (string, error) {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = quoteIdent(c)
	}
	query, _, err := sq.Insert(qualified(namespace, table)).
		Columns(quoted...).
		Values(make([]any, len(columns))...).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("building insert: %w", err)
	}
	return query, nil
}
