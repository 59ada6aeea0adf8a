package store

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplaceTable(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	require.NoError(t, s.Attach(ctx, "ns"))

	err := s.ReplaceTable(ctx, "ns", "ec2_instances",
		[]string{"id", "state"},
		[][]any{
			{"i-1", `{"Name":"running"}`},
			{"i-2", nil},
		})
	require.NoError(t, err)

	columns, rows, err := s.Query(ctx, `SELECT * FROM ns.ec2_instances ORDER BY id`)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "state"}, columns)
	assert.Equal(t, [][]any{
		{"i-1", `{"Name":"running"}`},
		{"i-2", nil},
	}, rows)
}

func TestReplaceTableSwapsSchema(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	require.NoError(t, s.Attach(ctx, "ns"))

	require.NoError(t, s.ReplaceTable(ctx, "ns", "t", []string{"a", "b"}, [][]any{{int64(1), int64(2)}}))
	require.NoError(t, s.ReplaceTable(ctx, "ns", "t", []string{"c"}, [][]any{{"x"}, {"y"}}))

	columns, err := s.TableColumns(ctx, "ns", "t")
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, columns)

	_, rows, err := s.Query(ctx, `SELECT count(*) FROM ns.t`)
	require.NoError(t, err)
	assert.Equal(t, [][]any{{int64(2)}}, rows)
}

func TestReplaceTableEmpty(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	require.NoError(t, s.Attach(ctx, "ns"))

	require.NoError(t, s.ReplaceTable(ctx, "ns", "t", []string{"a"}, nil))

	columns, rows, err := s.Query(ctx, `SELECT * FROM ns.t`)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, columns)
	assert.Empty(t, rows)
}

func TestReplaceTableFailureKeepsPreviousTable(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	require.NoError(t, s.Attach(ctx, "ns"))
	require.NoError(t, s.ReplaceTable(ctx, "ns", "t", []string{"a"}, [][]any{{"old"}}))

	// The second row cannot be bound, so the insert fails mid-transaction.
	err := s.ReplaceTable(ctx, "ns", "t", []string{"a", "b"}, [][]any{
		{"new", "row"},
		{struct{}{}, "bad"},
	})
	require.Error(t, err)

	columns, rows, err := s.Query(ctx, `SELECT * FROM ns.t`)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, columns)
	assert.Equal(t, [][]any{{"old"}}, rows)
}

func TestReplaceTableValidation(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	require.NoError(t, s.Attach(ctx, "ns"))

	err := s.ReplaceTable(ctx, "ns", "t", nil, nil)
	assert.ErrorContains(t, err, "no columns")

	err = s.ReplaceTable(ctx, "ns", "t", []string{"a", "b"}, [][]any{{1}})
	assert.ErrorContains(t, err, "row 0 has 1 values, want 2")

	columns, err := s.TableColumns(ctx, "ns", "t")
	require.NoError(t, err)
	assert.Nil(t, columns)
}

func TestUnqualifiedNamesResolveToFirstNamespace(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	require.NoError(t, s.Attach(ctx, "default"))
	require.NoError(t, s.Attach(ctx, "other"))

	require.NoError(t, s.ReplaceTable(ctx, "default", "t", []string{"v"}, [][]any{{"default"}}))
	require.NoError(t, s.ReplaceTable(ctx, "other", "t", []string{"v"}, [][]any{{"other"}}))

	_, rows, err := s.Query(ctx, `SELECT v FROM t`)
	require.NoError(t, err)
	assert.Equal(t, [][]any{{"default"}}, rows)

	_, rows, err = s.Query(ctx, `SELECT v FROM other . t`)
	require.NoError(t, err)
	assert.Equal(t, [][]any{{"other"}}, rows)
}

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	s, err := newStore(context.Background(), db, "")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, mock
}

func TestReplaceTableCommitsInOrder(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DROP TABLE IF EXISTS "ns"."t"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE "ns"."t" ("a", "b")`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	prep := mock.ExpectPrepare(regexp.QuoteMeta(`INSERT INTO "ns"."t" ("a","b") VALUES (?,?)`))
	prep.ExpectExec().WithArgs("x", int64(1)).WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().WithArgs("y", nil).WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	err := s.ReplaceTable(context.Background(), "ns", "t", []string{"a", "b"}, [][]any{
		{"x", int64(1)},
		{"y", nil},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceTableRollsBackOnInsertError(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("DROP TABLE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE").WillReturnResult(sqlmock.NewResult(0, 0))
	prep := mock.ExpectPrepare("INSERT INTO")
	prep.ExpectExec().WithArgs("x").WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	err := s.ReplaceTable(context.Background(), "ns", "t", []string{"a"}, [][]any{{"x"}})
	require.Error(t, err)
	assert.ErrorContains(t, err, "insert row 0")
	assert.ErrorContains(t, err, "disk I/O error")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceTableRollsBackOnCreateError(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("DROP TABLE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE").WillReturnError(errors.New("database table is locked"))
	mock.ExpectRollback()

	err := s.ReplaceTable(context.Background(), "ns", "t", []string{"a"}, [][]any{{"x"}})
	require.ErrorContains(t, err, "database table is locked")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertStatement(t *testing.T) {
	query, err := insertStatement("us-east-1", "s3_buckets", []string{"name", "creation_date"})
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO "us-east-1"."s3_buckets" ("name","creation_date") VALUES (?,?)`, query)
}
