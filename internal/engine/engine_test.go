package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lebinh/aq/internal/provider/fixture"
	"github.com/lebinh/aq/internal/store"
	"github.com/lebinh/aq/internal/testutil"
)

const inventory = `
collections:
  - resource: ec2
    collection: instances
    identifiers: [id]
    attributes: [instance_type, state, tags]
    items:
      - id: i-2
        instance_type: t3.small
        state: {Name: stopped}
      - id: i-1
        instance_type: t3.micro
        state: {Name: running}
        tags:
          - {Key: Name, Value: web}
          - {Key: env, Value: prod}
    namespaces:
      eu-west-1:
        - id: i-9
          instance_type: m5.large
  - resource: s3
    collection: buckets
    identifiers: [name]
    attributes: [creation_date]
    items:
      - name: logs
        creation_date: "2024-01-01"
`

type testEnv struct {
	store    *store.Store
	provider *testutil.CountingProvider
	clock    *testutil.FakeClock
	engine   *Engine
}

func setupEngine(t *testing.T, opts ...EngineOption) *testEnv {
	t.Helper()
	ctx := context.Background()

	s, err := store.Open(ctx, "")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	fp, err := fixture.Parse([]byte(inventory))
	require.NoError(t, err)

	env := &testEnv{
		store:    s,
		provider: testutil.NewCountingProvider(fp),
		clock:    testutil.NewFakeClock(),
	}
	opts = append([]EngineOption{WithClock(env.clock)}, opts...)
	env.engine, err = New(ctx, s, env.provider, opts...)
	require.NoError(t, err)
	return env
}

func TestEngine_New(t *testing.T) {
	env := setupEngine(t)

	assert.Equal(t, DefaultNamespace, env.engine.DefaultNamespace())
	assert.Equal(t, DefaultTTL, env.engine.Cache().TTL())
	assert.True(t, env.engine.Cache().IsAttached(DefaultNamespace))

	namespaces, err := env.store.Namespaces(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{DefaultNamespace}, namespaces)
}

func TestEngine_NewRejectsNonPositiveTTL(t *testing.T) {
	s, err := store.Open(context.Background(), "")
	require.NoError(t, err)
	defer s.Close()

	_, err = New(context.Background(), s, nil, WithTTL(0))
	assert.Error(t, err)
}

func TestEngine_NewAttachFailure(t *testing.T) {
	s, err := store.Open(context.Background(), "")
	require.NoError(t, err)
	defer s.Close()

	_, err = New(context.Background(), s, nil, WithDefaultNamespace("not valid"))
	assert.True(t, IsStorageError(err))
}

func TestEngine_Execute(t *testing.T) {
	env := setupEngine(t)

	result, err := env.engine.Execute(context.Background(),
		"select id, instance_type from ec2_instances order by id")
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "instance_type"}, result.Columns)
	assert.Equal(t, [][]any{
		{"i-1", "t3.micro"},
		{"i-2", "t3.small"},
	}, result.Rows)
	assert.Equal(t, 1, env.provider.Fetches(DefaultNamespace, "ec2_instances"))
}

func TestEngine_ExecuteColumnOrder(t *testing.T) {
	env := setupEngine(t)

	result, err := env.engine.Execute(context.Background(), "select * from ec2_instances limit 0")
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "instance_type", "state", "tags"}, result.Columns)
	assert.Empty(t, result.Rows)
}

func TestEngine_ExecutePathOperator(t *testing.T) {
	env := setupEngine(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		query    string
		expected [][]any
	}{
		{
			name:     "structured attribute",
			query:    "select id, state->'Name' from ec2_instances order by id",
			expected: [][]any{{"i-1", "running"}, {"i-2", "stopped"}},
		},
		{
			name:     "normalized tags",
			query:    "select tags->'Name', tags->'env' from ec2_instances where id = 'i-1'",
			expected: [][]any{{"web", "prod"}},
		},
		{
			name:     "missing tags",
			query:    "select tags->'Name' from ec2_instances where id = 'i-2'",
			expected: [][]any{{nil}},
		},
		{
			name:     "arrow in literal",
			query:    "select 'a -> b' from ec2_instances where id = 'i-1'",
			expected: [][]any{{"a -> b"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := env.engine.Execute(ctx, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result.Rows)
		})
	}
}

func TestEngine_ExecuteNamespaces(t *testing.T) {
	env := setupEngine(t)
	ctx := context.Background()

	result, err := env.engine.Execute(ctx, `select id from "eu-west-1".ec2_instances`)
	require.NoError(t, err)
	assert.Equal(t, [][]any{{"i-9"}}, result.Rows)

	result, err = env.engine.Execute(ctx, "select count(*) from ec2_instances")
	require.NoError(t, err)
	assert.Equal(t, [][]any{{int64(2)}}, result.Rows)

	assert.True(t, env.engine.Cache().IsAttached("eu-west-1"))
	assert.Equal(t, 1, env.provider.Fetches("eu-west-1", "ec2_instances"))
	assert.Equal(t, 1, env.provider.Fetches(DefaultNamespace, "ec2_instances"))
}

func TestEngine_ExecuteExplicitDefaultNamespace(t *testing.T) {
	env := setupEngine(t)
	ctx := context.Background()

	result, err := env.engine.Execute(ctx, "select count(*) from "+DefaultNamespace+".ec2_instances")
	require.NoError(t, err)
	assert.Equal(t, [][]any{{int64(2)}}, result.Rows)

	result, err = env.engine.Execute(ctx, "select count(*) from ec2_instances")
	require.NoError(t, err)
	assert.Equal(t, [][]any{{int64(2)}}, result.Rows)

	assert.Equal(t, 1, env.provider.Fetches(DefaultNamespace, "ec2_instances"))
}

func TestEngine_ExecuteJoinAcrossCollections(t *testing.T) {
	env := setupEngine(t)

	result, err := env.engine.Execute(context.Background(),
		"select i.id, b.name from ec2_instances i, s3_buckets b where i.id = 'i-1'")
	require.NoError(t, err)

	assert.Equal(t, [][]any{{"i-1", "logs"}}, result.Rows)
	assert.Equal(t, 2, env.provider.TotalFetches())
}

func TestEngine_Freshness(t *testing.T) {
	env := setupEngine(t, WithTTL(300*time.Second))
	ctx := context.Background()
	query := "select id from ec2_instances"

	_, err := env.engine.Execute(ctx, query)
	require.NoError(t, err)
	require.Equal(t, 1, env.provider.Fetches(DefaultNamespace, "ec2_instances"))

	refreshed, ok := env.engine.Cache().LastRefresh(DefaultNamespace, "ec2_instances")
	require.True(t, ok)
	assert.Equal(t, testutil.Epoch, refreshed)

	// T+100: still fresh
	env.clock.Advance(100 * time.Second)
	_, err = env.engine.Execute(ctx, query)
	require.NoError(t, err)
	assert.Equal(t, 1, env.provider.Fetches(DefaultNamespace, "ec2_instances"))

	// T+301: stale
	now := env.clock.Advance(201 * time.Second)
	_, err = env.engine.Execute(ctx, query)
	require.NoError(t, err)
	assert.Equal(t, 2, env.provider.Fetches(DefaultNamespace, "ec2_instances"))

	refreshed, ok = env.engine.Cache().LastRefresh(DefaultNamespace, "ec2_instances")
	require.True(t, ok)
	assert.Equal(t, now, refreshed)
}

func TestEngine_FreshnessIsPerNamespace(t *testing.T) {
	env := setupEngine(t)
	ctx := context.Background()

	_, err := env.engine.Execute(ctx, "select id from ec2_instances")
	require.NoError(t, err)
	_, err = env.engine.Execute(ctx, `select id from "eu-west-1".ec2_instances`)
	require.NoError(t, err)

	assert.Equal(t, 2, env.provider.TotalFetches())
}

func TestEngine_SelfJoinRefreshesOnce(t *testing.T) {
	env := setupEngine(t)

	result, err := env.engine.Execute(context.Background(),
		"select a.id from ec2_instances a join ec2_instances b on a.id = b.id order by a.id")
	require.NoError(t, err)

	assert.Equal(t, [][]any{{"i-1"}, {"i-2"}}, result.Rows)
	assert.Equal(t, 1, env.provider.Fetches(DefaultNamespace, "ec2_instances"))
}

func TestEngine_SubqueryTablesAreLoaded(t *testing.T) {
	env := setupEngine(t)

	result, err := env.engine.Execute(context.Background(),
		"select count(*) from (select name from s3_buckets) b")
	require.NoError(t, err)

	assert.Equal(t, [][]any{{int64(1)}}, result.Rows)
	assert.Equal(t, 1, env.provider.Fetches(DefaultNamespace, "s3_buckets"))
}

func TestEngine_ReattachIsNoop(t *testing.T) {
	env := setupEngine(t)
	ctx := context.Background()

	require.NoError(t, env.engine.Cache().Attach(ctx, DefaultNamespace))
	require.NoError(t, env.engine.Cache().Attach(ctx, "DEFAULT"))

	namespaces, err := env.store.Namespaces(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{DefaultNamespace}, namespaces)
}

func TestEngine_ParsingErrorHasNoSideEffects(t *testing.T) {
	env := setupEngine(t)

	_, err := env.engine.Execute(context.Background(), "foo")
	require.Error(t, err)

	assert.True(t, IsParsingError(err))
	assert.Equal(t, 0, env.provider.TotalFetches())
	assert.Equal(t, 1, env.engine.Cache().Attached())

	var qe *QueryError
	assert.False(t, errors.As(err, &qe), "parsing errors are returned unwrapped")
}

func TestEngine_UnknownCollection(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		resource   string
		collection string
	}{
		{"unknown collection", "select * from ec2_volumes", "ec2", "volumes"},
		{"unknown resource", "select * from rds_clusters", "rds", "clusters"},
		{"no separator", "select * from foo", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupEngine(t)

			_, err := env.engine.Execute(context.Background(), tt.query)
			require.Error(t, err)
			assert.True(t, IsUnknownCollection(err))

			var qe *QueryError
			require.True(t, errors.As(err, &qe))
			assert.Equal(t, tt.resource, qe.Resource)
			assert.Equal(t, tt.collection, qe.Collection)
			assert.Equal(t, 0, env.provider.TotalFetches())
		})
	}
}

func TestEngine_UnknownCollectionCreatesNoTable(t *testing.T) {
	env := setupEngine(t)
	ctx := context.Background()

	_, err := env.engine.Execute(ctx, "select * from ec2_volumes")
	require.Error(t, err)

	columns, err := env.store.TableColumns(ctx, DefaultNamespace, "ec2_volumes")
	require.NoError(t, err)
	assert.Nil(t, columns)
}

func TestEngine_ProviderError(t *testing.T) {
	env := setupEngine(t)
	ctx := context.Background()
	throttled := errors.New("throttled")

	env.provider.FailList(DefaultNamespace, "ec2_instances", throttled)

	_, err := env.engine.Execute(ctx, "select * from ec2_instances")
	require.Error(t, err)
	assert.True(t, IsProviderError(err))
	assert.ErrorIs(t, err, throttled)

	_, ok := env.engine.Cache().LastRefresh(DefaultNamespace, "ec2_instances")
	assert.False(t, ok)

	columns, err := env.store.TableColumns(ctx, DefaultNamespace, "ec2_instances")
	require.NoError(t, err)
	assert.Nil(t, columns)
}

func TestEngine_ProviderErrorKeepsPreviousTable(t *testing.T) {
	env := setupEngine(t)
	ctx := context.Background()

	_, err := env.engine.Execute(ctx, "select * from ec2_instances")
	require.NoError(t, err)

	env.clock.Advance(DefaultTTL)
	env.provider.FailList(DefaultNamespace, "ec2_instances", errors.New("throttled"))

	_, err = env.engine.Execute(ctx, "select * from ec2_instances")
	assert.True(t, IsProviderError(err))

	_, rows, err := env.store.Query(ctx, "SELECT count(*) FROM ec2_instances")
	require.NoError(t, err)
	assert.Equal(t, [][]any{{int64(2)}}, rows)

	refreshed, ok := env.engine.Cache().LastRefresh(DefaultNamespace, "ec2_instances")
	require.True(t, ok)
	assert.Equal(t, testutil.Epoch, refreshed)
}

func TestEngine_ExecutionError(t *testing.T) {
	env := setupEngine(t)

	_, err := env.engine.Execute(context.Background(), "select nosuch from ec2_instances")
	require.Error(t, err)

	assert.True(t, IsExecutionError(err))
	assert.Contains(t, err.Error(), "no such column")
}

func TestEngine_StorageError(t *testing.T) {
	env := setupEngine(t)

	_, err := env.engine.Execute(context.Background(), `select * from "bad ns".ec2_instances`)
	require.Error(t, err)

	assert.True(t, IsStorageError(err))
	assert.Equal(t, 0, env.provider.TotalFetches())
}

func TestEngine_QueryIDs(t *testing.T) {
	env := setupEngine(t, WithQueryIDGenerator(NewFixedGenerator("q-1")))

	_, err := env.engine.Execute(context.Background(), "select id from ec2_instances")
	require.NoError(t, err)

	// A parse failure consumes no id.
	_, err = env.engine.Execute(context.Background(), "select")
	assert.True(t, IsParsingError(err))
}
