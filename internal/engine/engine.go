package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lebinh/aq/internal/ir"
	"github.com/lebinh/aq/internal/provider"
	"github.com/lebinh/aq/internal/queryir"
	"github.com/lebinh/aq/internal/querysql"
)

// DefaultTTL is how long a refreshed table is served without refetching.
const DefaultTTL = 300 * time.Second

// DefaultNamespace is the namespace unqualified table names resolve to when
// none is configured.
const DefaultNamespace = "local"

// Store is the relational store queries run against. *store.Store implements it.
type Store interface {
	Attacher
	ReplaceTable(ctx context.Context, namespace, table string, columns []string, rows [][]any) error
	Query(ctx context.Context, text string, args ...any) ([]string, [][]any, error)
}

// Result is the outcome of a query: column names and rows exactly as the
// store produced them.
type Result struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// Engine executes queries against provider collections.
//
// Each table a query references is loaded from the provider into the store
// when it is missing or older than the TTL, then the canonical query runs
// against the store.
//
// Thread-safety: Engine is not safe for concurrent use. Execute calls share
// one store connection and must be serialized by the caller.
type Engine struct {
	store     Store
	provider  provider.Provider
	cache     *Cache
	clock     Clock
	ttl       time.Duration
	namespace string
	queryIDs  QueryIDGenerator
	logger    *slog.Logger
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithTTL sets the freshness window.
//
// Default: 300s (DefaultTTL)
func WithTTL(ttl time.Duration) EngineOption {
	return func(e *Engine) {
		e.ttl = ttl
	}
}

// WithClock sets the clock freshness is measured with.
func WithClock(clock Clock) EngineOption {
	return func(e *Engine) {
		e.clock = clock
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithDefaultNamespace sets the namespace for unqualified table names.
//
// Default: "local" (DefaultNamespace)
func WithDefaultNamespace(namespace string) EngineOption {
	return func(e *Engine) {
		e.namespace = namespace
	}
}

// WithQueryIDGenerator sets the generator for query ids.
func WithQueryIDGenerator(gen QueryIDGenerator) EngineOption {
	return func(e *Engine) {
		e.queryIDs = gen
	}
}

// New creates an Engine and attaches the default namespace.
//
// The default namespace is attached before any other, so unqualified table
// names resolve to it.
func New(ctx context.Context, s Store, p provider.Provider, opts ...EngineOption) (*Engine, error) {
	e := &Engine{
		store:     s,
		provider:  p,
		clock:     SystemClock{},
		ttl:       DefaultTTL,
		namespace: DefaultNamespace,
		queryIDs:  UUIDv7Generator{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.ttl <= 0 {
		return nil, fmt.Errorf("ttl must be positive, got %s", e.ttl)
	}
	e.cache = NewCache(s, e.clock, e.ttl)

	if err := e.cache.Attach(ctx, e.namespace); err != nil {
		return nil, &QueryError{
			Code:      ErrCodeStorageError,
			Message:   "failed to attach default namespace",
			Namespace: e.namespace,
			Err:       err,
		}
	}
	return e, nil
}

// Cache returns the engine's namespace and freshness cache.
func (e *Engine) Cache() *Cache {
	return e.cache
}

// DefaultNamespace returns the namespace unqualified table names resolve to.
func (e *Engine) DefaultNamespace() string {
	return e.namespace
}

// Execute parses text, refreshes every stale table it references, and runs
// the canonical query.
//
// Returns:
//   - *querysql.ParsingError if text is not a valid statement (nothing is
//     fetched or written)
//   - *QueryError with ErrCodeUnknownCollection, ErrCodeProviderError,
//     ErrCodeStorageError or ErrCodeExecutionError otherwise
func (e *Engine) Execute(ctx context.Context, text string) (*Result, error) {
	canonical, meta, err := querysql.Parse(text)
	if err != nil {
		return nil, err
	}

	logger := e.logger.With("query_id", e.queryIDs.Generate())
	logger.Info("executing query", "query", canonical)

	for _, ref := range meta.Tables {
		if err := e.ensureTable(ctx, logger, ref); err != nil {
			return nil, err
		}
	}

	columns, rows, err := e.store.Query(ctx, canonical)
	if err != nil {
		return nil, &QueryError{
			Code:    ErrCodeExecutionError,
			Message: "query failed",
			Err:     err,
		}
	}
	logger.Debug("query done", "rows", len(rows))
	return &Result{Columns: columns, Rows: rows}, nil
}

// ensureTable makes sure ref is attached and fresh.
func (e *Engine) ensureTable(ctx context.Context, logger *slog.Logger, ref queryir.TableRef) error {
	namespace := ref.Namespace
	if namespace == "" {
		namespace = e.namespace
	}

	if err := e.cache.Attach(ctx, namespace); err != nil {
		return &QueryError{
			Code:      ErrCodeStorageError,
			Message:   "failed to attach namespace",
			Namespace: namespace,
			Table:     ref.Name,
			Err:       err,
		}
	}

	resource, collection, ok := provider.SplitTableName(ref.Name)
	if !ok {
		return &QueryError{
			Code:      ErrCodeUnknownCollection,
			Message:   fmt.Sprintf("table %s is not named <resource>_<collection>", ref.Name),
			Namespace: namespace,
			Table:     ref.Name,
		}
	}

	qerr := func(code QueryErrorCode, msg string, err error) error {
		return &QueryError{
			Code:       code,
			Message:    msg,
			Namespace:  namespace,
			Table:      ref.Name,
			Resource:   resource,
			Collection: collection,
			Err:        err,
		}
	}

	schema, err := e.provider.Describe(ctx, namespace, resource, collection)
	if err != nil {
		if errors.Is(err, provider.ErrUnknownCollection) {
			return qerr(ErrCodeUnknownCollection,
				fmt.Sprintf("unknown collection <%s> of resource <%s>", collection, resource), nil)
		}
		return qerr(ErrCodeProviderError, "failed to describe collection", err)
	}

	if e.cache.IsFresh(namespace, ref.Name) {
		logger.Debug("table is fresh", "namespace", namespace, "table", ref.Name)
		return nil
	}

	columns := schema.Columns()
	if len(columns) == 0 {
		return qerr(ErrCodeProviderError, "collection has no columns", nil)
	}

	logger.Info("refreshing table", "namespace", namespace, "table", ref.Name)
	logger.Debug("table columns", "table", ref.Name, "columns", columns)

	items, err := e.provider.List(ctx, namespace, resource, collection)
	if err != nil {
		return qerr(ErrCodeProviderError, "failed to list collection", err)
	}

	rows := make([][]any, 0, len(items))
	for i, item := range items {
		row, err := ir.RowValues(ir.NormalizeTags(item), columns)
		if err != nil {
			return qerr(ErrCodeProviderError, fmt.Sprintf("item %d", i), err)
		}
		rows = append(rows, row)
	}

	if err := e.store.ReplaceTable(ctx, namespace, ref.Name, columns, rows); err != nil {
		return qerr(ErrCodeStorageError, "failed to load table", err)
	}

	e.cache.MarkRefreshed(namespace, ref.Name, e.clock.Now())
	logger.Info("table loaded", "namespace", namespace, "table", ref.Name, "rows", len(rows))
	return nil
}
