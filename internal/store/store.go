package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/lebinh/aq/internal/ir"
)

// DriverName is the database/sql driver registered by this package. It is
// the stock go-sqlite3 driver with the accessor function installed on
// every new connection.
const DriverName = "sqlite3_aq"

func init() {
	sql.Register(DriverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc(ir.AccessorFunc, ir.JSONGet, true)
		},
	})
}

// namespacePattern restricts namespace names to what is safe as a file
// name and as an ATTACH schema name.
var namespacePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidNamespace reports whether name can be used as a namespace.
func ValidNamespace(name string) bool {
	return namespacePattern.MatchString(name)
}

// Store is a SQLite database with one attached database per namespace.
type Store struct {
	db      *sql.DB
	conn    *sql.Conn
	dataDir string
	logger  *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// Open creates a store whose namespace databases live under dataDir.
// An empty dataDir keeps every namespace in memory.
//
// The data dir is created if it does not exist.
func Open(ctx context.Context, dataDir string, opts ...Option) (*Store, error) {
	if dataDir != "" {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data dir %s: %w", dataDir, err)
		}
	}

	db, err := sql.Open(DriverName, ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Attached databases are per connection, so there must only ever be one.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s, err := newStore(ctx, db, dataDir, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}

	if err := s.applyPragmas(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	return s, nil
}

// newStore pins a connection from db. It runs no statements, so tests can
// hand it a mock database.
func newStore(ctx context.Context, db *sql.DB, dataDir string, opts ...Option) (*Store, error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &Store{
		db:      db,
		conn:    conn,
		dataDir: dataDir,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close releases the pinned connection and closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	if s.conn != nil {
		s.conn.Close()
	}
	return s.db.Close()
}

// DataDir returns the directory namespace databases are stored in.
func (s *Store) DataDir() string {
	return s.dataDir
}

// applyPragmas sets connection-wide SQLite configuration.
func (s *Store) applyPragmas(ctx context.Context) error {
	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := s.conn.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// IsAttached reports whether a database is attached under namespace.
// The comparison ignores case, as SQLite does for schema names.
func (s *Store) IsAttached(ctx context.Context, namespace string) (bool, error) {
	names, err := s.databases(ctx)
	if err != nil {
		return false, err
	}
	for _, name := range names {
		if strings.EqualFold(name, namespace) {
			return true, nil
		}
	}
	return false, nil
}

// Namespaces returns the attached namespaces in attachment order.
func (s *Store) Namespaces(ctx context.Context) ([]string, error) {
	names, err := s.databases(ctx)
	if err != nil {
		return nil, err
	}
	namespaces := make([]string, 0, len(names))
	for _, name := range names {
		if name == "main" || name == "temp" {
			continue
		}
		namespaces = append(namespaces, name)
	}
	return namespaces, nil
}

func (s *Store) databases(ctx context.Context) ([]string, error) {
	rows, err := s.conn.QueryContext(ctx, "PRAGMA database_list")
	if err != nil {
		return nil, fmt.Errorf("list databases: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var (
			seq  int
			name string
			file string
		)
		if err := rows.Scan(&seq, &name, &file); err != nil {
			return nil, fmt.Errorf("list databases: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list databases: %w", err)
	}
	return names, nil
}

// Attach makes namespace queryable under its own name. Attaching a
// namespace that is already attached is a no-op.
func (s *Store) Attach(ctx context.Context, namespace string) error {
	if !ValidNamespace(namespace) {
		return fmt.Errorf("attach %q: invalid namespace name", namespace)
	}

	attached, err := s.IsAttached(ctx, namespace)
	if err != nil {
		return fmt.Errorf("attach %s: %w", namespace, err)
	}
	if attached {
		return nil
	}

	path := s.namespacePath(namespace)
	s.logger.Info("attaching namespace", "namespace", namespace, "path", path)

	if _, err := s.conn.ExecContext(ctx, "ATTACH DATABASE ? AS ?", path, namespace); err != nil {
		return fmt.Errorf("attach %s: %w", namespace, err)
	}

	if s.dataDir != "" {
		pragmas := []string{
			fmt.Sprintf("PRAGMA %s.journal_mode = WAL", quoteIdent(namespace)),
			fmt.Sprintf("PRAGMA %s.synchronous = NORMAL", quoteIdent(namespace)),
		}
		for _, pragma := range pragmas {
			if _, err := s.conn.ExecContext(ctx, pragma); err != nil {
				return fmt.Errorf("attach %s: failed to execute %q: %w", namespace, pragma, err)
			}
		}
	}
	return nil
}

// namespacePath returns the database file for namespace.
func (s *Store) namespacePath(namespace string) string {
	if s.dataDir == "" {
		return ":memory:"
	}
	return filepath.Join(s.dataDir, namespace+".db")
}

// quoteIdent quotes an SQL identifier.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// qualified returns "namespace"."table".
func qualified(namespace, table string) string {
	return quoteIdent(namespace) + "." + quoteIdent(table)
}
