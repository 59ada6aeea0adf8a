// Package store provides the SQLite store that federated tables are loaded
// into and queries run against.
//
// # Layout
//
//   - The main database is in-memory and holds nothing.
//   - Each namespace (for AWS, a region) is a separate database attached
//     under its own name: <data-dir>/<namespace>.db, or an in-memory
//     database when no data dir is configured.
//   - Tables are always created qualified ("namespace"."table"). Unqualified
//     names in queries resolve to the first attached namespace, so the
//     engine attaches its default namespace first.
//
// # Connection
//
// Attached databases belong to a single SQLite connection. The store pins
// one *sql.Conn for its lifetime and runs everything on it; callers must
// serialize use of a Store.
//
// # Database Configuration
//
//   - WAL mode and synchronous=NORMAL for file-backed namespaces
//   - 5-second busy timeout for lock contention
//   - json_get registered on every connection (see ir.JSONGet)
//
// # Refresh
//
// ReplaceTable drops, recreates and fills one table inside a single
// transaction. Readers see either the previous table or the complete new
// one.
package store
