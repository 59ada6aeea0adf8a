// Package querysql parses the SELECT statements accepted by aq.
//
// Parse validates a statement against the supported grammar (a subset of
// SQLite's SELECT), rewrites the path operator a -> b into accessor calls,
// and returns the canonical text together with the table references the
// statement touches. Parsing performs no I/O.
//
// Canonical text joins tokens with single spaces and upper-cases keywords.
// Dotted paths inside expressions (ns.table.column) and function calls are
// rendered without interior spacing:
//
//	select foo.a from ns.bar where x->'k' = 1
//	SELECT foo.a FROM ns . bar WHERE json_get(x, 'k') = 1
package querysql
