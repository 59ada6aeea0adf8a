// Package engine implements the query federation engine.
//
// An Engine turns a query over provider collections into a query over a
// local SQLite store:
//
//  1. The statement is parsed into canonical text and the list of tables it
//     references. A parsing error stops here, before any side effect.
//  2. Each referenced table is resolved to a namespace (the one written in
//     the query, or the default), the namespace is attached, and the table
//     name is split into resource and collection ("ec2_instances" is
//     collection "instances" of resource "ec2").
//  3. A table that was never loaded, or was loaded at least TTL ago, is
//     refreshed: the provider lists the collection and the table is dropped,
//     recreated and filled in one transaction.
//  4. The canonical text runs against the store.
//
// Tables are refreshed one at a time in the order the query references them.
// A table referenced twice (a self-join) is refreshed at most once, since it
// is fresh by the time the second reference is reached.
//
// ERROR HANDLING:
//
// Parsing errors are returned as *querysql.ParsingError. Everything else is a
// *QueryError with a Code; use IsUnknownCollection, IsProviderError,
// IsExecutionError and IsStorageError to classify. Failed refreshes leave the
// previous table contents in place.
//
// Time comes from a Clock so tests can control freshness.
package engine
