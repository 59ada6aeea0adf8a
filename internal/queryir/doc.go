// Package queryir holds the parse tree produced by the query parser.
//
// The tree exists for two consumers:
//
//   - Render rebuilds canonical statement text. Each group node carries a
//     join mode that decides how its children are glued back together.
//   - Tables walks the tree and returns every table reference in textual
//     order, descending into subqueries at any depth.
//
// NODES:
//
// Node is a sealed interface using the marker method pattern. Only the
// types in this package implement it, so renderers and walkers can use
// exhaustive type switches:
//
//	switch n := node.(type) {
//	case Token:
//	case *Group:
//	case *Call:
//	case *Table:
//	}
//
// JOIN MODES:
//
//	Spaced   children joined with one space     SELECT * FROM foo . bar
//	Tight    children concatenated              foo.bar.baz
//	Call     name(arg, arg)                     json_get(foo, 1)
//
// A dotted path inside an expression is a Tight group, while the same path
// written as a table reference in FROM/JOIN stays Spaced. Function calls,
// including the accessor calls produced by the path operator, render in
// Call form and are never re-spaced.
package queryir
