// Package ir holds the value model shared by the provider, store and engine
// layers: provider items, collection schemas, and the canonical text
// encoding used to store structured attribute values in a single column.
//
// ir imports nothing internal. Every other internal package may import it.
package ir
