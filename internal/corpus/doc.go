// Package corpus holds the merged symbols of a build and their namespace
// index.
//
// A Corpus is filled concurrently with Insert while fragments are merged,
// then made deterministic with Canonicalize:
//
//	c := corpus.New()
//	// ... c.Insert(info) from any number of goroutines ...
//	if err := c.Canonicalize(); err != nil {
//	    return err
//	}
//	fn, err := corpus.Get[*types.FunctionInfo](c, id)
//
// # Ordering
//
// Child lists are ordered with SymbolCompare on fully qualified names:
// case-insensitive first, then uppercase before lowercase at the first
// position where the case differs. Symbols with equal names (overloads)
// are ordered by id.
package corpus
