package storage

import (
	"github.com/dshills/doccorpus/internal/corpus"
)

// SnapshotSymbols flattens a corpus into snapshot rows in discovery order.
// The corpus should be canonical so Position matches the canonical order.
func SnapshotSymbols(c *corpus.Corpus) []Symbol {
	ids := c.AllSymbols()
	symbols := make([]Symbol, 0, len(ids))
	for i, id := range ids {
		info, ok := c.Lookup(id)
		if !ok {
			continue
		}
		b := info.Base()
		symbols = append(symbols, Symbol{
			ID:            id,
			Kind:          b.Kind,
			Name:          b.Name,
			QualifiedName: c.QualifiedName(id),
			Path:          b.Path,
			Position:      i,
		})
	}
	return symbols
}
