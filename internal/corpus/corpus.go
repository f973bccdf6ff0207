package corpus

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dshills/doccorpus/pkg/types"
)

// Corpus owns every merged symbol of a build.
//
// The symbol map, the index tree and the discovery list are each guarded by
// their own mutex so Insert can be called from many workers. Once
// Canonicalize succeeds the corpus is read-only.
type Corpus struct {
	infoMu sync.RWMutex
	infos  map[types.SymbolID]types.Info

	indexMu sync.Mutex
	root    *IndexNode

	listMu  sync.Mutex
	symbols []types.SymbolID

	canonical atomic.Bool
}

// New creates an empty corpus whose index is rooted at the global namespace
func New() *Corpus {
	return &Corpus{
		infos: make(map[types.SymbolID]types.Info),
		root:  newIndexNode(types.Reference{ID: types.GlobalNamespaceID, Kind: types.KindNamespace}),
	}
}

// Lookup returns the symbol with the given id
func (c *Corpus) Lookup(id types.SymbolID) (types.Info, bool) {
	c.infoMu.RLock()
	defer c.infoMu.RUnlock()
	info, ok := c.infos[id]
	return info, ok
}

// Get returns the symbol with the given id as a concrete kind
func Get[T types.Info](c *Corpus, id types.SymbolID) (T, error) {
	var zero T
	info, ok := c.Lookup(id)
	if !ok {
		return zero, fmt.Errorf("%w: %s", types.ErrSymbolNotFound, id)
	}
	v, ok := info.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s is a %s", types.ErrWrongKind, id, info.Base().Kind)
	}
	return v, nil
}

// Find is like Get but reports absence and kind mismatch as false
func Find[T types.Info](c *Corpus, id types.SymbolID) (T, bool) {
	v, err := Get[T](c, id)
	return v, err == nil
}

// GlobalNamespace returns the root namespace, if it has been inserted
func (c *Corpus) GlobalNamespace() (*types.NamespaceInfo, error) {
	ns, err := Get[*types.NamespaceInfo](c, types.GlobalNamespaceID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrMissingGlobalNamespace, err)
	}
	return ns, nil
}

// Len returns the number of symbols
func (c *Corpus) Len() int {
	c.infoMu.RLock()
	defer c.infoMu.RUnlock()
	return len(c.infos)
}

// AllSymbols returns a copy of the discovery list
func (c *Corpus) AllSymbols() []types.SymbolID {
	c.listMu.Lock()
	defer c.listMu.Unlock()
	out := make([]types.SymbolID, len(c.symbols))
	copy(out, c.symbols)
	return out
}

// Walk calls fn for every symbol in discovery order, stopping at the
// first error.
func (c *Corpus) Walk(fn func(types.Info) error) error {
	for _, id := range c.AllSymbols() {
		info, ok := c.Lookup(id)
		if !ok {
			continue
		}
		if err := fn(info); err != nil {
			return err
		}
	}
	return nil
}

// Index returns the root of the namespace index. The tree must not be
// modified, and is only stable once the corpus is canonical.
func (c *Corpus) Index() *IndexNode {
	return c.root
}

// IsCanonical reports whether Canonicalize has succeeded
func (c *Corpus) IsCanonical() bool {
	return c.canonical.Load()
}

// QualifiedName returns the fully qualified name of id, or "" if unknown
func (c *Corpus) QualifiedName(id types.SymbolID) string {
	info, ok := c.Lookup(id)
	if !ok {
		return ""
	}
	return info.Base().FullyQualifiedName()
}
