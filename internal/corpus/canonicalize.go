package corpus

import (
	"errors"
	"fmt"
	"slices"

	"github.com/dshills/doccorpus/pkg/types"
)

// Canonicalize sorts every child list reachable from the global namespace,
// the index tree and the discovery list, then marks the corpus canonical.
//
// It must not run concurrently with Insert. Calling it on a canonical
// corpus does nothing. On failure the corpus is left untouched.
func (c *Corpus) Canonicalize() error {
	if c.canonical.Load() {
		return nil
	}

	c.infoMu.Lock()
	defer c.infoMu.Unlock()

	global, ok := c.infos[types.GlobalNamespaceID].(*types.NamespaceInfo)
	if !ok {
		return types.ErrMissingGlobalNamespace
	}

	if err := c.checkScopes(global); err != nil {
		return err
	}

	c.sortScopes(global, make(map[types.SymbolID]bool))

	c.indexMu.Lock()
	c.sortIndex(c.root)
	c.indexMu.Unlock()

	c.listMu.Lock()
	c.sortSymbols()
	c.listMu.Unlock()

	c.canonical.Store(true)
	return nil
}

// checkScopes verifies every child reference reachable from root resolves.
// Called with infoMu held.
func (c *Corpus) checkScopes(root types.Info) error {
	var errs []error
	seen := make(map[types.SymbolID]bool)

	var visit func(info types.Info)
	visit = func(info types.Info) {
		b := info.Base()
		if seen[b.ID] {
			return
		}
		seen[b.ID] = true

		s, ok := info.(types.HasScope)
		if !ok {
			return
		}
		for _, list := range s.Scope().Lists() {
			for _, ref := range *list {
				child, ok := c.infos[ref.ID]
				if !ok {
					errs = append(errs, fmt.Errorf("%w: %s in %q (%s)",
						types.ErrUnresolvedReference, ref.ID, b.FullyQualifiedName(), b.ID))
					continue
				}
				visit(child)
			}
		}
	}
	visit(root)
	return errors.Join(errs...)
}

// sortScopes sorts the child lists of info and of every symbol below it.
// Called with infoMu held, after checkScopes.
func (c *Corpus) sortScopes(info types.Info, seen map[types.SymbolID]bool) {
	id := info.Base().ID
	if seen[id] {
		return
	}
	seen[id] = true

	s, ok := info.(types.HasScope)
	if !ok {
		return
	}
	for _, list := range s.Scope().Lists() {
		slices.SortStableFunc(*list, c.compareRefs)
		for _, ref := range *list {
			c.sortScopes(c.infos[ref.ID], seen)
		}
	}
}

func (c *Corpus) compareRefs(a, b types.Reference) int {
	return c.compareIDs(a.ID, b.ID)
}

// compareIDs orders two symbols by fully qualified name, then by id so
// overloads sharing a name still have a fixed order. The names are looked
// up on every call. Called with infoMu held.
func (c *Corpus) compareIDs(a, b types.SymbolID) int {
	if n := SymbolCompare(c.qualifiedName(a), c.qualifiedName(b)); n != 0 {
		return n
	}
	return a.Compare(b)
}

func (c *Corpus) qualifiedName(id types.SymbolID) string {
	if info, ok := c.infos[id]; ok {
		return info.Base().FullyQualifiedName()
	}
	return ""
}

// sortIndex orders the children of every index node. Called with infoMu and
// indexMu held.
func (c *Corpus) sortIndex(n *IndexNode) {
	slices.SortStableFunc(n.Children, func(a, b *IndexNode) int {
		return c.compareIDs(a.ID, b.ID)
	})
	for _, child := range n.Children {
		c.sortIndex(child)
	}
}

// SortSymbols orders the discovery list by fully qualified name
func (c *Corpus) SortSymbols() {
	c.infoMu.RLock()
	defer c.infoMu.RUnlock()
	c.listMu.Lock()
	defer c.listMu.Unlock()
	c.sortSymbols()
}

// sortSymbols is called with infoMu and listMu held
func (c *Corpus) sortSymbols() {
	names := make(map[types.SymbolID]string, len(c.symbols))
	for _, id := range c.symbols {
		names[id] = c.qualifiedName(id)
	}
	slices.SortFunc(c.symbols, func(a, b types.SymbolID) int {
		if n := SymbolCompare(names[a], names[b]); n != 0 {
			return n
		}
		return a.Compare(b)
	})
}
