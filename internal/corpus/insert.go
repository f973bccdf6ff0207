package corpus

import (
	"fmt"

	"github.com/dshills/doccorpus/pkg/types"
)

// IndexNode is one entry of the namespace index. It mirrors the namespace
// nesting of the symbols without owning them.
type IndexNode struct {
	ID       types.SymbolID
	Name     string
	Kind     types.InfoKind
	Path     string
	Children []*IndexNode

	byID map[types.SymbolID]*IndexNode
}

func newIndexNode(ref types.Reference) *IndexNode {
	return &IndexNode{ID: ref.ID, Name: ref.Name, Kind: ref.Kind, Path: ref.Path}
}

// Child returns the direct child with the given id
func (n *IndexNode) Child(id types.SymbolID) (*IndexNode, bool) {
	child, ok := n.byID[id]
	return child, ok
}

func (n *IndexNode) child(ref types.Reference) *IndexNode {
	if child, ok := n.byID[ref.ID]; ok {
		return child
	}
	if n.byID == nil {
		n.byID = make(map[types.SymbolID]*IndexNode)
	}
	child := newIndexNode(ref)
	n.byID[ref.ID] = child
	n.Children = append(n.Children, child)
	return child
}

// backfill copies fields of ref into n that n does not have yet
func (n *IndexNode) backfill(ref types.Reference) {
	if n.Name == "" {
		n.Name = ref.Name
	}
	if n.Kind == types.KindDefault {
		n.Kind = ref.Kind
	}
	if n.Path == "" {
		n.Path = ref.Path
	}
}

// Find returns the node reached by following ids from n
func (n *IndexNode) Find(ids ...types.SymbolID) (*IndexNode, bool) {
	node := n
	for _, id := range ids {
		var ok bool
		if node, ok = node.Child(id); !ok {
			return nil, false
		}
	}
	return node, true
}

// IndexNodeOf returns the index entry of a symbol in the corpus
func (c *Corpus) IndexNodeOf(id types.SymbolID) (*IndexNode, bool) {
	info, ok := c.Lookup(id)
	if !ok {
		return nil, false
	}
	b := info.Base()
	path := make([]types.SymbolID, 0, len(b.Namespace)+1)
	for _, ns := range b.Namespace {
		if ns.ID != types.GlobalNamespaceID {
			path = append(path, ns.ID)
		}
	}
	if id != types.GlobalNamespaceID {
		path = append(path, id)
	}

	c.indexMu.Lock()
	defer c.indexMu.Unlock()
	return c.root.Find(path...)
}

// Insert adds one merged symbol. Each id may be inserted once, and never
// after the corpus became canonical; both are programming errors and
// panic.
func (c *Corpus) Insert(info types.Info) {
	if c.canonical.Load() {
		panic(types.ErrAlreadyCanonical)
	}
	b := info.Base()

	c.infoMu.Lock()
	if _, ok := c.infos[b.ID]; ok {
		c.infoMu.Unlock()
		panic(fmt.Sprintf("corpus: symbol %s inserted twice", b.ID))
	}
	c.infos[b.ID] = info
	c.infoMu.Unlock()

	c.indexMu.Lock()
	c.insertIndex(b)
	c.indexMu.Unlock()

	c.listMu.Lock()
	c.symbols = append(c.symbols, b.ID)
	c.listMu.Unlock()
}

// insertIndex walks the namespace path of b from the outermost scope,
// creating missing nodes, and records b at the leaf.
func (c *Corpus) insertIndex(b *types.InfoBase) {
	node := c.root
	for _, ns := range b.Namespace {
		if ns.ID == types.GlobalNamespaceID {
			continue
		}
		node = node.child(ns)
	}
	if b.ID != types.GlobalNamespaceID {
		node = node.child(types.Reference{ID: b.ID})
	}
	node.backfill(b.Ref())
}
