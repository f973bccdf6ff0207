package bitcode

import (
	"github.com/dshills/doccorpus/pkg/types"
)

// nodeList is one open list of documentation nodes. Lists live in an arena
// owned by javadocState and are addressed by index, so closing a nested
// list never needs a pointer back into its parent.
type nodeList struct {
	kind    types.DocKind
	kindSet bool
	nodes   []*types.DocNode
}

func (l *nodeList) last() *types.DocNode {
	if len(l.nodes) == 0 {
		return nil
	}
	return l.nodes[len(l.nodes)-1]
}

type javadocState struct {
	r     *Reader
	jd    *types.Javadoc
	arena []nodeList
	stack []int
}

func (s *javadocState) top() *nodeList {
	return &s.arena[s.stack[len(s.stack)-1]]
}

func (s *javadocState) readList() error {
	s.arena = append(s.arena, nodeList{})
	s.stack = append(s.stack, len(s.arena)-1)
	if err := s.r.readBlock(&listBlock{s: s}, BlockJavadocList); err != nil {
		return err
	}
	return s.closeList()
}

// closeList pops the current list and splices its nodes into the enclosing
// node, or into the top-level blocks when it was the outermost list.
func (s *javadocState) closeList() error {
	list := s.top()
	s.stack = s.stack[:len(s.stack)-1]

	if len(s.stack) == 0 {
		if list.kindSet && !list.kind.IsBlock() {
			return makeError("top-level javadoc list of %s nodes", list.kind)
		}
		s.jd.Blocks = append(s.jd.Blocks, list.nodes...)
		return nil
	}

	parent := s.top().last()
	if parent == nil || !parent.Kind.IsBlock() {
		return makeError("javadoc list outside a block node")
	}
	parent.Children = append(parent.Children, list.nodes...)
	return nil
}

//------------------------------------------------

type javadocBlock struct {
	s *javadocState
}

func (b *javadocBlock) parseRecord(rec Record) error {
	return unexpectedRecord(rec.ID)
}

func (b *javadocBlock) readSubBlock(id BlockID) error {
	switch id {
	case BlockJavadocList:
		return b.s.readList()
	default:
		return unexpectedSubBlock(id)
	}
}

func (r *Reader) readJavadoc() (*types.Javadoc, error) {
	s := &javadocState{r: r, jd: &types.Javadoc{}}
	if err := r.readBlock(&javadocBlock{s: s}, BlockJavadoc); err != nil {
		return nil, err
	}
	return s.jd, nil
}

//------------------------------------------------

type listBlock struct {
	s *javadocState
}

func (b *listBlock) parseRecord(rec Record) error {
	switch rec.ID {
	case RecordJavadocListKind:
		list := b.s.top()
		if list.kindSet {
			return makeError("duplicate javadoc list kind")
		}
		if err := decodeEnum(rec, &list.kind, types.MaxDocKind); err != nil {
			return err
		}
		if list.kind == types.DocNone {
			return makeError("javadoc list of kind none")
		}
		list.kindSet = true
		return nil
	default:
		return unexpectedRecord(rec.ID)
	}
}

func (b *listBlock) readSubBlock(id BlockID) error {
	switch id {
	case BlockJavadocNode:
		return b.s.r.readBlock(&nodeBlock{s: b.s}, id)
	default:
		return unexpectedSubBlock(id)
	}
}

//------------------------------------------------

type nodeBlock struct {
	s    *javadocState
	node *types.DocNode
}

func (b *nodeBlock) parseRecord(rec Record) error {
	if rec.ID == RecordJavadocNodeKind {
		return b.appendNode(rec)
	}
	if b.node == nil {
		return makeError("javadoc record ID=%d before node kind", uint32(rec.ID))
	}

	switch rec.ID {
	case RecordJavadocNodeString:
		if !b.node.Kind.HasString() {
			return makeError("%s node cannot hold text", b.node.Kind)
		}
		return decodeString(rec, &b.node.String)
	case RecordJavadocNodeStyle:
		if b.node.Kind != types.DocStyled {
			return makeError("%s node cannot hold a style", b.node.Kind)
		}
		return decodeEnum(rec, &b.node.Style, types.MaxStyle)
	case RecordJavadocNodeAdmonish:
		if b.node.Kind != types.DocAdmonition {
			return makeError("%s node cannot hold an admonishment", b.node.Kind)
		}
		return decodeEnum(rec, &b.node.Admonish, types.MaxAdmonish)
	default:
		return unexpectedRecord(rec.ID)
	}
}

func (b *nodeBlock) appendNode(rec Record) error {
	if b.node != nil {
		return makeError("duplicate javadoc node kind")
	}
	list := b.s.top()
	if !list.kindSet {
		return makeError("javadoc node kind before list kind")
	}
	var kind types.DocKind
	if err := decodeEnum(rec, &kind, types.MaxDocKind); err != nil {
		return err
	}
	if kind.IsInline() != list.kind.IsInline() || kind == types.DocNone {
		return makeError("%s node in a list of %s nodes", kind, list.kind)
	}
	b.node = &types.DocNode{Kind: kind}
	list.nodes = append(list.nodes, b.node)
	return nil
}

func (b *nodeBlock) readSubBlock(id BlockID) error {
	switch id {
	case BlockJavadocList:
		if b.node == nil {
			return makeError("javadoc list before node kind")
		}
		return b.s.readList()
	default:
		return unexpectedSubBlock(id)
	}
}
