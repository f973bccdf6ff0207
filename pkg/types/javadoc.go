package types

import "fmt"

// DocKind is the type of a documentation node
type DocKind uint8

const (
	DocNone DocKind = iota

	// inline kinds
	DocText
	DocStyled

	// block kinds
	DocParagraph
	DocBrief
	DocAdmonition
	DocCode
	DocParam
	DocTParam
	DocReturns
	DocListItem
)

// MaxDocKind is the largest valid DocKind
const MaxDocKind = DocListItem

func (k DocKind) String() string {
	switch k {
	case DocText:
		return "text"
	case DocStyled:
		return "styled"
	case DocParagraph:
		return "paragraph"
	case DocBrief:
		return "brief"
	case DocAdmonition:
		return "admonition"
	case DocCode:
		return "code"
	case DocParam:
		return "param"
	case DocTParam:
		return "tparam"
	case DocReturns:
		return "returns"
	case DocListItem:
		return "list_item"
	default:
		return fmt.Sprintf("doc(%d)", uint8(k))
	}
}

// IsInline reports whether nodes of this kind appear inside a block
func (k DocKind) IsInline() bool {
	return k == DocText || k == DocStyled
}

// IsBlock reports whether nodes of this kind are top-level paragraphs
func (k DocKind) IsBlock() bool {
	return k >= DocParagraph && k <= MaxDocKind
}

// HasString reports whether nodes of this kind may carry text
func (k DocKind) HasString() bool {
	switch k {
	case DocText, DocStyled, DocCode, DocParam, DocTParam:
		return true
	}
	return false
}

// Style is the emphasis applied to a styled text node
type Style uint8

const (
	StyleNone Style = iota
	StyleMono
	StyleBold
	StyleItalic
)

// MaxStyle is the largest valid Style
const MaxStyle = StyleItalic

// Admonish is the flavour of an admonition block
type Admonish uint8

const (
	AdmonishNone Admonish = iota
	AdmonishNote
	AdmonishTip
	AdmonishImportant
	AdmonishCaution
	AdmonishWarning
)

// MaxAdmonish is the largest valid Admonish
const MaxAdmonish = AdmonishWarning

// DocNode is one node in a documentation tree
type DocNode struct {
	Kind     DocKind
	String   string
	Style    Style
	Admonish Admonish
	Children []*DocNode
}

// Equal compares two nodes structurally
func (n *DocNode) Equal(o *DocNode) bool {
	if n == nil || o == nil {
		return n == o
	}
	if n.Kind != o.Kind || n.String != o.String || n.Style != o.Style || n.Admonish != o.Admonish {
		return false
	}
	return nodesEqual(n.Children, o.Children)
}

// Javadoc is the documentation attached to a symbol or member
type Javadoc struct {
	Blocks []*DocNode
}

// Equal compares two documentation trees structurally
func (j *Javadoc) Equal(o *Javadoc) bool {
	if j == nil || o == nil {
		return j == o
	}
	return nodesEqual(j.Blocks, o.Blocks)
}

// Brief returns the text of the first brief block, if any
func (j *Javadoc) Brief() string {
	if j == nil {
		return ""
	}
	for _, b := range j.Blocks {
		if b.Kind == DocBrief {
			return b.Text()
		}
	}
	return ""
}

// Text concatenates the strings of n and all its descendants
func (n *DocNode) Text() string {
	s := n.String
	for _, c := range n.Children {
		s += c.Text()
	}
	return s
}

func nodesEqual(a, b []*DocNode) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
