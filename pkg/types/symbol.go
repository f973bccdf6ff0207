package types

import (
	"bytes"
	"encoding/hex"
	"fmt"
)

// SymbolIDSize is the width of a SymbolID in bytes (a SHA-1 of the USR)
const SymbolIDSize = 20

// SymbolID is the opaque identity of a symbol, stable across translation units
type SymbolID [SymbolIDSize]byte

// GlobalNamespaceID identifies the implicit global namespace
var GlobalNamespaceID = SymbolID{}

// ParseSymbolID parses the lowercase hex form produced by String
func ParseSymbolID(s string) (SymbolID, error) {
	var id SymbolID
	b, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("invalid symbol id %q: %w", s, err)
	}
	if len(b) != SymbolIDSize {
		return id, fmt.Errorf("invalid symbol id %q: want %d bytes, got %d", s, SymbolIDSize, len(b))
	}
	copy(id[:], b)
	return id, nil
}

// SymbolIDFromBytes copies a raw identifier, rejecting the wrong width
func SymbolIDFromBytes(b []byte) (SymbolID, error) {
	var id SymbolID
	if len(b) != SymbolIDSize {
		return id, fmt.Errorf("symbol id must be %d bytes, got %d", SymbolIDSize, len(b))
	}
	copy(id[:], b)
	return id, nil
}

// String returns the lowercase hex encoding of the id
func (id SymbolID) String() string {
	return hex.EncodeToString(id[:])
}

// MarshalText encodes the id as lowercase hex
func (id SymbolID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText parses the hex form produced by MarshalText
func (id *SymbolID) UnmarshalText(text []byte) error {
	parsed, err := ParseSymbolID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// IsZero reports whether id is the all-zero value
func (id SymbolID) IsZero() bool {
	return id == SymbolID{}
}

// Compare orders ids bytewise
func (id SymbolID) Compare(other SymbolID) int {
	return bytes.Compare(id[:], other[:])
}

// InfoKind is the kind of symbol an Info or Reference describes
type InfoKind uint8

const (
	KindDefault InfoKind = iota
	KindNamespace
	KindRecord
	KindFunction
	KindEnum
	KindTypedef
	KindVariable
)

// MaxInfoKind is the largest valid InfoKind
const MaxInfoKind = KindVariable

func (k InfoKind) String() string {
	switch k {
	case KindDefault:
		return "default"
	case KindNamespace:
		return "namespace"
	case KindRecord:
		return "record"
	case KindFunction:
		return "function"
	case KindEnum:
		return "enum"
	case KindTypedef:
		return "typedef"
	case KindVariable:
		return "variable"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// ParseInfoKind is the inverse of InfoKind.String for the named kinds
func ParseInfoKind(s string) (InfoKind, error) {
	for k := KindDefault; k <= MaxInfoKind; k++ {
		if k.String() == s {
			return k, nil
		}
	}
	return KindDefault, fmt.Errorf("unknown symbol kind %q", s)
}

// MarshalText encodes the kind by name
func (k InfoKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses a kind name
func (k *InfoKind) UnmarshalText(text []byte) error {
	parsed, err := ParseInfoKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Capability is a bit set describing what a symbol kind may contain
type Capability uint8

const (
	CapChildNamespaces Capability = 1 << iota
	CapChildRecords
	CapChildFunctions
	CapChildTypedefs
	// CapSymbol marks kinds that carry source locations
	CapSymbol
)

// Has reports whether all bits of c2 are set in c
func (c Capability) Has(c2 Capability) bool {
	return c&c2 == c2
}

// Capabilities returns what a symbol of kind k can hold.
func (k InfoKind) Capabilities() Capability {
	switch k {
	case KindNamespace:
		return CapChildNamespaces | CapChildRecords | CapChildFunctions | CapChildTypedefs
	case KindRecord:
		return CapChildRecords | CapChildFunctions | CapChildTypedefs | CapSymbol
	case KindFunction, KindEnum, KindTypedef, KindVariable:
		return CapSymbol
	default:
		return 0
	}
}

// Reference is a non-owning, named pointer to a symbol.
// The target may not have been merged yet while a corpus is being built.
type Reference struct {
	ID   SymbolID
	Name string
	Kind InfoKind
	Path string
}

// IsZero reports whether the reference is entirely unset
func (r Reference) IsZero() bool {
	return r == Reference{}
}

// IsSymbol reports whether the reference must resolve to a symbol in a corpus.
// Builtin types are referenced with a zero id and a non-namespace kind.
func (r Reference) IsSymbol() bool {
	if r.ID.IsZero() {
		return r.Kind == KindNamespace
	}
	return true
}

// AccessSpecifier is a C++ member access level
type AccessSpecifier uint8

const (
	AccessNone AccessSpecifier = iota
	AccessPublic
	AccessProtected
	AccessPrivate
)

// MaxAccess is the largest valid AccessSpecifier
const MaxAccess = AccessPrivate

func (a AccessSpecifier) String() string {
	switch a {
	case AccessPublic:
		return "public"
	case AccessProtected:
		return "protected"
	case AccessPrivate:
		return "private"
	default:
		return "none"
	}
}

// TagKind is the keyword a record was declared with
type TagKind uint8

const (
	TagNone TagKind = iota
	TagStruct
	TagClass
	TagUnion
	TagEnum
)

// MaxTag is the largest valid TagKind
const MaxTag = TagEnum

func (t TagKind) String() string {
	switch t {
	case TagStruct:
		return "struct"
	case TagClass:
		return "class"
	case TagUnion:
		return "union"
	case TagEnum:
		return "enum"
	default:
		return "none"
	}
}

// Location is a position in a source file
type Location struct {
	Line     int
	Filename string
}

// Compare orders locations by file name, then line
func (l Location) Compare(other Location) int {
	switch {
	case l.Filename < other.Filename:
		return -1
	case l.Filename > other.Filename:
		return 1
	case l.Line < other.Line:
		return -1
	case l.Line > other.Line:
		return 1
	}
	return 0
}
