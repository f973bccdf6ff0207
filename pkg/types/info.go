package types

import "strings"

// Info is implemented by every symbol kind in the model
type Info interface {
	Base() *InfoBase
}

// InfoBase holds the fields shared by all symbols
type InfoBase struct {
	ID   SymbolID
	Kind InfoKind
	Name string
	Path string

	// Namespace lists the enclosing scopes, outermost first.
	Namespace []Reference

	Javadoc *Javadoc
}

// Base returns the shared part of the Info
func (b *InfoBase) Base() *InfoBase {
	return b
}

// FullyQualifiedName joins the enclosing scope names and the symbol name
// with "::". Unnamed scopes (the global namespace) are skipped.
func (b *InfoBase) FullyQualifiedName() string {
	var sb strings.Builder
	for _, ns := range b.Namespace {
		if ns.Name == "" {
			continue
		}
		sb.WriteString(ns.Name)
		sb.WriteString("::")
	}
	sb.WriteString(b.Name)
	return sb.String()
}

// Ref returns a Reference pointing at this symbol
func (b *InfoBase) Ref() Reference {
	return Reference{ID: b.ID, Name: b.Name, Kind: b.Kind, Path: b.Path}
}

// SymbolInfo is mixed into kinds that have a position in source
type SymbolInfo struct {
	DefLoc *Location
	Loc    []Location
}

// Symbol returns the source-location part of the Info
func (s *SymbolInfo) Symbol() *SymbolInfo {
	return s
}

// HasSymbol is implemented by kinds carrying SymbolInfo
type HasSymbol interface {
	Info
	Symbol() *SymbolInfo
}

// Scope lists the children of a namespace or record
type Scope struct {
	Namespaces []Reference
	Records    []Reference
	Functions  []Reference
	Typedefs   []Reference
}

// Len returns the total number of children
func (s *Scope) Len() int {
	return len(s.Namespaces) + len(s.Records) + len(s.Functions) + len(s.Typedefs)
}

// Lists returns the child lists in a fixed order
func (s *Scope) Lists() []*[]Reference {
	return []*[]Reference{&s.Namespaces, &s.Records, &s.Functions, &s.Typedefs}
}

// HasScope is implemented by kinds owning child references
type HasScope interface {
	Info
	Scope() *Scope
}

// NamespaceInfo describes a namespace
type NamespaceInfo struct {
	InfoBase
	Children Scope
}

func (i *NamespaceInfo) Scope() *Scope { return &i.Children }

// TypeInfo names the type of a value
type TypeInfo struct {
	Type Reference
}

// FieldTypeInfo is a function parameter
type FieldTypeInfo struct {
	TypeInfo
	Name         string
	DefaultValue string
}

// MemberTypeInfo is a data member of a record
type MemberTypeInfo struct {
	TypeInfo
	Name    string
	Access  AccessSpecifier
	Javadoc *Javadoc
}

// BaseRecordInfo is one entry in a record's base-class list
type BaseRecordInfo struct {
	Type      Reference
	TagType   TagKind
	IsVirtual bool
	Access    AccessSpecifier
	// IsParent is set for direct bases
	IsParent bool
}

// TemplateParamInfo holds the textual form of one template parameter
type TemplateParamInfo struct {
	Contents string
}

// TemplateSpecializationInfo names the primary template being specialized
type TemplateSpecializationInfo struct {
	SpecializationOf SymbolID
	Params           []TemplateParamInfo
}

// TemplateInfo is attached to templated records and functions
type TemplateInfo struct {
	Params         []TemplateParamInfo
	Specialization *TemplateSpecializationInfo
}

// RecordInfo describes a class, struct or union
type RecordInfo struct {
	InfoBase
	SymbolInfo
	Children Scope

	TagType   TagKind
	IsTypeDef bool
	Specs     uint32

	Parents        []Reference
	VirtualParents []Reference
	Bases          []BaseRecordInfo
	Members        []MemberTypeInfo
	Friends        []SymbolID
	Template       *TemplateInfo
}

func (i *RecordInfo) Scope() *Scope { return &i.Children }

// FunctionInfo describes a free function or a method
type FunctionInfo struct {
	InfoBase
	SymbolInfo

	Access   AccessSpecifier
	IsMethod bool
	Specs0   uint32
	Specs1   uint32

	Parent     Reference
	ReturnType TypeInfo
	Params     []FieldTypeInfo
	Template   *TemplateInfo
}

// TypedefInfo describes a typedef or alias declaration
type TypedefInfo struct {
	InfoBase
	SymbolInfo

	Underlying TypeInfo
	IsUsing    bool
}

// EnumInfo describes an enumeration
type EnumInfo struct {
	InfoBase
	SymbolInfo
}

// VariableInfo describes a namespace-scope variable
type VariableInfo struct {
	InfoBase
	SymbolInfo
}

// NewInfo returns an empty Info of the given kind, or nil for KindDefault
func NewInfo(kind InfoKind, id SymbolID) Info {
	base := InfoBase{ID: id, Kind: kind}
	switch kind {
	case KindNamespace:
		return &NamespaceInfo{InfoBase: base}
	case KindRecord:
		return &RecordInfo{InfoBase: base}
	case KindFunction:
		return &FunctionInfo{InfoBase: base}
	case KindTypedef:
		return &TypedefInfo{InfoBase: base}
	case KindEnum:
		return &EnumInfo{InfoBase: base}
	case KindVariable:
		return &VariableInfo{InfoBase: base}
	default:
		return nil
	}
}

// References returns every reference held by info that must resolve to a
// symbol, in a stable order: the namespace path, children, parents, bases,
// member and friend ids, function parent, return and parameter types,
// underlying types and specialization targets. Builtin type references,
// which have no id, are omitted.
func References(info Info) []Reference {
	var refs []Reference
	add := func(r Reference) {
		if !r.IsZero() && r.IsSymbol() {
			refs = append(refs, r)
		}
	}

	b := info.Base()
	for _, r := range b.Namespace {
		add(r)
	}
	if s, ok := info.(HasScope); ok {
		for _, list := range s.Scope().Lists() {
			for _, r := range *list {
				add(r)
			}
		}
	}

	switch v := info.(type) {
	case *RecordInfo:
		for _, r := range v.Parents {
			add(r)
		}
		for _, r := range v.VirtualParents {
			add(r)
		}
		for _, base := range v.Bases {
			add(base.Type)
		}
		for _, m := range v.Members {
			add(m.Type)
		}
		for _, id := range v.Friends {
			add(Reference{ID: id})
		}
		if v.Template != nil && v.Template.Specialization != nil {
			add(Reference{ID: v.Template.Specialization.SpecializationOf, Kind: KindRecord})
		}
	case *FunctionInfo:
		add(v.Parent)
		add(v.ReturnType.Type)
		for _, p := range v.Params {
			add(p.Type)
		}
		if v.Template != nil && v.Template.Specialization != nil {
			add(Reference{ID: v.Template.Specialization.SpecializationOf, Kind: KindFunction})
		}
	case *TypedefInfo:
		add(v.Underlying.Type)
	}
	return refs
}
