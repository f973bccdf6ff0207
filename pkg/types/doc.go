// Package types provides the symbol model shared by every doccorpus component.
//
// A symbol is identified by a SymbolID, a fixed-width hash of its unified
// symbol resolution string. Symbols point at each other through Reference
// values, which carry enough to render a link (id, name, kind, path) without
// requiring the target to be loaded.
//
// # Info Model
//
// Every symbol kind implements Info and embeds InfoBase:
//
//	ns := types.NewInfo(types.KindNamespace, id).(*types.NamespaceInfo)
//	ns.Name = "detail"
//	ns.Children.Records = append(ns.Children.Records, rec.Ref())
//
// Kinds with a position in source (records, functions, typedefs, enums and
// variables) also embed SymbolInfo. Namespaces and records own a Scope of
// child references. What a kind may hold is described by its Capability set:
//
//	types.KindRecord.Capabilities().Has(types.CapChildNamespaces) // false
//
// # Documentation
//
// Javadoc is an already-parsed comment tree. Block nodes (paragraphs, briefs,
// admonitions, ...) hold inline nodes (text, styled text).
//
// # Errors
//
// The sentinel errors in this package classify every failure the pipeline
// reports. Callers match them with errors.Is:
//
//	if errors.Is(err, types.ErrFieldConflict) {
//	    // two translation units disagree about a symbol
//	}
package types
