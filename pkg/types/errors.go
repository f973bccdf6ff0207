package types

import "errors"

// Domain errors for decoding, merging and canonicalizing a corpus
var (
	// Build errors
	ErrMalformedStream     = errors.New("malformed stream")
	ErrFieldConflict       = errors.New("field conflict")
	ErrUnresolvedReference = errors.New("unresolved reference")
	ErrBuildFailed         = errors.New("build failed")

	// Canonicalization errors
	ErrMissingGlobalNamespace = errors.New("global namespace not found")
	ErrAlreadyCanonical       = errors.New("corpus is already canonical")

	// Query errors
	ErrSymbolNotFound = errors.New("symbol not found")
	ErrWrongKind      = errors.New("symbol has wrong kind")
)
