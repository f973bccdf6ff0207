package types

// Fragment is the encoded description of one symbol emitted while
// compiling one translation unit.
type Fragment struct {
	ID   SymbolID
	Unit string
	Data []byte
}
