package storage

import (
	"context"
	"time"

	"github.com/dshills/doccorpus/pkg/types"
)

// Storage persists encoded fragments between builds and the symbol
// snapshot of the last canonical corpus
type Storage interface {
	// Fragment operations
	PutFragment(ctx context.Context, fragment types.Fragment) error
	ForEachFragment(ctx context.Context, fn func(types.Fragment) error) error
	CountFragments(ctx context.Context) (int, error)
	DeleteFragments(ctx context.Context, id types.SymbolID) (int, error)

	// Symbol snapshot operations
	ReplaceSymbols(ctx context.Context, symbols []Symbol) error
	GetSymbol(ctx context.Context, id types.SymbolID) (*Symbol, error)
	ListSymbols(ctx context.Context, prefix string, limit int) ([]*Symbol, error)

	// Build history
	RecordBuild(ctx context.Context, build *Build) error
	LatestBuild(ctx context.Context) (*Build, error)

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Commit() error
	Rollback() error
	Storage // Embed Storage interface for transaction operations
}

// Symbol is one row of the symbol snapshot. Position is the symbol's place
// in the canonical discovery order.
type Symbol struct {
	ID            types.SymbolID
	Kind          types.InfoKind
	Name          string
	QualifiedName string
	Path          string
	Position      int
}

// Build records the outcome of one corpus build
type Build struct {
	ID        int64
	Groups    int
	Fragments int
	Symbols   int
	Failed    int
	Canonical bool
	Duration  time.Duration
	CreatedAt time.Time
}
