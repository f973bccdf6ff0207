package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/doccorpus/internal/bitcode"
	"github.com/dshills/doccorpus/internal/indexer"
	"github.com/dshills/doccorpus/pkg/types"
)

func setupTestDB(t *testing.T) *SQLiteStorage {
	// Use in-memory database for testing
	storage, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	require.NotNil(t, storage)
	return storage
}

func testID(b byte) types.SymbolID {
	var id types.SymbolID
	id[0] = b
	return id
}

func TestNewSQLiteStorage(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	assert.NotNil(t, storage.db)

	version, err := SchemaVersion(context.Background(), storage.db)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, version)
}

func TestApplyMigrations_Idempotent(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	ctx := context.Background()
	require.NoError(t, ApplyMigrations(ctx, storage.db))

	var n int
	require.NoError(t, storage.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_version").Scan(&n))
	assert.Equal(t, len(AllMigrations), n)
}

func TestRollbackMigration(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	ctx := context.Background()
	require.NoError(t, RollbackMigration(ctx, storage.db))

	version, err := SchemaVersion(ctx, storage.db)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", version)

	_, err = storage.LatestBuild(ctx)
	assert.Error(t, err, "builds table should be gone")

	// Re-apply brings the table back
	require.NoError(t, ApplyMigrations(ctx, storage.db))
	_, err = storage.LatestBuild(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	// Roll back everything
	require.NoError(t, RollbackMigration(ctx, storage.db))
	require.NoError(t, RollbackMigration(ctx, storage.db))
	version, err = SchemaVersion(ctx, storage.db)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0", version)
	assert.Error(t, RollbackMigration(ctx, storage.db))
}

func TestClose(t *testing.T) {
	storage := setupTestDB(t)
	err := storage.Close()
	assert.NoError(t, err)
}

func TestPutFragment(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	ctx := context.Background()
	require.NoError(t, storage.PutFragment(ctx, types.Fragment{ID: testID(2), Unit: "b.cpp", Data: []byte("b")}))
	require.NoError(t, storage.PutFragment(ctx, types.Fragment{ID: testID(1), Unit: "b.cpp", Data: []byte("old")}))
	require.NoError(t, storage.PutFragment(ctx, types.Fragment{ID: testID(1), Unit: "a.cpp", Data: []byte("a")}))

	// Same symbol and unit replaces the data
	require.NoError(t, storage.PutFragment(ctx, types.Fragment{ID: testID(1), Unit: "b.cpp", Data: []byte("new")}))

	n, err := storage.CountFragments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	var got []types.Fragment
	require.NoError(t, storage.ForEachFragment(ctx, func(f types.Fragment) error {
		got = append(got, f)
		return nil
	}))
	assert.Equal(t, []types.Fragment{
		{ID: testID(1), Unit: "a.cpp", Data: []byte("a")},
		{ID: testID(1), Unit: "b.cpp", Data: []byte("new")},
		{ID: testID(2), Unit: "b.cpp", Data: []byte("b")},
	}, got)

	err = storage.PutFragment(ctx, types.Fragment{ID: testID(3)})
	assert.Error(t, err)
}

func TestForEachFragment_StopsOnError(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	ctx := context.Background()
	for _, unit := range []string{"a.cpp", "b.cpp", "c.cpp"} {
		require.NoError(t, storage.PutFragment(ctx, types.Fragment{ID: testID(1), Unit: unit, Data: []byte{1}}))
	}

	stop := assert.AnError
	var calls int
	err := storage.ForEachFragment(ctx, func(types.Fragment) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestDeleteFragments(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	ctx := context.Background()
	require.NoError(t, storage.PutFragment(ctx, types.Fragment{ID: testID(1), Unit: "a.cpp", Data: []byte{1}}))
	require.NoError(t, storage.PutFragment(ctx, types.Fragment{ID: testID(1), Unit: "b.cpp", Data: []byte{2}}))
	require.NoError(t, storage.PutFragment(ctx, types.Fragment{ID: testID(2), Unit: "a.cpp", Data: []byte{3}}))

	deleted, err := storage.DeleteFragments(ctx, testID(1))
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	n, err := storage.CountFragments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	deleted, err = storage.DeleteFragments(ctx, testID(9))
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func sampleSymbols() []Symbol {
	return []Symbol{
		{ID: types.GlobalNamespaceID, Kind: types.KindNamespace, Position: 0},
		{ID: testID(1), Kind: types.KindNamespace, Name: "ns1", QualifiedName: "ns1", Position: 1},
		{ID: testID(2), Kind: types.KindFunction, Name: "Apple", QualifiedName: "ns1::Apple", Path: "ns1", Position: 2},
		{ID: testID(3), Kind: types.KindFunction, Name: "apple", QualifiedName: "ns1::apple", Path: "ns1", Position: 3},
		{ID: testID(4), Kind: types.KindRecord, Name: "Widget", QualifiedName: "Widget", Position: 4},
	}
}

func TestReplaceSymbols(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	ctx := context.Background()
	require.NoError(t, storage.ReplaceSymbols(ctx, sampleSymbols()))

	sym, err := storage.GetSymbol(ctx, testID(2))
	require.NoError(t, err)
	assert.Equal(t, "ns1::Apple", sym.QualifiedName)
	assert.Equal(t, types.KindFunction, sym.Kind)
	assert.Equal(t, "ns1", sym.Path)
	assert.Equal(t, 2, sym.Position)

	// Replacing drops rows missing from the new snapshot
	require.NoError(t, storage.ReplaceSymbols(ctx, sampleSymbols()[:2]))
	_, err = storage.GetSymbol(ctx, testID(2))
	assert.ErrorIs(t, err, ErrNotFound)

	all, err := storage.ListSymbols(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestListSymbols(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	ctx := context.Background()
	require.NoError(t, storage.ReplaceSymbols(ctx, sampleSymbols()))

	tests := []struct {
		name   string
		prefix string
		limit  int
		want   []string
	}{
		{"all in canonical order", "", 0, []string{"", "ns1", "ns1::Apple", "ns1::apple", "Widget"}},
		{"namespace prefix", "ns1::", 0, []string{"ns1::Apple", "ns1::apple"}},
		{"case sensitive", "ns1::a", 0, []string{"ns1::apple"}},
		{"limit", "ns1", 2, []string{"ns1", "ns1::Apple"}},
		{"no match", "zzz", 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			symbols, err := storage.ListSymbols(ctx, tt.prefix, tt.limit)
			require.NoError(t, err)

			var got []string
			for _, s := range symbols {
				got = append(got, s.QualifiedName)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuilds(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	ctx := context.Background()
	_, err := storage.LatestBuild(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	first := &Build{Groups: 3, Fragments: 6, Symbols: 3, Canonical: true, Duration: 1500 * time.Millisecond}
	require.NoError(t, storage.RecordBuild(ctx, first))
	assert.Greater(t, first.ID, int64(0))

	second := &Build{Groups: 4, Fragments: 8, Symbols: 3, Failed: 1, Duration: time.Second}
	require.NoError(t, storage.RecordBuild(ctx, second))

	latest, err := storage.LatestBuild(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)
	assert.Equal(t, 4, latest.Groups)
	assert.Equal(t, 1, latest.Failed)
	assert.False(t, latest.Canonical)
	assert.Equal(t, time.Second, latest.Duration)
}

func TestTransaction(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	ctx := context.Background()

	t.Run("rollback", func(t *testing.T) {
		tx, err := storage.BeginTx(ctx)
		require.NoError(t, err)
		require.NoError(t, tx.ReplaceSymbols(ctx, sampleSymbols()))
		require.NoError(t, tx.RecordBuild(ctx, &Build{Groups: 1}))

		_, err = tx.GetSymbol(ctx, testID(4))
		require.NoError(t, err)
		require.NoError(t, tx.Rollback())

		_, err = storage.GetSymbol(ctx, testID(4))
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = storage.LatestBuild(ctx)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("commit", func(t *testing.T) {
		tx, err := storage.BeginTx(ctx)
		require.NoError(t, err)
		require.NoError(t, tx.PutFragment(ctx, types.Fragment{ID: testID(1), Unit: "a.cpp", Data: []byte{1}}))
		require.NoError(t, tx.ReplaceSymbols(ctx, sampleSymbols()))

		_, err = tx.BeginTx(ctx)
		assert.Error(t, err)
		require.NoError(t, tx.Commit())

		n, err := storage.CountFragments(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		symbols, err := storage.ListSymbols(ctx, "", 0)
		require.NoError(t, err)
		assert.Len(t, symbols, 5)
	})
}

func TestBuildFromStorage(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	ctx := context.Background()

	global := types.NewInfo(types.KindNamespace, types.GlobalNamespaceID).(*types.NamespaceInfo)
	zeta := types.NewInfo(types.KindFunction, testID(1)).(*types.FunctionInfo)
	alpha := types.NewInfo(types.KindFunction, testID(2)).(*types.FunctionInfo)
	zeta.Name = "zeta"
	alpha.Name = "Alpha"
	globalRef := types.Reference{ID: types.GlobalNamespaceID, Kind: types.KindNamespace}
	for _, fn := range []*types.FunctionInfo{zeta, alpha} {
		fn.Namespace = []types.Reference{globalRef}
		global.Children.Functions = append(global.Children.Functions, fn.Ref())
	}

	for _, unit := range []string{"a.cpp", "b.cpp"} {
		for _, info := range []types.Info{global, zeta, alpha} {
			data, err := bitcode.Serialize(info)
			require.NoError(t, err)
			require.NoError(t, storage.PutFragment(ctx, types.Fragment{ID: info.Base().ID, Unit: unit, Data: data}))
		}
	}

	c, stats, err := indexer.New(nil, nil).Build(ctx, storage, &indexer.Config{Workers: 2, Strict: true})
	require.NoError(t, err)
	assert.Equal(t, 6, stats.Fragments)
	require.NoError(t, c.Canonicalize())

	require.NoError(t, storage.ReplaceSymbols(ctx, SnapshotSymbols(c)))

	symbols, err := storage.ListSymbols(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, symbols, 3)
	assert.Equal(t, types.GlobalNamespaceID, symbols[0].ID)
	assert.Equal(t, "Alpha", symbols[1].QualifiedName)
	assert.Equal(t, "zeta", symbols[2].QualifiedName)
	assert.Equal(t, types.KindFunction, symbols[2].Kind)
}
