// Package storage provides SQLite-based persistence for fragments and
// corpus snapshots.
//
// The storage layer manages:
//   - Encoded fragments, keyed by symbol id and translation unit
//   - The symbol snapshot of the last canonical corpus
//   - Build history
//
// # Database Schema
//
// Tables:
//   - fragments: one encoded fragment per (symbol, unit); re-ingesting a unit replaces it
//   - symbols: id, kind, name, qualified name and canonical position of every symbol
//   - builds: counters and duration of every build
//   - schema_version: applied migrations
//
// # Basic Usage
//
//	db, err := storage.NewSQLiteStorage("doccorpus.db")
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	err = db.PutFragment(ctx, types.Fragment{ID: id, Unit: "a.cpp", Data: data})
//
// SQLiteStorage implements indexer.FragmentSource, so a build can read the
// store directly:
//
//	c, stats, err := idx.Build(ctx, db, cfg)
//	...
//	err = db.ReplaceSymbols(ctx, storage.SnapshotSymbols(c))
//
// # Transactions
//
// Use transactions for atomic operations:
//
//	tx, err := db.BeginTx(ctx)
//	if err != nil {
//	    return err
//	}
//	defer tx.Rollback()
//
//	if err := tx.ReplaceSymbols(ctx, symbols); err != nil {
//	    return err
//	}
//	if err := tx.RecordBuild(ctx, build); err != nil {
//	    return err
//	}
//	return tx.Commit()
//
// # Build Modes
//
// The default build uses modernc.org/sqlite and needs no C compiler.
// Building with the sqlite_cgo tag switches to github.com/mattn/go-sqlite3.
//
// # Migrations
//
// Schema versions are semantic versions. NewSQLiteStorage applies every
// migration newer than the highest recorded version.
package storage
