package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dshills/doccorpus/pkg/types"
)

var (
	// ErrNotFound is returned when no symbol or build matches
	ErrNotFound = errors.New("not found")
)

// DefaultListLimit bounds ListSymbols when no limit is given
const DefaultListLimit = 100

// SQLiteStorage stores fragments, symbol snapshots and build records in one SQLite file
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens dbPath in WAL mode on a single connection
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	return db, nil
}

// NewSQLiteStorage opens dbPath and migrates it to CurrentSchemaVersion
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Apply migrations
	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a transaction. Every Storage operation is available on it.
func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, storage: s}, nil
}

// querier is satisfied by *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// sqliteTx runs the storage queries inside one *sql.Tx
type sqliteTx struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

func (t *sqliteTx) querier() querier {
	return t.tx
}

func (s *SQLiteStorage) querier() querier {
	return s.db
}

// Fragment operations

// putFragmentWithQuerier stores a fragment, replacing the one a unit
// emitted earlier for the same symbol
func (s *SQLiteStorage) putFragmentWithQuerier(ctx context.Context, q querier, f types.Fragment) error {
	if f.Unit == "" {
		return errors.New("fragment has no unit name")
	}
	query := `
		INSERT INTO fragments (usr, unit, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(usr, unit) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at
	`
	now := time.Now()
	if _, err := q.ExecContext(ctx, query, f.ID[:], f.Unit, f.Data, now, now); err != nil {
		return fmt.Errorf("failed to put fragment: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) PutFragment(ctx context.Context, fragment types.Fragment) error {
	return s.putFragmentWithQuerier(ctx, s.querier(), fragment)
}

// forEachFragmentWithQuerier streams fragments ordered by symbol and unit.
// fn must not use the storage: the single connection is held by the
// open result set.
func (s *SQLiteStorage) forEachFragmentWithQuerier(ctx context.Context, q querier, fn func(types.Fragment) error) error {
	rows, err := q.QueryContext(ctx, "SELECT usr, unit, data FROM fragments ORDER BY usr, unit")
	if err != nil {
		return fmt.Errorf("failed to list fragments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			usr []byte
			f   types.Fragment
		)
		if err := rows.Scan(&usr, &f.Unit, &f.Data); err != nil {
			return fmt.Errorf("failed to scan fragment: %w", err)
		}
		if f.ID, err = types.SymbolIDFromBytes(usr); err != nil {
			return fmt.Errorf("fragment of unit %s: %w", f.Unit, err)
		}
		if err := fn(f); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *SQLiteStorage) ForEachFragment(ctx context.Context, fn func(types.Fragment) error) error {
	return s.forEachFragmentWithQuerier(ctx, s.querier(), fn)
}

func (s *SQLiteStorage) countFragmentsWithQuerier(ctx context.Context, q querier) (int, error) {
	var n int
	if err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM fragments").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count fragments: %w", err)
	}
	return n, nil
}

func (s *SQLiteStorage) CountFragments(ctx context.Context) (int, error) {
	return s.countFragmentsWithQuerier(ctx, s.querier())
}

func (s *SQLiteStorage) deleteFragmentsWithQuerier(ctx context.Context, q querier, id types.SymbolID) (int, error) {
	result, err := q.ExecContext(ctx, "DELETE FROM fragments WHERE usr = ?", id[:])
	if err != nil {
		return 0, fmt.Errorf("failed to delete fragments: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (s *SQLiteStorage) DeleteFragments(ctx context.Context, id types.SymbolID) (int, error) {
	return s.deleteFragmentsWithQuerier(ctx, s.querier(), id)
}

// Symbol operations

// replaceSymbolsWithQuerier swaps the whole snapshot for symbols
func (s *SQLiteStorage) replaceSymbolsWithQuerier(ctx context.Context, q querier, symbols []Symbol) error {
	if _, err := q.ExecContext(ctx, "DELETE FROM symbols"); err != nil {
		return fmt.Errorf("failed to clear symbols: %w", err)
	}

	query := `
		INSERT INTO symbols (usr, kind, name, qualified_name, path, position)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	for i := range symbols {
		sym := &symbols[i]
		_, err := q.ExecContext(ctx, query,
			sym.ID[:], int(sym.Kind), sym.Name, sym.QualifiedName, sym.Path, sym.Position)
		if err != nil {
			return fmt.Errorf("failed to insert symbol %s: %w", sym.ID, err)
		}
	}
	return nil
}

// ReplaceSymbols replaces the snapshot in a single transaction
func (s *SQLiteStorage) ReplaceSymbols(ctx context.Context, symbols []Symbol) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := s.replaceSymbolsWithQuerier(ctx, tx, symbols); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// scanner is implemented by *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func scanSymbol(row scanner) (*Symbol, error) {
	var (
		sym  Symbol
		usr  []byte
		kind int
		path sql.NullString
	)
	if err := row.Scan(&usr, &kind, &sym.Name, &sym.QualifiedName, &path, &sym.Position); err != nil {
		return nil, err
	}
	id, err := types.SymbolIDFromBytes(usr)
	if err != nil {
		return nil, err
	}
	sym.ID = id
	sym.Kind = types.InfoKind(kind)
	sym.Path = path.String
	return &sym, nil
}

func (s *SQLiteStorage) getSymbolWithQuerier(ctx context.Context, q querier, id types.SymbolID) (*Symbol, error) {
	query := `
		SELECT usr, kind, name, qualified_name, path, position
		FROM symbols
		WHERE usr = ?
	`
	sym, err := scanSymbol(q.QueryRowContext(ctx, query, id[:]))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get symbol: %w", err)
	}
	return sym, nil
}

func (s *SQLiteStorage) GetSymbol(ctx context.Context, id types.SymbolID) (*Symbol, error) {
	return s.getSymbolWithQuerier(ctx, s.querier(), id)
}

// listSymbolsWithQuerier returns the symbols whose qualified name starts
// with prefix (case-sensitive), in canonical order
func (s *SQLiteStorage) listSymbolsWithQuerier(ctx context.Context, q querier, prefix string, limit int) ([]*Symbol, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	query := `
		SELECT usr, kind, name, qualified_name, path, position
		FROM symbols
		WHERE substr(qualified_name, 1, length(?)) = ?
		ORDER BY position
		LIMIT ?
	`
	rows, err := q.QueryContext(ctx, query, prefix, prefix, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list symbols: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var symbols []*Symbol
	for rows.Next() {
		sym, err := scanSymbol(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, sym)
	}
	return symbols, rows.Err()
}

func (s *SQLiteStorage) ListSymbols(ctx context.Context, prefix string, limit int) ([]*Symbol, error) {
	return s.listSymbolsWithQuerier(ctx, s.querier(), prefix, limit)
}

// Build operations

func (s *SQLiteStorage) recordBuildWithQuerier(ctx context.Context, q querier, build *Build) error {
	query := `
		INSERT INTO builds (groups_total, fragments, symbols, failed, canonical, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	now := time.Now()
	result, err := q.ExecContext(ctx, query,
		build.Groups, build.Fragments, build.Symbols, build.Failed,
		build.Canonical, build.Duration.Milliseconds(), now)
	if err != nil {
		return fmt.Errorf("failed to record build: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	build.ID = id
	build.CreatedAt = now
	return nil
}

func (s *SQLiteStorage) RecordBuild(ctx context.Context, build *Build) error {
	return s.recordBuildWithQuerier(ctx, s.querier(), build)
}

func (s *SQLiteStorage) latestBuildWithQuerier(ctx context.Context, q querier) (*Build, error) {
	query := `
		SELECT id, groups_total, fragments, symbols, failed, canonical, duration_ms, created_at
		FROM builds
		ORDER BY id DESC
		LIMIT 1
	`
	var (
		build    Build
		duration int64
	)
	err := q.QueryRowContext(ctx, query).Scan(
		&build.ID, &build.Groups, &build.Fragments, &build.Symbols, &build.Failed,
		&build.Canonical, &duration, &build.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest build: %w", err)
	}
	build.Duration = time.Duration(duration) * time.Millisecond
	return &build, nil
}

func (s *SQLiteStorage) LatestBuild(ctx context.Context) (*Build, error) {
	return s.latestBuildWithQuerier(ctx, s.querier())
}

// Transaction methods - delegate to storage methods with transaction querier

func (t *sqliteTx) PutFragment(ctx context.Context, fragment types.Fragment) error {
	return t.storage.putFragmentWithQuerier(ctx, t.querier(), fragment)
}

func (t *sqliteTx) ForEachFragment(ctx context.Context, fn func(types.Fragment) error) error {
	return t.storage.forEachFragmentWithQuerier(ctx, t.querier(), fn)
}

func (t *sqliteTx) CountFragments(ctx context.Context) (int, error) {
	return t.storage.countFragmentsWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) DeleteFragments(ctx context.Context, id types.SymbolID) (int, error) {
	return t.storage.deleteFragmentsWithQuerier(ctx, t.querier(), id)
}

func (t *sqliteTx) ReplaceSymbols(ctx context.Context, symbols []Symbol) error {
	return t.storage.replaceSymbolsWithQuerier(ctx, t.querier(), symbols)
}

func (t *sqliteTx) GetSymbol(ctx context.Context, id types.SymbolID) (*Symbol, error) {
	return t.storage.getSymbolWithQuerier(ctx, t.querier(), id)
}

func (t *sqliteTx) ListSymbols(ctx context.Context, prefix string, limit int) ([]*Symbol, error) {
	return t.storage.listSymbolsWithQuerier(ctx, t.querier(), prefix, limit)
}

func (t *sqliteTx) RecordBuild(ctx context.Context, build *Build) error {
	return t.storage.recordBuildWithQuerier(ctx, t.querier(), build)
}

func (t *sqliteTx) LatestBuild(ctx context.Context) (*Build, error) {
	return t.storage.latestBuildWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) Close() error {
	return nil
}

func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	return nil, errors.New("nested transactions not supported")
}
