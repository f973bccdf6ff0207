package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dshills/doccorpus/internal/indexer"
	"github.com/dshills/doccorpus/internal/mcp"
	"github.com/dshills/doccorpus/internal/storage"
	"github.com/dshills/doccorpus/pkg/types"
)

func newIngestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <fragment-dir>",
		Short: "Load a fragment directory into the database",
		Long:  "Store every fragment of a directory laid out as <symbol id>/<unit>.docs. A fragment already stored for the same symbol and unit is replaced.",
		Args:  cobra.ExactArgs(1),
		RunE:  runIngest,
	}
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	dbPath, err := mcp.ExpandPath(cfg.Database)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}
	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	tx, err := store.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var n int
	err = indexer.DirSource{Root: args[0]}.ForEachFragment(ctx, func(f types.Fragment) error {
		n++
		return tx.PutFragment(ctx, f)
	})
	if err != nil {
		return fmt.Errorf("failed to ingest fragments: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	total, err := store.CountFragments(ctx)
	if err != nil {
		return err
	}
	log.Info().Int("fragments", n).Str("dir", args[0]).Msg("Ingested fragments")
	fmt.Fprintf(cmd.OutOrStdout(), "Ingested %d fragments (%d stored)\n", n, total)
	return nil
}
