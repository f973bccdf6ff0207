package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/dshills/doccorpus/internal/indexer"
	"github.com/dshills/doccorpus/internal/mcp"
	"github.com/dshills/doccorpus/internal/metrics"
	"github.com/dshills/doccorpus/internal/storage"
)

func newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build [fragment-dir]",
		Short: "Build the canonical corpus and snapshot it to the database",
		Long: "Merge every fragment into one description per symbol, canonicalize the corpus and store its symbols. " +
			"Fragments are read from the given directory, the configured fragment_dir, or the database.",
		Args: cobra.MaximumNArgs(1),
		RunE: runBuild,
	}

	cmd.Flags().Int("workers", 0, "concurrent merge workers (0 uses the config)")
	cmd.Flags().Bool("lenient", false, "leave out symbols that fail to merge instead of failing the build")
	cmd.Flags().Bool("verbose", false, "log progress at info level")
	cmd.Flags().Bool("no-snapshot", false, "do not store the result in the database")
	cmd.Flags().String("metrics-file", "", "write build metrics in Prometheus text format to this file")
	return cmd
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}

	workers, _ := cmd.Flags().GetInt("workers")
	lenient, _ := cmd.Flags().GetBool("lenient")
	verbose, _ := cmd.Flags().GetBool("verbose")
	noSnapshot, _ := cmd.Flags().GetBool("no-snapshot")
	metricsFile, _ := cmd.Flags().GetString("metrics-file")

	buildCfg := &indexer.Config{
		Workers: cfg.Workers,
		Strict:  cfg.Strict && !lenient,
		Verbose: cfg.Verbose || verbose,
	}
	if workers > 0 {
		buildCfg.Workers = workers
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fragmentDir := cfg.FragmentDir
	if len(args) == 1 {
		fragmentDir = args[0]
	}

	var store *storage.SQLiteStorage
	if !noSnapshot || fragmentDir == "" {
		dbPath, err := mcp.ExpandPath(cfg.Database)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
		store, err = storage.NewSQLiteStorage(dbPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer func() { _ = store.Close() }()
	}

	var src indexer.FragmentSource = store
	if fragmentDir != "" {
		src = indexer.DirSource{Root: fragmentDir}
	}

	m := metrics.New()
	idx := indexer.New(log, m)
	c, stats, err := idx.Build(ctx, src, buildCfg)
	if metricsFile != "" {
		defer writeMetrics(metricsFile, m.Registry)
	}
	if err != nil {
		printErrors(cmd, stats)
		return err
	}

	if buildCfg.Verbose {
		log.Info().Msg("Canonicalizing...")
	} else {
		log.Debug().Msg("Canonicalizing...")
	}
	if err := c.Canonicalize(); err != nil {
		return fmt.Errorf("failed to canonicalize corpus: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Symbols:   %d\n", c.Len())
	fmt.Fprintf(out, "Groups:    %d (%d failed)\n", stats.Groups, stats.GroupsFailed)
	fmt.Fprintf(out, "Fragments: %d\n", stats.Fragments)
	fmt.Fprintf(out, "Duration:  %s\n", stats.Duration)
	printErrors(cmd, stats)

	if noSnapshot {
		return nil
	}

	tx, err := store.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := tx.ReplaceSymbols(ctx, storage.SnapshotSymbols(c)); err != nil {
		return err
	}
	build := &storage.Build{
		Groups:    stats.Groups,
		Fragments: stats.Fragments,
		Symbols:   c.Len(),
		Failed:    stats.GroupsFailed,
		Canonical: true,
		Duration:  stats.Duration,
	}
	if err := tx.RecordBuild(ctx, build); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to store snapshot: %w", err)
	}
	fmt.Fprintf(out, "Snapshot:  build %d\n", build.ID)
	return nil
}

func printErrors(cmd *cobra.Command, stats *indexer.Statistics) {
	if stats == nil {
		return
	}
	for _, msg := range stats.ErrorMessages {
		fmt.Fprintf(cmd.ErrOrStderr(), "  %s\n", msg)
	}
}

func writeMetrics(path string, reg *prometheus.Registry) {
	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write metrics: %v\n", err)
	}
}
