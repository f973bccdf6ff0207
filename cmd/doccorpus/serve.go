package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dshills/doccorpus/internal/indexer"
	"github.com/dshills/doccorpus/internal/mcp"
	"github.com/dshills/doccorpus/internal/metrics"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the corpus over MCP on stdio",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}

	server, err := mcp.NewServer(mcp.Options{
		DBPath: cfg.Database,
		Build: &indexer.Config{
			Workers: cfg.Workers,
			Strict:  cfg.Strict,
			Verbose: cfg.Verbose,
		},
		Logger:  log,
		Metrics: metrics.New(),
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Serve(ctx)
	}()

	// Wait for shutdown signal or error
	select {
	case <-ctx.Done():
		log.Info().Msg("Received signal, shutting down")
		return nil
	case err := <-errChan:
		return err
	}
}
