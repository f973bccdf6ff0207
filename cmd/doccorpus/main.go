package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/doccorpus/internal/config"
	"github.com/dshills/doccorpus/internal/logger"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

// newRootCmd assembles the command tree
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "doccorpus",
		Short:         "Build and query a documentation corpus of C++ symbols",
		Long:          `doccorpus merges the per-translation-unit symbol fragments of a project into one canonical documentation corpus`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newBuildCmd())
	rootCmd.AddCommand(newIngestCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "path to a YAML config file")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug|info|warn|error), overrides the config")
	rootCmd.PersistentFlags().String("db", "", "SQLite database path, overrides the config")

	return rootCmd
}

// main executes the root command and exits with status 1 on failure
func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup loads the configuration, applies the global flags and creates the
// logger. Logs go to stderr so stdout stays free for command output and
// the MCP protocol.
func setup(cmd *cobra.Command) (*config.Config, *logger.Logger, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}

	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}
	if db, _ := cmd.Flags().GetString("db"); db != "" {
		cfg.Database = db
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
		Output: cmd.ErrOrStderr(),
	})
	return cfg, log, nil
}
