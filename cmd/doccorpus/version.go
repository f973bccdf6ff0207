package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/doccorpus/internal/bitcode"
	"github.com/dshills/doccorpus/internal/storage"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version and build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "doccorpus %s\n", version)
			fmt.Fprintf(out, "Build Time: %s\n", buildTime)
			fmt.Fprintf(out, "Build Mode: %s\n", storage.BuildMode)
			fmt.Fprintf(out, "SQLite Driver: %s\n", storage.DriverName)
			fmt.Fprintf(out, "Fragment Version: %d\n", bitcode.Version)
			fmt.Fprintf(out, "Schema Version: %s\n", storage.CurrentSchemaVersion)
			return nil
		},
	}
}
