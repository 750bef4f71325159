package main

import (
	"io"
	"os"
	"path/filepath"

	"structest/internal/fatal"
	"structest/internal/javasrc"
	"structest/internal/oracle"
	"structest/internal/util"

	"github.com/spf13/cobra"
)

func newSchemaCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of the structure oracle",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := oracle.Schema()
			if err != nil {
				return fatal.Wrap(fatal.Internal, err, "build oracle schema")
			}
			return writeOutput(cmd.OutOrStdout(), out, data)
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "write to this file instead of stdout")
	return cmd
}

func newOracleCmd(g *globalFlags) *cobra.Command {
	var (
		out     string
		sources []string
		workers int
	)
	cmd := &cobra.Command{
		Use:   "oracle <reference-root>",
		Short: "Generate a structure oracle from a reference solution",
		Long: `oracle parses the reference solution below the given root and writes an
oracle describing every declared class. Implicit members are left out.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("source") {
				cfg.Sources = sources
			}
			if workers > 0 {
				cfg.Workers = workers
			}
			provider, err := javasrc.Load(cmd.Context(), args[0], cfg.Sources, cfg.Workers)
			if err != nil {
				return fatal.Wrap(fatal.Provider, err, "introspect reference below %s", args[0])
			}
			classes, err := provider.Classes(cmd.Context())
			if err != nil {
				return fatal.Wrap(fatal.Provider, err, "list reference classes")
			}
			data, err := oracle.Generate(classes).Marshal()
			if err != nil {
				return fatal.Wrap(fatal.Internal, err, "encode oracle")
			}
			util.Infof("generated oracle with %d classes from %d sources", len(classes), len(provider.Sources()))
			return writeOutput(cmd.OutOrStdout(), out, data)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&out, "out", "", "write to this file instead of stdout")
	flags.StringSliceVarP(&sources, "source", "s", nil, "source glob below the root, '!' excludes (repeatable)")
	flags.IntVarP(&workers, "workers", "w", 0, "parallel parsers (default GOMAXPROCS)")
	return cmd
}

// writeOutput writes data to path, or to stdout when path is empty or "-".
func writeOutput(stdout io.Writer, path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := stdout.Write(data)
		return err
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}
