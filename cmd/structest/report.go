package main

import (
	"context"
	"fmt"
	"strings"

	"structest/internal/config"
	"structest/internal/fatal"
	"structest/internal/report"
	"structest/internal/uploader"
	"structest/internal/util"

	"github.com/spf13/cobra"
)

func newReportCmd(g *globalFlags) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "report [reports-dir | s3://bucket/prefix]",
		Short: "Aggregate run reports",
		Long: `report merges the summaries of many runs, for example every submission of
an exercise, into one JSON document with failure counts per check.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig(cmd)
			if err != nil {
				return err
			}
			input := cfg.Report.OutputDir
			if len(args) == 1 {
				input = args[0]
			}
			agg, err := loadAggregate(cmd.Context(), cfg, input)
			if err != nil {
				return err
			}
			if out == "" || out == "-" {
				data, err := report.EncodeAggregate(agg)
				if err != nil {
					return fatal.Wrap(fatal.Internal, err, "encode aggregate")
				}
				if _, err := cmd.OutOrStdout().Write(data); err != nil {
					return fatal.Wrap(fatal.Internal, err, "write aggregate")
				}
			} else if err := report.WriteAggregate(out, agg); err != nil {
				return fatal.Wrap(fatal.Internal, err, "write aggregate to %s", out)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%d runs, %d checks, %d failed\n", agg.Runs, agg.Totals.Total, agg.Totals.Failed)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "write the aggregate to this file instead of stdout")
	return cmd
}

func loadAggregate(ctx context.Context, cfg config.Config, input string) (*report.Aggregate, error) {
	if !strings.HasPrefix(input, "s3://") {
		agg, err := report.LoadLocal(input)
		if err != nil {
			return nil, fatal.Wrap(fatal.Config, err, "read reports below %s", input)
		}
		return agg, nil
	}
	summaries, err := uploader.ReadSummaries(ctx, cfg.Storage.S3, input)
	if err != nil {
		return nil, fatal.Wrap(fatal.Provider, err, "read reports from %s", input)
	}
	agg := report.NewAggregate()
	for location, data := range summaries {
		summary, err := report.DecodeSummary(data)
		if err != nil {
			util.Warnf("skip run %s: %v", location, err)
			continue
		}
		agg.Add(location, summary)
	}
	return agg.Finish(), nil
}
