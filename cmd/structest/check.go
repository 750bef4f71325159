package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"structest/internal/config"
	"structest/internal/conformance"
	"structest/internal/fatal"
	"structest/internal/javasrc"
	"structest/internal/oracle"
	"structest/internal/report"
	"structest/internal/uploader"
	"structest/internal/util"

	"github.com/spf13/cobra"
)

type checkFlags struct {
	oracle     string
	sources    []string
	kinds      []string
	workers    int
	timeout    int
	outputDir  string
	noArchive  bool
	skipUpload bool
}

func newCheckCmd(g *globalFlags) *cobra.Command {
	f := &checkFlags{}
	cmd := &cobra.Command{
		Use:   "check [source-root]",
		Short: "Check Java sources against a structure oracle",
		Long: `check parses the Java sources below the source root, runs every configured
check kind against the oracle and writes a run report.

Exit status is 0 when every check passed, 1 when a check failed, 2 for oracle
or configuration problems and 10 when the sources could not be introspected.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig(cmd)
			if err != nil {
				return err
			}
			f.apply(cmd, &cfg, args)
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runCheck(cmd.Context(), cmd.OutOrStdout(), cfg, !f.skipUpload)
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&f.oracle, "oracle", "o", "", "structure oracle (test.json)")
	flags.StringSliceVarP(&f.sources, "source", "s", nil, "source glob below the root, '!' excludes (repeatable)")
	flags.StringSliceVarP(&f.kinds, "kind", "k", nil, "check kind to run: class, constructor, method, attribute, enum (repeatable)")
	flags.IntVarP(&f.workers, "workers", "w", 0, "parallel parsers and checks (default GOMAXPROCS)")
	flags.IntVar(&f.timeout, "timeout", 0, "per-check timeout in seconds, 0 disables")
	flags.StringVar(&f.outputDir, "output-dir", "", "directory for run reports")
	flags.BoolVar(&f.noArchive, "no-archive", false, "skip the compressed run archive")
	flags.BoolVar(&f.skipUpload, "no-upload", false, "skip uploading the run to configured storage")
	return cmd
}

// apply overrides config values with explicitly set flags.
func (f *checkFlags) apply(cmd *cobra.Command, cfg *config.Config, args []string) {
	flags := cmd.Flags()
	if len(args) == 1 {
		cfg.SourceRoot = args[0]
	}
	if flags.Changed("oracle") {
		cfg.Oracle = f.oracle
	}
	if flags.Changed("source") {
		cfg.Sources = f.sources
	}
	if flags.Changed("kind") {
		cfg.Checks = f.kinds
	}
	if flags.Changed("workers") && f.workers > 0 {
		cfg.Workers = f.workers
	}
	if flags.Changed("timeout") {
		cfg.TimeoutSeconds = f.timeout
	}
	if flags.Changed("output-dir") {
		cfg.Report.OutputDir = f.outputDir
	}
	if f.noArchive {
		cfg.Report.Archive = false
	}
}

// evaluation is what a run produced before reporting.
type evaluation struct {
	sources  []string
	classes  int
	outcomes []conformance.Outcome
}

func runCheck(ctx context.Context, out io.Writer, cfg config.Config, upload bool) error {
	reporter := report.New(cfg.Report.OutputDir)
	reporter.UseUUIDPath = cfg.Report.UseUUIDPath
	run, err := reporter.NewRun()
	if err != nil {
		return fatal.Wrap(fatal.Internal, err, "create run report")
	}
	util.Infof("run %s: oracle %s, sources below %s", run.ID, cfg.Oracle, cfg.SourceRoot)

	start := time.Now()
	ev, runErr := evaluate(ctx, cfg)
	summary := report.Summary{
		RunID:    run.ID,
		RunDir:   run.Dir,
		Oracle:   cfg.Oracle,
		Sources:  ev.sources,
		Kinds:    cfg.Checks,
		Totals:   conformance.Summarize(ev.outcomes),
		Outcomes: ev.outcomes,
		Fatal:    report.FatalFrom(runErr),
		RunInfo:  cfg.RunInfo,
		Details: map[string]any{
			"source_root": cfg.SourceRoot,
			"patterns":    cfg.Sources,
			"classes":     ev.classes,
			"workers":     cfg.Workers,
		},
		Timestamp:      start.UTC().Format(time.RFC3339),
		DurationMillis: time.Since(start).Milliseconds(),
	}
	if runErr != nil {
		util.Errorf("run %s aborted: %v", run.ID, runErr)
	}

	text := report.FormatText(summary)
	if _, err := io.WriteString(out, text); err != nil {
		return fatal.Wrap(fatal.Internal, err, "write results")
	}
	if err := publish(ctx, cfg, reporter, run, &summary, text, upload); err != nil {
		util.Errorf("publish run %s: %v", run.ID, err)
		if runErr == nil {
			return fatal.Wrap(fatal.Internal, err, "publish run report")
		}
	}
	if runErr != nil {
		return runErr
	}
	util.Highlightf("run %s: %d checks, %d passed, %d failed", run.ID, summary.Totals.Total, summary.Totals.Passed, summary.Totals.Failed)
	if summary.Totals.Failed > 0 {
		return &exitError{code: exitChecksFailed}
	}
	return nil
}

func evaluate(ctx context.Context, cfg config.Config) (evaluation, error) {
	var ev evaluation
	o, err := oracle.Load(cfg.Oracle)
	if err != nil {
		return ev, err
	}
	kinds, err := cfg.Kinds()
	if err != nil {
		return ev, err
	}
	provider, err := javasrc.Load(ctx, cfg.SourceRoot, cfg.Sources, cfg.Workers)
	if err != nil {
		if ctx.Err() != nil {
			return ev, ctx.Err()
		}
		return ev, fatal.Wrap(fatal.Provider, err, "introspect sources below %s", cfg.SourceRoot)
	}
	ev.sources = provider.Sources()
	ev.classes = provider.Len()

	checks, err := conformance.NewOrchestrator(o, provider).AllChecks(kinds)
	if err != nil {
		return ev, err
	}
	ev.outcomes, err = conformance.Run(ctx, checks, conformance.RunOptions{
		Workers:      cfg.Workers,
		CheckTimeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		OnOutcome: func(out conformance.Outcome) {
			if !out.Passed {
				util.Debugf("%s", failureLine(provider, out))
			}
		},
	})
	return ev, err
}

// failureLine renders a failed outcome for the debug log, with the source
// file that declared the class when there is one.
func failureLine(provider *javasrc.Provider, out conformance.Outcome) string {
	if path, ok := provider.Origin(out.Class); ok {
		return fmt.Sprintf("FAIL %s (%s): %s", out.Name, path, out.Message())
	}
	return fmt.Sprintf("FAIL %s: %s", out.Name, out.Message())
}

// publish writes the run artifacts and uploads the run directory.
func publish(ctx context.Context, cfg config.Config, reporter *report.Reporter, run report.Run, summary *report.Summary, text string, upload bool) error {
	if err := reporter.WriteText(run, report.TextFileName, text); err != nil {
		return err
	}
	if err := reporter.WriteSummary(run, *summary); err != nil {
		return err
	}
	if cfg.Report.Archive {
		name, codec, err := reporter.WriteRunArchive(run)
		if err != nil {
			return err
		}
		summary.ArchiveName, summary.ArchiveCodec = name, codec
	}
	if upload && cfg.Storage.CloudEnabled() {
		u, err := uploader.New(ctx, cfg.Storage)
		if err != nil {
			return err
		}
		location, err := u.UploadDir(ctx, run.Dir)
		if err != nil {
			return err
		}
		summary.UploadLocation = location
		util.Infof("run %s uploaded to %s", run.ID, location)
	}
	if err := reporter.WriteSummary(run, *summary); err != nil {
		return err
	}
	return nil
}
