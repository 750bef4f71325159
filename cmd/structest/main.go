// Command structest grades the structure of a Java submission against a
// structure oracle.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"structest/internal/config"
	"structest/internal/fatal"
	"structest/internal/util"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// Exit codes besides the fatal classes.
const (
	exitOK           = 0
	exitChecksFailed = 1
	exitUsage        = 2
)

// exitError carries a process exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	verbose    bool
	logFile    string
}

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

func execute(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	err := root.ExecuteContext(ctx)
	util.SyncLogging()
	if err == nil {
		return exitOK
	}
	var exit *exitError
	if errors.As(err, &exit) {
		if exit.err != nil {
			fmt.Fprintf(stderr, "structest: %v\n", exit.err)
		}
		return exit.code
	}
	fmt.Fprintf(stderr, "structest: %v\n", err)
	var fe *fatal.Error
	switch {
	case errors.As(err, &fe):
		return fe.Class.ExitCode()
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fatal.Internal.ExitCode()
	default:
		// flag and argument errors from cobra
		return exitUsage
	}
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:   "structest",
		Short: "Structural conformance checks for Java submissions",
		Long: `structest compares the declared structure of Java sources (classes,
constructors, methods, attributes, enum constants) against a JSON structure
oracle and reports one outcome per expectation.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "path to a YAML config file")
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().StringVar(&g.logFile, "log-file", "", "also write JSON logs to this file")

	root.AddCommand(
		newCheckCmd(g),
		newSchemaCmd(),
		newOracleCmd(g),
		newReportCmd(g),
	)
	return root
}

// loadConfig reads the config file and applies the logging flags.
func (g *globalFlags) loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return config.Config{}, err
	}
	flags := cmd.Flags()
	if flags.Changed("verbose") {
		cfg.Logging.Verbose = g.verbose
	}
	if flags.Changed("log-file") {
		cfg.Logging.LogFile = g.logFile
	}
	if err := util.ConfigureLogging(cfg.Logging.Verbose, cfg.Logging.LogFile); err != nil {
		return config.Config{}, fatal.Wrap(fatal.Config, err, "configure logging")
	}
	return cfg, nil
}
