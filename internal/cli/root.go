// Package cli implements the tugboat commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/lukashuebner/tugboat/internal/config"
)

// ErrBatchFailed is returned when at least one dataset reported an error.
// The details have already been rendered.
var ErrBatchFailed = errors.New("batch finished with errors")

type options struct {
	configPath  string
	verbose     bool
	dryRun      bool
	collections []string
	revision    string
	machine     string

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// NewRootCommand builds the command tree. Output goes to the writers set on
// the returned command (cmd.SetOut / cmd.SetErr).
func NewRootCommand() *cobra.Command {
	o := &options{}

	root := &cobra.Command{
		Use:           "tugboat",
		Short:         "Run the sfkit vs tskit benchmark pipeline",
		Long:          "tugboat downloads, simulates, converts and benchmarks tree sequence datasets and collects the measurements.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			o.stdin = cmd.InOrStdin()
			o.stdout = cmd.OutOrStdout()
			o.stderr = cmd.ErrOrStderr()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&o.configPath, "config", config.DefaultPath, "config file path (.yaml or .toml)")
	flags.BoolVarP(&o.verbose, "verbose", "v", false, "enable debug logging")
	flags.BoolVarP(&o.dryRun, "dry-run", "n", false, "print external commands instead of running them")
	flags.StringSliceVarP(&o.collections, "collection", "c", nil, "only process datasets of these collections (repeatable)")
	flags.StringVar(&o.revision, "revision", "", "revision recorded with measurements (default: git rev-parse --short HEAD)")
	flags.StringVar(&o.machine, "machine", "", "machine identifier recorded with measurements (default: hostname)")

	root.AddCommand(
		newLsCommand(o),
		newStatusCommand(o),
		newStageCommand(o, "simulate", "Simulate the datasets of the simulation config"),
		newStageCommand(o, "download", "Download the compressed archives of empirical datasets"),
		newStageCommand(o, "decompress", "Decompress .tsz archives to .trees files"),
		newStageCommand(o, "convert", "Convert .trees files to the .forest format"),
		newStageCommand(o, "benchmark", "Benchmark sfkit against tskit on every dataset"),
		newCollectCommand(o),
		newCleanCommand(o),
		newPlotCommand(o),
		newCompileCommand(o),
	)
	return root
}

// Execute runs the command line and reports whether the process should exit
// with a failure status.
func Execute(ctx context.Context, args []string) error {
	root := NewRootCommand()
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err != nil && !errors.Is(err, ErrBatchFailed) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}

func setupLogging(w io.Writer, level string, verbose bool) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	if verbose {
		lvl = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})))
}
