package cli

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lukashuebner/tugboat/internal/artifact"
	"github.com/lukashuebner/tugboat/internal/models"
	"github.com/lukashuebner/tugboat/internal/report"
	"github.com/lukashuebner/tugboat/internal/shell"
)

// runSequence runs commands one after another, recording every result with
// the aggregator. A failed command's stdout target is removed. With
// stopOnFailure the remaining commands are not run after the first failure.
func runSequence(ctx context.Context, r shell.Runner, stage models.StageName, agg *report.Aggregator, console *report.Console, cmds []shell.Command, stopOnFailure bool) {
	for _, c := range cmds {
		res := r.Run(ctx, c)
		out := models.Outcome{Dataset: c.Path, Stage: stage, Kind: models.OutcomeSuccess, Reason: res.CommandLine}
		if res.Failed() {
			out.Kind = models.OutcomeFailure
			out.Type = models.ErrExternalOperationFailure
			out.Failures = []models.StepFailure{{
				Step:        string(stage),
				CommandLine: res.CommandLine,
				ExitCode:    res.ExitCode,
				Stdout:      res.Stdout,
				Stderr:      res.Stderr,
			}}
			if res.Err != nil {
				out.Failures[0].Message = res.Err.Error()
			}
			if c.Stdout != "" {
				if err := artifact.Remove(c.Stdout); err != nil {
					out.Failures[0].Message = strings.TrimSpace(out.Failures[0].Message + "; " + err.Error())
				}
			}
		}
		agg.Observe(out)
		console.Observe(out)
		if res.Failed() && stopOnFailure {
			return
		}
	}
}

func newPlotCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "plot",
		Short: "Re-create the benchmark and tree statistics plots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := o.open(cmd.Context())
			if err != nil {
				return err
			}
			tools, out := s.cfg.Tools, s.cfg.Outputs
			agg := report.NewAggregator(models.StagePlot)

			bench := []shell.Command{{
				Path: tools.Rscript,
				Args: []string{tools.PlotBenchScript, "--input", out.Collected, "--output", out.BenchPlot},
			}}
			runSequence(cmd.Context(), s.deps.Runner, models.StagePlot, agg, s.console, bench, false)

			treesFiles := artifact.Existing(s.datasets, []artifact.Kind{artifact.KindTrees})
			if len(treesFiles) == 0 {
				msg := "no .trees files, skipping tree statistics"
				agg.Warn(msg)
				s.console.Warn(msg)
			} else {
				extract := []string{tools.ExtractTreeStats}
				for _, f := range treesFiles {
					extract = append(extract, f.Path)
				}
				treeStats := []shell.Command{
					{Path: tools.Python, Args: extract, Stdout: out.TreeStats},
					{
						Path: tools.Rscript,
						Args: []string{tools.PlotTreeStatsScript, "--input", out.TreeStats, "--output-prefix", out.TreeStatsPrefix},
					},
				}
				runSequence(cmd.Context(), s.deps.Runner, models.StagePlot, agg, s.console, treeStats, true)
			}

			return s.finish(agg)
		},
	}
}

// presets are the cmake presets of the sfkit build.
var presets = []string{"debug", "release", "relwithdeb"}

func newCompileCommand(o *options) *cobra.Command {
	var preset string

	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Configure, build and test the benchmark binaries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(presets, preset) {
				return fmt.Errorf("unknown preset %q, expected one of %s", preset, strings.Join(presets, ", "))
			}
			cfg, err := o.loadConfig()
			if err != nil {
				return err
			}
			s := &session{
				cfg:     cfg,
				deps:    o.deps(cmd.Context(), cfg),
				console: report.NewConsole(o.stdout),
			}
			agg := report.NewAggregator(models.StageCompile)

			cmds := []shell.Command{
				{Path: cfg.Tools.Cmake, Args: []string{"--preset", preset}},
				{Path: cfg.Tools.Cmake, Args: []string{"--build", "--preset", preset, "--parallel"}},
				{Path: cfg.Tools.Ctest, Args: []string{"--preset", preset}},
			}
			runSequence(cmd.Context(), s.deps.Runner, models.StageCompile, agg, s.console, cmds, true)
			return s.finish(agg)
		},
	}

	cmd.Flags().StringVar(&preset, "preset", "release", "cmake preset: "+strings.Join(presets, ", "))
	return cmd
}
