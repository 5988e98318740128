package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lukashuebner/tugboat/internal/config"
	"github.com/lukashuebner/tugboat/internal/executor"
	"github.com/lukashuebner/tugboat/internal/models"
	"github.com/lukashuebner/tugboat/internal/report"
	"github.com/lukashuebner/tugboat/internal/results"
)

func newStageCommand(o *options, name models.StageName, short string) *cobra.Command {
	var (
		redo       bool
		parallel   int
		iterations int
		warmup     int
	)

	cmd := &cobra.Command{
		Use:   string(name),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := o.open(cmd.Context())
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("iterations") {
				s.deps.Config.Iterations = iterations
			}
			if cmd.Flags().Changed("warmup-iterations") {
				s.deps.Config.WarmupIterations = warmup
			}
			if err := config.Validate(s.deps.Config); err != nil {
				return err
			}

			agg := report.NewAggregator(name)
			_, err = executor.RunStage(cmd.Context(), s.deps, name, s.datasets, executor.RunOptions{
				Redo:     redo,
				Workers:  parallel,
				Observer: report.Tee(agg.Observe, s.console.Observe),
			})
			if err != nil {
				return err
			}
			return s.finish(agg)
		},
	}

	cmd.Flags().BoolVar(&redo, "redo", false, "run even if the output already exists")
	cmd.Flags().IntVarP(&parallel, "parallel", "j", 0, "number of datasets processed concurrently (default from config)")
	if name == models.StageBenchmark {
		cmd.Flags().IntVar(&iterations, "iterations", 0, "number of measured iterations (default from config)")
		cmd.Flags().IntVar(&warmup, "warmup-iterations", 0, "number of warmup iterations (default from config)")
	}
	return cmd
}

func newCollectCommand(o *options) *cobra.Command {
	var (
		kinds  []string
		output string
	)

	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Merge the per-dataset measurement files into one table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var selected []models.ResultKind
			for _, k := range kinds {
				kind, err := models.ParseResultKind(k)
				if err != nil {
					return err
				}
				selected = append(selected, kind)
			}
			if len(selected) == 0 {
				selected = models.ResultKinds
			}

			s, err := o.open(cmd.Context())
			if err != nil {
				return err
			}
			if output == "" {
				output = s.cfg.Outputs.Collected
			}

			agg := report.NewAggregator(models.StageCollect)
			inputs := results.Files(s.datasets, selected)
			var rep results.MergeReport
			if o.dryRun {
				rep = results.Inspect(inputs, output)
				fmt.Fprintf(o.stdout, "merge %s > %s\n", fmtCount(rep.Files, "file"), output)
			} else {
				rep, err = results.Merge(inputs, output)
				if err != nil {
					return err
				}
			}
			for _, w := range rep.Warnings {
				agg.Warn(w.String())
				s.console.Warn(w.String())
			}
			s.console.Observe(models.Outcome{
				Dataset: output,
				Stage:   models.StageCollect,
				Kind:    models.OutcomeSuccess,
				Reason:  pluralRows(rep),
			})
			return s.finish(agg)
		},
	}

	cmd.Flags().StringSliceVar(&kinds, "kind", nil, "result kinds to merge: ops_bench, tajimasD_bench, conversion_bench (default all)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "combined table path (default from config)")
	return cmd
}

func pluralRows(rep results.MergeReport) string {
	return fmtCount(rep.Rows, "row") + " from " + fmtCount(rep.Files, "file")
}
