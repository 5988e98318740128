package executor

import (
	"context"
	"fmt"
	"strings"

	"github.com/lukashuebner/tugboat/internal/fetch"
	"github.com/lukashuebner/tugboat/internal/models"
	"github.com/lukashuebner/tugboat/internal/shell"
)

// Deps is what stages need from the invocation: configuration, the primitives
// for external operations and the run metadata attached to measurements.
type Deps struct {
	Config   models.Config
	Runner   shell.Runner
	Fetcher  fetch.Fetcher
	Revision string
	Machine  string
}

type stage struct {
	name models.StageName
	plan func(ds models.Dataset) Plan
}

func (s stage) Name() models.StageName      { return s.name }
func (s stage) Plan(ds models.Dataset) Plan { return s.plan(ds) }

// NewStage returns the stage definition for name.
func NewStage(name models.StageName, d *Deps) (Stage, error) {
	switch name {
	case models.StageSimulate:
		return stage{name, d.simulatePlan}, nil
	case models.StageDownload:
		return stage{name, d.downloadPlan}, nil
	case models.StageDecompress:
		return stage{name, d.decompressPlan}, nil
	case models.StageConvert:
		return stage{name, d.convertPlan}, nil
	case models.StageBenchmark:
		return stage{name, d.benchmarkPlan}, nil
	default:
		return nil, fmt.Errorf("unknown stage: %s", name)
	}
}

func (d *Deps) run(cmd shell.Command) func(ctx context.Context) shell.Result {
	return func(ctx context.Context) shell.Result {
		return d.Runner.Run(ctx, cmd)
	}
}

func (d *Deps) simulatePlan(ds models.Dataset) Plan {
	sim, ok := ds.(*models.SimulatedDataset)
	if !ok {
		return Plan{Unsupported: "not a simulated dataset"}
	}

	args := []string{d.Config.Tools.SimulateScript, "--output=" + sim.TreesFile()}
	for _, p := range sim.Params() {
		args = append(args, fmt.Sprintf("--%s=%s", strings.ReplaceAll(p.Name, "_", "-"), p.Value))
	}
	return Plan{
		Steps: []Step{{
			Name:    "simulate",
			Outputs: []string{sim.TreesFile()},
			Run:     d.run(shell.Command{Path: d.Config.Tools.Python, Args: args}),
		}},
	}
}

func (d *Deps) downloadPlan(ds models.Dataset) Plan {
	src := ds.SourceURL()
	if src == "" {
		return Plan{Unsupported: "dataset has no source url"}
	}
	dest := ds.ArchiveFile()
	return Plan{
		Steps: []Step{{
			Name:    "download",
			Outputs: []string{dest},
			Run: func(ctx context.Context) shell.Result {
				res := shell.Result{CommandLine: fmt.Sprintf("fetch %s > %s", src, dest)}
				if err := d.Fetcher.Fetch(ctx, src, dest); err != nil {
					res.ExitCode = -1
					res.Err = err
				}
				return res
			},
		}},
	}
}

func (d *Deps) decompressPlan(ds models.Dataset) Plan {
	return Plan{
		Inputs: []string{ds.ArchiveFile()},
		Steps: []Step{{
			Name:    "decompress",
			Outputs: []string{ds.TreesFile()},
			Run: d.run(shell.Command{
				Path:   d.Config.Tools.Tsunzip,
				Args:   []string{"--decompress", ds.ArchiveFile(), "--stdout"},
				Stdout: ds.TreesFile(),
			}),
		}},
	}
}

func (d *Deps) convertPlan(ds models.Dataset) Plan {
	bench := ds.ResultFile(models.ResultConversionBench)
	return Plan{
		Inputs: []string{ds.TreesFile()},
		Steps: []Step{{
			Name:    "convert",
			Outputs: []string{ds.ForestFile(), bench},
			Run: d.run(shell.Command{
				Path: d.Config.Tools.SfkitBin,
				Args: []string{
					"compress",
					"--trees-file=" + ds.TreesFile(),
					"--forest-file=" + ds.ForestFile(),
					"--iterations=1",
					"--warmup-iterations=0",
					"--revision=" + d.Revision,
					"--machine=" + d.Machine,
				},
				Stdout: bench,
			}),
		}},
	}
}

// benchmarkPlan runs the sfkit/tskit operations benchmark and the python-only
// tajimasD benchmark as separate steps. Each step is skipped when its own
// output exists and a failed step only removes its own output, so a rerun
// without redo repeats just the missing operation.
func (d *Deps) benchmarkPlan(ds models.Dataset) Plan {
	cfg := d.Config
	opsBench := ds.ResultFile(models.ResultOpsBench)
	tajimasDBench := ds.ResultFile(models.ResultTajimasDBench)
	return Plan{
		Inputs: []string{ds.TreesFile(), ds.ForestFile()},
		Steps: []Step{
			{
				Name:    string(models.ResultOpsBench),
				Outputs: []string{opsBench},
				Run: d.run(shell.Command{
					Path: cfg.Tools.SfkitBin,
					Args: []string{
						"benchmark",
						fmt.Sprintf("--warmup-iterations=%d", cfg.WarmupIterations),
						fmt.Sprintf("--iterations=%d", cfg.Iterations),
						"--forest-file=" + ds.ForestFile(),
						"--trees-file=" + ds.TreesFile(),
						"--revision=" + d.Revision,
						"--machine=" + d.Machine,
					},
					Stdout: opsBench,
				}),
			},
			{
				Name:    string(models.ResultTajimasDBench),
				Outputs: []string{tajimasDBench},
				Run: d.run(shell.Command{
					Path: cfg.Tools.Python,
					Args: []string{
						cfg.Tools.PythonOnlyBenchScript,
						"--trees-file=" + ds.TreesFile(),
						fmt.Sprintf("--iterations=%d", cfg.Iterations),
						"--revision=" + d.Revision,
						"--machine=" + d.Machine,
					},
					Stdout: tajimasDBench,
				}),
			},
		},
	}
}
