package executor

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lukashuebner/tugboat/internal/models"
)

// RunOptions are the per-invocation stage flags.
type RunOptions struct {
	Redo bool
	// Workers overrides the configured pool size when positive.
	Workers  int
	Observer Observer
}

// RunStage runs the named stage over datasets and returns one outcome per
// dataset, in dataset order.
func RunStage(ctx context.Context, d *Deps, name models.StageName, datasets []models.Dataset, opts RunOptions) ([]models.Outcome, error) {
	st, err := NewStage(name, d)
	if err != nil {
		return nil, err
	}

	workers := d.Config.Workers.For(name)
	if opts.Workers > 0 {
		workers = opts.Workers
	}

	log := slog.With("run", uuid.NewString(), "stage", name)
	log.Info("starting stage", "datasets", len(datasets), "workers", workers, "redo", opts.Redo)
	start := time.Now()

	exec := &StageExecutor{Stage: st, Redo: opts.Redo, Logger: log}
	coord := &Coordinator{Stage: name, Workers: workers, Observer: opts.Observer}
	outcomes := coord.Run(ctx, datasets, exec.Execute)

	log.Info("stage finished", "duration", time.Since(start))
	return outcomes, nil
}
