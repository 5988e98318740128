package executor

import (
	"context"
	"fmt"
	"sync"

	"github.com/lukashuebner/tugboat/internal/models"
)

// Observer receives every outcome as soon as it is produced. Calls are
// serialized, in completion order.
type Observer func(models.Outcome)

// Coordinator runs a per-dataset unit of work over a bounded worker pool.
type Coordinator struct {
	Stage    models.StageName
	Workers  int
	Observer Observer
}

type indexedOutcome struct {
	index   int
	outcome models.Outcome
}

// Run executes work for every dataset and returns the outcomes in input
// order. Every dataset reports exactly one outcome: a panicking task is
// reported as a failure, and datasets that were never started because ctx
// was cancelled are reported as interrupted.
func (c *Coordinator) Run(ctx context.Context, datasets []models.Dataset, work func(context.Context, models.Dataset) models.Outcome) []models.Outcome {
	nWorkers := c.Workers
	if nWorkers <= 0 {
		nWorkers = 1
	}
	if nWorkers > len(datasets) {
		nWorkers = len(datasets)
	}

	jobChan := make(chan int) // unbuffered
	resultChan := make(chan indexedOutcome, len(datasets))

	var wg sync.WaitGroup
	for range nWorkers {
		wg.Go(func() {
			for i := range jobChan {
				resultChan <- indexedOutcome{i, c.safeRun(ctx, datasets[i], work)}
			}
		})
	}

	// Feeder stops handing out datasets once ctx is cancelled.
	go func() {
		defer close(jobChan)
		for i := range datasets {
			select {
			case <-ctx.Done():
				return
			case jobChan <- i:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	outcomes := make([]models.Outcome, len(datasets))
	reported := make([]bool, len(datasets))
	for r := range resultChan {
		outcomes[r.index] = r.outcome
		reported[r.index] = true
		c.observe(r.outcome)
	}

	for i, ds := range datasets {
		if reported[i] {
			continue
		}
		outcomes[i] = interrupted(models.Outcome{Dataset: ds.Basename(), Stage: c.Stage})
		c.observe(outcomes[i])
	}
	return outcomes
}

func (c *Coordinator) safeRun(ctx context.Context, ds models.Dataset, work func(context.Context, models.Dataset) models.Outcome) (out models.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = models.Outcome{
				Dataset: ds.Basename(),
				Stage:   c.Stage,
				Kind:    models.OutcomeFailure,
				Type:    models.ErrExternalOperationFailure,
				Reason:  fmt.Sprintf("panic: %v", r),
			}
		}
	}()
	return work(ctx, ds)
}

func (c *Coordinator) observe(o models.Outcome) {
	if c.Observer != nil {
		c.Observer(o)
	}
}
