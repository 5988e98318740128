// Package executor decides, per dataset, whether a pipeline stage has to run,
// runs its external operations and fans the work out over a worker pool.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lukashuebner/tugboat/internal/artifact"
	"github.com/lukashuebner/tugboat/internal/models"
	"github.com/lukashuebner/tugboat/internal/shell"
)

// Step is one external operation of a stage. Outputs are the files the
// operation produces; the step is skipped when any of them exists and
// removed when the operation fails.
type Step struct {
	Name    string
	Outputs []string
	Run     func(ctx context.Context) shell.Result
}

// Plan is what a stage needs from one dataset.
type Plan struct {
	// Unsupported, when set, is the reason the stage does not apply to the
	// dataset at all.
	Unsupported string
	Inputs      []string
	Steps       []Step
}

// Stage builds the per-dataset plan of one pipeline stage. Plans must only
// depend on the dataset.
type Stage interface {
	Name() models.StageName
	Plan(ds models.Dataset) Plan
}

// StageExecutor runs one stage for a single dataset.
type StageExecutor struct {
	Stage  Stage
	Redo   bool
	Logger *slog.Logger
}

// Execute evaluates the preconditions, the existing outputs and finally runs
// the remaining steps. It always returns exactly one outcome.
func (e *StageExecutor) Execute(ctx context.Context, ds models.Dataset) (out models.Outcome) {
	start := time.Now()
	out = models.Outcome{Dataset: ds.Basename(), Stage: e.Stage.Name()}
	defer func() { out.Duration = time.Since(start) }()

	log := e.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With("dataset", ds.Basename())

	if ctx.Err() != nil {
		return interrupted(out)
	}

	plan := e.Stage.Plan(ds)
	if plan.Unsupported != "" {
		out.Kind = models.OutcomePreconditionMissing
		out.Type = models.ErrPreconditionMissing
		out.Reason = plan.Unsupported
		return out
	}

	for _, in := range plan.Inputs {
		if !artifact.Present(in) {
			out.Kind = models.OutcomePreconditionMissing
			out.Type = models.ErrPreconditionMissing
			out.Reason = fmt.Sprintf("%s does not exist or is empty", in)
			return out
		}
	}

	var ran, existing []string
	for _, step := range plan.Steps {
		if !e.Redo {
			if path, ok := firstExisting(step.Outputs); ok {
				log.Debug("output exists, skipping step", "step", step.Name, "path", path)
				existing = append(existing, path)
				continue
			}
		}

		if ctx.Err() != nil {
			out.Failures = append(out.Failures, models.StepFailure{
				Step:     step.Name,
				ExitCode: -1,
				Message:  "not started: " + ctx.Err().Error(),
			})
			break
		}

		log.Debug("running step", "step", step.Name)
		res := step.Run(ctx)
		if !res.Failed() {
			ran = append(ran, step.Name)
			continue
		}

		log.Debug("step failed", "step", step.Name, "exit_code", res.ExitCode)
		failure := models.StepFailure{
			Step:        step.Name,
			CommandLine: res.CommandLine,
			ExitCode:    res.ExitCode,
			Stdout:      res.Stdout,
			Stderr:      res.Stderr,
		}
		if res.Err != nil {
			failure.Message = res.Err.Error()
		}
		for _, path := range step.Outputs {
			if err := artifact.Remove(path); err != nil {
				failure.Message = strings.TrimSpace(failure.Message + "; " + err.Error())
			}
		}
		out.Failures = append(out.Failures, failure)
	}

	switch {
	case len(out.Failures) > 0:
		out.Kind = models.OutcomeFailure
		out.Type = models.ErrExternalOperationFailure
		if ctx.Err() != nil {
			out.Type = models.ErrInterrupted
		}
		names := make([]string, len(out.Failures))
		for i, f := range out.Failures {
			names[i] = f.Step
		}
		out.Reason = "failed: " + strings.Join(names, ", ")
	case len(ran) == 0 && len(existing) > 0:
		out.Kind = models.OutcomeAlreadyExists
		out.Type = models.ErrAlreadyExists
		out.Reason = fmt.Sprintf("%s already exists", strings.Join(existing, ", "))
	default:
		out.Kind = models.OutcomeSuccess
		out.Reason = "done"
		if len(existing) > 0 {
			out.Reason = fmt.Sprintf("done (%s already existed)", strings.Join(existing, ", "))
		}
	}
	return out
}

func firstExisting(paths []string) (string, bool) {
	for _, p := range paths {
		if artifact.Exists(p) {
			return p, true
		}
	}
	return "", false
}

func interrupted(out models.Outcome) models.Outcome {
	out.Kind = models.OutcomeFailure
	out.Type = models.ErrInterrupted
	out.Reason = "interrupted before start"
	return out
}
