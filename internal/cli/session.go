package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lukashuebner/tugboat/internal/config"
	"github.com/lukashuebner/tugboat/internal/dataset"
	"github.com/lukashuebner/tugboat/internal/executor"
	"github.com/lukashuebner/tugboat/internal/fetch"
	"github.com/lukashuebner/tugboat/internal/models"
	"github.com/lukashuebner/tugboat/internal/report"
	"github.com/lukashuebner/tugboat/internal/runinfo"
	"github.com/lukashuebner/tugboat/internal/shell"
)

// session is everything one command invocation works with.
type session struct {
	cfg      models.Config
	catalog  *dataset.Catalog
	datasets []models.Dataset
	deps     *executor.Deps
	console  *report.Console
}

// loadConfig reads and validates the configuration and installs the logger.
func (o *options) loadConfig() (models.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return cfg, fmt.Errorf("loading config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	setupLogging(o.stderr, cfg.LogLevel, o.verbose)
	return cfg, nil
}

// open loads the configuration and the catalog. Any failure here is fatal
// for the invocation.
func (o *options) open(ctx context.Context) (*session, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}

	catalog, err := dataset.Load(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("loading dataset catalog: %w", err)
	}
	datasets := catalog.Select(o.collections)
	slog.Debug("catalog loaded", "datasets", catalog.Len(), "selected", len(datasets), "collections", o.collections)

	return &session{
		cfg:      cfg,
		catalog:  catalog,
		datasets: datasets,
		deps:     o.deps(ctx, cfg),
		console:  report.NewConsole(o.stdout),
	}, nil
}

func (o *options) deps(ctx context.Context, cfg models.Config) *executor.Deps {
	revision, machine := o.revision, o.machine
	if revision == "" {
		revision = cfg.Revision
	}
	if machine == "" {
		machine = cfg.Machine
	}

	d := &executor.Deps{Config: cfg}
	if o.dryRun {
		d.Runner = shell.NewDryRunner(o.stdout)
		d.Fetcher = &fetch.DryFetcher{Out: o.stdout}
	} else {
		d.Runner = shell.NewExecRunner()
		d.Fetcher = fetch.New(cfg.ObjectStore)
	}
	d.Revision, d.Machine = runinfo.Resolve(ctx, d.Runner, ".", revision, machine)
	return d
}

// finish renders the summary and maps errors to the exit status.
func (s *session) finish(agg *report.Aggregator) error {
	summary := agg.Summary()
	s.console.Render(summary)
	if summary.Failed() {
		return ErrBatchFailed
	}
	return nil
}
