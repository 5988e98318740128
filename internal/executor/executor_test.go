package executor_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lukashuebner/tugboat/internal/config"
	"github.com/lukashuebner/tugboat/internal/executor"
	"github.com/lukashuebner/tugboat/internal/models"
	"github.com/lukashuebner/tugboat/internal/shell"
)

// fakeRunner writes a line to every output an external operation would
// produce and fails commands matched by fail.
type fakeRunner struct {
	mu    sync.Mutex
	calls []shell.Command
	fail  func(cmd shell.Command) bool
}

func (r *fakeRunner) Run(_ context.Context, cmd shell.Command) shell.Result {
	r.mu.Lock()
	r.calls = append(r.calls, cmd)
	r.mu.Unlock()

	outputs := []string{}
	if cmd.Stdout != "" {
		outputs = append(outputs, cmd.Stdout)
	}
	for _, a := range cmd.Args {
		for _, flag := range []string{"--forest-file=", "--output="} {
			if strings.HasPrefix(a, flag) && !(flag == "--forest-file=" && cmd.Args[0] == "benchmark") {
				outputs = append(outputs, strings.TrimPrefix(a, flag))
			}
		}
	}
	for _, p := range outputs {
		os.MkdirAll(filepath.Dir(p), 0755)
		os.WriteFile(p, []byte("partial\n"), 0644)
	}

	res := shell.Result{CommandLine: cmd.String()}
	if r.fail != nil && r.fail(cmd) {
		res.ExitCode = 1
		res.Stdout = "some output"
		res.Stderr = "boom"
	}
	return res
}

func (r *fakeRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

type fakeFetcher struct {
	calls atomic.Int32
	fail  bool
}

func (f *fakeFetcher) Fetch(_ context.Context, src, dest string) error {
	f.calls.Add(1)
	if f.fail {
		return errors.New("connection refused")
	}
	os.MkdirAll(filepath.Dir(dest), 0755)
	return os.WriteFile(dest, []byte("archive of "+src), 0644)
}

func setup(t *testing.T) (*executor.Deps, *fakeRunner, *fakeFetcher) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.DataDir = filepath.Join(dir, "data")
	cfg.MeasurementsDir = filepath.Join(dir, "measurements")
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		t.Fatal(err)
	}

	runner := &fakeRunner{}
	fetcher := &fakeFetcher{}
	return &executor.Deps{
		Config:   cfg,
		Runner:   runner,
		Fetcher:  fetcher,
		Revision: "abc123",
		Machine:  "bench-01",
	}, runner, fetcher
}

func empirical(t *testing.T, d *executor.Deps, basename string) models.Dataset {
	t.Helper()
	ds, err := models.NewEmpiricalDataset(d.Config.Layout(), "1kg", "1", basename, "https://example.org/"+basename+".tsz")
	if err != nil {
		t.Fatal(err)
	}
	return ds
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("data\n"), 0644); err != nil {
		t.Fatal(err)
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func runOne(t *testing.T, d *executor.Deps, name models.StageName, ds models.Dataset, redo bool) models.Outcome {
	t.Helper()
	outcomes, err := executor.RunStage(context.Background(), d, name, []models.Dataset{ds}, executor.RunOptions{Redo: redo})
	if err != nil {
		t.Fatalf("RunStage failed: %v", err)
	}
	if len(outcomes) != 1 {
		t.Fatalf("expected 1 outcome, got %d", len(outcomes))
	}
	return outcomes[0]
}

func TestDownloadThenDecompress(t *testing.T) {
	d, runner, fetcher := setup(t)
	chr1 := empirical(t, d, "chr1")
	chr2 := empirical(t, d, "chr2")

	out := runOne(t, d, models.StageDownload, chr1, false)
	if out.Kind != models.OutcomeSuccess {
		t.Fatalf("expected success, got %s: %s", out.Kind, out.Reason)
	}
	if !exists(chr1.ArchiveFile()) {
		t.Fatalf("%s was not created", chr1.ArchiveFile())
	}

	out = runOne(t, d, models.StageDownload, chr1, false)
	if out.Kind != models.OutcomeAlreadyExists {
		t.Errorf("expected %s on second run, got %s", models.OutcomeAlreadyExists, out.Kind)
	}
	if out.Severity() != models.SeverityWarning {
		t.Errorf("already-exists must be a warning")
	}
	if fetcher.calls.Load() != 1 {
		t.Errorf("expected 1 fetch, got %d", fetcher.calls.Load())
	}

	out = runOne(t, d, models.StageDecompress, chr2, false)
	if out.Kind != models.OutcomePreconditionMissing {
		t.Errorf("expected %s, got %s", models.OutcomePreconditionMissing, out.Kind)
	}
	if !strings.Contains(out.Reason, chr2.ArchiveFile()) {
		t.Errorf("reason should name the missing input, got %q", out.Reason)
	}
	if runner.count() != 0 {
		t.Errorf("decompress must not run without its input, got %d calls", runner.count())
	}

	out = runOne(t, d, models.StageDecompress, chr1, false)
	if out.Kind != models.OutcomeSuccess {
		t.Fatalf("expected success, got %s: %s", out.Kind, out.Reason)
	}
	cmd := runner.calls[0]
	if cmd.Path != "tsunzip" || cmd.Stdout != chr1.TreesFile() {
		t.Errorf("unexpected decompress command %s", cmd)
	}
}

func TestIdempotence(t *testing.T) {
	d, runner, _ := setup(t)
	ds := empirical(t, d, "chr1")
	for _, p := range []string{
		ds.ArchiveFile(), ds.TreesFile(), ds.ForestFile(),
		ds.ResultFile(models.ResultConversionBench),
		ds.ResultFile(models.ResultOpsBench),
		ds.ResultFile(models.ResultTajimasDBench),
	} {
		touch(t, p)
	}

	for _, stage := range []models.StageName{models.StageDecompress, models.StageConvert, models.StageBenchmark} {
		t.Run(string(stage), func(t *testing.T) {
			out := runOne(t, d, stage, ds, false)
			if out.Kind != models.OutcomeAlreadyExists {
				t.Errorf("expected %s, got %s: %s", models.OutcomeAlreadyExists, out.Kind, out.Reason)
			}
		})
	}

	if runner.count() != 0 {
		t.Errorf("no external operation may run when outputs exist, got %d", runner.count())
	}
}

func TestEmptyOutputStillCountsAsExisting(t *testing.T) {
	d, runner, _ := setup(t)
	ds := empirical(t, d, "chr1")
	touch(t, ds.ArchiveFile())
	if err := os.WriteFile(ds.TreesFile(), nil, 0644); err != nil {
		t.Fatal(err)
	}

	if out := runOne(t, d, models.StageDecompress, ds, false); out.Kind != models.OutcomeAlreadyExists {
		t.Errorf("expected %s, got %s", models.OutcomeAlreadyExists, out.Kind)
	}
	if runner.count() != 0 {
		t.Errorf("expected no calls, got %d", runner.count())
	}
}

func TestPreconditionIgnoresRedo(t *testing.T) {
	d, runner, _ := setup(t)
	ds := empirical(t, d, "chr1")
	touch(t, ds.TreesFile())

	tests := []struct {
		name  string
		stage models.StageName
	}{
		{name: "decompress without archive", stage: models.StageDecompress},
		{name: "benchmark without forest", stage: models.StageBenchmark},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := runOne(t, d, tt.stage, ds, true)
			if out.Kind != models.OutcomePreconditionMissing {
				t.Errorf("expected %s, got %s", models.OutcomePreconditionMissing, out.Kind)
			}
		})
	}

	if runner.count() != 0 {
		t.Errorf("expected no calls, got %d", runner.count())
	}
}

func TestEmptyInputIsMissing(t *testing.T) {
	d, runner, _ := setup(t)
	ds := empirical(t, d, "chr1")
	if err := os.WriteFile(ds.ArchiveFile(), nil, 0644); err != nil {
		t.Fatal(err)
	}

	if out := runOne(t, d, models.StageDecompress, ds, false); out.Kind != models.OutcomePreconditionMissing {
		t.Errorf("expected %s for empty input, got %s", models.OutcomePreconditionMissing, out.Kind)
	}
	if runner.count() != 0 {
		t.Errorf("expected no calls, got %d", runner.count())
	}
}

func TestRedoRunsAgain(t *testing.T) {
	d, runner, _ := setup(t)
	ds := empirical(t, d, "chr1")
	touch(t, ds.ArchiveFile())
	touch(t, ds.TreesFile())

	if out := runOne(t, d, models.StageDecompress, ds, true); out.Kind != models.OutcomeSuccess {
		t.Errorf("expected success with redo, got %s", out.Kind)
	}
	if runner.count() != 1 {
		t.Errorf("expected 1 call, got %d", runner.count())
	}
}

func TestFailureRemovesPartialOutput(t *testing.T) {
	d, runner, _ := setup(t)
	runner.fail = func(shell.Command) bool { return true }
	ds := empirical(t, d, "chr1")
	touch(t, ds.ArchiveFile())

	out := runOne(t, d, models.StageDecompress, ds, false)
	if out.Kind != models.OutcomeFailure || out.Type != models.ErrExternalOperationFailure {
		t.Fatalf("expected external operation failure, got %s/%s", out.Kind, out.Type)
	}
	if exists(ds.TreesFile()) {
		t.Error("partial output was not removed")
	}

	if len(out.Failures) != 1 {
		t.Fatalf("expected 1 step failure, got %d", len(out.Failures))
	}
	f := out.Failures[0]
	if f.ExitCode != 1 || f.Stderr != "boom" || f.Stdout != "some output" {
		t.Errorf("diagnostics not captured: %+v", f)
	}
	if !strings.Contains(f.CommandLine, "tsunzip --decompress") {
		t.Errorf("command line not captured: %q", f.CommandLine)
	}
}

func TestDownloadFailure(t *testing.T) {
	d, _, fetcher := setup(t)
	fetcher.fail = true
	ds := empirical(t, d, "chr1")

	out := runOne(t, d, models.StageDownload, ds, false)
	if out.Kind != models.OutcomeFailure {
		t.Fatalf("expected failure, got %s", out.Kind)
	}
	if !strings.Contains(out.Failures[0].Message, "connection refused") {
		t.Errorf("expected fetch error in diagnostics, got %+v", out.Failures[0])
	}
}

func TestBenchmarkPerOperationDeletion(t *testing.T) {
	d, runner, _ := setup(t)
	ds := empirical(t, d, "chr1")
	touch(t, ds.TreesFile())
	touch(t, ds.ForestFile())

	primary := func(cmd shell.Command) bool { return cmd.Path == d.Config.Tools.SfkitBin }
	runner.fail = primary

	out := runOne(t, d, models.StageBenchmark, ds, false)
	if out.Kind != models.OutcomeFailure {
		t.Fatalf("expected failure, got %s", out.Kind)
	}
	if runner.count() != 2 {
		t.Errorf("both operations must be attempted, got %d calls", runner.count())
	}
	if exists(ds.ResultFile(models.ResultOpsBench)) {
		t.Error("output of the failed operation was not removed")
	}
	if !exists(ds.ResultFile(models.ResultTajimasDBench)) {
		t.Error("output of the successful operation must be preserved")
	}
	if len(out.Failures) != 1 || out.Failures[0].Step != string(models.ResultOpsBench) {
		t.Errorf("unexpected failures %+v", out.Failures)
	}

	// A rerun only repeats the failed operation.
	runner.fail = nil
	out = runOne(t, d, models.StageBenchmark, ds, false)
	if out.Kind != models.OutcomeSuccess {
		t.Fatalf("expected success, got %s: %s", out.Kind, out.Reason)
	}
	if runner.count() != 3 || runner.calls[2].Path != d.Config.Tools.SfkitBin {
		t.Errorf("expected only the primary benchmark to rerun, calls: %d", runner.count())
	}
}

// cancelRunner writes the stdout target, cancels the invocation and reports
// the operation as killed.
type cancelRunner struct {
	cancel context.CancelFunc
	calls  []shell.Command
}

func (r *cancelRunner) Run(ctx context.Context, cmd shell.Command) shell.Result {
	r.calls = append(r.calls, cmd)
	os.MkdirAll(filepath.Dir(cmd.Stdout), 0755)
	os.WriteFile(cmd.Stdout, []byte("partial\n"), 0644)
	r.cancel()
	return shell.Result{CommandLine: cmd.String(), ExitCode: -1, Err: ctx.Err()}
}

func TestInterruptedStepRemovesOutput(t *testing.T) {
	d, _, _ := setup(t)
	ds := empirical(t, d, "chr1")
	touch(t, ds.TreesFile())
	touch(t, ds.ForestFile())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runner := &cancelRunner{cancel: cancel}
	d.Runner = runner

	outcomes, err := executor.RunStage(ctx, d, models.StageBenchmark, []models.Dataset{ds}, executor.RunOptions{})
	if err != nil {
		t.Fatalf("RunStage failed: %v", err)
	}
	out := outcomes[0]

	if out.Kind != models.OutcomeFailure || out.Type != models.ErrInterrupted {
		t.Fatalf("expected %s/%s, got %s/%s", models.OutcomeFailure, models.ErrInterrupted, out.Kind, out.Type)
	}
	if exists(ds.ResultFile(models.ResultOpsBench)) {
		t.Error("output of the killed operation was not removed")
	}
	if len(runner.calls) != 1 {
		t.Errorf("no operation may start after cancellation, got %d calls", len(runner.calls))
	}
	if exists(ds.ResultFile(models.ResultTajimasDBench)) {
		t.Error("second operation must not produce output")
	}
	if len(out.Failures) != 2 {
		t.Fatalf("expected 2 failures, got %+v", out.Failures)
	}
	second := out.Failures[1]
	if second.Step != string(models.ResultTajimasDBench) || !strings.HasPrefix(second.Message, "not started") {
		t.Errorf("unexpected failure for the second operation: %+v", second)
	}
}

func TestBenchmarkSkipsPerOperation(t *testing.T) {
	d, runner, _ := setup(t)
	ds := empirical(t, d, "chr1")
	touch(t, ds.TreesFile())
	touch(t, ds.ForestFile())
	touch(t, ds.ResultFile(models.ResultOpsBench))

	out := runOne(t, d, models.StageBenchmark, ds, false)
	if out.Kind != models.OutcomeSuccess {
		t.Fatalf("expected success, got %s: %s", out.Kind, out.Reason)
	}
	if runner.count() != 1 || runner.calls[0].Path != d.Config.Tools.Python {
		t.Errorf("only the missing operation may run, calls: %v", runner.calls)
	}
	if !strings.Contains(out.Reason, ds.ResultFile(models.ResultOpsBench)) {
		t.Errorf("reason should name the existing output, got %q", out.Reason)
	}
}

func TestBenchmarkCommands(t *testing.T) {
	d, runner, _ := setup(t)
	d.Config.Iterations = 7
	d.Config.WarmupIterations = 2
	ds := empirical(t, d, "chr1")
	touch(t, ds.TreesFile())
	touch(t, ds.ForestFile())

	runOne(t, d, models.StageBenchmark, ds, false)
	if runner.count() != 2 {
		t.Fatalf("expected 2 calls, got %d", runner.count())
	}

	primary := runner.calls[0].String()
	for _, want := range []string{"benchmark", "--iterations=7", "--warmup-iterations=2", "--revision=abc123", "--machine=bench-01", "> " + ds.ResultFile(models.ResultOpsBench)} {
		if !strings.Contains(primary, want) {
			t.Errorf("primary command %q lacks %q", primary, want)
		}
	}

	secondary := runner.calls[1]
	if secondary.Path != "python3" || secondary.Args[0] != d.Config.Tools.PythonOnlyBenchScript {
		t.Errorf("unexpected secondary command %s", secondary)
	}
	if secondary.Stdout != ds.ResultFile(models.ResultTajimasDBench) {
		t.Errorf("secondary output goes to %s", secondary.Stdout)
	}
}

func TestConvert(t *testing.T) {
	d, runner, _ := setup(t)
	ds := empirical(t, d, "chr1")
	touch(t, ds.TreesFile())

	t.Run("skipped when either output exists", func(t *testing.T) {
		touch(t, ds.ResultFile(models.ResultConversionBench))
		defer os.Remove(ds.ResultFile(models.ResultConversionBench))

		if out := runOne(t, d, models.StageConvert, ds, false); out.Kind != models.OutcomeAlreadyExists {
			t.Errorf("expected %s, got %s", models.OutcomeAlreadyExists, out.Kind)
		}
		if runner.count() != 0 {
			t.Errorf("expected no calls, got %d", runner.count())
		}
	})

	t.Run("failure removes both outputs", func(t *testing.T) {
		runner.fail = func(shell.Command) bool { return true }
		defer func() { runner.fail = nil }()

		if out := runOne(t, d, models.StageConvert, ds, false); out.Kind != models.OutcomeFailure {
			t.Fatalf("expected failure, got %s", out.Kind)
		}
		if exists(ds.ForestFile()) || exists(ds.ResultFile(models.ResultConversionBench)) {
			t.Error("partial outputs were not removed")
		}
	})

	t.Run("success", func(t *testing.T) {
		if out := runOne(t, d, models.StageConvert, ds, false); out.Kind != models.OutcomeSuccess {
			t.Fatalf("expected success, got %s", out.Kind)
		}
		last := runner.calls[len(runner.calls)-1].String()
		for _, want := range []string{"compress", "--iterations=1", "--warmup-iterations=0", "--forest-file=" + ds.ForestFile()} {
			if !strings.Contains(last, want) {
				t.Errorf("convert command %q lacks %q", last, want)
			}
		}
	})
}

func TestSimulate(t *testing.T) {
	d, runner, _ := setup(t)
	sim, err := models.NewSimulatedDataset(d.Config.Layout(), "scaling", "scaling-", "small", []models.SimParam{
		{Name: "pop_size", Value: "10000"},
		{Name: "seed", Value: "42"},
	})
	if err != nil {
		t.Fatal(err)
	}

	out := runOne(t, d, models.StageSimulate, sim, false)
	if out.Kind != models.OutcomeSuccess {
		t.Fatalf("expected success, got %s: %s", out.Kind, out.Reason)
	}
	want := []string{d.Config.Tools.SimulateScript, "--output=" + sim.TreesFile(), "--pop-size=10000", "--seed=42"}
	if !slices.Equal(runner.calls[0].Args, want) {
		t.Errorf("simulate args = %v, want %v", runner.calls[0].Args, want)
	}

	out = runOne(t, d, models.StageSimulate, empirical(t, d, "chr1"), false)
	if out.Kind != models.OutcomePreconditionMissing {
		t.Errorf("empirical datasets cannot be simulated, got %s", out.Kind)
	}

	out = runOne(t, d, models.StageDownload, sim, false)
	if out.Kind != models.OutcomePreconditionMissing {
		t.Errorf("simulated datasets cannot be downloaded, got %s", out.Kind)
	}
}

func TestSecondRunIsNoOp(t *testing.T) {
	d, runner, _ := setup(t)
	var datasets []models.Dataset
	for i := range 5 {
		ds := empirical(t, d, fmt.Sprintf("chr%d", i))
		touch(t, ds.ArchiveFile())
		datasets = append(datasets, ds)
	}

	ctx := context.Background()
	if _, err := executor.RunStage(ctx, d, models.StageDecompress, datasets, executor.RunOptions{}); err != nil {
		t.Fatal(err)
	}

	mtimes := map[string]time.Time{}
	for _, ds := range datasets {
		info, err := os.Stat(ds.TreesFile())
		if err != nil {
			t.Fatalf("missing output: %v", err)
		}
		mtimes[ds.TreesFile()] = info.ModTime()
	}
	calls := runner.count()

	outcomes, err := executor.RunStage(ctx, d, models.StageDecompress, datasets, executor.RunOptions{})
	if err != nil {
		t.Fatal(err)
	}
	for _, o := range outcomes {
		if o.Severity() == models.SeverityError {
			t.Errorf("unexpected error outcome %+v", o)
		}
	}
	if runner.count() != calls {
		t.Errorf("second run invoked %d external operations", runner.count()-calls)
	}
	for path, before := range mtimes {
		info, _ := os.Stat(path)
		if !info.ModTime().Equal(before) {
			t.Errorf("%s was modified by the second run", path)
		}
	}
}

func TestUnknownStage(t *testing.T) {
	d, _, _ := setup(t)
	if _, err := executor.RunStage(context.Background(), d, models.StageCollect, nil, executor.RunOptions{}); err == nil {
		t.Error("collect is not a per-dataset stage")
	}
}
