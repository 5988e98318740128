package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lukashuebner/tugboat/internal/models"
)

// DefaultPath is the config file looked up when --config is not given.
const DefaultPath = "tugboat.yaml"

const (
	defaultIterations       = 10
	defaultWarmupIterations = 1
)

// fileConfig adds keys that are only accepted for compatibility.
type fileConfig struct {
	models.Config `yaml:",inline"`

	// DatasetsCSV replaces the path of the empirical source when no
	// sources list is given.
	DatasetsCSV string `yaml:"datasets_csv,omitempty" toml:"datasets_csv,omitempty"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() models.Config {
	dataDir := "data"
	measurementsDir := filepath.Join("experiments", "measurements")
	scriptsDir := filepath.Join("experiments", "scripts")
	plotsDir := filepath.Join("experiments", "plots")

	return models.Config{
		DataDir:         dataDir,
		MeasurementsDir: measurementsDir,
		ScriptsDir:      scriptsDir,
		PlotsDir:        plotsDir,
		Sources: []models.SourceRef{
			{Kind: models.SourceEmpirical, Path: filepath.Join(dataDir, "empirical-datasets.csv")},
			{Kind: models.SourceSimulated, Path: filepath.Join(dataDir, "scaling-datasets.csv"), Collection: "scaling", Prefix: "scaling-"},
		},
		Iterations:       defaultIterations,
		WarmupIterations: defaultWarmupIterations,
		LogLevel:         "info",
		Workers: models.WorkerConfig{
			Simulate:   1,
			Download:   2,
			Decompress: 4,
			Convert:    1,
			Benchmark:  1,
		},
		Tools: models.ToolConfig{
			SfkitBin:              filepath.Join("build", "release", "benchmarks", "sfkit-bench"),
			Python:                "python3",
			PythonOnlyBenchScript: filepath.Join(scriptsDir, "benchmark-tskits-python-only-funcs.py"),
			Tsunzip:               "tsunzip",
			SimulateScript:        filepath.Join(dataDir, "simulate-scaling-datasets.py"),
			Rscript:               "Rscript",
			PlotBenchScript:       filepath.Join(scriptsDir, "plot-sfkit-vs-tskit-bench.R"),
			ExtractTreeStats:      filepath.Join(scriptsDir, "extract-trees-files-stats.py"),
			PlotTreeStatsScript:   filepath.Join(scriptsDir, "plot-trees-files-stats.R"),
			Cmake:                 "cmake",
			Ctest:                 "ctest",
		},
		Outputs: models.OutputConfig{
			Collected:       filepath.Join(measurementsDir, "sfkit-vs-tskit-bench.csv"),
			TreeStats:       filepath.Join(measurementsDir, "trees-files-stats.csv"),
			BenchPlot:       filepath.Join(plotsDir, "sfkit-vs-tskit-bench.pdf"),
			TreeStatsPrefix: filepath.Join(plotsDir, "trees-files-stats-"),
		},
	}
}

// Load loads a configuration file, choosing the decoder by extension.
// When path is DefaultPath and the file does not exist, the defaults are
// returned.
func Load(path string) (models.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && path == DefaultPath {
			cfg := DefaultConfig()
			applyEnv(&cfg)
			return cfg, nil
		}
		return DefaultConfig(), fmt.Errorf("reading config: %w", err)
	}

	var cfg models.Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		cfg, err = decodeTOML(data)
	case ".yaml", ".yml", "":
		cfg, err = decodeYAML(data)
	default:
		return DefaultConfig(), fmt.Errorf("unsupported config format: %s", path)
	}
	if err != nil {
		return cfg, err
	}

	applyDefaults(&cfg)
	applyEnv(&cfg)
	return cfg, nil
}

func decodeYAML(data []byte) (models.Config, error) {
	fc := fileConfig{Config: DefaultConfig()}
	fc.Sources = nil
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc.Config, fmt.Errorf("parsing config: %w", err)
	}

	if fc.Sources == nil {
		fc.Sources = DefaultConfig().Sources
		if fc.DatasetsCSV != "" {
			useLegacyDatasetsCSV(&fc.Config, fc.DatasetsCSV)
		}
	}
	return fc.Config, nil
}

func useLegacyDatasetsCSV(cfg *models.Config, path string) {
	for i := range cfg.Sources {
		if cfg.Sources[i].Kind == models.SourceEmpirical {
			cfg.Sources[i].Path = path
		}
	}
}

// applyDefaults fills zero values left by a partial config file.
func applyDefaults(cfg *models.Config) {
	def := DefaultConfig()
	if cfg.DataDir == "" {
		cfg.DataDir = def.DataDir
	}
	if cfg.MeasurementsDir == "" {
		cfg.MeasurementsDir = def.MeasurementsDir
	}
	if cfg.ScriptsDir == "" {
		cfg.ScriptsDir = def.ScriptsDir
	}
	if cfg.PlotsDir == "" {
		cfg.PlotsDir = def.PlotsDir
	}
	if cfg.Iterations == 0 {
		cfg.Iterations = def.Iterations
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = def.LogLevel
	}
	for i := range cfg.Sources {
		src := &cfg.Sources[i]
		if src.Kind == models.SourceSimulated && src.Collection == "" {
			src.Collection = "simulated"
		}
	}

	t, dt := &cfg.Tools, def.Tools
	fill := func(dst *string, v string) {
		if *dst == "" {
			*dst = v
		}
	}
	fill(&t.SfkitBin, dt.SfkitBin)
	fill(&t.Python, dt.Python)
	fill(&t.PythonOnlyBenchScript, dt.PythonOnlyBenchScript)
	fill(&t.Tsunzip, dt.Tsunzip)
	fill(&t.SimulateScript, dt.SimulateScript)
	fill(&t.Rscript, dt.Rscript)
	fill(&t.PlotBenchScript, dt.PlotBenchScript)
	fill(&t.ExtractTreeStats, dt.ExtractTreeStats)
	fill(&t.PlotTreeStatsScript, dt.PlotTreeStatsScript)
	fill(&t.Cmake, dt.Cmake)
	fill(&t.Ctest, dt.Ctest)

	o, do := &cfg.Outputs, def.Outputs
	fill(&o.Collected, do.Collected)
	fill(&o.TreeStats, do.TreeStats)
	fill(&o.BenchPlot, do.BenchPlot)
	fill(&o.TreeStatsPrefix, do.TreeStatsPrefix)
}

// Validate checks the values a stage invocation depends on.
func Validate(cfg models.Config) error {
	if cfg.Iterations < 1 {
		return fmt.Errorf("iterations must be at least 1, got %d", cfg.Iterations)
	}
	if cfg.WarmupIterations < 0 {
		return fmt.Errorf("warmup_iterations must not be negative, got %d", cfg.WarmupIterations)
	}
	w := cfg.Workers
	for name, n := range map[string]int{
		"simulate": w.Simulate, "download": w.Download, "decompress": w.Decompress,
		"convert": w.Convert, "benchmark": w.Benchmark,
	} {
		if n < 0 {
			return fmt.Errorf("workers.%s must not be negative, got %d", name, n)
		}
	}
	if len(cfg.Sources) == 0 {
		return fmt.Errorf("no dataset sources configured")
	}
	for i, src := range cfg.Sources {
		if src.Path == "" {
			return fmt.Errorf("sources[%d]: path is required", i)
		}
		switch src.Kind {
		case models.SourceEmpirical, models.SourceSimulated:
		default:
			return fmt.Errorf("sources[%d]: unknown kind %q", i, src.Kind)
		}
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", cfg.LogLevel)
	}
	return nil
}
