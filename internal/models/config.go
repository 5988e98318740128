package models

// SourceKind selects the loader for a catalog source.
type SourceKind string

const (
	SourceEmpirical SourceKind = "empirical"
	SourceSimulated SourceKind = "simulated"
)

// Config represents the parsed tugboat.yaml (or tugboat.toml) configuration.
type Config struct {
	DataDir          string            `yaml:"data_dir" toml:"data_dir" json:"data_dir"`
	MeasurementsDir  string            `yaml:"measurements_dir" toml:"measurements_dir" json:"measurements_dir"`
	ScriptsDir       string            `yaml:"scripts_dir" toml:"scripts_dir" json:"scripts_dir"`
	PlotsDir         string            `yaml:"plots_dir" toml:"plots_dir" json:"plots_dir"`
	Sources          []SourceRef       `yaml:"sources" toml:"sources" json:"sources"`
	Iterations       int               `yaml:"iterations" toml:"iterations" json:"iterations"`
	WarmupIterations int               `yaml:"warmup_iterations" toml:"warmup_iterations" json:"warmup_iterations"`
	Revision         string            `yaml:"revision,omitempty" toml:"revision,omitempty" json:"revision,omitempty"`
	Machine          string            `yaml:"machine,omitempty" toml:"machine,omitempty" json:"machine,omitempty"`
	LogLevel         string            `yaml:"log_level,omitempty" toml:"log_level,omitempty" json:"log_level,omitempty"`
	Workers          WorkerConfig      `yaml:"workers" toml:"workers" json:"workers"`
	Tools            ToolConfig        `yaml:"tools" toml:"tools" json:"tools"`
	Outputs          OutputConfig      `yaml:"outputs" toml:"outputs" json:"outputs"`
	ObjectStore      ObjectStoreConfig `yaml:"object_store,omitempty" toml:"object_store,omitempty" json:"object_store,omitempty"`
}

// Layout returns the directories dataset artifact paths are derived from.
func (c Config) Layout() Layout {
	return Layout{DataDir: c.DataDir, MeasurementsDir: c.MeasurementsDir}
}

// SourceRef points at one structured catalog source.
type SourceRef struct {
	Kind SourceKind `yaml:"kind" toml:"kind" json:"kind"`
	Path string     `yaml:"path" toml:"path" json:"path"`
	// Collection and Prefix only apply to simulated sources.
	Collection string `yaml:"collection,omitempty" toml:"collection,omitempty" json:"collection,omitempty"`
	Prefix     string `yaml:"prefix,omitempty" toml:"prefix,omitempty" json:"prefix,omitempty"`
}

// WorkerConfig holds the per-stage worker pool sizes. Zero means 1.
type WorkerConfig struct {
	Simulate   int `yaml:"simulate" toml:"simulate" json:"simulate"`
	Download   int `yaml:"download" toml:"download" json:"download"`
	Decompress int `yaml:"decompress" toml:"decompress" json:"decompress"`
	Convert    int `yaml:"convert" toml:"convert" json:"convert"`
	Benchmark  int `yaml:"benchmark" toml:"benchmark" json:"benchmark"`
}

// For returns the worker count configured for a stage.
func (w WorkerConfig) For(stage StageName) int {
	var n int
	switch stage {
	case StageSimulate:
		n = w.Simulate
	case StageDownload:
		n = w.Download
	case StageDecompress:
		n = w.Decompress
	case StageConvert:
		n = w.Convert
	case StageBenchmark:
		n = w.Benchmark
	}
	if n <= 0 {
		return 1
	}
	return n
}

// ToolConfig locates the external executables and scripts.
type ToolConfig struct {
	SfkitBin              string `yaml:"sfkit_bin" toml:"sfkit_bin" json:"sfkit_bin"`
	Python                string `yaml:"python" toml:"python" json:"python"`
	PythonOnlyBenchScript string `yaml:"python_only_bench_script" toml:"python_only_bench_script" json:"python_only_bench_script"`
	Tsunzip               string `yaml:"tsunzip" toml:"tsunzip" json:"tsunzip"`
	SimulateScript        string `yaml:"simulate_script" toml:"simulate_script" json:"simulate_script"`
	Rscript               string `yaml:"rscript" toml:"rscript" json:"rscript"`
	PlotBenchScript       string `yaml:"plot_bench_script" toml:"plot_bench_script" json:"plot_bench_script"`
	ExtractTreeStats      string `yaml:"extract_tree_stats_script" toml:"extract_tree_stats_script" json:"extract_tree_stats_script"`
	PlotTreeStatsScript   string `yaml:"plot_tree_stats_script" toml:"plot_tree_stats_script" json:"plot_tree_stats_script"`
	Cmake                 string `yaml:"cmake" toml:"cmake" json:"cmake"`
	Ctest                 string `yaml:"ctest" toml:"ctest" json:"ctest"`
}

// OutputConfig names the combined output files.
type OutputConfig struct {
	Collected       string `yaml:"collected" toml:"collected" json:"collected"`
	TreeStats       string `yaml:"tree_stats" toml:"tree_stats" json:"tree_stats"`
	BenchPlot       string `yaml:"bench_plot" toml:"bench_plot" json:"bench_plot"`
	TreeStatsPrefix string `yaml:"tree_stats_plot_prefix" toml:"tree_stats_plot_prefix" json:"tree_stats_plot_prefix"`
}

// ObjectStoreConfig configures acquisition from s3:// source URLs.
type ObjectStoreConfig struct {
	Endpoint  string `yaml:"endpoint,omitempty" toml:"endpoint,omitempty" json:"endpoint,omitempty"`
	Region    string `yaml:"region,omitempty" toml:"region,omitempty" json:"region,omitempty"`
	AccessKey string `yaml:"access_key,omitempty" toml:"access_key,omitempty" json:"-"`
	SecretKey string `yaml:"secret_key,omitempty" toml:"secret_key,omitempty" json:"-"`
	UseSSL    bool   `yaml:"use_ssl" toml:"use_ssl" json:"use_ssl"`
}
