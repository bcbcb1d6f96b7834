package runner

import (
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/tclemos/map-bench/benchmark"
	"github.com/tclemos/map-bench/dataset"
	"github.com/tclemos/map-bench/engine"
	"gopkg.in/yaml.v3"
)

// DefaultPointCount is the dataset size when none is given
const DefaultPointCount = 10000

// Config defines the benchmark parameters passed from CLI
type Config struct {
	Libraries     []string // libraries to benchmark, in run order
	PointCount    int      // dataset points handed to every map, 0..dataset.MaxPoints
	Seed          int64    // RNG seed of the synthetic dataset
	DatasetSource string   // optional GeoJSON file or URL, synthetic when empty
	BenchmarkID   string   // optional label stored in every record
	LogFormat     string   // "json" or "console", default is "console"
	LogLevel      string   // zerolog level name, default is "info"

	// Results persistence
	StoreType      string // "pebble", "remote", "memory" or "none"
	StorePath      string // pebble directory
	BlockCacheSize int64  // in bytes, negative means disabled
	ResultsURL     string // results server for the remote store
	CSVPath        string // optional CSV export of the session

	// Timing
	ActionTimeout     time.Duration // per-action completion deadline
	RunTimeout        time.Duration // ceiling for one library run
	FPSWindow         time.Duration // throughput sampling window
	SettleDelay       time.Duration // pause between map init and measurement
	LoadRepeats       int           // data load cycles averaged per run
	RefreshRate       int           // frame scheduler rate in Hz
	AnimationDuration time.Duration // duration of every scripted transition

	// Scoring
	Policy  string            // "reciprocal" or "linear-penalty"
	Weights benchmark.Weights // non-negative metric weights

	StatsviewAddr string    // runtime stats server address, empty disables it
	Out           io.Writer // results table destination, stdout when nil
}

// DefaultConfig returns the configuration used when no flag is given
func DefaultConfig() Config {
	return Config{
		Libraries:         engine.Names(),
		PointCount:        DefaultPointCount,
		Seed:              42,
		BenchmarkID:       "default",
		LogFormat:         "console",
		LogLevel:          "info",
		StoreType:         "pebble",
		StorePath:         "results/pebble",
		BlockCacheSize:    8 << 20,
		ActionTimeout:     benchmark.DefaultActionTimeout,
		RunTimeout:        benchmark.DefaultRunTimeout,
		FPSWindow:         benchmark.DefaultFPSWindow,
		SettleDelay:       benchmark.DefaultSettleDelay,
		LoadRepeats:       1,
		RefreshRate:       engine.DefaultRefreshRate,
		AnimationDuration: engine.DefaultAnimationDuration,
		Policy:            string(benchmark.PolicyReciprocal),
		Weights:           benchmark.DefaultWeights,
	}
}

// Validate checks the library selection, point count and weights
func (cfg Config) Validate() error {
	if len(cfg.Libraries) == 0 {
		return errors.Wrap(benchmark.ErrInvalidConfig, "select at least one library")
	}
	for _, name := range cfg.Libraries {
		if _, err := engine.Adapter(name, 0); err != nil {
			return err
		}
	}
	if cfg.PointCount < 0 || cfg.PointCount > dataset.MaxPoints {
		return errors.Wrapf(benchmark.ErrInvalidConfig,
			"point count must be an integer from 0 to %d, got %d", dataset.MaxPoints, cfg.PointCount)
	}
	if err := cfg.Weights.Validate(); err != nil {
		return err
	}
	if _, err := benchmark.NewPolicy(benchmark.PolicyType(cfg.Policy)); err != nil {
		return err
	}
	return nil
}

// ValidatePointCount parses a point count as typed by a user. Only plain
// integers from 0 to dataset.MaxPoints are accepted, so "1.5" and "1,000"
// are rejected rather than truncated.
func ValidatePointCount(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if strings.ContainsAny(raw, ".,") {
		return 0, errors.Wrapf(benchmark.ErrInvalidConfig, "point count %q is not an integer", raw)
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.Wrapf(benchmark.ErrInvalidConfig, "point count %q is not an integer", raw)
	}
	if n < 0 || n > dataset.MaxPoints {
		return 0, errors.Wrapf(benchmark.ErrInvalidConfig,
			"point count must be from 0 to %d, got %d", dataset.MaxPoints, n)
	}
	return n, nil
}

// Selection is the library choice and dataset size of a benchmark page query
type Selection struct {
	Libraries []string
	Points    int
	HasPoints bool
}

// ParseQuery reads a query such as "ol=true&ml=false&deck=true&lf=false&points=5000".
// Libraries are returned in their default run order.
func ParseQuery(raw string) (Selection, error) {
	values, err := url.ParseQuery(strings.TrimPrefix(raw, "?"))
	if err != nil {
		return Selection{}, errors.Wrapf(benchmark.ErrInvalidConfig, "query: %v", err)
	}

	var sel Selection
	selected := make(map[string]bool)
	for key, name := range engine.QueryKeys {
		if values.Get(key) == "true" {
			selected[name] = true
		}
	}
	for _, name := range engine.Names() {
		if selected[name] {
			sel.Libraries = append(sel.Libraries, name)
		}
	}
	if len(sel.Libraries) == 0 {
		return Selection{}, errors.Wrap(benchmark.ErrInvalidConfig, "select at least one library")
	}

	if values.Has("points") {
		if sel.Points, err = ValidatePointCount(values.Get("points")); err != nil {
			return Selection{}, err
		}
		sel.HasPoints = true
	}
	return sel, nil
}

// FileConfig is the optional YAML configuration file
type FileConfig struct {
	Libraries     []string           `yaml:"libraries"`
	Points        *int               `yaml:"points,omitempty"`
	Dataset       string             `yaml:"dataset"`
	Policy        string             `yaml:"policy"`
	Weights       *benchmark.Weights `yaml:"weights,omitempty"`
	ActionTimeout time.Duration      `yaml:"actionTimeout"`
	RunTimeout    time.Duration      `yaml:"runTimeout"`
	FPSWindow     time.Duration      `yaml:"fpsWindow"`
	SettleDelay   time.Duration      `yaml:"settleDelay"`
	LoadRepeats   int                `yaml:"loadRepeats"`
	RefreshRate   int                `yaml:"refreshRate"`
}

// LoadFileConfig reads and parses a YAML configuration file
func LoadFileConfig(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading config file")
	}

	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "parsing config file"), benchmark.ErrInvalidConfig)
	}
	return &fc, nil
}

// Apply fills the fields of cfg the file sets, unless the matching command
// line flag was given. changed reports whether a flag was set explicitly.
func (fc *FileConfig) Apply(cfg *Config, changed func(flag string) bool) {
	if changed == nil {
		changed = func(string) bool { return false }
	}
	if len(fc.Libraries) > 0 && !changed("libraries") && !changed("query") {
		cfg.Libraries = fc.Libraries
	}
	if fc.Points != nil && !changed("points") && !changed("query") {
		cfg.PointCount = *fc.Points
	}
	if fc.Dataset != "" && !changed("dataset") {
		cfg.DatasetSource = fc.Dataset
	}
	if fc.Policy != "" && !changed("policy") {
		cfg.Policy = fc.Policy
	}
	if fc.Weights != nil {
		cfg.Weights = *fc.Weights
	}
	if fc.ActionTimeout > 0 && !changed("action-timeout") {
		cfg.ActionTimeout = fc.ActionTimeout
	}
	if fc.RunTimeout > 0 && !changed("run-timeout") {
		cfg.RunTimeout = fc.RunTimeout
	}
	if fc.FPSWindow > 0 && !changed("fps-window") {
		cfg.FPSWindow = fc.FPSWindow
	}
	if fc.SettleDelay > 0 && !changed("settle") {
		cfg.SettleDelay = fc.SettleDelay
	}
	if fc.LoadRepeats > 0 && !changed("load-repeats") {
		cfg.LoadRepeats = fc.LoadRepeats
	}
	if fc.RefreshRate > 0 && !changed("refresh-rate") {
		cfg.RefreshRate = fc.RefreshRate
	}
}
