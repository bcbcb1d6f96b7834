// Package runner wires datasets, simulated map engines, the benchmark
// session and the result stores into the command line workflows.
package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tclemos/map-bench/benchmark"
	"github.com/tclemos/map-bench/dataset"
	"github.com/tclemos/map-bench/engine"
	"github.com/tclemos/map-bench/report"
	"github.com/tclemos/map-bench/store"
)

// StoreNone disables result persistence
const StoreNone = "none"

// RunBenchmark orchestrates the full benchmark lifecycle and returns the
// record of every selected library, failed runs included.
func RunBenchmark(ctx context.Context, cfg Config) ([]benchmark.ResultRecord, error) {
	setupLog(cfg)
	initialLog(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	policy, err := benchmark.NewPolicy(benchmark.PolicyType(cfg.Policy))
	if err != nil {
		return nil, err
	}

	if cfg.StatsviewAddr != "" {
		stop := launchStatsview(cfg.StatsviewAddr)
		defer stop()
	}

	src, err := newSource(cfg)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	points, err := src.points(ctx)
	digest := ""
	pointCount := cfg.PointCount
	if err != nil {
		// every library records the failure when it loads the dataset
		log.Error().Err(err).Str("dataset", src.name()).Msg("Dataset unavailable")
	} else {
		digest = dataset.Digest(points)
		pointCount = len(points)
		log.Info().
			Str("dataset", src.name()).
			Int("points", len(points)).
			Str("digest", digest).
			Msg("Dataset ready")
	}

	sched := engine.NewScheduler(cfg.RefreshRate)
	sched.Start(ctx)
	defer sched.Stop()

	libs, err := engine.Libraries(engine.Options{
		Scheduler:         sched,
		Points:            src.points,
		AnimationDuration: cfg.AnimationDuration,
	}, cfg.Libraries...)
	if err != nil {
		return nil, err
	}

	session := benchmark.NewSession(libs...)
	session.BenchmarkID = cfg.BenchmarkID
	session.Weights = cfg.Weights
	session.Policy = policy
	session.Frames = sched
	session.Load = src.load
	session.PointCount = pointCount
	session.DatasetDigest = digest
	session.Options = benchmark.Options{
		Target:        benchmark.DefaultTarget,
		ActionTimeout: cfg.ActionTimeout,
		RunTimeout:    cfg.RunTimeout,
		FPSWindow:     cfg.FPSWindow,
		SettleDelay:   cfg.SettleDelay,
		LoadRepeats:   cfg.LoadRepeats,
	}

	records := session.RunAll(ctx, cfg.Libraries)

	fmt.Fprintln(output(cfg), report.Table(report.Rank(records, policy)))

	persist(ctx, cfg, records)
	exportCSV(cfg.CSVPath, records)

	log.Info().
		Str("benchmark_id", cfg.BenchmarkID).
		Str("session", session.ID).
		Int("libraries", len(records)).
		Msg("Benchmark complete")
	return records, nil
}

func initialLog(cfg Config) {
	blockCacheInfo := "disabled"
	if cfg.BlockCacheSize >= 0 {
		blockCacheInfo = fmt.Sprintf("enabled, size: %d bytes", uint64(cfg.BlockCacheSize))
	}

	datasetSource := cfg.DatasetSource
	if datasetSource == "" {
		datasetSource = "synthetic"
	}

	log.Info().
		Str("benchmark_id", cfg.BenchmarkID).
		Strs("libraries", cfg.Libraries).
		Int("point_count", cfg.PointCount).
		Int64("seed", cfg.Seed).
		Str("dataset", datasetSource).
		Str("store", cfg.StoreType).
		Str("block_cache", blockCacheInfo).
		Str("policy", cfg.Policy).
		Dur("action_timeout", cfg.ActionTimeout).
		Dur("run_timeout", cfg.RunTimeout).
		Dur("fps_window", cfg.FPSWindow).
		Int("refresh_rate", cfg.RefreshRate).
		Msg("Starting benchmark")
}

func setupLog(cfg Config) {
	if strings.ToLower(cfg.LogFormat) == "json" {
		zerolog.TimeFieldFormat = time.RFC3339Nano
		log.Logger = log.Output(os.Stdout)
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"})
	}

	level := zerolog.InfoLevel
	if cfg.LogLevel != "" {
		if l, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel)); err == nil {
			level = l
		} else {
			log.Warn().Str("level", cfg.LogLevel).Msg("Unknown log level, using info")
		}
	}
	zerolog.SetGlobalLevel(level)
}

func createStore(cfg Config) (store.Backend, error) {
	return store.New(store.Config{
		Type:           store.Type(cfg.StoreType),
		Path:           cfg.StorePath,
		BlockCacheSize: cfg.BlockCacheSize,
		URL:            cfg.ResultsURL,
	})
}

// persist appends the session records. A failing store only degrades
// history, the results have been displayed already.
func persist(ctx context.Context, cfg Config, records []benchmark.ResultRecord) {
	if cfg.StoreType == StoreNone || len(records) == 0 {
		return
	}

	st, err := createStore(cfg)
	if err != nil {
		log.Warn().Err(err).Str("store", cfg.StoreType).Msg("Results not persisted")
		return
	}
	defer st.Close()

	if err := st.Append(ctx, records); err != nil {
		log.Warn().
			Err(err).
			Str("store", cfg.StoreType).
			Str("kind", benchmark.Kind(err)).
			Msg("Results not persisted")
		return
	}
	log.Info().Int("records", len(records)).Str("store", cfg.StoreType).Msg("Results persisted")
}

func exportCSV(path string, records []benchmark.ResultRecord) {
	if path == "" {
		return
	}
	err := report.ExportCSV(path, records)
	switch {
	case errors.Is(err, report.ErrNoResults):
		log.Warn().Msg("No results to export")
	case err != nil:
		log.Error().Err(err).Str("path", path).Msg("CSV export failed")
	default:
		log.Info().Str("path", path).Msg("Results exported")
	}
}

func launchStatsview(addr string) (stop func()) {
	viewer.SetConfiguration(viewer.WithAddr(addr))
	mgr := statsview.New()
	go mgr.Start()
	log.Info().Str("url", "http://"+addr+"/debug/statsview").Msg("Runtime stats available")
	return mgr.Stop
}

func output(cfg Config) io.Writer {
	if cfg.Out == nil {
		return os.Stdout
	}
	return cfg.Out
}

// source provides the benchmark dataset. Synthetic data is written to a
// temporary GeoJSON file once, so every load cycle reads and parses it from
// disk like a user supplied file.
type source struct {
	src       string
	count     int
	seed      int64
	synthetic bool
	tmpDir    string
}

func newSource(cfg Config) (*source, error) {
	s := &source{src: cfg.DatasetSource, count: cfg.PointCount, seed: cfg.Seed}
	if s.src != "" {
		return s, nil
	}

	dir, err := os.MkdirTemp("", "mapbench-dataset-")
	if err != nil {
		return nil, errors.Wrap(err, "creating dataset directory")
	}
	path := filepath.Join(dir, fmt.Sprintf("synthetic-%d-%d.geojson", s.seed, s.count))
	if err := writeGeoJSONFile(path, dataset.Generate(s.seed, s.count)); err != nil {
		os.RemoveAll(dir)
		return nil, err
	}

	s.src = path
	s.synthetic = true
	s.tmpDir = dir
	return s, nil
}

func (s *source) name() string {
	if s.synthetic {
		return fmt.Sprintf("synthetic(seed=%d)", s.seed)
	}
	return s.src
}

func (s *source) fetch(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return dataset.Fetch(ctx, s.src)
}

// points fetches, parses and subsamples the dataset
func (s *source) points(ctx context.Context) ([]dataset.Point, error) {
	data, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}
	points, err := dataset.Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %s", s.name())
	}
	return dataset.Subsample(points, s.count), nil
}

// load is the measured data load cycle
func (s *source) load(ctx context.Context) error {
	_, err := s.points(ctx)
	return err
}

// Close removes the generated synthetic dataset
func (s *source) Close() error {
	if s.tmpDir == "" {
		return nil
	}
	return os.RemoveAll(s.tmpDir)
}
