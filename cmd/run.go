package cmd

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/tclemos/map-bench/benchmark"
	"github.com/tclemos/map-bench/engine"
	"github.com/tclemos/map-bench/runner"
)

var (
	libraries     []string
	query         string
	pointCount    int
	seed          int64
	datasetSource string
	configFile    string
	benchmarkID   string

	// Timing configuration
	actionTimeout     time.Duration
	runTimeout        time.Duration
	fpsWindow         time.Duration
	settleDelay       time.Duration
	loadRepeats       int
	refreshRate       int
	animationDuration time.Duration

	// Scoring configuration
	scorePolicy string

	statsviewAddr string
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the map library benchmark (MapLibreGL, OpenLayers, DeckGL, Leaflet)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := baseConfig()
		cfg.Libraries = libraries
		cfg.PointCount = pointCount
		cfg.Seed = seed
		cfg.DatasetSource = datasetSource
		cfg.BenchmarkID = benchmarkID
		cfg.ActionTimeout = actionTimeout
		cfg.RunTimeout = runTimeout
		cfg.FPSWindow = fpsWindow
		cfg.SettleDelay = settleDelay
		cfg.LoadRepeats = loadRepeats
		cfg.RefreshRate = refreshRate
		cfg.AnimationDuration = animationDuration
		cfg.Policy = scorePolicy
		cfg.StatsviewAddr = statsviewAddr

		if query != "" {
			sel, err := runner.ParseQuery(query)
			if err != nil {
				return err
			}
			cfg.Libraries = sel.Libraries
			if sel.HasPoints {
				cfg.PointCount = sel.Points
			}
		}

		if configFile != "" {
			fc, err := runner.LoadFileConfig(configFile)
			if err != nil {
				return err
			}
			fc.Apply(&cfg, func(name string) bool { return cmd.Flags().Changed(name) })
		}

		_, err := runner.RunBenchmark(cmd.Context(), cfg)
		return err
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringSliceVar(&libraries, "libraries", engine.Names(), "Libraries to benchmark, in run order")
	runCmd.Flags().StringVar(&query, "query", "", "Benchmark page query, e.g. 'ol=true&ml=true&deck=false&lf=false&points=10000'")
	runCmd.Flags().IntVar(&pointCount, "points", runner.DefaultPointCount, "Number of dataset points (0 to 1000000)")
	runCmd.Flags().Int64Var(&seed, "seed", 42, "Seed for the synthetic dataset")
	runCmd.Flags().StringVar(&datasetSource, "dataset", "", "GeoJSON file or URL to load instead of the synthetic dataset")
	runCmd.Flags().StringVar(&configFile, "config", "", "Optional YAML configuration file")
	runCmd.Flags().StringVar(&benchmarkID, "benchmark-id", "default", "Optional benchmark ID stored with every result")

	runCmd.Flags().DurationVar(&actionTimeout, "action-timeout", benchmark.DefaultActionTimeout, "Deadline for the completion signal of one action")
	runCmd.Flags().DurationVar(&runTimeout, "run-timeout", benchmark.DefaultRunTimeout, "Ceiling for one library run, initialization included")
	runCmd.Flags().DurationVar(&fpsWindow, "fps-window", benchmark.DefaultFPSWindow, "Frame rate sampling window")
	runCmd.Flags().DurationVar(&settleDelay, "settle", benchmark.DefaultSettleDelay, "Pause between map initialization and measurement")
	runCmd.Flags().IntVar(&loadRepeats, "load-repeats", 1, "Data load cycles averaged per run")
	runCmd.Flags().IntVar(&refreshRate, "refresh-rate", engine.DefaultRefreshRate, "Frame scheduler rate in Hz")
	runCmd.Flags().DurationVar(&animationDuration, "animation", engine.DefaultAnimationDuration, "Duration of every scripted transition")

	runCmd.Flags().StringVar(&scorePolicy, "policy", string(benchmark.PolicyReciprocal), "Score policy: 'reciprocal' (higher is better) or 'linear-penalty' (lower is better)")
	runCmd.Flags().StringVar(&statsviewAddr, "statsview", "", "Serve runtime statistics at this address, e.g. localhost:18066")
}
