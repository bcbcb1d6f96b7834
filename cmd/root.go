package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/tclemos/map-bench/runner"
	"github.com/tclemos/map-bench/store"
)

var (
	logFormat string
	logLevel  string

	// Results store configuration
	storeType      string
	storePath      string
	resultsURL     string
	blockCacheSize int64 // in bytes, negative means disabled (nil)
	csvPath        string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mapbench",
	Short: "Benchmark map rendering libraries under an identical pan/zoom workload",
	Long: `mapbench drives a fixed sequence of zoom and pan actions against simulated
OpenLayers, MapLibre GL, deck.gl and Leaflet maps, waits for each library's own
completion signal, samples load time, render time, FPS and memory, and reduces
them to one weighted performance score per library.`,
	SilenceUsage: true,
}

// Execute runs the root command until it returns or the process is interrupted
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		log.Fatal().Err(err).Msg("Command failed")
	}
}

func init() {
	defaults := runner.DefaultConfig()

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&logFormat, "log-format", defaults.LogFormat, "Log format: 'json' or 'console'")
	flags.StringVar(&logLevel, "log-level", defaults.LogLevel, "Log level: debug, info, warn or error")
	flags.StringVar(&storeType, "store", defaults.StoreType, "Results store: 'pebble', 'remote', 'memory' or 'none'")
	flags.StringVar(&storePath, "store-path", defaults.StorePath, "Path of the pebble results store")
	flags.StringVar(&resultsURL, "results-url", store.DefaultResultsURL, "Results server URL for the remote store")
	flags.Int64Var(&blockCacheSize, "block-cache-size", defaults.BlockCacheSize, "Pebble block cache size in bytes (negative for disabled)")
	flags.StringVar(&csvPath, "csv", "", "Export the results to this CSV file")
}

// baseConfig folds the persistent flags into a runner configuration
func baseConfig() runner.Config {
	cfg := runner.DefaultConfig()
	cfg.LogFormat = logFormat
	cfg.LogLevel = logLevel
	cfg.StoreType = storeType
	cfg.StorePath = storePath
	cfg.ResultsURL = resultsURL
	cfg.BlockCacheSize = blockCacheSize
	cfg.CSVPath = csvPath
	return cfg
}
