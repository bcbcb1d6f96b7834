package cmd

import (
	"github.com/spf13/cobra"
	"github.com/tclemos/map-bench/runner"
)

var (
	datasetOut   string
	datasetSeed  int64
	datasetCount int
)

// datasetCmd represents the dataset command
var datasetCmd = &cobra.Command{
	Use:   "dataset",
	Short: "Write the synthetic point dataset as a GeoJSON file",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runner.WriteDataset(datasetOut, datasetSeed, datasetCount)
	},
}

func init() {
	rootCmd.AddCommand(datasetCmd)

	datasetCmd.Flags().StringVar(&datasetOut, "out", "world_coordinates.geojson", "Output file")
	datasetCmd.Flags().Int64Var(&datasetSeed, "seed", 42, "Seed for deterministic point generation")
	datasetCmd.Flags().IntVar(&datasetCount, "points", 1000000, "Number of points to generate")
}
