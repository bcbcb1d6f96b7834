package cmd

import (
	"github.com/spf13/cobra"
	"github.com/tclemos/map-bench/runner"
)

var historyBenchmarkID string

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List stored results, optionally exporting them with --csv",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := runner.History(cmd.Context(), baseConfig(), historyBenchmarkID)
		return err
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().StringVar(&historyBenchmarkID, "benchmark-id", "", "Only show results with this benchmark ID")
}
