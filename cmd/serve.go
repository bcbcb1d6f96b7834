package cmd

import (
	"github.com/spf13/cobra"
	"github.com/tclemos/map-bench/runner"
	"github.com/tclemos/map-bench/server"
)

var serveAddr string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the append-only results endpoint backed by the local store",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runner.Serve(cmd.Context(), baseConfig(), serveAddr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", server.DefaultAddr, "Listen address")
}
