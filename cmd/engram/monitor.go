package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/engramd/internal/monitor"
)

func newMonitorCmd() *cobra.Command {
	var serverURL string
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Live dashboard of a running engramd",
		Long: `Poll the engramd HTTP API and render engram counts, health and
trends in the terminal. Requires server.enabled in the daemon config.

Examples:
  engram monitor
  engram monitor --server http://localhost:8080 --interval 5s`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return monitor.Run(serverURL, interval)
		},
	}
	cmd.Flags().StringVar(&serverURL, "server", "http://localhost:9191", "engramd server URL")
	cmd.Flags().DurationVar(&interval, "interval", 2*time.Second, "refresh interval")
	return cmd
}
