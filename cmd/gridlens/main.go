package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "gridlens",
	Short: "GridLens - grid load and weather analytics dashboard",
	Long: `GridLens is a dashboard over the grid analytics API.
It aggregates hourly load, forecasts, outliers and weather impact by region
for one shared date range, and serves them as tables and charts.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug mode")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
