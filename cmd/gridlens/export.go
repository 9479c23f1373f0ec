package main

import (
	"fmt"

	"github.com/newthinker/gridlens/internal/logger"
	"github.com/newthinker/gridlens/internal/snapshot"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	exportStart  string
	exportEnd    string
	exportFormat string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Refresh every view and write a dashboard snapshot",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportStart, "start", "", "Start date YYYY-MM-DD (default from config)")
	exportCmd.Flags().StringVar(&exportEnd, "end", "", "End date YYYY-MM-DD (default from config)")
	exportCmd.Flags().StringVar(&exportFormat, "format", "", "Snapshot format: json, yaml or csv (default from config)")

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	log := logger.Must(debug)
	defer log.Sync()

	a, _, err := newApp(log)
	if err != nil {
		return err
	}

	format := a.ExportFormat()
	if exportFormat != "" {
		if format, err = snapshot.ParseFormat(exportFormat); err != nil {
			return err
		}
	}

	d := a.Dashboard()
	if err := commitRange(d, exportStart, exportEnd); err != nil {
		return err
	}
	for _, st := range d.RefreshAll(cmd.Context()) {
		if st.Error != "" {
			log.Warn("view failed", zap.String("view", st.View), zap.String("error", st.Error))
		}
	}

	res, err := a.Exporter().Export(cmd.Context(), a.Exporter().Capture(d), format)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d views, %d bytes)\n", res.Key, res.Views, res.Bytes)
	return nil
}
