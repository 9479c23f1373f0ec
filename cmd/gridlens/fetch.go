package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/newthinker/gridlens/internal/api/handler/web"
	"github.com/newthinker/gridlens/internal/core"
	"github.com/newthinker/gridlens/internal/fetch"
	"github.com/newthinker/gridlens/internal/logger"
	"github.com/newthinker/gridlens/internal/view"
	"github.com/spf13/cobra"
)

var (
	fetchStart      string
	fetchEnd        string
	fetchRegion     string
	fetchParams     []string
	fetchSortByName bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [view]",
	Short: "Fetch and aggregate one view",
	Long: `Fetch one view from the analytics API for a date range, aggregate it by
region and print the result as a table.

Views: hourly-load, comparison, forecast-metrics, precipitation, heatwaves,
extreme-heat, outliers, outlier-weather`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().StringVar(&fetchStart, "start", "", "Start date YYYY-MM-DD (default from config)")
	fetchCmd.Flags().StringVar(&fetchEnd, "end", "", "End date YYYY-MM-DD (default from config)")
	fetchCmd.Flags().StringVar(&fetchRegion, "region", "", "Region filter: All, North, South, West or Houston")
	fetchCmd.Flags().StringArrayVar(&fetchParams, "param", nil, "View parameter as key=value (repeatable)")
	fetchCmd.Flags().BoolVar(&fetchSortByName, "sort-by-name", false, "Sort region rows alphabetically instead of by region order")

	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	log := logger.Must(debug)
	defer log.Sync()

	params, err := parseParams(fetchParams)
	if err != nil {
		return err
	}
	if fetchRegion != "" {
		params[view.ParamRegion] = fetchRegion
	}
	if fetchSortByName {
		params[view.ParamSort] = view.SortName
	}

	a, _, err := newApp(log)
	if err != nil {
		return err
	}
	d := a.Dashboard()
	if err := commitRange(d, fetchStart, fetchEnd); err != nil {
		return err
	}

	st, err := d.Refresh(cmd.Context(), args[0], params)
	if err != nil {
		return err
	}
	return printState(cmd.OutOrStdout(), st)
}

// parseParams splits key=value pairs.
func parseParams(pairs []string) (core.Params, error) {
	params := core.Params{}
	for _, kv := range pairs {
		key, value, ok := strings.Cut(kv, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, core.WrapError(core.ErrInvalidParam, fmt.Errorf("param must be key=value, got %q", kv))
		}
		params[key] = strings.TrimSpace(value)
	}
	return params, nil
}

func printState(w io.Writer, st fetch.State) error {
	fmt.Fprintf(w, "%s  %s\n", st.View, st.Range)
	switch {
	case st.Error != "":
		return errors.New(st.Error)
	case st.Empty:
		fmt.Fprintln(w, "No data for this range.")
		return nil
	}

	for _, t := range web.Tables(st.Data) {
		fmt.Fprintln(w)
		if t.Caption != "" {
			fmt.Fprintln(w, t.Caption)
		}
		if err := printTable(w, t.Headers, t.Rows); err != nil {
			return err
		}
	}
	fmt.Fprintf(w, "\n%d records in %.0fms\n", st.Records, st.DurationMS)
	return nil
}

func printTable(w io.Writer, headers []string, rows [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(headers, "\t"))
	for _, r := range rows {
		fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	return tw.Flush()
}
