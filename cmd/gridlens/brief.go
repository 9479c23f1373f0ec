package main

import (
	"fmt"

	"github.com/newthinker/gridlens/internal/briefing"
	"github.com/newthinker/gridlens/internal/core"
	"github.com/newthinker/gridlens/internal/logger"
	"github.com/spf13/cobra"
)

var (
	briefStart string
	briefEnd   string
)

var briefCmd = &cobra.Command{
	Use:   "brief",
	Short: "Generate a narrative briefing of the dashboard with the configured LLM",
	Args:  cobra.NoArgs,
	RunE:  runBrief,
}

func init() {
	briefCmd.Flags().StringVar(&briefStart, "start", "", "Start date YYYY-MM-DD (default from config)")
	briefCmd.Flags().StringVar(&briefEnd, "end", "", "End date YYYY-MM-DD (default from config)")

	rootCmd.AddCommand(briefCmd)
}

func runBrief(cmd *cobra.Command, args []string) error {
	log := logger.Must(debug)
	defer log.Sync()

	a, _, err := newApp(log)
	if err != nil {
		return err
	}
	if !a.Briefer().Enabled() {
		return core.WrapError(core.ErrLLMDisabled, fmt.Errorf("set llm.provider to claude, openai or ollama"))
	}

	d := a.Dashboard()
	if err := commitRange(d, briefStart, briefEnd); err != nil {
		return err
	}
	d.RefreshAll(cmd.Context())

	res, err := a.Briefer().Brief(cmd.Context(), briefing.Request{
		Range: d.Store().Committed(),
		Views: d.Views(),
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "=== GridLens Briefing: %s to %s ===\n", res.Range.Start, res.Range.End)
	fmt.Fprintf(out, "Provider: %s\n\n", res.Provider)
	if res.Headline != "" {
		fmt.Fprintln(out, res.Headline)
		fmt.Fprintln(out)
	}
	for _, h := range res.Highlights {
		fmt.Fprintf(out, "  - %s\n", h)
	}
	if len(res.Highlights) > 0 {
		fmt.Fprintln(out)
	}
	fmt.Fprintln(out, res.Narrative)
	return nil
}
