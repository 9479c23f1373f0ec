// Package briefing asks an LLM to narrate the dashboard's aggregated views.
package briefing

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/newthinker/gridlens/internal/aggregate"
	"github.com/newthinker/gridlens/internal/core"
	"github.com/newthinker/gridlens/internal/dashboard"
	"github.com/newthinker/gridlens/internal/llm"
	"github.com/newthinker/gridlens/internal/view"
	"go.uber.org/zap"
)

// DefaultMaxTokens bounds the narrative length.
const DefaultMaxTokens = 1500

// Recorder receives briefing metrics.
type Recorder interface {
	RecordBriefing(provider, status string)
}

// Briefer builds prompts from view states and sends them to an LLM.
type Briefer struct {
	llm       llm.Provider
	logger    *zap.Logger
	recorder  Recorder
	clock     clockwork.Clock
	maxTokens int
}

// Option configures a Briefer.
type Option func(*Briefer)

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(b *Briefer) {
		b.recorder = r
	}
}

// WithClock sets the clock used to stamp results.
func WithClock(c clockwork.Clock) Option {
	return func(b *Briefer) {
		b.clock = c
	}
}

// WithMaxTokens overrides DefaultMaxTokens.
func WithMaxTokens(n int) Option {
	return func(b *Briefer) {
		if n > 0 {
			b.maxTokens = n
		}
	}
}

// New creates a briefer. A nil provider makes every briefing fail with
// core.ErrLLMDisabled.
func New(provider llm.Provider, logger *zap.Logger, opts ...Option) *Briefer {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Briefer{
		llm:       provider,
		logger:    logger,
		clock:     clockwork.NewRealClock(),
		maxTokens: DefaultMaxTokens,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Enabled reports whether a provider is configured.
func (b *Briefer) Enabled() bool {
	return b.llm != nil
}

// Request holds the dashboard state to narrate.
type Request struct {
	Range core.DateRange
	Views []dashboard.Info
}

// Result is a generated briefing.
type Result struct {
	Range       core.DateRange `json:"range"`
	Provider    string         `json:"provider"`
	Headline    string         `json:"headline"`
	Highlights  []string       `json:"highlights"`
	Narrative   string         `json:"narrative"`
	Views       []string       `json:"views"`
	Usage       llm.Usage      `json:"usage"`
	GeneratedAt time.Time      `json:"generated_at"`
}

type reply struct {
	Headline   string   `json:"headline"`
	Highlights []string `json:"highlights"`
	Narrative  string   `json:"narrative"`
}

// Brief narrates every ready view in req.
func (b *Briefer) Brief(ctx context.Context, req Request) (*Result, error) {
	if b.llm == nil {
		return nil, core.ErrLLMDisabled
	}

	prompt, used := BuildPrompt(req)
	if len(used) == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("no view has data for %s", req.Range))
	}

	resp, err := b.llm.Chat(ctx, llm.ChatRequest{
		SystemPrompt: systemPrompt,
		Messages:     []llm.Message{{Role: "user", Content: prompt}},
		MaxTokens:    b.maxTokens,
		Temperature:  0.3,
		JSONMode:     true,
	})
	if err != nil {
		b.record("failed")
		b.logger.Error("briefing request failed",
			zap.String("provider", b.llm.Name()),
			zap.Error(err))
		return nil, core.WrapError(core.ErrLLMFailed, err)
	}
	b.record("success")

	result := &Result{
		Range:       req.Range,
		Provider:    b.llm.Name(),
		Views:       used,
		Usage:       resp.Usage,
		GeneratedAt: b.clock.Now().UTC(),
	}

	var parsed reply
	if err := json.Unmarshal([]byte(resp.Content), &parsed); err != nil {
		// Not every provider honours JSON mode; keep the raw text.
		result.Narrative = strings.TrimSpace(resp.Content)
		return result, nil
	}
	result.Headline = parsed.Headline
	result.Highlights = parsed.Highlights
	result.Narrative = parsed.Narrative

	b.logger.Info("briefing generated",
		zap.String("provider", result.Provider),
		zap.Strings("views", used),
		zap.Int("output_tokens", resp.Usage.OutputTokens))

	return result, nil
}

func (b *Briefer) record(status string) {
	if b.recorder != nil {
		b.recorder.RecordBriefing(b.llm.Name(), status)
	}
}

// BuildPrompt renders the ready views as markdown tables. It returns the
// prompt and the names of the views it includes.
func BuildPrompt(req Request) (string, []string) {
	var sb strings.Builder
	var used []string

	fmt.Fprintf(&sb, "## Period: %s to %s\n\n", req.Range.Start, req.Range.End)

	for _, info := range req.Views {
		if !info.State.Ready() {
			continue
		}
		var section strings.Builder
		switch data := info.State.Data.(type) {
		case view.SummaryData:
			writeSummary(&section, data.Columns, data.Rows)
		case view.SeriesData:
			writeSeries(&section, data)
		case view.OutlierData:
			writeSummary(&section, data.Summary.Columns, data.Summary.Rows)
			fmt.Fprintf(&section, "\nOutlier hours listed: %d\n", len(data.Records))
		case view.MonthlyData:
			writeGroups(&section, data)
		default:
			continue
		}
		fmt.Fprintf(&sb, "## %s\n", info.Title)
		if info.Description != "" {
			fmt.Fprintf(&sb, "%s\n", info.Description)
		}
		sb.WriteString(section.String())
		sb.WriteString("\n")
		used = append(used, info.Name)
	}

	sb.WriteString("## Task:\n")
	sb.WriteString("Write a short briefing for grid operators covering the period above.\n")
	sb.WriteString("Respond with JSON containing: headline, highlights, narrative.\n")

	return sb.String(), used
}

func writeSummary(sb *strings.Builder, cols []view.Column, rows []aggregate.Row) {
	sb.WriteString("| Region |")
	for _, c := range cols {
		label := c.Label
		if c.Unit != "" {
			label += " (" + c.Unit + ")"
		}
		fmt.Fprintf(sb, " %s |", label)
	}
	sb.WriteString("\n")
	for _, r := range rows {
		fmt.Fprintf(sb, "| %s |", r.Region)
		for _, c := range cols {
			fmt.Fprintf(sb, " %.2f |", r.Value(c.Key))
		}
		sb.WriteString("\n")
	}
}

func writeSeries(sb *strings.Builder, data view.SeriesData) {
	sb.WriteString("| Series | Region | Points | Peak | Peak at |\n")
	for _, s := range data.Series {
		for _, line := range s.Lines {
			if len(line.Points) == 0 {
				continue
			}
			peak := line.Points[0]
			for _, p := range line.Points[1:] {
				if p.Value > peak.Value {
					peak = p
				}
			}
			fmt.Fprintf(sb, "| %s | %s | %d | %.1f %s | %s |\n",
				s.Label, line.Region, len(line.Points), peak.Value, data.Unit,
				peak.At.Format(core.TimestampLayout))
		}
	}
}

func writeGroups(sb *strings.Builder, data view.MonthlyData) {
	sb.WriteString("| Group | Days |")
	for _, c := range data.Columns {
		fmt.Fprintf(sb, " %s |", c.Label)
	}
	sb.WriteString("\n")
	for _, g := range data.Groups {
		fmt.Fprintf(sb, "| %s | %d |", g.Group, g.Days)
		for _, c := range data.Columns {
			fmt.Fprintf(sb, " %.2f |", g.Values[c.Key])
		}
		sb.WriteString("\n")
	}
}

const systemPrompt = `You are an ERCOT grid analyst. You receive per-region aggregates of electricity load,
weather and forecast accuracy for one period. Regions are North, South, West and Houston.

Focus on:
- where load peaked and how weather (heat, rain) moved it
- forecast accuracy differences between regions
- unusual load hours and the weather around them

Always respond with valid JSON:
{
  "headline": "one sentence",
  "highlights": ["short bullet", "short bullet"],
  "narrative": "two or three paragraphs"
}

Quote only numbers that appear in the tables. Do not speculate about causes you cannot see in the data.`
