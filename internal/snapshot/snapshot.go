// Package snapshot captures the dashboard's committed range and view states
// and writes them to archive storage as JSON, YAML or CSV.
package snapshot

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/newthinker/gridlens/internal/aggregate"
	"github.com/newthinker/gridlens/internal/core"
	"github.com/newthinker/gridlens/internal/dashboard"
	"github.com/newthinker/gridlens/internal/storage/archive"
	"github.com/newthinker/gridlens/internal/view"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Format is a snapshot encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCSV  Format = "csv"
)

// ParseFormat parses a format name. Empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatYAML, FormatCSV:
		return f, nil
	}
	return "", core.WrapError(core.ErrInvalidParam, fmt.Errorf("format must be json, yaml or csv, got %q", s))
}

// DefaultPrefix is the storage prefix snapshots are written under.
const DefaultPrefix = "snapshots"

// Snapshot is the dashboard state at one instant.
type Snapshot struct {
	ID        string           `json:"id" yaml:"id"`
	CreatedAt time.Time        `json:"created_at" yaml:"created_at"`
	Range     core.DateRange   `json:"range" yaml:"range"`
	Views     []dashboard.Info `json:"views" yaml:"views"`
}

// Result describes a written snapshot.
type Result struct {
	ID     string `json:"id"`
	Key    string `json:"key"`
	Format Format `json:"format"`
	Bytes  int    `json:"bytes"`
	Views  int    `json:"views"`
}

// Recorder receives export metrics.
type Recorder interface {
	RecordExport(format, status string)
}

// Exporter writes snapshots to storage.
type Exporter struct {
	storage  archive.Storage
	prefix   string
	clock    clockwork.Clock
	logger   *zap.Logger
	recorder Recorder
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithClock sets the clock used for snapshot timestamps.
func WithClock(c clockwork.Clock) Option {
	return func(e *Exporter) {
		e.clock = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Exporter) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(e *Exporter) {
		e.recorder = r
	}
}

// WithPrefix sets the storage prefix.
func WithPrefix(p string) Option {
	return func(e *Exporter) {
		e.prefix = strings.Trim(p, "/")
	}
}

// NewExporter creates an exporter over storage.
func NewExporter(storage archive.Storage, opts ...Option) *Exporter {
	e := &Exporter{
		storage: storage,
		prefix:  DefaultPrefix,
		clock:   clockwork.NewRealClock(),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Capture reads the dashboard's committed range and every view's state.
func (e *Exporter) Capture(d *dashboard.Dashboard) Snapshot {
	return Snapshot{
		ID:        uuid.NewString(),
		CreatedAt: e.clock.Now().UTC(),
		Range:     d.Store().Committed(),
		Views:     d.Views(),
	}
}

// Key returns the storage key for snap in format f:
// <prefix>/<start>_<end>/<timestamp>-<id>.<format>.
func (e *Exporter) Key(snap Snapshot, f Format) string {
	name := fmt.Sprintf("%s-%s.%s", snap.CreatedAt.UTC().Format("20060102T150405Z"), snap.ID, f)
	return path.Join(e.prefix, snap.Range.Start+"_"+snap.Range.End, name)
}

// Export encodes snap and writes it to storage.
func (e *Exporter) Export(ctx context.Context, snap Snapshot, f Format) (Result, error) {
	data, err := Encode(snap, f)
	if err != nil {
		e.record(f, "failed")
		return Result{}, core.WrapError(core.ErrExportFailed, err)
	}

	key := e.Key(snap, f)
	if err := e.storage.Write(ctx, key, data); err != nil {
		e.record(f, "failed")
		e.logger.Error("snapshot write failed", zap.String("key", key), zap.Error(err))
		return Result{}, core.WrapError(core.ErrExportFailed, err)
	}

	e.record(f, "success")
	e.logger.Info("snapshot exported",
		zap.String("key", key),
		zap.String("format", string(f)),
		zap.Int("bytes", len(data)))

	return Result{ID: snap.ID, Key: key, Format: f, Bytes: len(data), Views: len(snap.Views)}, nil
}

// List returns every stored snapshot key, sorted.
func (e *Exporter) List(ctx context.Context) ([]string, error) {
	keys, err := e.storage.List(ctx, e.prefix)
	if err != nil {
		return nil, core.WrapError(core.ErrExportFailed, err)
	}
	return keys, nil
}

// Read returns the stored bytes of one snapshot.
func (e *Exporter) Read(ctx context.Context, key string) ([]byte, error) {
	ok, err := e.storage.Exists(ctx, key)
	if err != nil {
		return nil, core.WrapError(core.ErrExportFailed, err)
	}
	if !ok {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("snapshot %q not found", key))
	}
	return e.storage.Read(ctx, key)
}

func (e *Exporter) record(f Format, status string) {
	if e.recorder != nil {
		e.recorder.RecordExport(string(f), status)
	}
}

// Encode renders snap in format f.
func Encode(snap Snapshot, f Format) ([]byte, error) {
	switch f {
	case FormatJSON:
		return json.MarshalIndent(snap, "", "  ")
	case FormatYAML:
		return yaml.Marshal(snap)
	case FormatCSV:
		return encodeCSV(snap)
	}
	return nil, fmt.Errorf("unsupported format %q", f)
}

var csvHeader = []string{"view", "section", "key", "metric", "at", "value"}

// encodeCSV flattens every ready view into long-form rows. Views without
// data contribute a single status row.
func encodeCSV(snap Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}

	for _, info := range snap.Views {
		for _, rec := range viewRecords(info) {
			if err := w.Write(rec); err != nil {
				return nil, err
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func viewRecords(info dashboard.Info) [][]string {
	st := info.State
	switch {
	case st.Error != "":
		return [][]string{{info.Name, "status", "", "error", "", st.Error}}
	case st.Empty:
		return [][]string{{info.Name, "status", "", "empty", "", ""}}
	case !st.Ready():
		return [][]string{{info.Name, "status", "", "not_loaded", "", ""}}
	}

	switch data := st.Data.(type) {
	case view.SummaryData:
		return summaryRecords(info.Name, "summary", data.Rows)
	case view.SeriesData:
		var out [][]string
		for _, s := range data.Series {
			for _, line := range s.Lines {
				for _, p := range line.Points {
					out = append(out, []string{info.Name, "series", string(line.Region), s.Name,
						p.At.Format(core.TimestampLayout), formatFloat(p.Value)})
				}
			}
		}
		return out
	case view.OutlierData:
		out := summaryRecords(info.Name, "summary", data.Summary.Rows)
		for _, r := range data.Records {
			out = append(out, []string{info.Name, "record", r.Region, string(r.OutlierType),
				r.HourEnd.String(), formatFloat(r.LoadMW)})
		}
		return out
	case view.MonthlyData:
		var out [][]string
		for _, g := range data.Groups {
			out = append(out, valueRecords(info.Name, "group", string(g.Group), "", g.Values)...)
		}
		return out
	}
	return [][]string{{info.Name, "status", "", "unsupported", "", fmt.Sprintf("%T", st.Data)}}
}

func summaryRecords(name, section string, rows []aggregate.Row) [][]string {
	var out [][]string
	for _, row := range rows {
		out = append(out, valueRecords(name, section, string(row.Region), "", row.Values)...)
	}
	return out
}

func valueRecords(name, section, key, at string, values map[string]float64) [][]string {
	metrics := make([]string, 0, len(values))
	for m := range values {
		metrics = append(metrics, m)
	}
	sort.Strings(metrics)

	out := make([][]string, 0, len(metrics))
	for _, m := range metrics {
		out = append(out, []string{name, section, key, m, at, formatFloat(values[m])})
	}
	return out
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
