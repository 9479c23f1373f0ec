// internal/api/handler/api/jobs.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/newthinker/gridlens/internal/api/job"
	"github.com/newthinker/gridlens/internal/api/response"
	"github.com/newthinker/gridlens/internal/briefing"
	"github.com/newthinker/gridlens/internal/core"
	"github.com/newthinker/gridlens/internal/dashboard"
	"github.com/newthinker/gridlens/internal/snapshot"
)

const (
	exportTimeout   = 2 * time.Minute
	briefingTimeout = 5 * time.Minute
)

// ExportRequest is the request body for creating an export job.
type ExportRequest struct {
	Format  string `json:"format,omitempty"`
	Refresh bool   `json:"refresh,omitempty"` // refetch every view before capturing
}

// BriefingRequest is the request body for creating a briefing job.
type BriefingRequest struct {
	Refresh bool `json:"refresh,omitempty"`
}

// decodeOptional decodes a JSON body into v. An empty body is allowed.
func decodeOptional(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func accepted(w http.ResponseWriter, j *job.Job) {
	response.JSON(w, http.StatusAccepted, map[string]any{
		"job_id": j.ID,
		"type":   j.Type,
		"status": j.Status,
	})
}

// ExportHandler handles snapshot export requests.
type ExportHandler struct {
	jobs          *job.Store
	dash          *dashboard.Dashboard
	exporter      *snapshot.Exporter
	defaultFormat snapshot.Format
}

// NewExportHandler creates a new export handler.
func NewExportHandler(jobs *job.Store, dash *dashboard.Dashboard, exporter *snapshot.Exporter, defaultFormat snapshot.Format) *ExportHandler {
	if defaultFormat == "" {
		defaultFormat = snapshot.FormatJSON
	}
	return &ExportHandler{
		jobs:          jobs,
		dash:          dash,
		exporter:      exporter,
		defaultFormat: defaultFormat,
	}
}

// Create starts an export job.
func (h *ExportHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req ExportRequest
	if err := decodeOptional(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, core.WrapError(core.ErrInvalidParam, err))
		return
	}

	format := h.defaultFormat
	if req.Format != "" {
		f, err := snapshot.ParseFormat(req.Format)
		if err != nil {
			response.Fail(w, err)
			return
		}
		format = f
	}

	j := h.jobs.Run(job.TypeExport, exportTimeout, core.ErrExportFailed, func(ctx context.Context) (any, error) {
		if req.Refresh {
			h.dash.RefreshAll(ctx)
		}
		return h.exporter.Export(ctx, h.exporter.Capture(h.dash), format)
	})
	accepted(w, j)
}

// List returns the stored snapshot keys.
func (h *ExportHandler) List(w http.ResponseWriter, r *http.Request) {
	keys, err := h.exporter.List(r.Context())
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{
		"snapshots": keys,
		"count":     len(keys),
	})
}

// BriefingHandler handles narrative briefing requests.
type BriefingHandler struct {
	jobs    *job.Store
	dash    *dashboard.Dashboard
	briefer *briefing.Briefer
}

// NewBriefingHandler creates a new briefing handler.
func NewBriefingHandler(jobs *job.Store, dash *dashboard.Dashboard, briefer *briefing.Briefer) *BriefingHandler {
	return &BriefingHandler{jobs: jobs, dash: dash, briefer: briefer}
}

// Create starts a briefing job over the committed range.
func (h *BriefingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !h.briefer.Enabled() {
		response.Fail(w, core.ErrLLMDisabled)
		return
	}

	var req BriefingRequest
	if err := decodeOptional(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, core.WrapError(core.ErrInvalidParam, err))
		return
	}

	j := h.jobs.Run(job.TypeBriefing, briefingTimeout, core.ErrLLMFailed, func(ctx context.Context) (any, error) {
		if req.Refresh {
			h.dash.RefreshAll(ctx)
		}
		return h.briefer.Brief(ctx, briefing.Request{
			Range: h.dash.Store().Committed(),
			Views: h.dash.Views(),
		})
	})
	accepted(w, j)
}

// JobsHandler reports async job status.
type JobsHandler struct {
	jobs *job.Store
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(jobs *job.Store) *JobsHandler {
	return &JobsHandler{jobs: jobs}
}

// Get returns the status of one job.
func (h *JobsHandler) Get(w http.ResponseWriter, r *http.Request) {
	j, err := h.jobs.Get(r.PathValue("id"))
	if err != nil {
		response.Error(w, http.StatusNotFound, err)
		return
	}

	resp := map[string]any{
		"job_id":   j.ID,
		"type":     j.Type,
		"status":   j.Status,
		"progress": j.Progress,
	}

	if j.Status == job.StatusComplete {
		resp["result"] = j.Result
	}
	if j.Status == job.StatusFailed && j.Error != nil {
		resp["error"] = response.ErrorDetail{
			Code:    j.Error.Code,
			Message: j.Error.Message,
			Cause:   causeText(j.Error),
		}
	}

	response.JSON(w, http.StatusOK, resp)
}

// List returns every retained job, oldest first.
func (h *JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, h.jobs.List())
}

func causeText(e *core.Error) string {
	if e.Cause == nil {
		return ""
	}
	return e.Cause.Error()
}
