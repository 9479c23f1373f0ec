// internal/api/handler/api/handler_test.go
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/newthinker/gridlens/internal/api/job"
	"github.com/newthinker/gridlens/internal/api/response"
	"github.com/newthinker/gridlens/internal/core"
	"github.com/newthinker/gridlens/internal/dashboard"
	"github.com/newthinker/gridlens/internal/fetch"
	"github.com/newthinker/gridlens/internal/filter"
	"github.com/newthinker/gridlens/internal/view"
)

// recordingLoader remembers the params of every load.
type recordingLoader struct {
	mu     sync.Mutex
	params []core.Params
}

func (l *recordingLoader) Load(ctx context.Context, r core.DateRange, p core.Params) (fetch.Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.params = append(l.params, p)
	return fetch.Result{Data: view.SummaryData{}, Records: 1}, nil
}

func (l *recordingLoader) last() core.Params {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.params) == 0 {
		return nil
	}
	return l.params[len(l.params)-1]
}

func (l *recordingLoader) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.params)
}

func newTestDashboard(t *testing.T) (*dashboard.Dashboard, *recordingLoader) {
	t.Helper()
	store, err := filter.NewStore(filter.DefaultRange)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	l := &recordingLoader{}
	d := dashboard.New(store, []view.Definition{
		{Name: view.Precipitation, Title: "Precipitation", Kind: view.KindSummary, Loader: l},
	})
	return d, l
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp response.SuccessResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	data, ok := resp.Data.(map[string]any)
	if !ok {
		t.Fatalf("expected object data, got %T", resp.Data)
	}
	return data
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) response.ErrorDetail {
	t.Helper()
	var resp response.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding error response: %v", err)
	}
	return resp.Error
}

func TestRangeHandler_DraftThenCommit(t *testing.T) {
	d, l := newTestDashboard(t)
	d.Start(context.Background())
	defer d.Stop()
	h := NewRangeHandler(d)

	req := httptest.NewRequest("PUT", "/api/v1/range/draft", bytes.NewBufferString(`{"start_date": "2010-08-01"}`))
	w := httptest.NewRecorder()
	h.SetDraft(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	data := decodeData(t, w)
	if data["pending"] != true {
		t.Error("expected pending draft")
	}
	if draft := data["draft"].(map[string]any); draft["start_date"] != "2010-08-01" || draft["end_date"] != "2011-01-01" {
		t.Errorf("unexpected draft %v", draft)
	}
	if l.count() != 0 {
		t.Error("draft edits must not fetch")
	}

	w = httptest.NewRecorder()
	h.Commit(w, httptest.NewRequest("POST", "/api/v1/range/commit", nil))
	d.Wait()

	if w.Code != http.StatusAccepted {
		t.Errorf("expected 202, got %d", w.Code)
	}
	if got := d.Store().Committed().Start; got != "2010-08-01" {
		t.Errorf("expected committed start 2010-08-01, got %s", got)
	}
	if l.count() != 1 {
		t.Errorf("expected one fetch after commit, got %d", l.count())
	}
}

func TestRangeHandler_SetDraft_Invalid(t *testing.T) {
	d, _ := newTestDashboard(t)
	h := NewRangeHandler(d)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{`},
		{"no dates", `{}`},
		{"bad date", `{"end_date": "2010-13-40"}`},
		{"empty start", `{"start_date": ""}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.SetDraft(w, httptest.NewRequest("PUT", "/api/v1/range/draft", bytes.NewBufferString(tt.body)))

			if w.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", w.Code)
			}
			if detail := decodeError(t, w); detail.Code != core.ErrInvalidRange.Code {
				t.Errorf("expected %s, got %s", core.ErrInvalidRange.Code, detail.Code)
			}
		})
	}
}

func TestRangeHandler_SetDraft_RejectedEditLeavesDraft(t *testing.T) {
	d, _ := newTestDashboard(t)
	h := NewRangeHandler(d)
	before := d.Store().Draft()

	w := httptest.NewRecorder()
	body := bytes.NewBufferString(`{"start_date": "2012-01-01", "end_date": "not-a-date"}`)
	h.SetDraft(w, httptest.NewRequest("PUT", "/api/v1/range/draft", body))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if got := d.Store().Draft(); got != before {
		t.Errorf("expected draft %v unchanged, got %v", before, got)
	}
}

func TestViewsHandler_List(t *testing.T) {
	d, _ := newTestDashboard(t)
	h := NewViewsHandler(d)

	w := httptest.NewRecorder()
	h.List(w, httptest.NewRequest("GET", "/api/v1/views", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	views := decodeData(t, w)["views"].([]any)
	if len(views) != 1 {
		t.Fatalf("expected 1 view, got %d", len(views))
	}
	if name := views[0].(map[string]any)["name"]; name != view.Precipitation {
		t.Errorf("unexpected view %v", name)
	}
}

func TestViewsHandler_Get_RegionRefetches(t *testing.T) {
	d, l := newTestDashboard(t)
	d.RefreshAll(context.Background())
	h := NewViewsHandler(d)

	req := httptest.NewRequest("GET", "/api/v1/views/precipitation?region=west", nil)
	req.SetPathValue("name", view.Precipitation)
	w := httptest.NewRecorder()
	h.Get(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if got := l.last()[view.ParamRegion]; got != "West" {
		t.Errorf("expected region West, got %q", got)
	}

	// Same filter again is served from state.
	req = httptest.NewRequest("GET", "/api/v1/views/precipitation?region=West", nil)
	req.SetPathValue("name", view.Precipitation)
	h.Get(httptest.NewRecorder(), req)
	if l.count() != 2 {
		t.Errorf("expected 2 loads, got %d", l.count())
	}
}

func TestViewsHandler_Get_Errors(t *testing.T) {
	d, _ := newTestDashboard(t)
	h := NewViewsHandler(d)

	tests := []struct {
		name     string
		view     string
		query    string
		wantCode int
	}{
		{"unknown view", "nope", "", http.StatusNotFound},
		{"unknown region", view.Precipitation, "?region=Dallas", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/v1/views/"+tt.view+tt.query, nil)
			req.SetPathValue("name", tt.view)
			w := httptest.NewRecorder()
			h.Get(w, req)

			if w.Code != tt.wantCode {
				t.Errorf("expected %d, got %d", tt.wantCode, w.Code)
			}
		})
	}
}

func TestViewsHandler_Refresh_Params(t *testing.T) {
	d, l := newTestDashboard(t)
	h := NewViewsHandler(d)

	tests := []struct {
		name  string
		url   string
		body  io.Reader
		limit string
	}{
		{"json body", "/api/v1/views/precipitation/refresh", bytes.NewBufferString(`{"limit": "25"}`), "25"},
		{"query string", "/api/v1/views/precipitation/refresh?limit=30", nil, "30"},
		{"stored params", "/api/v1/views/precipitation/refresh", nil, "30"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", tt.url, tt.body)
			req.SetPathValue("name", view.Precipitation)
			w := httptest.NewRecorder()
			h.Refresh(w, req)

			if w.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
			}
			if got := l.last()[view.ParamLimit]; got != tt.limit {
				t.Errorf("expected limit %s, got %q", tt.limit, got)
			}
		})
	}
}

func TestJobsHandler_Get(t *testing.T) {
	jobs := job.NewStore(10, time.Hour)
	h := NewJobsHandler(jobs)

	j := jobs.Run(job.TypeExport, time.Second, core.ErrExportFailed, func(ctx context.Context) (any, error) {
		return nil, io.ErrUnexpectedEOF
	})
	jobs.Wait()

	req := httptest.NewRequest("GET", "/api/v1/jobs/"+j.ID, nil)
	req.SetPathValue("id", j.ID)
	w := httptest.NewRecorder()
	h.Get(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	data := decodeData(t, w)
	if data["status"] != string(job.StatusFailed) {
		t.Errorf("expected failed status, got %v", data["status"])
	}
	if e := data["error"].(map[string]any); e["code"] != core.ErrExportFailed.Code {
		t.Errorf("unexpected error %v", e)
	}
}

func TestJobsHandler_Get_NotFound(t *testing.T) {
	h := NewJobsHandler(job.NewStore(10, time.Hour))

	req := httptest.NewRequest("GET", "/api/v1/jobs/nonexistent", nil)
	req.SetPathValue("id", "nonexistent")
	w := httptest.NewRecorder()
	h.Get(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}
