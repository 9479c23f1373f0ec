// internal/api/server_test.go
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/newthinker/gridlens/internal/api/job"
	"github.com/newthinker/gridlens/internal/api/response"
	"github.com/newthinker/gridlens/internal/briefing"
	"github.com/newthinker/gridlens/internal/client"
	"github.com/newthinker/gridlens/internal/core"
	"github.com/newthinker/gridlens/internal/dashboard"
	"github.com/newthinker/gridlens/internal/fetch"
	"github.com/newthinker/gridlens/internal/filter"
	"github.com/newthinker/gridlens/internal/metrics"
	"github.com/newthinker/gridlens/internal/snapshot"
	"github.com/newthinker/gridlens/internal/storage/archive"
	"github.com/newthinker/gridlens/internal/view"
	"go.uber.org/zap"
)

func upstream(t *testing.T, healthBody string) *client.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(healthBody))
	}))
	t.Cleanup(srv.Close)
	return client.NewWithBaseURL(srv.URL)
}

func newTestServer(t *testing.T, apiKey string) (*Server, *dashboard.Dashboard) {
	t.Helper()

	store, err := filter.NewStore(filter.DefaultRange)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	loader := fetch.LoaderFunc(func(ctx context.Context, r core.DateRange, p core.Params) (fetch.Result, error) {
		return fetch.Result{Data: view.SummaryData{}, Records: 1}, nil
	})
	dash := dashboard.New(store, []view.Definition{
		{Name: view.Precipitation, Title: "Precipitation", Kind: view.KindSummary, Loader: loader},
	})

	storage, err := archive.NewLocalFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalFS: %v", err)
	}

	srv, err := NewServer(Config{
		Host:        "localhost",
		Port:        0,
		APIKey:      apiKey,
		MetricsPath: "/metrics",
	}, Dependencies{
		Dashboard: dash,
		Client:    upstream(t, `{"status": "healthy", "database": "connected"}`),
		Jobs:      job.NewStore(10, time.Hour),
		Exporter:  snapshot.NewExporter(storage),
		Briefer:   briefing.New(nil, nil),
		Metrics:   metrics.NewRegistry(),
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	return srv, dash
}

func serve(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func TestServer_Health(t *testing.T) {
	srv, _ := newTestServer(t, "")

	w := serve(srv, httptest.NewRequest("GET", "/api/health", nil))

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if w.Header().Get(metrics.RequestIDHeader) == "" {
		t.Error("expected request ID header")
	}
}

func TestServer_Ready(t *testing.T) {
	srv, _ := newTestServer(t, "")

	w := serve(srv, httptest.NewRequest("GET", "/readyz", nil))

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestServer_APIAuth(t *testing.T) {
	srv, _ := newTestServer(t, "test-key")

	tests := []struct {
		name     string
		key      string
		path     string
		wantCode int
	}{
		{"missing key", "", "/api/v1/range", http.StatusUnauthorized},
		{"wrong key", "nope", "/api/v1/range", http.StatusUnauthorized},
		{"valid key", "test-key", "/api/v1/range", http.StatusOK},
		{"health is public", "", "/api/health", http.StatusOK},
		{"dashboard is public", "", "/", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			if tt.key != "" {
				req.Header.Set("X-API-Key", tt.key)
			}
			w := serve(srv, req)
			if w.Code != tt.wantCode {
				t.Errorf("expected %d, got %d", tt.wantCode, w.Code)
			}
		})
	}
}

func TestServer_CommitRefreshesViews(t *testing.T) {
	srv, dash := newTestServer(t, "")
	dash.Start(context.Background())
	defer dash.Stop()

	body := bytes.NewBufferString(`{"start_date": "2010-08-01", "end_date": "2010-08-31"}`)
	w := serve(srv, httptest.NewRequest("PUT", "/api/v1/range/draft", body))
	if w.Code != http.StatusOK {
		t.Fatalf("draft: expected 200, got %d", w.Code)
	}

	w = serve(srv, httptest.NewRequest("POST", "/api/v1/range/commit", nil))
	if w.Code != http.StatusAccepted {
		t.Fatalf("commit: expected 202, got %d", w.Code)
	}
	dash.Wait()

	w = serve(srv, httptest.NewRequest("GET", "/api/v1/views/precipitation", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("view: expected 200, got %d", w.Code)
	}
	var resp struct {
		Data dashboard.Info `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if resp.Data.State.Range.Start != "2010-08-01" {
		t.Errorf("expected view fetched for committed range, got %v", resp.Data.State.Range)
	}
}

func TestServer_ExportJob(t *testing.T) {
	srv, _ := newTestServer(t, "")

	w := serve(srv, httptest.NewRequest("POST", "/api/v1/exports", bytes.NewBufferString(`{"format": "csv", "refresh": true}`)))
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", w.Code, w.Body.String())
	}
	var created response.SuccessResponse
	json.Unmarshal(w.Body.Bytes(), &created)
	jobID := created.Data.(map[string]any)["job_id"].(string)

	srv.deps.Jobs.Wait()

	w = serve(srv, httptest.NewRequest("GET", "/api/v1/jobs/"+jobID, nil))
	if !strings.Contains(w.Body.String(), `"status":"complete"`) {
		t.Errorf("expected complete job, got %s", w.Body.String())
	}

	w = serve(srv, httptest.NewRequest("GET", "/api/v1/exports", nil))
	if !strings.Contains(w.Body.String(), `.csv"`) {
		t.Errorf("expected csv snapshot listed, got %s", w.Body.String())
	}
}

func TestServer_ExportBadFormat(t *testing.T) {
	srv, _ := newTestServer(t, "")

	w := serve(srv, httptest.NewRequest("POST", "/api/v1/exports", bytes.NewBufferString(`{"format": "xml"}`)))

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestServer_BriefingDisabled(t *testing.T) {
	srv, _ := newTestServer(t, "")

	w := serve(srv, httptest.NewRequest("POST", "/api/v1/briefings", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", w.Code)
	}
}

func TestServer_UpstreamHealth(t *testing.T) {
	srv, _ := newTestServer(t, "")

	w := serve(srv, httptest.NewRequest("GET", "/api/v1/upstream/health", nil))

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"healthy":true`) {
		t.Errorf("unexpected body %s", w.Body.String())
	}
}

func TestServer_Metrics(t *testing.T) {
	srv, _ := newTestServer(t, "")
	serve(srv, httptest.NewRequest("GET", "/api/health", nil))

	w := serve(srv, httptest.NewRequest("GET", "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `http_requests_total{method="GET",path="GET /api/health",status="2xx"}`) {
		t.Error("expected request counter for /api/health")
	}
}

func TestServer_CORS(t *testing.T) {
	srv, _ := newTestServer(t, "")

	req := httptest.NewRequest("GET", "/api/health", nil)
	req.Header.Set("Origin", "http://example.com")
	w := serve(srv, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("expected wildcard CORS origin, got %q", got)
	}
}
