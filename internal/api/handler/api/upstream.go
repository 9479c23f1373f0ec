// internal/api/handler/api/upstream.go
package api

import (
	"net/http"

	"github.com/newthinker/gridlens/internal/api/response"
	"github.com/newthinker/gridlens/internal/client"
)

// HealthRecorder receives the upstream health gauge.
type HealthRecorder interface {
	SetUpstreamHealthy(ok bool)
}

// UpstreamHandler proxies the analytics API health check.
type UpstreamHandler struct {
	client   *client.Client
	recorder HealthRecorder
}

// NewUpstreamHandler creates a new upstream handler. recorder may be nil.
func NewUpstreamHandler(c *client.Client, recorder HealthRecorder) *UpstreamHandler {
	return &UpstreamHandler{client: c, recorder: recorder}
}

// Health reports whether the analytics API and its database are up.
func (h *UpstreamHandler) Health(w http.ResponseWriter, r *http.Request) {
	status, err := h.client.Health(r.Context())
	if err != nil {
		h.record(false)
		response.Fail(w, err)
		return
	}

	ok := status.Healthy()
	h.record(ok)

	code := http.StatusOK
	if !ok {
		code = http.StatusServiceUnavailable
	}
	response.JSON(w, code, map[string]any{
		"base_url": h.client.BaseURL(),
		"healthy":  ok,
		"upstream": status,
	})
}

func (h *UpstreamHandler) record(ok bool) {
	if h.recorder != nil {
		h.recorder.SetUpstreamHealthy(ok)
	}
}
