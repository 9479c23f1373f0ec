// internal/api/handler/web/view.go
package web

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/newthinker/gridlens/internal/chart"
	"github.com/newthinker/gridlens/internal/core"
	"github.com/newthinker/gridlens/internal/dashboard"
	"go.uber.org/zap"
)

// ViewData holds data for the single-view template
type ViewData struct {
	Title  string
	Range  core.DateRange
	Params core.Params
	Card   Card
}

// View renders one view with its full tables and chart.
func (h *Handler) View(w http.ResponseWriter, r *http.Request) {
	info, err := h.dash.View(r.PathValue("name"))
	if err != nil {
		http.NotFound(w, r)
		return
	}

	h.render(w, http.StatusOK, "view.html", ViewData{
		Title:  info.Title,
		Range:  h.dash.Store().Committed(),
		Params: info.State.Params,
		Card:   card(info, true),
	})
}

// Chart renders one view as a standalone go-echarts page.
func (h *Handler) Chart(w http.ResponseWriter, r *http.Request) {
	info, err := h.dash.View(r.PathValue("name"))
	if err != nil {
		http.NotFound(w, r)
		return
	}

	var buf bytes.Buffer
	if err := chart.Render(&buf, info); err != nil {
		h.chartUnavailable(w, info, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

func (h *Handler) chartUnavailable(w http.ResponseWriter, info dashboard.Info, err error) {
	if errors.Is(err, core.ErrNoData) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`<p class="empty">No chart: ` + statusText(info) + `</p>`))
		return
	}
	h.logger.Error("rendering chart", zap.String("view", info.Name), zap.Error(err))
	http.Error(w, "chart rendering failed", http.StatusInternalServerError)
}

func statusText(info dashboard.Info) string {
	switch status(info) {
	case "error":
		return "load failed"
	case "empty":
		return "no data for this range"
	case "loading":
		return "loading"
	}
	return "not loaded yet"
}
