// internal/api/handler/api/views.go
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/newthinker/gridlens/internal/api/response"
	"github.com/newthinker/gridlens/internal/core"
	"github.com/newthinker/gridlens/internal/dashboard"
	"github.com/newthinker/gridlens/internal/region"
	"github.com/newthinker/gridlens/internal/view"
)

// ViewsHandler serves view states.
type ViewsHandler struct {
	dash *dashboard.Dashboard
}

// NewViewsHandler creates a new views handler.
func NewViewsHandler(dash *dashboard.Dashboard) *ViewsHandler {
	return &ViewsHandler{dash: dash}
}

// List returns every view's description and state in display order.
func (h *ViewsHandler) List(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]any{
		"range": h.dash.Store().Committed(),
		"views": h.dash.Views(),
	})
}

// Get returns one view. A region query different from the view's current
// filter refetches the view with that filter applied.
func (h *ViewsHandler) Get(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	info, err := h.dash.View(name)
	if err != nil {
		response.Fail(w, err)
		return
	}

	if !r.URL.Query().Has(view.ParamRegion) {
		response.JSON(w, http.StatusOK, info)
		return
	}

	f, err := region.ParseFilter(r.URL.Query().Get(view.ParamRegion))
	if err != nil {
		response.Fail(w, err)
		return
	}
	params, err := h.dash.Params(name)
	if err != nil {
		response.Fail(w, err)
		return
	}
	current, _ := region.ParseFilter(params.Get(view.ParamRegion, ""))
	if current == f && info.State.Generation > 0 {
		response.JSON(w, http.StatusOK, info)
		return
	}

	params[view.ParamRegion] = f.String()
	if _, err := h.dash.Refresh(r.Context(), name, params); err != nil {
		response.Fail(w, err)
		return
	}
	info, _ = h.dash.View(name)
	response.JSON(w, http.StatusOK, info)
}

// Refresh refetches one view against the committed range. Parameters come
// from a JSON object body, or from the query string when there is no body.
// Without either, the view's stored parameters are reused.
func (h *ViewsHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	params, err := requestParams(r)
	if err != nil {
		response.Error(w, http.StatusBadRequest, core.WrapError(core.ErrInvalidParam, err))
		return
	}

	st, err := h.dash.Refresh(r.Context(), name, params)
	if err != nil {
		response.Fail(w, err)
		return
	}
	// Upstream failures stay inside the view's state.
	response.JSON(w, http.StatusOK, st)
}

func requestParams(r *http.Request) (core.Params, error) {
	var body map[string]string
	err := json.NewDecoder(r.Body).Decode(&body)
	switch {
	case errors.Is(err, io.EOF):
	case err != nil:
		return nil, err
	case body != nil:
		return core.Params(body), nil
	}

	q := r.URL.Query()
	if len(q) == 0 {
		return nil, nil
	}
	params := core.Params{}
	for key := range q {
		params[key] = q.Get(key)
	}
	return params, nil
}
