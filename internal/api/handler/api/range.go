// internal/api/handler/api/range.go
package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/newthinker/gridlens/internal/api/response"
	"github.com/newthinker/gridlens/internal/core"
	"github.com/newthinker/gridlens/internal/dashboard"
)

// RangeResponse reports both sides of the date-range filter.
type RangeResponse struct {
	Committed core.DateRange `json:"committed"`
	Draft     core.DateRange `json:"draft"`
	Pending   bool           `json:"pending"` // draft differs from committed
}

// DraftRequest edits the draft range. Omitted dates are left unchanged.
type DraftRequest struct {
	StartDate *string `json:"start_date,omitempty"`
	EndDate   *string `json:"end_date,omitempty"`
}

// RangeHandler serves the shared date-range filter.
type RangeHandler struct {
	dash *dashboard.Dashboard
}

// NewRangeHandler creates a new range handler.
func NewRangeHandler(dash *dashboard.Dashboard) *RangeHandler {
	return &RangeHandler{dash: dash}
}

func (h *RangeHandler) current() RangeResponse {
	store := h.dash.Store()
	committed, draft := store.Committed(), store.Draft()
	return RangeResponse{Committed: committed, Draft: draft, Pending: committed != draft}
}

// Get returns the committed and draft ranges.
func (h *RangeHandler) Get(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, h.current())
}

// SetDraft edits the draft range. Drafts never trigger a fetch.
func (h *RangeHandler) SetDraft(w http.ResponseWriter, r *http.Request) {
	var req DraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest,
			core.WrapError(core.ErrInvalidRange, err))
		return
	}
	if req.StartDate == nil && req.EndDate == nil {
		response.Error(w, http.StatusBadRequest,
			core.WrapError(core.ErrInvalidRange, fmt.Errorf("start_date or end_date required")))
		return
	}

	var start, end string
	if req.StartDate != nil {
		if start = *req.StartDate; start == "" {
			response.Error(w, http.StatusBadRequest,
				core.WrapError(core.ErrInvalidRange, fmt.Errorf("start_date cannot be empty")))
			return
		}
	}
	if req.EndDate != nil {
		if end = *req.EndDate; end == "" {
			response.Error(w, http.StatusBadRequest,
				core.WrapError(core.ErrInvalidRange, fmt.Errorf("end_date cannot be empty")))
			return
		}
	}
	if _, err := h.dash.Store().EditDraft(start, end); err != nil {
		response.Fail(w, err)
		return
	}

	response.JSON(w, http.StatusOK, h.current())
}

// Commit promotes the draft range and refreshes every view in the background.
func (h *RangeHandler) Commit(w http.ResponseWriter, r *http.Request) {
	h.dash.Commit()
	response.JSON(w, http.StatusAccepted, h.current())
}
