// internal/api/handler/web/dashboard.go
package web

import (
	"errors"
	"net/http"

	"github.com/newthinker/gridlens/internal/core"
	"github.com/newthinker/gridlens/internal/region"
)

// RangeView is the date-range form state.
type RangeView struct {
	Committed core.DateRange
	Draft     core.DateRange
	Pending   bool
}

// DashboardData holds data for the dashboard template
type DashboardData struct {
	Title   string
	Range   RangeView
	Region  string
	Regions []string
	Error   string
	Cards   []Card
}

func regionChoices() []string {
	out := []string{string(core.RegionAll)}
	for _, r := range region.Regions() {
		out = append(out, string(r))
	}
	return out
}

func (h *Handler) dashboardData(errMsg string) DashboardData {
	store := h.dash.Store()
	committed, draft := store.Committed(), store.Draft()

	views := h.dash.Views()
	cards := make([]Card, len(views))
	for i, info := range views {
		cards[i] = card(info, false)
	}

	return DashboardData{
		Title:   "Dashboard",
		Range:   RangeView{Committed: committed, Draft: draft, Pending: committed != draft},
		Region:  h.dash.Region().String(),
		Regions: regionChoices(),
		Error:   errMsg,
		Cards:   cards,
	}
}

// Dashboard renders the dashboard page
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, "dashboard.html", h.dashboardData(""))
}

// setDraftFromForm applies the start_date and end_date fields that are present.
func (h *Handler) setDraftFromForm(r *http.Request) error {
	if err := r.ParseForm(); err != nil {
		return core.WrapError(core.ErrInvalidRange, err)
	}
	_, err := h.dash.Store().EditDraft(r.PostForm.Get("start_date"), r.PostForm.Get("end_date"))
	return err
}

func (h *Handler) formError(w http.ResponseWriter, err error) {
	msg := err.Error()
	var ce *core.Error
	if errors.As(err, &ce) && ce.Cause != nil {
		msg = ce.Message + ": " + ce.Cause.Error()
	}
	h.render(w, http.StatusBadRequest, "dashboard.html", h.dashboardData(msg))
}

// Draft saves the edited range without fetching.
func (h *Handler) Draft(w http.ResponseWriter, r *http.Request) {
	if err := h.setDraftFromForm(r); err != nil {
		h.formError(w, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Apply saves the edited range and commits it, refreshing every view.
func (h *Handler) Apply(w http.ResponseWriter, r *http.Request) {
	if err := h.setDraftFromForm(r); err != nil {
		h.formError(w, err)
		return
	}
	h.dash.Commit()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Region applies a region filter to every view and refetches them.
func (h *Handler) Region(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.formError(w, core.WrapError(core.ErrInvalidParam, err))
		return
	}
	f, err := region.ParseFilter(r.PostForm.Get("region"))
	if err != nil {
		h.formError(w, err)
		return
	}
	h.dash.SetRegion(f)
	h.dash.RefreshAll(r.Context())
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
