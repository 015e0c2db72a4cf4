package httpapi

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"wt-go/internal/wt"
)

// uiText exposes the fixed strings to templates through the "text" func.
var uiText = map[string]string{
	"Saving":        wt.TextSaving,
	"Deleting":      wt.TextDeleting,
	"DeleteConfirm": wt.TextDeleteConfirm,
	"MetricNoData":  wt.TextMetricNoData,
}

type inputPageData struct {
	View wt.InputView
}

type dashboardPageData struct {
	View wt.DashboardView
}

type managePageData struct {
	View wt.ManageView
}

type confirmPageData struct {
	Row wt.Row
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.Error("rendering page failed", "template", name, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) inputPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "input", inputPageData{View: s.opts.Input.View(sessionID(r))})
}

func (s *Server) submitPage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	form := wt.MeasurementForm{
		Weight:      r.PostFormValue("weight"),
		BMI:         r.PostFormValue("bmi"),
		BodyFat:     r.PostFormValue("bodyFat"),
		MuscleMass:  r.PostFormValue("muscleMass"),
		VisceralFat: r.PostFormValue("visceralFat"),
	}

	view, _, err := s.opts.Input.Submit(r.Context(), sessionID(r), form)
	if errors.Is(err, wt.ErrSubmitInProgress) {
		// The first submission is still saving; its result lands on the
		// input page once it completes.
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	status := http.StatusOK
	if err != nil {
		status = statusFor(err)
	}
	s.render(w, status, "input", inputPageData{View: view})
}

func (s *Server) dashboardPage(w http.ResponseWriter, r *http.Request) {
	view := s.opts.Dashboard.Load(r.Context())
	status := http.StatusOK
	if view.State == wt.StateError {
		status = http.StatusServiceUnavailable
	}
	s.render(w, status, "dashboard", dashboardPageData{View: view})
}

func (s *Server) managePage(w http.ResponseWriter, r *http.Request) {
	view := s.opts.Manage.Load(r.Context(), sessionID(r))
	status := http.StatusOK
	if view.State == wt.StateError {
		status = http.StatusServiceUnavailable
	}
	s.render(w, status, "manage", managePageData{View: view})
}

// localView returns the session's list as last loaded, loading it if needed.
func (s *Server) localView(r *http.Request) wt.ManageView {
	session := sessionID(r)
	if view, ok := s.opts.Manage.View(session); ok {
		return view
	}
	return s.opts.Manage.Load(r.Context(), session)
}

func (s *Server) confirmDeletePage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	for _, row := range s.localView(r).Rows {
		if row.ID == id {
			s.render(w, http.StatusOK, "confirm", confirmPageData{Row: row})
			return
		}
	}
	http.NotFound(w, r)
}

// deletePage deletes a confirmed row and renders the session's list without
// fetching it again.
func (s *Server) deletePage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	session := sessionID(r)
	if _, ok := s.opts.Manage.View(session); !ok {
		s.opts.Manage.Load(r.Context(), session)
	}

	status := http.StatusOK
	if err := s.opts.Manage.Delete(r.Context(), session, id, r.PostFormValue("confirm") == "yes"); err != nil {
		status = statusFor(err)
	}
	view, _ := s.opts.Manage.View(session)
	s.render(w, status, "manage", managePageData{View: view})
}

func pathID(r *http.Request) (int64, error) {
	raw, ok := mux.Vars(r)["id"]
	if !ok {
		return 0, errors.New("missing id")
	}
	return strconv.ParseInt(raw, 10, 64)
}
