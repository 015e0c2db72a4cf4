package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"wt-go/internal/wt"
)

// entryRequest accepts numbers or numeric strings; null or absent means not measured.
type entryRequest struct {
	Weight      *json.Number `json:"weight"`
	BMI         *json.Number `json:"bmi"`
	BodyFat     *json.Number `json:"bodyFat"`
	MuscleMass  *json.Number `json:"muscleMass"`
	VisceralFat *json.Number `json:"visceralFat"`
}

func (req entryRequest) form() wt.MeasurementForm {
	str := func(n *json.Number) string {
		if n == nil {
			return ""
		}
		return n.String()
	}
	return wt.MeasurementForm{
		Weight:      str(req.Weight),
		BMI:         str(req.BMI),
		BodyFat:     str(req.BodyFat),
		MuscleMass:  str(req.MuscleMass),
		VisceralFat: str(req.VisceralFat),
	}
}

type errorResponse struct {
	Error    string       `json:"error"`
	Messages []wt.Message `json:"messages,omitempty"`
}

func (s *Server) listEntries(w http.ResponseWriter, r *http.Request) {
	view := s.opts.Manage.Snapshot(r.Context())
	status := http.StatusOK
	if view.State == wt.StateError {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, view)
}

func (s *Server) createEntry(w http.ResponseWriter, r *http.Request) {
	var req entryRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	view, entry, err := s.opts.Input.Submit(r.Context(), sessionID(r), req.form())
	if err != nil {
		writeJSON(w, statusFor(err), errorResponse{Error: err.Error(), Messages: view.Messages})
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) deleteEntry(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "unknown entry"})
		return
	}

	confirmed := r.URL.Query().Get("confirm") == "true"
	if err := s.opts.Manage.Delete(r.Context(), sessionID(r), id, confirmed); err != nil {
		writeJSON(w, statusFor(err), errorResponse{Error: err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) dashboardData(w http.ResponseWriter, r *http.Request) {
	view := s.opts.Dashboard.Load(r.Context())
	status := http.StatusOK
	if view.State == wt.StateError {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, view)
}

func decodeJSON(body io.ReadCloser, dst any) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
