package http

import (
	"encoding/json"
	"net/http"

	"smartexpense/internal/actions"
	"smartexpense/internal/log"
)

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request, ownerID string) {
	writeResult(w, s.actions.GetProfile(r.Context(), ownerID), http.StatusOK)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request, ownerID string) {
	var form actions.ProfileForm
	if !decodeJSON(w, r, &form) {
		return
	}
	writeResult(w, s.actions.UpdateProfile(r.Context(), ownerID, form), http.StatusOK)
}

type trackResponse struct {
	OK     bool   `json:"ok"`
	Stored *bool  `json:"stored,omitempty"`
	Error  string `json:"error,omitempty"`
}

// handleTrackEvent answers 201 when the event was stored, 202 when it was
// valid but storage failed, and 400 for anything outside the allow-lists.
func (s *Server) handleTrackEvent(w http.ResponseWriter, r *http.Request, ownerID string) {
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	var form actions.EventForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		log.FromContext(r.Context()).DebugContext(r.Context(), "Invalid event body", log.FieldError, err)
		writeJSON(w, http.StatusBadRequest, trackResponse{Error: "Invalid payload"})
		return
	}

	res := s.actions.TrackEvent(r.Context(), ownerID, form)
	switch {
	case res.Invalid():
		writeJSON(w, http.StatusBadRequest, trackResponse{Error: "Invalid payload"})
	case !res.Success:
		writeJSON(w, http.StatusInternalServerError, trackResponse{})
	case res.Data.Stored:
		stored := true
		writeJSON(w, http.StatusCreated, trackResponse{OK: true, Stored: &stored})
	default:
		stored := false
		writeJSON(w, http.StatusAccepted, trackResponse{OK: true, Stored: &stored})
	}
}
