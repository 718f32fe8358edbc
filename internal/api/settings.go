package api

import (
	"encoding/json"
	"net/http"

	"github.com/pawvision/core/internal/settings"
)

// handleGetSettings returns the current playback settings.
func (s *Server) handleGetSettings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.settings.Snapshot())
}

// handlePatchSettings applies a partial settings update.
//
// The store validates the patched result as a whole; a rejected patch
// leaves the previous settings in effect and returns 400 with the
// validation message.
func (s *Server) handlePatchSettings(w http.ResponseWriter, r *http.Request) {
	var patch settings.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	updated, err := s.settings.Update(patch)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	s.recordAPICall(r, "update_settings")
	writeJSON(w, http.StatusOK, updated)
}
