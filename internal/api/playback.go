package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/pawvision/core/internal/player"
)

// playRequest is the optional request body for POST /playback/play.
type playRequest struct {
	Trigger string `json:"trigger,omitempty"`
}

// statusResponse extends the orchestrator snapshot with the fields that
// don't serialise directly from player.Status.
type statusResponse struct {
	player.Status
	CooldownRemainingSeconds float64    `json:"cooldown_remaining_seconds"`
	NextScheduledPlay        *time.Time `json:"next_scheduled_play,omitempty"`
}

// handlePlay starts a playback session.
//
// Play refusals (already playing, cooldown, empty library) are reported as
// 409 so clients can distinguish "not now" from a fault.
func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	trigger := player.TriggerAPI
	if r.Body != nil && r.ContentLength != 0 {
		var req playRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeBadRequest(w, "invalid JSON body")
			return
		}
		if req.Trigger != "" {
			trigger = player.Trigger(req.Trigger)
		}
	}

	s.recordAPICall(r, "play")

	if err := s.playback.RequestPlay(r.Context(), trigger); err != nil {
		if player.Rejected(err) {
			writeConflict(w, err.Error())
			return
		}
		s.logger.Error("play request failed", "error", err)
		writeInternalError(w, "failed to start playback")
		return
	}

	writeJSON(w, http.StatusOK, s.statusSnapshot())
}

// handleStop stops the active playback session, if any.
func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.recordAPICall(r, "stop")

	stopped := s.playback.RequestStop(r.Context(), player.EndManual)
	writeJSON(w, http.StatusOK, map[string]any{
		"stopped": stopped,
	})
}

// handlePlaybackStatus returns the current playback snapshot.
func (s *Server) handlePlaybackStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.statusSnapshot())
}

// statusSnapshot assembles the status response from the orchestrator and
// the scheduler preview.
func (s *Server) statusSnapshot() statusResponse {
	st := s.playback.Status()
	out := statusResponse{
		Status:                   st,
		CooldownRemainingSeconds: st.CooldownRemaining.Seconds(),
	}
	if s.schedule != nil {
		if next, ok := s.schedule.NextPlay(); ok {
			out.NextScheduledPlay = &next
		}
	}
	return out
}

// recordAPICall logs the call into statistics when a recorder is wired.
func (s *Server) recordAPICall(r *http.Request, action string) {
	if s.stats == nil {
		return
	}
	s.stats.RecordAPICall(r.Context(), action)
}
