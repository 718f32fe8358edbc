package api

import (
	"net/http"
)

// handleStatistics returns the aggregated usage summary.
func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		writeNotFound(w, "statistics not enabled")
		return
	}

	summary, err := s.stats.Summary(r.Context())
	if err != nil {
		s.logger.Error("building statistics summary failed", "error", err)
		writeInternalError(w, "failed to build statistics")
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// handleStatisticsHourly returns play counts bucketed by hour of day.
func (s *Server) handleStatisticsHourly(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		writeNotFound(w, "statistics not enabled")
		return
	}

	hourly, err := s.stats.Hourly(r.Context())
	if err != nil {
		s.logger.Error("building hourly statistics failed", "error", err)
		writeInternalError(w, "failed to build statistics")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"hourly": hourly,
	})
}

// handleStatisticsClear erases the recorded event log and resets the
// cooldown gate, so a fresh start really is fresh: the next play request
// is not held back by timestamps from the erased history.
func (s *Server) handleStatisticsClear(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		writeNotFound(w, "statistics not enabled")
		return
	}

	if err := s.stats.Clear(r.Context()); err != nil {
		s.logger.Error("clearing statistics failed", "error", err)
		writeInternalError(w, "failed to clear statistics")
		return
	}

	s.playback.Gate().Reset()

	writeJSON(w, http.StatusNoContent, nil)
}
