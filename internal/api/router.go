package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
//
// Read-only endpoints are open so wall tablets and dashboards can poll
// without a login; everything that changes state sits behind JWT auth.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// Auth endpoints (no auth required)
		r.Post("/auth/login", s.handleLogin)

		// Read-only endpoints (no auth required)
		r.Get("/playback/status", s.handlePlaybackStatus)
		r.Get("/settings", s.handleGetSettings)
		r.Get("/videos", s.handleListVideos)
		r.Get("/statistics", s.handleStatistics)
		r.Get("/statistics/hourly", s.handleStatisticsHourly)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			// WS ticket requires authentication - user must be logged in to request a ticket
			r.Post("/auth/ws-ticket", s.handleWSTicket)

			r.Route("/playback", func(r chi.Router) {
				r.Post("/play", s.handlePlay)
				r.Post("/stop", s.handleStop)
			})

			r.Patch("/settings", s.handlePatchSettings)

			r.Route("/videos", func(r chi.Router) {
				r.Patch("/", s.handleUpdateVideo)
				r.Delete("/", s.handleDeleteVideo)
				r.Post("/youtube", s.handleAddYouTube)
				r.Post("/youtube/refresh", s.handleRefreshStreams)
			})

			r.Post("/statistics/clear", s.handleStatisticsClear)
		})

		// WebSocket (auth via ticket, validated in handler)
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
