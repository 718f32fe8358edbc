package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pawvision/core/internal/library"
)

// handleListVideos returns the full video catalogue.
func (s *Server) handleListVideos(w http.ResponseWriter, r *http.Request) {
	videos, err := s.library.List(r.Context())
	if err != nil {
		s.logger.Error("listing videos failed", "error", err)
		writeInternalError(w, "failed to list videos")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"videos": videos,
		"count":  len(videos),
	})
}

// handleUpdateVideo updates playback metadata for one video.
//
// The video path is passed as a query parameter because local paths
// contain slashes that would mangle a URL path segment.
func (s *Server) handleUpdateVideo(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeBadRequest(w, "path query parameter is required")
		return
	}

	var update library.MetadataUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	video, err := s.library.UpdateMetadata(r.Context(), path, update)
	if err != nil {
		if errors.Is(err, library.ErrVideoNotFound) {
			writeNotFound(w, "video not found")
			return
		}
		s.logger.Error("updating video failed", "path", path, "error", err)
		writeInternalError(w, "failed to update video")
		return
	}

	s.recordAPICall(r, "update_video")
	writeJSON(w, http.StatusOK, video)
}

// handleDeleteVideo removes a video from the catalogue.
func (s *Server) handleDeleteVideo(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeBadRequest(w, "path query parameter is required")
		return
	}

	if err := s.library.Delete(r.Context(), path); err != nil {
		if errors.Is(err, library.ErrVideoNotFound) {
			writeNotFound(w, "video not found")
			return
		}
		s.logger.Error("deleting video failed", "path", path, "error", err)
		writeInternalError(w, "failed to delete video")
		return
	}

	s.recordAPICall(r, "delete_video")
	writeJSON(w, http.StatusNoContent, nil)
}

// handleAddYouTube adds a YouTube video to the catalogue.
func (s *Server) handleAddYouTube(w http.ResponseWriter, r *http.Request) {
	var req library.AddYouTubeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.URL == "" {
		writeBadRequest(w, "url is required")
		return
	}

	video, err := s.library.AddYouTube(r.Context(), req)
	if err != nil {
		if errors.Is(err, library.ErrInvalidYouTubeURL) {
			writeBadRequest(w, err.Error())
			return
		}
		s.logger.Error("adding youtube video failed", "url", req.URL, "error", err)
		writeInternalError(w, "failed to add youtube video")
		return
	}

	s.recordAPICall(r, "add_youtube")
	writeJSON(w, http.StatusCreated, video)
}

// handleRefreshStreams refreshes expired YouTube stream URLs.
func (s *Server) handleRefreshStreams(w http.ResponseWriter, r *http.Request) {
	refreshed, err := s.library.RefreshStreams(r.Context())
	if err != nil {
		s.logger.Error("refreshing streams failed", "error", err)
		writeInternalError(w, "failed to refresh streams")
		return
	}

	s.recordAPICall(r, "refresh_streams")
	writeJSON(w, http.StatusOK, map[string]any{
		"refreshed": refreshed,
	})
}
