package web

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"matchday-service/pkg/common"
	"matchday-service/pkg/matchclock"
	"matchday-service/pkg/models"
)

// versionRequest 控制动作和修改请求可带的期望版本
type versionRequest struct {
	Version int `json:"version"`
}

// updateMatchRequest PUT /api/admin/matches/{id}
type updateMatchRequest struct {
	models.MatchInput
	Version int `json:"version"`
}

// handleListMatches GET /api/matches?status=live&league_id=&limit=&offset=
func (s *Server) handleListMatches(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := models.MatchFilter{LeagueID: query.Get("league_id")}

	if raw := query.Get("status"); raw != "" {
		status, err := matchclock.ParseStatus(raw)
		if err != nil {
			s.respondError(w, fmt.Errorf("%v: %w", err, common.ErrInvalidInput))
			return
		}
		filter.Status = status
	}

	var err error
	if filter.Limit, err = queryInt(r, "limit"); err != nil {
		s.respondError(w, err)
		return
	}
	if filter.Offset, err = queryInt(r, "offset"); err != nil {
		s.respondError(w, err)
		return
	}

	matches, err := s.matches.ListMatches(r.Context(), filter)
	if err != nil {
		s.respondError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"count":   len(matches),
		"matches": matches,
	})
}

// handleGetMatch GET /api/matches/{id}
func (s *Server) handleGetMatch(w http.ResponseWriter, r *http.Request) {
	match, err := s.matches.GetMatch(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"match":   match,
	})
}

// handleGetClock GET /api/matches/{id}/clock
func (s *Server) handleGetClock(w http.ResponseWriter, r *http.Request) {
	clock, err := s.matches.GetClock(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondError(w, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"clock":   clock,
	})
}

// handleCreateMatch POST /api/admin/matches
func (s *Server) handleCreateMatch(w http.ResponseWriter, r *http.Request) {
	var input models.MatchInput
	if err := decodeBody(r, &input, false); err != nil {
		s.respondError(w, err)
		return
	}

	match, err := s.matches.CreateMatch(r.Context(), input)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"match":   match,
	})
}

// handleUpdateMatch PUT /api/admin/matches/{id}
func (s *Server) handleUpdateMatch(w http.ResponseWriter, r *http.Request) {
	var req updateMatchRequest
	if err := decodeBody(r, &req, false); err != nil {
		s.respondError(w, err)
		return
	}

	match, err := s.matches.UpdateMatch(r.Context(), mux.Vars(r)["id"], req.MatchInput, req.Version)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"match":   match,
	})
}

// handleDeleteMatch DELETE /api/admin/matches/{id}
func (s *Server) handleDeleteMatch(w http.ResponseWriter, r *http.Request) {
	if err := s.matches.DeleteMatch(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleMatchAction POST /api/admin/matches/{id}/actions/{action}
func (s *Server) handleMatchAction(w http.ResponseWriter, r *http.Request) {
	var req versionRequest
	if err := decodeBody(r, &req, true); err != nil {
		s.respondError(w, err)
		return
	}

	vars := mux.Vars(r)
	match, err := s.matches.ApplyAction(r.Context(), vars["id"], vars["action"], req.Version)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"match":   match,
	})
}
