package web

import (
	"net/http"

	"github.com/gorilla/mux"

	"matchday-service/pkg/models"
)

// handleListLeagues GET /api/leagues
func (s *Server) handleListLeagues(w http.ResponseWriter, r *http.Request) {
	leagues, err := s.catalog.ListLeagues(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"count":   len(leagues),
		"leagues": leagues,
	})
}

// handleGetLeague GET /api/leagues/{id}
func (s *Server) handleGetLeague(w http.ResponseWriter, r *http.Request) {
	league, err := s.catalog.GetLeague(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "league": league})
}

// handleCreateLeague POST /api/admin/leagues
func (s *Server) handleCreateLeague(w http.ResponseWriter, r *http.Request) {
	var league models.League
	if err := decodeBody(r, &league, false); err != nil {
		s.respondError(w, err)
		return
	}

	created, err := s.catalog.CreateLeague(r.Context(), league)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]interface{}{"success": true, "league": created})
}

// handleUpdateLeague PUT /api/admin/leagues/{id}
func (s *Server) handleUpdateLeague(w http.ResponseWriter, r *http.Request) {
	var league models.League
	if err := decodeBody(r, &league, false); err != nil {
		s.respondError(w, err)
		return
	}

	updated, err := s.catalog.UpdateLeague(r.Context(), mux.Vars(r)["id"], league)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "league": updated})
}

// handleDeleteLeague DELETE /api/admin/leagues/{id}
func (s *Server) handleDeleteLeague(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.DeleteLeague(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListTeams GET /api/teams?league_id=
func (s *Server) handleListTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := s.catalog.ListTeams(r.Context(), models.TeamFilter{LeagueID: r.URL.Query().Get("league_id")})
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"count":   len(teams),
		"teams":   teams,
	})
}

// handleGetTeam GET /api/teams/{id}
func (s *Server) handleGetTeam(w http.ResponseWriter, r *http.Request) {
	team, err := s.catalog.GetTeam(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "team": team})
}

// handleCreateTeam POST /api/admin/teams
func (s *Server) handleCreateTeam(w http.ResponseWriter, r *http.Request) {
	var team models.Team
	if err := decodeBody(r, &team, false); err != nil {
		s.respondError(w, err)
		return
	}

	created, err := s.catalog.CreateTeam(r.Context(), team)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]interface{}{"success": true, "team": created})
}

// handleUpdateTeam PUT /api/admin/teams/{id}
func (s *Server) handleUpdateTeam(w http.ResponseWriter, r *http.Request) {
	var team models.Team
	if err := decodeBody(r, &team, false); err != nil {
		s.respondError(w, err)
		return
	}

	updated, err := s.catalog.UpdateTeam(r.Context(), mux.Vars(r)["id"], team)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "team": updated})
}

// handleDeleteTeam DELETE /api/admin/teams/{id}
func (s *Server) handleDeleteTeam(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.DeleteTeam(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
