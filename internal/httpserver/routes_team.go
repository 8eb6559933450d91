// internal/httpserver/routes_team.go
//
// Team endpoints:
//   - POST /api/register      → create a team, returns id, join code and session token
//   - POST /api/login         → resolve a join code, returns the team and a session token
//   - GET  /api/team/{teamId} → team record (progress, coins, design link)

package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/robalobadob/satquest/internal/mission"
)

func (s *Server) mountTeams(r chi.Router) {
	r.Post("/register", s.handleRegister)
	r.Post("/login", s.handleLogin)
	r.Get("/team/{teamId}", s.handleTeam)
}

type registerRes struct {
	OK       bool   `json:"ok"`
	TeamID   string `json:"teamId"`
	TeamCode string `json:"teamCode"`
	Token    string `json:"token"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body mission.RegisterInput
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	team, err := s.svc.RegisterTeam(r.Context(), body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	tok, err := s.issueSession(w, team.ID, team.Code)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, registerRes{OK: true, TeamID: team.ID, TeamCode: team.Code, Token: tok})
}

type loginReq struct {
	TeamCode string `json:"teamCode"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body loginReq
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	team, err := s.svc.Login(r.Context(), body.TeamCode)
	if err != nil {
		writeError(w, r, err)
		return
	}
	tok, err := s.issueSession(w, team.ID, team.Code)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "team": team, "token": tok})
}

func (s *Server) handleTeam(w http.ResponseWriter, r *http.Request) {
	teamID := chi.URLParam(r, "teamId")
	if err := authorizeTeam(r, teamID); err != nil {
		writeError(w, r, err)
		return
	}
	team, err := s.svc.FetchTeam(r.Context(), teamID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "team": team})
}
