// internal/httpserver/routes_puzzle.go
//
// Crossword endpoints:
//   - GET  /api/puzzle/random/{teamId} → blank grid + clues; records the issued puzzle
//   - POST /api/puzzle/submit          → grade a filled grid; unlocks the coordinate

package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/robalobadob/satquest/internal/mission"
)

func (s *Server) mountPuzzles(r chi.Router) {
	r.Route("/puzzle", func(r chi.Router) {
		r.Get("/random/{teamId}", s.handleRandomPuzzle)
		r.Post("/submit", s.handleSubmitPuzzle)
	})
}

func (s *Server) handleRandomPuzzle(w http.ResponseWriter, r *http.Request) {
	teamID := chi.URLParam(r, "teamId")
	if err := authorizeTeam(r, teamID); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := s.svc.FetchRandomPuzzle(r.Context(), teamID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"puzzle": p})
}

func (s *Server) handleSubmitPuzzle(w http.ResponseWriter, r *http.Request) {
	var body mission.CrosswordInput
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	if err := authorizeTeam(r, body.TeamID); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.svc.SubmitCrossword(r.Context(), body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
