// internal/httpserver/routes_design.go
//
// Satellite design endpoints:
//   - POST /api/stage3/addcoins → grant coins to a team (admin key)
//   - POST /api/design/submit   → price, validate and commit the team's single design
//   - GET  /api/team/{teamId}/design → the committed design
//   - GET  /api/catalog         → the parts table the server prices against

package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/robalobadob/satquest/internal/design"
)

func (s *Server) mountDesign(r chi.Router) {
	r.With(s.requireAdmin()).Post("/stage3/addcoins", s.handleAddCoins)
	r.Post("/design/submit", s.handleSubmitDesign)
	r.Get("/team/{teamId}/design", s.handleTeamDesign)
	r.Get("/catalog", s.handleCatalog)
}

// addCoinsReq carries coins as any JSON value; the service coerces it.
type addCoinsReq struct {
	TeamID string `json:"teamId"`
	Coins  any    `json:"coins"`
}

func (s *Server) handleAddCoins(w http.ResponseWriter, r *http.Request) {
	var body addCoinsReq
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	balance, err := s.svc.AddCoins(r.Context(), body.TeamID, body.Coins)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Coins added", "coins": balance})
}

// designReq is the payload plus the submitting team.
type designReq struct {
	TeamID string `json:"teamId"`
	design.Payload
}

type designRes struct {
	OK             bool           `json:"ok"`
	Design         *design.Design `json:"design"`
	Message        string         `json:"message"`
	RemainingCoins int64          `json:"remainingCoins"`
}

func (s *Server) handleSubmitDesign(w http.ResponseWriter, r *http.Request) {
	var body designReq
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	if err := authorizeTeam(r, body.TeamID); err != nil {
		writeError(w, r, err)
		return
	}
	d, err := s.svc.SubmitDesign(r.Context(), body.TeamID, body.Payload)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, designRes{
		OK:             true,
		Design:         d,
		Message:        "Design saved successfully",
		RemainingCoins: d.RemainingCoins,
	})
}

func (s *Server) handleTeamDesign(w http.ResponseWriter, r *http.Request) {
	teamID := chi.URLParam(r, "teamId")
	if err := authorizeTeam(r, teamID); err != nil {
		writeError(w, r, err)
		return
	}
	d, err := s.svc.FetchDesign(r.Context(), teamID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "design": d})
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Catalog())
}
