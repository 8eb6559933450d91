// internal/httpserver/server.go
//
// HTTP server wiring for the SatQuest backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs, access log).
//   - Public endpoints: "/", "/health".
//   - Mission endpoints under /api (team, puzzle, design, catalog).
//   - Mapping service errors onto status codes and JSON bodies.
//
// Notes:
//   - CORS is origin-aware and credentials-enabled (so cookies work).
//   - Team routes run for anonymous callers; a valid session token narrows
//     them to the token's team.
//   - /api/stage3/addcoins is gated by the admin key when one is configured.

package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/satquest/internal/apperr"
	"github.com/robalobadob/satquest/internal/mission"
)

// Config holds the transport settings resolved by the CLI.
type Config struct {
	ClientOrigin   string
	JWTSecret      string
	JWTExpiresDays int
	CookieName     string
	Production     bool   // secure cookies, SameSite=None
	AdminKeyHash   string // bcrypt hash; empty leaves admin routes open
}

func (c Config) withDefaults() Config {
	if c.ClientOrigin == "" {
		c.ClientOrigin = "http://localhost:5173"
	}
	if c.JWTSecret == "" {
		c.JWTSecret = "dev_secret_change_me"
	}
	if c.JWTExpiresDays <= 0 {
		c.JWTExpiresDays = 14
	}
	if c.CookieName == "" {
		c.CookieName = "satquest_token"
	}
	return c
}

// Server bundles router, mission service and transport config.
type Server struct {
	r   *chi.Mux
	svc *mission.Service
	cfg Config
}

// New constructs a Server, installs middleware, and registers routes.
func New(svc *mission.Service, cfg Config) *Server {
	s := &Server{r: chi.NewRouter(), svc: svc, cfg: cfg.withDefaults()}

	if s.cfg.AdminKeyHash == "" {
		log.Warn().Msg("ADMIN_KEY_HASH not set; /api/stage3/addcoins is open")
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID)                 // add X-Request-ID
	s.r.Use(chimw.RealIP)                    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(accessLog)                       // one zerolog line per request
	s.r.Use(chimw.Recoverer)                 // recover from panics
	s.r.Use(chimw.Timeout(10 * time.Second)) // bound handler time
	s.r.Use(jsonContentType)                 // default JSON responses
	s.r.Use(cors(s.cfg.ClientOrigin))        // credentials-friendly CORS

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"service":"satquest","endpoints":["/health","POST /api/register","POST /api/login","GET /api/puzzle/random/{teamId}","POST /api/puzzle/submit","POST /api/stage3/addcoins","POST /api/design/submit","GET /api/team/{teamId}","GET /api/catalog"]}`))
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	s.r.Route("/api", func(r chi.Router) {
		r.Use(s.withOptionalTeam())
		s.mountTeams(r)
		s.mountPuzzles(r)
		s.mountDesign(r)
	})

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "path": r.URL.Path})
	})

	return s
}

// Router exposes the internal router (also used by tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors enables credentialed CORS for a single origin.
func cors(origin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+adminKeyHeader)
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// accessLog records method, path, status and latency for every request.
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			log.Info().
				Str("req_id", chimw.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("took", time.Since(start)).
				Msg("http")
		}()
		next.ServeHTTP(ww, r)
	})
}

// ------------------------------ responses ----------------------------------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorBody is the JSON shape of every failed request.
type errorBody struct {
	Error   apperr.Kind `json:"error"`
	Message string      `json:"message"`
}

// statusOf maps an error kind to its HTTP status.
func statusOf(k apperr.Kind) int {
	switch k {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindAlreadySubmitted, apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindInvalidPlacement, apperr.KindPowerOverload, apperr.KindBudgetExceeded:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// writeError reports err to the client; internal failures are logged and
// their details withheld.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	status := statusOf(kind)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("req_id", chimw.GetReqID(r.Context())).Str("path", r.URL.Path).Msg("request failed")
	}
	writeJSON(w, status, errorBody{Error: kind, Message: apperr.MessageOf(err)})
}

// decodeJSON reads a JSON body into v. Malformed or missing bodies are
// validation errors.
func decodeJSON(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, io.EOF):
		return apperr.Validation("request body required")
	default:
		return apperr.Validation("invalid JSON: %v", err)
	}
}
