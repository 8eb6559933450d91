// internal/httpserver/auth.go
//
// Team session tokens and the admin key.
// Responsibilities:
//   - Sign HS256 JWTs carrying the team id and set them as an HttpOnly cookie.
//   - Decorate /api requests with the caller's team when a token is present.
//   - Check that a token, when present, belongs to the addressed team.
//   - Gate admin routes behind a bcrypt-hashed key.

package httpserver

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/robalobadob/satquest/internal/apperr"
)

const adminKeyHeader = "X-Admin-Key"

// authTeam is placed into request context by withOptionalTeam.
type authTeam struct {
	ID   string
	Code string
}

// ctxTeamKey is the context key for *authTeam.
type ctxTeamKey struct{}

// ctxBadTokenKey marks requests that carried an unusable token.
type ctxBadTokenKey struct{}

// ------------------------------ JWT & cookies ------------------------------

// signJWT creates an HS256 JWT with the team id/code and the configured expiry.
func (s *Server) signJWT(teamID, teamCode string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(time.Duration(s.cfg.JWTExpiresDays) * 24 * time.Hour)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":   teamID,
		"code": teamCode,
		"exp":  exp.Unix(),
		"iat":  now.Unix(),
	})
	ss, err := t.SignedString([]byte(s.cfg.JWTSecret))
	return ss, exp, err
}

// parseJWT validates tok and returns the team it names.
func (s *Server) parseJWT(tok string) (*authTeam, bool) {
	claims := jwt.MapClaims{}
	t, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !t.Valid {
		return nil, false
	}
	id, _ := claims["id"].(string)
	code, _ := claims["code"].(string)
	if id == "" {
		return nil, false
	}
	return &authTeam{ID: id, Code: code}, true
}

// setAuthCookie writes the session cookie with appropriate security attributes.
func (s *Server) setAuthCookie(w http.ResponseWriter, token string, exp time.Time) {
	sameSite := http.SameSiteLaxMode
	if s.cfg.Production {
		sameSite = http.SameSiteNoneMode // required for third-party contexts when Secure
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.Production,
		SameSite: sameSite,
		Expires:  exp,
	})
}

// bearerOrCookie extracts a bearer token from Authorization header or session cookie.
func (s *Server) bearerOrCookie(r *http.Request) string {
	// Authorization: Bearer <token>
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	if c, err := r.Cookie(s.cfg.CookieName); err == nil {
		return c.Value
	}
	return ""
}

// issueSession signs a token for the team, sets the cookie and returns the token.
func (s *Server) issueSession(w http.ResponseWriter, teamID, teamCode string) (string, error) {
	tok, exp, err := s.signJWT(teamID, teamCode)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, err, "sign token")
	}
	s.setAuthCookie(w, tok, exp)
	return tok, nil
}

// --------------------------- optional auth ---------------------------------

// withOptionalTeam decorates requests with the token's team when one is
// present. It never rejects; authorizeTeam decides per route.
func (s *Server) withOptionalTeam() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tok := s.bearerOrCookie(r); tok != "" {
				ctx := r.Context()
				if team, ok := s.parseJWT(tok); ok {
					ctx = context.WithValue(ctx, ctxTeamKey{}, team)
				} else {
					ctx = context.WithValue(ctx, ctxBadTokenKey{}, true)
				}
				r = r.WithContext(ctx)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// authorizeTeam allows anonymous callers, rejects unusable tokens, and
// rejects tokens issued to a different team.
func authorizeTeam(r *http.Request, teamID string) error {
	if bad, _ := r.Context().Value(ctxBadTokenKey{}).(bool); bad {
		return apperr.New(apperr.KindUnauthorized, "Invalid token")
	}
	if me, _ := r.Context().Value(ctxTeamKey{}).(*authTeam); me != nil && me.ID != teamID {
		return apperr.New(apperr.KindForbidden, "token does not belong to this team")
	}
	return nil
}

// ---------------------------- admin middleware -----------------------------

// requireAdmin enforces the admin key when a hash is configured.
func (s *Server) requireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if s.cfg.AdminKeyHash == "" {
				next.ServeHTTP(w, r)
				return
			}
			key := r.Header.Get(adminKeyHeader)
			if key == "" {
				writeError(w, r, apperr.New(apperr.KindUnauthorized, "admin key required"))
				return
			}
			if !checkAdminKey(s.cfg.AdminKeyHash, key) {
				writeError(w, r, apperr.New(apperr.KindForbidden, "invalid admin key"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// checkAdminKey is a bcrypt verifier.
func checkAdminKey(hash, key string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) == nil
}
