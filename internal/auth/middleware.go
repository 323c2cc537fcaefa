package auth

import (
	"net/http"
	"strings"

	"agentforge/internal/logging"
)

// publicPathPrefixes are never gated by the middleware, per spec §4.2.
var publicPathPrefixes = []string{
	"/health",
	"/static/",
	"/login",
	"/verify",
	"/setup",
	"/api/setup",
	"/api/auth/login",
	"/webhooks/",
}

func isPublicPath(path string) bool {
	for _, p := range publicPathPrefixes {
		if path == p || strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// isAPIPath distinguishes API/webhook/JSON callers (401 on auth failure)
// from browser navigation paths (302 redirect to login).
func isAPIPath(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") || strings.HasPrefix(r.URL.Path, "/webhooks/") {
		return true
	}
	accept := r.Header.Get("Accept")
	if strings.Contains(accept, "application/json") {
		return true
	}
	return r.Header.Get("Authorization") != ""
}

// Middleware enforces bearer-token auth on every non-public path. It
// extracts a token from the access_token cookie or the Authorization
// header, verifies the legacy shared secret first, then the JWT signature
// plus server-side jti revocation, and attaches a Principal to the request
// context on success. With neither a JWT secret nor a legacy access token
// configured, it runs in development mode: requests pass through unchecked
// and a warning is logged once per request.
func Middleware(store *Store, issuer *TokenIssuer, legacyToken string) func(http.Handler) http.Handler {
	devMode := issuer == nil && legacyToken == ""
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublicPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			if devMode {
				logging.From(r.Context()).Warn().Msg("auth_dev_mode_no_secret_configured")
				next.ServeHTTP(w, r)
				return
			}

			token := extractToken(r)
			if token == "" {
				denyUnauthenticated(w, r)
				return
			}

			if legacyToken != "" && token == legacyToken {
				r = r.WithContext(WithPrincipal(r.Context(), &Principal{Level: LevelAdminGeral}))
				next.ServeHTTP(w, r)
				return
			}

			if issuer == nil {
				denyUnauthenticated(w, r)
				return
			}

			claims, err := issuer.Verify(token)
			if err != nil {
				denyUnauthenticated(w, r)
				return
			}

			valid, err := store.IsTokenValid(r.Context(), claims.ID)
			if err != nil || !valid {
				denyUnauthenticated(w, r)
				return
			}

			p := &Principal{
				ID:      claims.Subject,
				Level:   Level(claims.Level),
				GroupID: claims.Group,
			}
			r = r.WithContext(WithPrincipal(r.Context(), p))
			next.ServeHTTP(w, r)
		})
	}
}

func extractToken(r *http.Request) string {
	if c, err := r.Cookie("access_token"); err == nil && c.Value != "" {
		return c.Value
	}
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

func denyUnauthenticated(w http.ResponseWriter, r *http.Request) {
	if isAPIPath(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	http.Redirect(w, r, "/login", http.StatusFound)
}

// RequireAdminGeral rejects any principal that is not ADMIN_GERAL.
func RequireAdminGeral(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := CurrentPrincipal(r.Context())
		if !ok || p.Level != LevelAdminGeral {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdminGrupo rejects any principal that is not ADMIN or ADMIN_GERAL.
func RequireAdminGrupo(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := CurrentPrincipal(r.Context())
		if !ok || (p.Level != LevelAdmin && p.Level != LevelAdminGeral) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// CanViewAgent implements spec §4.2's visibility rule: ADMIN_GERAL sees
// everything; others see agents in their own group or group-less agents.
func CanViewAgent(p *Principal, agentGroupID string) bool {
	if p == nil {
		return false
	}
	if p.Level == LevelAdminGeral {
		return true
	}
	if agentGroupID == "" {
		return true
	}
	return p.GroupID == agentGroupID
}
