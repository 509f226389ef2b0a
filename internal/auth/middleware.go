package auth

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// publicPaths stay reachable without a token.
var publicPaths = map[string]bool{
	"/api/v1/health": true,
}

// eventsPath accepts the token as ?access_token= since browsers cannot set
// headers on WebSocket requests.
const eventsPath = "/api/v1/events"

// Middleware requires a valid bearer token on /api/ routes. Operational
// endpoints and the Swagger UI are left open.
func Middleware(tokens *TokenService, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasPrefix(r.URL.Path, "/api/") || publicPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			raw, ok := bearer(r)
			if !ok {
				writeAuthError(w, r, "missing or invalid authorization header")
				return
			}
			claims, err := tokens.Validate(raw)
			if err != nil {
				logger.Debug("rejected api token", zap.String("path", r.URL.Path), zap.Error(err))
				writeAuthError(w, r, "invalid or expired access token")
				return
			}

			logger.Debug("api token accepted",
				zap.String("subject", claims.Subject),
				zap.String("path", r.URL.Path),
			)
			next.ServeHTTP(w, r)
		})
	}
}

func bearer(r *http.Request) (string, bool) {
	if h := r.Header.Get("Authorization"); h != "" {
		tok, ok := strings.CutPrefix(h, "Bearer ")
		return tok, ok && tok != ""
	}
	if r.URL.Path == eventsPath {
		tok := r.URL.Query().Get("access_token")
		return tok, tok != ""
	}
	return "", false
}

// writeAuthError writes an RFC 7807 401 response.
func writeAuthError(w http.ResponseWriter, r *http.Request, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="zabbixdash"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"type":     "https://zabbixdash.dev/problems/unauthorized",
		"title":    "Unauthorized",
		"status":   http.StatusUnauthorized,
		"detail":   detail,
		"instance": r.URL.Path,
	})
}
