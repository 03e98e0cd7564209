package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"
)

const storefrontDevOrigin = "http://localhost:3000"

// Headers the storefront reads off our responses: the request id for support
// tickets, the replay marker and the backoff hints on 429 and 503.
var exposedHeaders = []string{requestIDHeader, "Idempotent-Replayed", "Retry-After", "WWW-Authenticate"}

// CORS applies the storefront origin policy. Credentials are only allowed
// for an explicit origin list; a "*" entry turns them off.
func CORS(origins []string) func(http.Handler) http.Handler {
	allowed, wildcard := normalizeOrigins(origins)
	return cors.New(cors.Options{
		AllowedOrigins:   allowed,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With", idempotencyHeader, GuestSessionHeader, requestIDHeader},
		ExposedHeaders:   exposedHeaders,
		AllowCredentials: !wildcard,
		MaxAge:           300,
	}).Handler
}

// normalizeOrigins trims, drops trailing slashes and duplicates, and falls
// back to the dev storefront when nothing usable is configured.
func normalizeOrigins(origins []string) (allowed []string, wildcard bool) {
	seen := map[string]bool{}
	for _, origin := range origins {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		if origin == "" || seen[origin] {
			continue
		}
		seen[origin] = true
		if origin == "*" {
			wildcard = true
		}
		allowed = append(allowed, origin)
	}
	if len(allowed) == 0 {
		allowed = []string{storefrontDevOrigin}
	}
	return allowed, wildcard
}
