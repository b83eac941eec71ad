package api

import (
	"crypto/subtle"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// APIKeyHeader carries the shared key when the server has one configured.
const APIKeyHeader = "X-API-Key"

// apiKeyMiddleware rejects requests whose APIKeyHeader does not match key.
// Paths in exempt pass without a key.
func apiKeyMiddleware(key string, exempt []string, logger zerolog.Logger) mux.MiddlewareFunc {
	skip := make(map[string]bool, len(exempt))
	for _, p := range exempt {
		skip[p] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skip[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}
			got := r.Header.Get(APIKeyHeader)
			if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				logger.Warn().Str("method", r.Method).Str("path", r.URL.Path).Msg("unauthorized request")
				writeError(w, "invalid or missing API key", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
