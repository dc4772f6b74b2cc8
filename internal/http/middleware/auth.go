package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/rs/zerolog/log"
)

// AdminAuth guards operational endpoints with a shared token carried in the
// X-Admin-Token header. When no token is configured the whole admin surface
// is disabled rather than left open.
func AdminAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				http.Error(w, `{"error":"admin API disabled"}`, http.StatusServiceUnavailable)
				return
			}
			got := r.Header.Get("X-Admin-Token")
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				log.Warn().Str("path", r.URL.Path).Str("remote", r.RemoteAddr).Msg("admin auth rejected")
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
