// Package api implements the folio preview server's REST API using chi.
package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// bearerToken returns the request's credential. EventSource clients cannot
// set headers, so the live-reload stream may pass it as ?access_token=.
func bearerToken(r *http.Request) string {
	if auth, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return auth
	}
	if r.Method == http.MethodGet {
		return r.URL.Query().Get("access_token")
	}
	return ""
}

// AuthMiddleware returns middleware that validates a Bearer token when
// enabled. Disabled mode lets every request through.
func AuthMiddleware(enabled bool, token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := bearerToken(r)
			if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
