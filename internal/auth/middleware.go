// ABOUTME: Optional bearer-token authentication for inbound requests.
// ABOUTME: When no API key is configured the server is open, matching local development use.

package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// Middleware requires "Authorization: Bearer <apiKey>" on every request
// when apiKey is non-empty. Health checks stay open for probes.
func Middleware(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey == "" || r.URL.Path == "/healthz" {
				next.ServeHTTP(w, r)
				return
			}
			token := extractBearer(r.Header.Get("Authorization"))
			if subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"status":"error","error":{"kind":"unauthorized","message":"invalid or missing API key"}}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func extractBearer(header string) string {
	if header == "" {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}
