package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
)

// Auth returns middleware that gates the API behind a static key, presented
// either as "Authorization: Bearer <key>" or in the X-API-Key header. An
// empty configured key disables authentication, which is the demo-mode
// default.
func Auth(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if apiKey == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented := clientKey(r)
			if presented == "" {
				unauthorized(w, "missing api key")
				return
			}
			// Constant-time compare so response timing leaks nothing.
			if subtle.ConstantTimeCompare([]byte(presented), []byte(apiKey)) != 1 {
				unauthorized(w, "invalid api key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientKey extracts the presented key, preferring the dedicated header
// over the Bearer scheme.
func clientKey(r *http.Request) string {
	if key := strings.TrimSpace(r.Header.Get("X-API-Key")); key != "" {
		return key
	}
	if auth := r.Header.Get("Authorization"); auth != "" {
		if scheme, token, ok := strings.Cut(auth, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	return ""
}

// unauthorized writes a 401 in the same JSON error envelope the handlers use.
func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
