package middleware

import (
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// APIKeyAuth returns middleware that validates an API key from the
// X-API-Key header or an Authorization Bearer token against a list of
// bcrypt hashes. Plaintext keys never live in config; only their hashes
// do. With an empty hash list all requests are rejected, so callers
// should only install the middleware when auth is enabled.
func APIKeyAuth(keyHashes []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				auth := r.Header.Get("Authorization")
				key = strings.TrimPrefix(auth, "Bearer ")
				if key == auth {
					key = ""
				}
			}
			if key == "" {
				unauthorized(w, "missing API key")
				return
			}

			for _, hash := range keyHashes {
				if bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) == nil {
					next.ServeHTTP(w, r)
					return
				}
			}
			unauthorized(w, "invalid API key")
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}`))
}
