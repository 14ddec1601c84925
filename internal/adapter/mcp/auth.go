package mcp

import (
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// AuthMiddleware wraps an http.Handler and validates the presented API key
// against the configured bcrypt hashes, the same scheme the REST API uses.
// The key arrives as a Bearer token or a plain Authorization value. With no
// hashes configured the middleware passes all requests through.
func AuthMiddleware(keyHashes []string, next http.Handler) http.Handler {
	if len(keyHashes) == 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if auth == "" {
			http.Error(w, "missing authorization header", http.StatusUnauthorized)
			return
		}

		token := strings.TrimPrefix(auth, "Bearer ")

		for _, hash := range keyHashes {
			if bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)) == nil {
				next.ServeHTTP(w, r)
				return
			}
		}
		http.Error(w, "invalid credentials", http.StatusForbidden)
	})
}
