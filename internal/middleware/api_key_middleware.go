package middleware

import (
	"crypto/subtle"
	"net/http"

	"ummahbook-server/pkg/response"
)

const APIKeyHeader = "apikey"

// APIKeyMiddleware requires the shared key in the "apikey" header. An empty
// key disables the check.
func APIKeyMiddleware(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if apiKey == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			provided := r.Header.Get(APIKeyHeader)
			if provided == "" {
				response.Unauthorized(w, "API Key is missing")
				return
			}
			if subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1 {
				response.Forbidden(w, "Invalid API Key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
