package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"ummahbook-server/internal/domain"
	"ummahbook-server/pkg/errutil"
	"ummahbook-server/pkg/jwt"
	"ummahbook-server/pkg/response"
)

type contextKey string

const ClaimsKey contextKey = "claims"

const (
	MessageTokenMissing = "Token not found. Please log in."
	MessageTokenInvalid = "Invalid or expired token."
)

// SessionValidator resolves a session token to the identity it carries.
type SessionValidator interface {
	Refetch(ctx context.Context, token string) (*jwt.Claims, error)
}

// TokenSource extracts the session token from a request; "" when absent.
type TokenSource func(r *http.Request) string

// TokenFromCookie reads the session token from the named cookie only.
func TokenFromCookie(r *http.Request, cookieName string) string {
	if cookie, err := r.Cookie(cookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// TokenFromRequest reads the session token from the named cookie, falling back
// to an "Authorization: Bearer" header. Only the chat API and /ws accept the header.
func TokenFromRequest(r *http.Request, cookieName string) string {
	if token := TokenFromCookie(r, cookieName); token != "" {
		return token
	}

	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

func CookieToken(cookieName string) TokenSource {
	return func(r *http.Request) string { return TokenFromCookie(r, cookieName) }
}

func CookieOrBearerToken(cookieName string) TokenSource {
	return func(r *http.Request) string { return TokenFromRequest(r, cookieName) }
}

func AuthMiddleware(validator SessionValidator, source TokenSource, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := validator.Refetch(r.Context(), source(r))
			if err != nil {
				WriteSessionError(w, logger, err)
				return
			}

			ctx := context.WithValue(r.Context(), ClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WriteSessionError maps a session validation failure to its HTTP response.
func WriteSessionError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		response.Unauthorized(w, MessageTokenMissing)
	case errors.Is(err, domain.ErrInvalidToken):
		response.Forbidden(w, MessageTokenInvalid)
	default:
		errutil.LogError(logger, "session validation failed", err)
		response.InternalError(w, "Terjadi kesalahan server.", err)
	}
}

func GetClaims(r *http.Request) *jwt.Claims {
	claims, ok := r.Context().Value(ClaimsKey).(*jwt.Claims)
	if !ok {
		return nil
	}
	return claims
}

func GetUserID(r *http.Request) string {
	if claims := GetClaims(r); claims != nil {
		return claims.AccountID
	}
	return ""
}

// GetCaller returns the authenticated account; the zero Caller when there is none.
func GetCaller(r *http.Request) domain.Caller {
	claims := GetClaims(r)
	if claims == nil {
		return domain.Caller{}
	}
	return domain.Caller{AccountID: claims.AccountID, Role: domain.Role(claims.Role)}
}
