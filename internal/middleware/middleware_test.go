package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"ummahbook-server/internal/domain"
	"ummahbook-server/internal/metrics"
	"ummahbook-server/pkg/jwt"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubValidator struct {
	claims *jwt.Claims
	err    error
	token  string
}

func (s *stubValidator) Refetch(_ context.Context, token string) (*jwt.Claims, error) {
	s.token = token
	if token == "" {
		return nil, domain.ErrUnauthenticated
	}
	return s.claims, s.err
}

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func TestTokenFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, TokenFromRequest(req, "token"))

	req.Header.Set("Authorization", "Bearer header-token")
	assert.Equal(t, "header-token", TokenFromRequest(req, "token"))

	assert.Empty(t, TokenFromCookie(req, "token"), "the header is not a cookie")
	assert.Empty(t, CookieToken("token")(req))
	assert.Equal(t, "header-token", CookieOrBearerToken("token")(req))

	req.AddCookie(&http.Cookie{Name: "token", Value: "cookie-token"})
	assert.Equal(t, "cookie-token", TokenFromRequest(req, "token"))
	assert.Equal(t, "cookie-token", TokenFromCookie(req, "token"))
}

func TestAuthMiddleware(t *testing.T) {
	claims := &jwt.Claims{AccountID: "acc-1", Username: "alice", Role: "donatur"}

	tests := []struct {
		name       string
		cookie     string
		err        error
		wantStatus int
	}{
		{"no token", "", nil, http.StatusUnauthorized},
		{"invalid token", "bad", domain.ErrInvalidToken, http.StatusForbidden},
		{"storage failure", "tok", &domain.StorageError{Op: "check revocation", Err: errors.New("down")}, http.StatusInternalServerError},
		{"valid token", "tok", nil, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			validator := &stubValidator{claims: claims, err: tt.err}
			var caller domain.Caller
			handler := AuthMiddleware(validator, CookieToken("token"), discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				caller = GetCaller(r)
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/profile/me", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "token", Value: tt.cookie})
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, domain.Caller{AccountID: "acc-1", Role: domain.RoleDonatur}, caller)
			}
		})
	}
}

func TestGetCallerWithoutClaims(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, domain.Caller{}, GetCaller(req))
	assert.Empty(t, GetUserID(req))
}

func TestAPIKeyMiddleware(t *testing.T) {
	handler := APIKeyMiddleware("k3y")(http.HandlerFunc(okHandler))

	tests := []struct {
		name       string
		key        string
		wantStatus int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong", "nope", http.StatusForbidden},
		{"right", "k3y", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/chat/abc", nil)
			if tt.key != "" {
				req.Header.Set(APIKeyHeader, tt.key)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}

	disabled := APIKeyMiddleware("")(http.HandlerFunc(okHandler))
	rec := httptest.NewRecorder()
	disabled.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/chat/abc", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestCORSMiddleware(t *testing.T) {
	handler := CORSMiddleware("http://localhost:5173, https://ummahbook.id", "GET,POST", "Content-Type")(http.HandlerFunc(okHandler))

	req := httptest.NewRequest(http.MethodOptions, "/login", nil)
	req.Header.Set("Origin", "https://ummahbook.id")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://ummahbook.id", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/login", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestLoggerMiddlewareRecordsRouteTemplate(t *testing.T) {
	m := metrics.New()
	router := mux.NewRouter()
	router.Use(LoggerMiddleware(discardLogger(), m))
	router.HandleFunc("/chat/{sessionId}", okHandler).Methods(http.MethodGet)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/chat/one", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/chat/two", nil))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("/chat/{sessionId}", http.MethodGet, "204")))
}
