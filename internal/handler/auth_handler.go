package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"ummahbook-server/internal/config"
	"ummahbook-server/internal/domain"
	"ummahbook-server/internal/metrics"
	"ummahbook-server/internal/middleware"
	"ummahbook-server/internal/service"
	"ummahbook-server/pkg/response"

	"github.com/go-playground/validator/v10"
)

const MessageLoggedOut = "User logged out successfully!"

type AuthHandler struct {
	authService *service.AuthService
	cookie      config.CookieConfig
	metrics     *metrics.Metrics
	logger      *slog.Logger
	validator   *validator.Validate
}

func NewAuthHandler(authService *service.AuthService, cookie config.CookieConfig, m *metrics.Metrics, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		cookie:      cookie,
		metrics:     m,
		logger:      logger,
		validator:   validator.New(),
	}
}

func (h *AuthHandler) record(event string, err error) {
	if h.metrics != nil {
		h.metrics.AuthEvent(event, outcome(err))
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	resp, err := h.authService.Register(r.Context(), &req)
	h.record("register", err)
	if err != nil {
		writeError(w, h.logger, err, "Terjadi kesalahan server saat registrasi.")
		return
	}

	response.Success(w, resp)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	result, err := h.authService.Login(r.Context(), &req)
	h.record("login", err)
	if err != nil {
		// Login failures are bare JSON strings, the shape the web client parses.
		switch {
		case errors.Is(err, domain.ErrNotFound):
			response.JSON(w, http.StatusNotFound, MessageUserNotFound)
			return
		case errors.Is(err, domain.ErrInvalidCredentials):
			response.JSON(w, http.StatusUnauthorized, MessageWrongCredentials)
			return
		}
		writeError(w, h.logger, err, "Terjadi kesalahan server saat login.")
		return
	}

	http.SetCookie(w, h.sessionCookie(result.Token, result.ExpiresAt))
	response.Success(w, result.Account)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	err := h.authService.Logout(r.Context(), middleware.TokenFromCookie(r, h.cookie.Name))
	h.record("logout", err)
	if err != nil {
		writeError(w, h.logger, err, "Terjadi kesalahan server saat logout.")
		return
	}

	http.SetCookie(w, h.sessionCookie("", time.Unix(0, 0)))
	response.Text(w, http.StatusOK, MessageLoggedOut)
}

func (h *AuthHandler) Refetch(w http.ResponseWriter, r *http.Request) {
	claims, err := h.authService.Refetch(r.Context(), middleware.TokenFromCookie(r, h.cookie.Name))
	h.record("refetch", err)
	if err != nil {
		middleware.WriteSessionError(w, h.logger, err)
		return
	}

	response.Success(w, claims)
}

// sessionCookie builds the session cookie. An empty value with an expiry in
// the past clears it; the attributes must match the ones it was set with.
func (h *AuthHandler) sessionCookie(value string, expires time.Time) *http.Cookie {
	cookie := &http.Cookie{
		Name:     h.cookie.Name,
		Value:    value,
		Path:     h.cookie.Path,
		Domain:   h.cookie.Domain,
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: h.cookie.SameSite,
	}
	if value == "" {
		cookie.MaxAge = -1
	}
	return cookie
}
