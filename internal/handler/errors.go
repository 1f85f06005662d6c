package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"ummahbook-server/internal/domain"
	"ummahbook-server/internal/middleware"
	"ummahbook-server/pkg/errutil"
	"ummahbook-server/pkg/response"
)

const (
	MessageDuplicateUsername = "Username ini sudah digunakan. Mohon pilih username lain."
	MessageDuplicateEmail    = "Email ini sudah terdaftar. Mohon gunakan email lain atau masuk."
	MessageRoleNotAllowed    = "Role ini tidak dapat dipilih saat registrasi."
	MessageUserNotFound      = "User not found!"
	MessageWrongCredentials  = "Wrong credentials!"
	MessageForbidden         = "Anda tidak memiliki akses ke data ini."
	MessageNotFound          = "Data tidak ditemukan."
	MessageServerError       = "Terjadi kesalahan server."
)

// writeError maps a service error to its status code and body. serverMessage
// is used for anything unexpected, which is also logged.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error, serverMessage string) {
	var dup *domain.DuplicateIdentityError

	switch {
	case errors.As(err, &dup):
		if dup.Field == "email" {
			response.Conflict(w, MessageDuplicateEmail)
		} else {
			response.Conflict(w, MessageDuplicateUsername)
		}
	case errors.Is(err, domain.ErrInvalidInput):
		response.BadRequest(w, err.Error())
	case errors.Is(err, domain.ErrRoleNotAllowed):
		response.Forbidden(w, MessageRoleNotAllowed)
	case errors.Is(err, domain.ErrNotFound):
		response.NotFound(w, MessageNotFound)
	case errors.Is(err, domain.ErrInvalidCredentials):
		response.Unauthorized(w, MessageWrongCredentials)
	case errors.Is(err, domain.ErrUnauthenticated), errors.Is(err, domain.ErrInvalidToken):
		middleware.WriteSessionError(w, logger, err)
	case errors.Is(err, domain.ErrForbidden):
		response.Forbidden(w, MessageForbidden)
	default:
		errutil.LogError(logger, serverMessage, err)
		response.InternalError(w, serverMessage, err)
	}
}

// outcome names an error for the auth metrics.
func outcome(err error) string {
	var dup *domain.DuplicateIdentityError

	switch {
	case err == nil:
		return "success"
	case errors.As(err, &dup):
		return "duplicate_" + dup.Field
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, domain.ErrRoleNotAllowed):
		return "role_not_allowed"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, domain.ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, domain.ErrInvalidToken):
		return "invalid_token"
	}
	return "error"
}
