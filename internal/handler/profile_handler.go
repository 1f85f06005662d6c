package handler

import (
	"log/slog"
	"net/http"

	"ummahbook-server/internal/middleware"
	"ummahbook-server/internal/service"
	"ummahbook-server/pkg/response"
)

type ProfileHandler struct {
	profileService *service.ProfileService
	logger         *slog.Logger
}

func NewProfileHandler(profileService *service.ProfileService, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{
		profileService: profileService,
		logger:         logger,
	}
}

func (h *ProfileHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	profile, err := h.profileService.GetByAccountID(r.Context(), middleware.GetUserID(r))
	if err != nil {
		writeError(w, h.logger, err, MessageServerError)
		return
	}

	response.Success(w, profile)
}
