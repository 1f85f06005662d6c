package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"ummahbook-server/internal/domain"
	"ummahbook-server/internal/middleware"
	"ummahbook-server/internal/service"
	"ummahbook-server/pkg/response"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

const MessageChatDeleted = "Sesi chat berhasil dihapus"

type ChatHandler struct {
	chatService *service.ChatService
	logger      *slog.Logger
	validator   *validator.Validate
}

func NewChatHandler(chatService *service.ChatService, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		logger:      logger,
		validator:   validator.New(),
	}
}

func (h *ChatHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateChatSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	session, err := h.chatService.Create(r.Context(), middleware.GetCaller(r), &req)
	if err != nil {
		writeError(w, h.logger, err, "Gagal membuat sesi chat.")
		return
	}

	response.Created(w, session)
}

func (h *ChatHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]

	sessions, err := h.chatService.ListByUser(r.Context(), middleware.GetCaller(r), userID)
	if err != nil {
		writeError(w, h.logger, err, "Gagal mengambil sesi chat.")
		return
	}

	response.Success(w, sessions)
}

func (h *ChatHandler) Get(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]

	session, err := h.chatService.Get(r.Context(), middleware.GetCaller(r), sessionID)
	if err != nil {
		writeError(w, h.logger, err, "Gagal mengambil sesi chat.")
		return
	}

	response.Success(w, session)
}

func (h *ChatHandler) AddMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]

	var req domain.AddChatMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	session, err := h.chatService.AddMessage(r.Context(), middleware.GetCaller(r), sessionID, &req)
	if err != nil {
		writeError(w, h.logger, err, "Gagal menyimpan pesan.")
		return
	}

	response.Success(w, session)
}

func (h *ChatHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]

	if err := h.chatService.Delete(r.Context(), middleware.GetCaller(r), sessionID); err != nil {
		writeError(w, h.logger, err, "Gagal menghapus sesi chat.")
		return
	}

	response.Success(w, map[string]string{
		"message": MessageChatDeleted,
	})
}
