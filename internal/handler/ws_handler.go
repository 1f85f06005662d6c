package handler

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"ummahbook-server/internal/config"
	"ummahbook-server/internal/middleware"
	"ummahbook-server/internal/websocket"

	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
)

type WebSocketHandler struct {
	manager    *websocket.Manager
	validator  middleware.SessionValidator
	cookieName string
	logger     *slog.Logger
	upgrader   ws.Upgrader
}

func NewWebSocketHandler(manager *websocket.Manager, validator middleware.SessionValidator, cfg *config.Config, logger *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		manager:    manager,
		validator:  validator,
		cookieName: cfg.Cookie.Name,
		logger:     logger,
		upgrader: ws.Upgrader{
			ReadBufferSize:  cfg.WebSocket.ReadBufferSize,
			WriteBufferSize: cfg.WebSocket.WriteBufferSize,
			CheckOrigin:     originChecker(cfg.CORS.AllowedOrigins),
		},
	}
}

// originChecker accepts same-host requests and the configured CORS origins.
func originChecker(allowedOrigins string) func(r *http.Request) bool {
	allowed := make(map[string]bool)
	for _, o := range strings.Split(allowedOrigins, ",") {
		allowed[strings.TrimSpace(o)] = true
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || allowed["*"] || allowed[origin] {
			return true
		}
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	}
}

func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	claims, err := h.validator.Refetch(r.Context(), middleware.TokenFromRequest(r, h.cookieName))
	if err != nil {
		middleware.WriteSessionError(w, h.logger, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", "user_id", claims.AccountID, "error", err)
		return
	}

	client := websocket.NewClient(uuid.New().String(), claims.AccountID, conn, h.manager)
	if !h.manager.Register(client) {
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}

// WebSocketMessageHandler answers the messages a client may send.
type WebSocketMessageHandler struct {
	manager *websocket.Manager
}

func NewWebSocketMessageHandler(manager *websocket.Manager) *WebSocketMessageHandler {
	return &WebSocketMessageHandler{manager: manager}
}

func (h *WebSocketMessageHandler) HandleWebSocketMessage(client *websocket.Client, msg *websocket.Message) error {
	var (
		reply *websocket.Message
		err   error
	)

	switch msg.Type {
	case websocket.TypePing:
		reply, err = websocket.NewMessage(websocket.TypePong, nil)
	default:
		reply, err = websocket.NewMessage(websocket.TypeError, &websocket.ErrorPayload{
			Message: "unsupported message type: " + string(msg.Type),
		})
	}
	if err != nil {
		return err
	}

	return h.manager.SendToClient(client, reply)
}
