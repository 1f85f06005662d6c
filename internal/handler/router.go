package handler

import (
	"log/slog"
	"net/http"

	"ummahbook-server/internal/config"
	"ummahbook-server/internal/metrics"
	"ummahbook-server/internal/middleware"
	"ummahbook-server/internal/service"
	"ummahbook-server/internal/websocket"

	"github.com/gorilla/mux"
)

type RouterDeps struct {
	Config         *config.Config
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	AuthService    *service.AuthService
	ProfileService *service.ProfileService
	ChatService    *service.ChatService
	WSManager      *websocket.Manager
}

// NewRouter wires every route. CORS wraps the router so preflight requests
// are answered even for paths mux does not match.
func NewRouter(d RouterDeps) http.Handler {
	cfg := d.Config

	authHandler := NewAuthHandler(d.AuthService, cfg.Cookie, d.Metrics, d.Logger)
	profileHandler := NewProfileHandler(d.ProfileService, d.Logger)
	chatHandler := NewChatHandler(d.ChatService, d.Logger)

	r := mux.NewRouter()
	r.Use(middleware.LoggerMiddleware(d.Logger, d.Metrics))

	r.HandleFunc("/register", authHandler.Register).Methods(http.MethodPost)
	r.HandleFunc("/login", authHandler.Login).Methods(http.MethodPost)
	r.HandleFunc("/logout", authHandler.Logout).Methods(http.MethodGet)
	r.HandleFunc("/refetch", authHandler.Refetch).Methods(http.MethodGet)

	profile := r.PathPrefix("/profile").Subrouter()
	profile.Use(middleware.AuthMiddleware(d.AuthService, middleware.CookieToken(cfg.Cookie.Name), d.Logger))
	profile.HandleFunc("/me", profileHandler.GetMe).Methods(http.MethodGet)

	chat := r.PathPrefix("/chat").Subrouter()
	chat.Use(middleware.APIKeyMiddleware(cfg.Security.APIKey))
	chat.Use(middleware.AuthMiddleware(d.AuthService, middleware.CookieOrBearerToken(cfg.Cookie.Name), d.Logger))
	chat.HandleFunc("", chatHandler.Create).Methods(http.MethodPost)
	chat.HandleFunc("/user/{userId}", chatHandler.ListByUser).Methods(http.MethodGet)
	chat.HandleFunc("/{sessionId}", chatHandler.Get).Methods(http.MethodGet)
	chat.HandleFunc("/{sessionId}/message", chatHandler.AddMessage).Methods(http.MethodPut)
	chat.HandleFunc("/{sessionId}", chatHandler.Delete).Methods(http.MethodDelete)

	if d.WSManager != nil {
		wsHandler := NewWebSocketHandler(d.WSManager, d.AuthService, cfg, d.Logger)
		r.HandleFunc("/ws", wsHandler.HandleConnection).Methods(http.MethodGet)
	}

	if d.Metrics != nil && cfg.Metrics.Enabled {
		r.Handle(cfg.Metrics.Path, d.Metrics.Handler()).Methods(http.MethodGet)
	}

	r.HandleFunc("/health", Health).Methods(http.MethodGet)
	r.HandleFunc("/", Root).Methods(http.MethodGet)

	return middleware.CORSMiddleware(
		cfg.CORS.AllowedOrigins,
		cfg.CORS.AllowedMethods,
		cfg.CORS.AllowedHeaders,
	)(r)
}
