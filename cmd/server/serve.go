package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"ummahbook-server/internal/config"
	"ummahbook-server/internal/handler"
	"ummahbook-server/internal/logging"
	"ummahbook-server/internal/metrics"
	"ummahbook-server/internal/repository"
	"ummahbook-server/internal/service"
	"ummahbook-server/internal/session"
	"ummahbook-server/internal/websocket"
	"ummahbook-server/pkg/errutil"

	"github.com/go-kivik/kivik/v4"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
)

func setup(ctx context.Context) (*config.Config, *slog.Logger, *kivik.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, oops.Code("CONFIG_INVALID").Wrap(err)
	}

	logger := logging.Setup(handler.ServiceName, cfg.Server.Env, cfg.Logging.Format, cfg.Logging.Level, nil)

	client, err := repository.Connect(ctx, cfg.Database.URL(), cfg.Database.ConnectRetries, cfg.Database.RetryBase)
	if err != nil {
		errutil.LogError(logger, "failed to connect to CouchDB", err, "host", cfg.Database.Host)
		return nil, nil, nil, err
	}

	created, err := repository.EnsureDatabase(ctx, client, cfg.Database.Name)
	if err != nil {
		errutil.LogError(logger, "failed to ensure database", err, "db", cfg.Database.Name)
		return nil, nil, nil, err
	}
	if created {
		logger.Info("created database", "db", cfg.Database.Name)
	}

	if err := repository.EnsureIndexes(ctx, client, cfg.Database.Name); err != nil {
		errutil.LogError(logger, "failed to ensure indexes", err, "db", cfg.Database.Name)
		return nil, nil, nil, err
	}

	return cfg, logger, client, nil
}

func runSetupDB(cmd *cobra.Command, _ []string) error {
	_, logger, client, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer client.Close()

	logger.Info("database ready")
	return nil
}

// sweepRevocations purges revocations of tokens that have expired anyway.
func sweepRevocations(ctx context.Context, repo repository.RevocationRepository, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := repo.DeleteExpired(ctx, time.Now())
			if err != nil {
				errutil.LogError(logger, "failed to sweep revocations", err)
				continue
			}
			if deleted > 0 {
				logger.Info("swept expired revocations", "deleted", deleted)
			}
		}
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, logger, client, err := setup(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	accountRepo := repository.NewAccountRepository(client, cfg.Database.Name)
	profileRepo := repository.NewProfileRepository(client, cfg.Database.Name)
	chatRepo := repository.NewChatSessionRepository(client, cfg.Database.Name)

	revocationRepo := repository.NewRevocationRepository(client, cfg.Database.Name)

	denyList := session.NewStoreDenyList(revocationRepo, cfg.Session.DenyListCacheSize, cfg.Session.Expiration)
	defer denyList.Close()

	m := metrics.New()

	wsManager := websocket.NewManager(websocket.Options{
		MaxConnPerUser: cfg.WebSocket.MaxConnPerUser,
		MaxMessageSize: cfg.WebSocket.MaxMessageSize,
		WriteWait:      cfg.WebSocket.WriteWait,
		PongWait:       cfg.WebSocket.PongWait,
		PingPeriod:     cfg.WebSocket.PingPeriod,
	}, logger)
	wsManager.SetConnectionGauge(m.WSConnections)
	wsManager.SetMessageHandler(handler.NewWebSocketMessageHandler(wsManager))

	wsCtx, stopWS := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		wsManager.Run(wsCtx)
	}()
	go func() {
		defer wg.Done()
		sweepRevocations(wsCtx, revocationRepo, cfg.Session.RevocationSweep, logger)
	}()
	defer func() {
		stopWS()
		wg.Wait()
	}()

	router := handler.NewRouter(handler.RouterDeps{
		Config:         cfg,
		Logger:         logger,
		Metrics:        m,
		AuthService:    service.NewAuthService(accountRepo, profileRepo, denyList, cfg.Session.Secret, cfg.Session.Expiration, logger),
		ProfileService: service.NewProfileService(profileRepo),
		ChatService:    service.NewChatService(chatRepo, wsManager, logger),
		WSManager:      wsManager,
	})

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", addr, "env", cfg.Server.Env, "couchdb", cfg.Database.Host)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return oops.Code("SERVER_FAILED").Wrap(err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		errutil.LogError(logger, "server forced to shutdown", err)
		return err
	}

	logger.Info("server stopped gracefully")
	return nil
}
