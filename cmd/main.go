package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cwrk-planet/collab-service/config"
	"github.com/cwrk-planet/collab-service/internal/pg"
	"github.com/cwrk-planet/collab-service/internal/postgres"
	"github.com/cwrk-planet/collab-service/internal/realtime"
	"github.com/cwrk-planet/collab-service/internal/security"
	"github.com/cwrk-planet/collab-service/internal/service"
	httpx "github.com/cwrk-planet/collab-service/internal/transport/http"
	"github.com/cwrk-planet/collab-service/internal/transport/ws"
	"github.com/cwrk-planet/logger/pkg/logger"
)

func main() {
	// --- config ---
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger.Init(logger.Config{
		Env:       logger.Env(cfg.Logging.Env),
		Service:   cfg.Logging.Service,
		Version:   cfg.Logging.Version,
		Backend:   logger.Backend(cfg.Logging.Backend),
		AddSource: cfg.Logging.AddSource,
		Debug:     cfg.Logging.Debug,
	})
	slog.Info("starting collab-service",
		"env", cfg.Logging.Env, "version", cfg.Logging.Version)

	// --- postgres ---
	ctx := context.Background()
	pool, err := pg.NewPool(ctx, pg.Config{
		DSN:             cfg.Postgres.DSN,
		ApplicationName: cfg.Logging.Service,
	})
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	// --- repos ---
	roomRepo := postgres.NewRoomRepository(pool)
	msgRepo := postgres.NewMessageRepository(pool)
	reactRepo := postgres.NewReactionRepository(pool)
	notifRepo := postgres.NewNotificationRepository(pool)
	memberRepo := postgres.NewMembershipRepository(pool)
	userRepo := postgres.NewUserRepository(pool)

	// --- realtime fan-out ---
	registry := realtime.NewRegistry()
	bus := realtime.NewLocalBus(registry)

	// --- services ---
	notifier := service.NewNotifier(notifRepo, memberRepo, roomRepo, bus)
	chatSvc := service.NewChatService(roomRepo, msgRepo, reactRepo, userRepo, bus, notifier)
	roomSvc := service.NewRoomService(roomRepo, memberRepo, notifier)
	notifSvc := service.NewNotificationService(notifRepo)

	// --- auth ---
	resolver := security.NewTokenResolver(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.ClockSkewDuration())

	// --- transports ---
	wsServer := ws.NewServer(registry, chatSvc, notifSvc, resolver)
	handler := httpx.NewHandler(roomSvc, chatSvc, notifSvc)
	router := httpx.NewRouter(handler, resolver, wsServer)

	httpSrv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http listen", "addr", cfg.HTTP.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// --- graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal", "sig", sig)
	case err := <-errCh:
		slog.Error("server error", "err", err)
	}

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = httpSrv.Shutdown(ctxShutdown)
	slog.Info("stopped")
}
