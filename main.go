package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"medirecords/config"
	"medirecords/config/database"
	handlers "medirecords/handler"
	"medirecords/internal/entity"
	"medirecords/internal/session"
	"medirecords/pkg/logger"
	"medirecords/router"
	"medirecords/socket"
	"medirecords/store"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel)
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Sugar.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gw := store.NewGateway()
	if err := gw.Connect(ctx, dialer(cfg)); err != nil {
		logger.Sugar.Fatalf("Could not connect to the %s store: %v", cfg.StoreDriver, err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := gw.Close(closeCtx); err != nil {
			logger.Sugar.Errorf("Closing store: %v", err)
		}
	}()

	sessionStore, closeSessions := sessionStore(ctx, cfg)
	defer closeSessions()
	manager := session.NewManager(sessionStore, cfg.SessionSecret, cfg.SessionTTL)

	hub := socket.NewHub(entity.Collections()...)
	go hub.Run(ctx)

	auth := handlers.NewAuthHandler(cfg.OAuth2(), cfg.OAuthUserInfoURL, manager, cfg.CookieSecure)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.Setup(cfg, gw, hub, manager, auth),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Sugar.Infof("Hospital API listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Sugar.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Sugar.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Sugar.Errorf("Graceful shutdown failed: %v", err)
	}
}

func dialer(cfg *config.Config) store.Dialer {
	if cfg.StoreDriver == config.DriverPostgres {
		return database.Postgres(cfg.PostgresDSN, cfg.DBConnectAttempts, entity.Collections()...)
	}
	return database.Mongo(cfg.MongoURI, cfg.MongoDatabase)
}

func sessionStore(ctx context.Context, cfg *config.Config) (session.Store, func()) {
	if cfg.SessionStore != config.SessionsRedis {
		logger.Sugar.Warn("Using in-memory sessions; they do not survive a restart")
		return session.NewMemoryStore(), func() {}
	}

	client, err := session.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Sugar.Fatalf("Could not connect to Redis: %v", err)
	}
	logger.Sugar.Infof("Connected to Redis at %s", cfg.RedisAddr)
	return session.NewRedisStore(client), func() { _ = client.Close() }
}
