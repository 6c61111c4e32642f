package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/park285/chess-duel/internal/archive"
	appcfg "github.com/park285/chess-duel/internal/config"
	"github.com/park285/chess-duel/internal/duel"
	"github.com/park285/chess-duel/internal/gameserver"
	"github.com/park285/chess-duel/internal/lobby"
	"github.com/park285/chess-duel/internal/msgcat"
	"github.com/park285/chess-duel/internal/obslog"
	"github.com/park285/chess-duel/internal/statusapi"
	"github.com/park285/chess-duel/internal/wsgate"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	cat, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		logger.Fatal("msgcat_init_error", zap.Error(err))
	}

	regOpts := []duel.Option{duel.WithLogger(logger)}
	var store *lobby.Store
	if cfg.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		store, err = lobby.Open(ctx, cfg.RedisURL, cfg.LobbyTTL())
		cancel()
		if err != nil {
			logger.Fatal("lobby_init_error", zap.Error(err))
		}
		regOpts = append(regOpts, duel.WithDirectory(store))
		logger.Info("lobby_enabled", zap.String("instance", store.Instance()))
	}
	reg := duel.NewRegistry(regOpts...)

	hub := wsgate.NewHub(logger)
	handlerOpts := []gameserver.Option{gameserver.WithCatalog(cat), gameserver.WithLogger(logger)}
	var repo *archive.Repository
	if cfg.DatabaseURL != "" {
		repo, err = archive.NewRepository(cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("archive_init_error", zap.Error(err))
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = repo.EnsureSchema(ctx)
		cancel()
		if err != nil {
			logger.Fatal("archive_schema_error", zap.Error(err))
		}
		handlerOpts = append(handlerOpts, gameserver.WithArchiver(repo))
	}
	handler := gameserver.New(reg, hub, handlerOpts...)

	gw := wsgate.NewGateway(hub, handler, wsgate.Options{
		OriginPatterns:    cfg.AllowedOrigins,
		PingInterval:      cfg.PingInterval(),
		WriteTimeout:      cfg.WriteTimeout(),
		SendBuffer:        cfg.WSSendBuffer,
		InternalMessage:   cat.Error("internal", nil, ""),
		BadRequestMessage: cat.Error("bad_request", map[string]any{"Event": "frame"}, ""),
	}, logger)

	mux := http.NewServeMux()
	mux.Handle(cfg.WSPath, gw)
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("ws_listen", zap.String("addr", cfg.ListenAddr), zap.String("path", cfg.WSPath))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("ws_listen_error", zap.Error(err))
		}
	}()

	var status *statusapi.Server
	if cfg.StatusAddr != "" {
		statusOpts := []statusapi.Option{statusapi.WithConnections(hub), statusapi.WithLogger(logger)}
		if store != nil {
			statusOpts = append(statusOpts, statusapi.WithLobby(store))
		}
		status = statusapi.New(reg, statusOpts...)
		go func() {
			if err := status.ListenAndServe(cfg.StatusAddr); err != nil {
				logger.Error("status_listen_error", zap.Error(err))
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutdown_begin", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := gw.Shutdown(ctx); err != nil {
		logger.Warn("ws_shutdown_error", zap.Error(err))
	}
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("http_shutdown_error", zap.Error(err))
	}
	if status != nil {
		if err := status.Shutdown(ctx); err != nil {
			logger.Warn("status_shutdown_error", zap.Error(err))
		}
	}
	if err := handler.Wait(ctx); err != nil {
		logger.Warn("archive_drain_error", zap.Error(err))
	}
	if store != nil {
		_ = store.Close()
	}
	if repo != nil {
		_ = repo.Close()
	}
	logger.Info("shutdown_complete")
}
