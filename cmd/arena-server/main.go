package main

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/playsquare/arena-server/internal/archive"
	"github.com/playsquare/arena-server/internal/arena"
	appcfg "github.com/playsquare/arena-server/internal/config"
	"github.com/playsquare/arena-server/internal/livesnap"
	"github.com/playsquare/arena-server/internal/obslog"
	"github.com/playsquare/arena-server/internal/statusapi"
	"github.com/playsquare/arena-server/internal/store"
	"github.com/playsquare/arena-server/internal/ws"
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

	ctx := context.Background()

	var repo arena.Repository
	if cfg.MongoURL != "" {
		mongoRepo, err := store.NewMongo(ctx, cfg.MongoURL, cfg.MongoName)
		if err != nil {
			logger.Fatal("mongo init error", zap.Error(err))
		}
		defer func() { _ = mongoRepo.Close(context.Background()) }()
		repo = mongoRepo
		logger.Info("document store connected", zap.String("db", cfg.MongoName))
	} else {
		repo = arena.NewMemoryRepository()
		logger.Warn("MONGO_URL not set, using in-memory repository")
	}

	hub := ws.NewHub()
	coord := arena.NewCoordinator(repo, hub, rand.NewSource(time.Now().UnixNano()), cfg.MaxConcurrentGames)
	hub.SetCoordinator(coord)

	if cfg.RedisURL != "" {
		snap, err := livesnap.New(cfg.RedisURL)
		if err != nil {
			logger.Fatal("snapshot cache init error", zap.Error(err))
		}
		defer func() { _ = snap.Close() }()
		coord.AttachSnapshots(snap)
		logger.Info("snapshot cache connected")
	}
	if cfg.DatabaseURL != "" {
		arch, err := archive.NewRepository(cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("archive init error", zap.Error(err))
		}
		defer func() { _ = arch.Close() }()
		coord.AttachArchive(arch)
		logger.Info("game archive connected")
	}

	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	status := statusapi.New(coord.Stats)

	go func() {
		logger.Info("status server listening", zap.String("addr", cfg.StatusAddr))
		if err := status.ListenAndServe(cfg.StatusAddr); err != nil {
			logger.Error("status server error", zap.Error(err))
		}
	}()
	go func() {
		logger.Info("arena server listening", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.ShutdownGraceSec)*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown error", zap.Error(err))
	}
	if err := status.Shutdown(); err != nil {
		logger.Warn("status shutdown error", zap.Error(err))
	}
	_ = logger.Sync()
}
