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

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/gridhall/tictac-arena/internal/config"
	"github.com/gridhall/tictac-arena/internal/httpapi"
	"github.com/gridhall/tictac-arena/internal/livegate"
	"github.com/gridhall/tictac-arena/internal/match"
	"github.com/gridhall/tictac-arena/internal/msgcat"
	"github.com/gridhall/tictac-arena/internal/obslog"
	"github.com/gridhall/tictac-arena/internal/room"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, reading environment variables directly")
	}

	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer obslog.L().Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	cat, err := msgcat.New(cfg.MessageDir)
	if err != nil {
		log.Fatalf("message catalog error: %v", err)
	}

	if cfg.RedisURL == "" {
		log.Fatalf("REDIS_URL is required")
	}
	opts, err := room.ParseRedisURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("redis url error: %v", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("redis ping error: %v", err)
	}
	defer rdb.Close()

	// Match/stats repository: Postgres when configured, memory otherwise.
	var repo match.Repository
	if cfg.DatabaseURL != "" {
		repo, err = match.NewRepository(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("repository init error: %v", err)
		}
	} else {
		obslog.L().Warn("no DATABASE_URL set, matches and stats are kept in memory")
		repo = match.NewMemoryRepository()
	}
	defer repo.Close()

	rooms := room.NewManager(rdb, cfg.RoomTTL)
	finalizer := match.NewFinalizer(rooms.Store(), repo)
	rooms.OnGameEnd(finalizer.Handler())

	reaper, err := room.StartReaper(rooms.Store(), cfg.ReaperInterval)
	if err != nil {
		log.Fatalf("reaper init error: %v", err)
	}
	defer func() { _ = reaper.Shutdown() }()

	api := httpapi.NewServer(rooms, repo, cat, cfg)
	gate := livegate.New(rooms.Store())

	go func() {
		obslog.L().Info("http_listen", zap.String("addr", cfg.ListenAddr))
		if err := api.ListenAndServe(cfg.ListenAddr); err != nil {
			obslog.L().Fatal("http server error", zap.Error(err))
		}
	}()
	go func() {
		obslog.L().Info("ws_listen", zap.String("addr", cfg.WSListenAddr))
		if err := gate.ListenAndServe(cfg.WSListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			obslog.L().Fatal("ws gateway error", zap.Error(err))
		}
	}()

	// Wait for termination signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	obslog.L().Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = api.Shutdown()
	_ = gate.Shutdown(shutdownCtx)
}
