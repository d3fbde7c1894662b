package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	ListenAddr string
	// WSListenAddr serves the websocket subscription gateway.
	WSListenAddr string

	RedisURL    string
	DatabaseURL string

	// RoomTTL bounds how long an untouched room document survives in Redis.
	RoomTTL time.Duration
	// ReaperInterval is how often expired codes are swept out of the indexes.
	ReaperInterval time.Duration

	// MessageDir optionally overrides the embedded user-facing message catalog.
	MessageDir string

	LeaderboardSize     int
	LeaderboardMinGames int
	HistoryLimit        int
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		ListenAddr:          ":8080",
		WSListenAddr:        ":8081",
		RoomTTL:             24 * time.Hour,
		ReaperInterval:      10 * time.Minute,
		LeaderboardSize:     10,
		LeaderboardMinGames: 3,
		HistoryLimit:        20,
	}

	if v := strings.TrimSpace(os.Getenv("LISTEN_ADDR")); v != "" {
		cfg.ListenAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("WS_LISTEN_ADDR")); v != "" {
		cfg.WSListenAddr = v
	}
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.MessageDir = strings.TrimSpace(os.Getenv("MESSAGE_DIR"))

	if v := strings.TrimSpace(os.Getenv("ROOM_TTL")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.RoomTTL = d
		}
	}
	if v := strings.TrimSpace(os.Getenv("REAPER_INTERVAL")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.ReaperInterval = d
		}
	}
	if v := strings.TrimSpace(os.Getenv("LEADERBOARD_SIZE")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.LeaderboardSize = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("LEADERBOARD_MIN_GAMES")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.LeaderboardMinGames = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("HISTORY_LIMIT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HistoryLimit = n
		}
	}

	return cfg, nil
}
