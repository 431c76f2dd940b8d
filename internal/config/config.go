package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// AppConfig is the process configuration. Environment variables are the
// primary source; an optional YAML file named by ARENA_CONFIG overlays
// any value the environment left unset.
type AppConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	StatusAddr string `yaml:"status_addr"`

	MongoURL  string `yaml:"mongo_url"`
	MongoName string `yaml:"mongo_db"`

	RedisURL    string `yaml:"redis_url"`
	DatabaseURL string `yaml:"database_url"`

	MaxConcurrentGames int `yaml:"max_concurrent_games"`
	ShutdownGraceSec   int `yaml:"shutdown_grace_sec"`
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		ListenAddr:         ":8080",
		StatusAddr:         ":9090",
		MongoName:          "arena",
		MaxConcurrentGames: 500,
		ShutdownGraceSec:   10,
	}

	if path := strings.TrimSpace(os.Getenv("ARENA_CONFIG")); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if v := strings.TrimSpace(os.Getenv("LISTEN_ADDR")); v != "" {
		cfg.ListenAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("STATUS_ADDR")); v != "" {
		cfg.StatusAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("MONGO_URL")); v != "" {
		cfg.MongoURL = v
	}
	if v := strings.TrimSpace(os.Getenv("MONGO_DB")); v != "" {
		cfg.MongoName = v
	}
	if v := strings.TrimSpace(os.Getenv("REDIS_URL")); v != "" {
		cfg.RedisURL = v
	}
	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		cfg.DatabaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("MAX_CONCURRENT_GAMES")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxConcurrentGames = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("SHUTDOWN_GRACE_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ShutdownGraceSec = n
		}
	}

	if cfg.ListenAddr == "" {
		return nil, errors.New("LISTEN_ADDR is required")
	}
	return cfg, nil
}
