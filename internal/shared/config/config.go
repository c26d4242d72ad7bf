package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"

	BusMemory = "memory"
	BusRedis  = "redis"
)

// Config holds all configuration for the application.
type Config struct {
	AppEnv   string
	HTTPAddr string

	StoreBackend string
	DatabaseURL  string

	BusBackend   string
	BusBuffer    int
	RedisAddr    string
	RedisChannel string

	// TelegramToken enables the Telegram push transport; empty means
	// notifications go to the log only.
	TelegramToken string
}

// Load reads configuration from the environment, with .env as a local
// convenience.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	bindings := map[string]string{
		"app.env":        "APP_ENV",
		"http.addr":      "HTTP_ADDR",
		"store.backend":  "STORE_BACKEND",
		"database.url":   "DATABASE_URL",
		"bus.backend":    "BUS_BACKEND",
		"bus.buffer":     "BUS_BUFFER",
		"redis.addr":     "REDIS_ADDR",
		"redis.channel":  "REDIS_CHANNEL",
		"telegram.token": "TELEGRAM_BOT_TOKEN",
	}
	for key, env := range bindings {
		if err := viper.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("could not bind %s: %w", key, err)
		}
	}

	viper.SetDefault("app.env", "dev")
	viper.SetDefault("http.addr", ":8080")
	viper.SetDefault("store.backend", StoreMemory)
	viper.SetDefault("bus.backend", BusMemory)
	viper.SetDefault("bus.buffer", 256)
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.channel", "splitpot:events")

	cfg := Config{
		AppEnv:        viper.GetString("app.env"),
		HTTPAddr:      viper.GetString("http.addr"),
		StoreBackend:  viper.GetString("store.backend"),
		DatabaseURL:   viper.GetString("database.url"),
		BusBackend:    viper.GetString("bus.backend"),
		BusBuffer:     viper.GetInt("bus.buffer"),
		RedisAddr:     viper.GetString("redis.addr"),
		RedisChannel:  viper.GetString("redis.channel"),
		TelegramToken: viper.GetString("telegram.token"),
	}

	switch cfg.StoreBackend {
	case StoreMemory:
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required when STORE_BACKEND=%s", StorePostgres)
		}
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}

	switch cfg.BusBackend {
	case BusMemory, BusRedis:
	default:
		return nil, fmt.Errorf("unknown BUS_BACKEND %q", cfg.BusBackend)
	}

	if cfg.BusBuffer <= 0 {
		return nil, fmt.Errorf("BUS_BUFFER must be positive, got %d", cfg.BusBuffer)
	}

	return &cfg, nil
}
