package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the service configuration, read once at startup from the
// environment. `.env.local` overrides `.env` for local development.
type Config struct {
	Port        int
	DatabaseURL string
	RabbitMQURL string
	RedisURL    string // optional; empty disables the listings cache

	TelegramBotToken string
	AdminChatID      int64
	SecretKey        string

	AuctionExtension time.Duration // deadline extension per accepted bid
	SweepInterval    time.Duration
	DBLockTimeout    time.Duration
}

// Load reads the configuration from the environment
func Load() (*Config, error) {
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	cfg := &Config{
		Port:             envInt("PORT", 8080),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RabbitMQURL:      os.Getenv("RABBITMQ_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		AdminChatID:      envInt64("ADMIN_CHAT_ID", 0),
		SecretKey:        os.Getenv("SECRET_KEY"),
		AuctionExtension: time.Duration(envInt("AUCTION_EXTENSION_MINUTES", 5)) * time.Minute,
		SweepInterval:    time.Duration(envInt("SWEEP_INTERVAL_SECONDS", 60)) * time.Second,
		DBLockTimeout:    time.Duration(envInt("DB_LOCK_TIMEOUT_MS", 3000)) * time.Millisecond,
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}
	if cfg.RabbitMQURL == "" {
		return nil, fmt.Errorf("RABBITMQ_URL is not set")
	}
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("SECRET_KEY is not set")
	}

	return cfg, nil
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func envInt64(key string, fallback int64) int64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fallback
	}
	return value
}
