package config

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/hkdf"

	"wortschatz/internal/models"
)

// Config holds application configuration
type Config struct {
	ServerPort         string
	DatabaseType       string
	DatabaseURL        string
	DatabasePath       string
	ContentPath        string
	DefaultLevel       models.Level
	JWTSecret          []byte
	TokenTTL           time.Duration
	TelegramBotToken   string
	SessionIdleTimeout time.Duration
	AdminUserIDs       []int64
	LogLevel           slog.Level
}

// Load reads configuration from the environment, after applying a .env file
// if one exists in the working directory.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("could not read .env file", "error", err)
	}

	cfg := &Config{
		ServerPort:         getEnv("PORT", "8080"),
		DatabaseType:       getEnv("DB_TYPE", "sqlite"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		DatabasePath:       getEnv("DB_PATH", "./data/wortschatz.db"),
		ContentPath:        getEnv("CONTENT_PATH", "./content"),
		DefaultLevel:       getLevel("DEFAULT_LEVEL", models.DefaultLevel),
		TokenTTL:           getDuration("TOKEN_TTL", 72*time.Hour),
		TelegramBotToken:   getEnv("TELEGRAM_BOT_TOKEN", ""),
		SessionIdleTimeout: getDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute),
		AdminUserIDs:       getIDList("ADMIN_USER_IDS"),
		LogLevel:           getLogLevel("LOG_LEVEL", slog.LevelInfo),
	}
	cfg.JWTSecret = signingKey(getEnv("JWT_SECRET", ""), cfg.TelegramBotToken)

	return cfg
}

// IsAdmin reports whether the Telegram user may run admin operations.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.AdminUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// signingKey returns the explicit secret, or derives a 32 byte key from the
// bot token so a single secret is enough to run the service. With neither,
// the key is random and tokens do not survive a restart.
func signingKey(secret, botToken string) []byte {
	if secret != "" {
		return []byte(secret)
	}
	key := make([]byte, 32)
	if botToken == "" {
		slog.Warn("neither JWT_SECRET nor TELEGRAM_BOT_TOKEN is set; API tokens use a per-process random key")
		if _, err := rand.Read(key); err != nil {
			panic(err)
		}
		return key
	}
	r := hkdf.New(sha256.New, []byte(botToken), nil, []byte("wortschatz api token"))
	if _, err := io.ReadFull(r, key); err != nil {
		panic(err)
	}
	return key
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		slog.Warn("invalid duration, using default", "key", key, "value", raw, "default", defaultValue)
		return defaultValue
	}
	return d
}

func getLevel(key string, defaultValue models.Level) models.Level {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	lvl, err := models.ParseLevel(raw)
	if err != nil {
		slog.Warn("invalid level, using default", "key", key, "value", raw, "default", defaultValue)
		return defaultValue
	}
	return lvl
}

func getIDList(key string) []int64 {
	var ids []int64
	for _, part := range strings.Split(os.Getenv(key), ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			slog.Warn("ignoring invalid user id", "key", key, "value", part)
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func getLogLevel(key string, defaultValue slog.Level) slog.Level {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(raw)); err != nil {
		slog.Warn("invalid log level, using default", "key", key, "value", raw)
		return defaultValue
	}
	return lvl
}
