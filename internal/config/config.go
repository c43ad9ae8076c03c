package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds the configuration for the application.
type Config struct {
	DatabasePath string
	ExportDir    string
	Currency     string
	LogLevel     string

	// Telegram Config
	TelegramBotToken     string
	TelegramWebhookURL   string
	TelegramAllowUserIDs []int64
	AdminTelegramID      int64
	Port                 string
}

// LoadDotEnv loads a .env file into the environment outside production.
// A missing file is not an error.
func LoadDotEnv() {
	if os.Getenv("APP_ENV") != "production" {
		_ = godotenv.Load()
	}
}

// NewFromEnv creates a new Config object from environment variables.
func NewFromEnv() (*Config, error) {
	allowed, err := parseIDs(os.Getenv("TELEGRAM_ALLOWED_USER_IDS"))
	if err != nil {
		return nil, fmt.Errorf("invalid TELEGRAM_ALLOWED_USER_IDS: %w", err)
	}

	var adminID int64
	if s := strings.TrimSpace(os.Getenv("ADMIN_TELEGRAM_ID")); s != "" {
		adminID, err = strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ADMIN_TELEGRAM_ID: %w", err)
		}
	}

	return &Config{
		DatabasePath:         getEnv("DATABASE_PATH", "data/pantry.db"),
		ExportDir:            getEnv("EXPORT_DIR", "data/exports"),
		Currency:             strings.ToUpper(getEnv("CURRENCY", "XOF")),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		TelegramBotToken:     os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramWebhookURL:   os.Getenv("TELEGRAM_WEBHOOK_URL"),
		TelegramAllowUserIDs: allowed,
		AdminTelegramID:      adminID,
		Port:                 getEnv("PORT", "8080"),
	}, nil
}

// RequireTelegram checks the settings the bot cannot run without.
func (c *Config) RequireTelegram() error {
	if c.TelegramBotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN environment variable not set")
	}
	if c.TelegramWebhookURL == "" {
		return fmt.Errorf("TELEGRAM_WEBHOOK_URL environment variable not set")
	}
	return nil
}

// IsAllowed reports whether a Telegram user may use the bot. An empty
// allow list admits everyone.
func (c *Config) IsAllowed(userID int64) bool {
	if len(c.TelegramAllowUserIDs) == 0 || userID == c.AdminTelegramID {
		return true
	}
	for _, id := range c.TelegramAllowUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func parseIDs(s string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
