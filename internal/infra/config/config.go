package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	DatabaseURL            string
	CronSpecDaily          string
	CronSpecHolidayRefresh string
	RunnerWorkers          int
	LogLevel               string
	Environment            string

	// TelegramToken and AnnounceChatID are optional; when either is unset
	// task-created notifications are dropped.
	TelegramToken  string
	AnnounceChatID int64
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// Attempt to load .env file. Errors are ignored if the file doesn't exist.
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	cfg.CronSpecDaily = os.Getenv("CRON_SPEC_DAILY")
	if cfg.CronSpecDaily == "" {
		cfg.CronSpecDaily = "0 6 * * *" // Default: 6:00 AM daily
	}

	cfg.CronSpecHolidayRefresh = os.Getenv("CRON_SPEC_HOLIDAY_REFRESH")
	if cfg.CronSpecHolidayRefresh == "" {
		cfg.CronSpecHolidayRefresh = "0 4 1 1 *" // Default: 4:00 AM every January 1st
	}

	workersStr := os.Getenv("RUNNER_WORKERS")
	if workersStr == "" {
		cfg.RunnerWorkers = 1 // Sequential by default
	} else {
		workers, err := strconv.Atoi(workersStr)
		if err != nil || workers < 1 {
			return nil, fmt.Errorf("invalid RUNNER_WORKERS: %q", workersStr)
		}
		cfg.RunnerWorkers = workers
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info" // Default log level
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development" // Default environment
	}

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")

	chatIDStr := os.Getenv("ANNOUNCE_CHAT_ID")
	if chatIDStr != "" {
		chatID, err := strconv.ParseInt(chatIDStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ANNOUNCE_CHAT_ID: %w", err)
		}
		cfg.AnnounceChatID = chatID
	}

	return cfg, nil
}
