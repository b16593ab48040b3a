package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendCSV      = "csv"
	BackendSupabase = "supabase"

	DefaultAdviceBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"
)

type Config struct {
	TelegramToken string

	// Advice provider
	GeminiAPIKey  string
	AdviceBaseURL string
	AdviceModel   string
	AdviceTimeout time.Duration

	// Storage
	StoreBackend string
	SQLitePath   string

	// Feedback sink
	FeedbackBackend string
	FeedbackCSVPath string
	SupabaseURL     string
	SupabaseKey     string

	// Reminders
	ReminderSchedule string
	Timezone         string

	// Per-chat job queue
	QueueSize       int
	LaneIdleTimeout time.Duration

	MaxTextLength int
	MenuImagePath string
	OpsAddr       string

	LogLevel       string
	LogDevelopment bool
}

// LoadConfig reads .env (when present) and the process environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load builds a Config from the environment with defaults applied.
func Load() *Config {
	return &Config{
		TelegramToken: os.Getenv("TELEGRAM_TOKEN"),

		GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
		AdviceBaseURL: getEnv("ADVICE_BASE_URL", DefaultAdviceBaseURL),
		AdviceModel:   getEnv("ADVICE_MODEL", "gemini-2.0-flash"),
		AdviceTimeout: getEnvDuration("ADVICE_TIMEOUT", 30*time.Second),

		StoreBackend: getEnv("STORE_BACKEND", BackendMemory),
		SQLitePath:   getEnv("SQLITE_PATH", "finance_bot.db"),

		FeedbackBackend: getEnv("FEEDBACK_BACKEND", BackendCSV),
		FeedbackCSVPath: getEnv("FEEDBACK_CSV_PATH", "feedback.csv"),
		SupabaseURL:     os.Getenv("SUPABASE_URL"),
		SupabaseKey:     os.Getenv("SUPABASE_KEY"),

		ReminderSchedule: getEnv("REMINDER_SCHEDULE", "19 16 * * *"),
		Timezone:         getEnv("TIMEZONE", "Asia/Singapore"),

		QueueSize:       getEnvInt("QUEUE_SIZE", 100),
		LaneIdleTimeout: getEnvDuration("LANE_IDLE_TIMEOUT", 5*time.Minute),

		MaxTextLength: getEnvInt("MAX_TEXT_LENGTH", 1000),
		MenuImagePath: os.Getenv("MENU_IMAGE_PATH"),
		OpsAddr:       os.Getenv("OPS_ADDR"),

		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogDevelopment: getEnvBool("LOG_DEVELOPMENT", false),
	}
}

// Validate validates the configuration and returns an error listing every problem.
func (c *Config) Validate() error {
	var problems []string

	if c.TelegramToken == "" {
		problems = append(problems, "TELEGRAM_TOKEN is not set")
	}
	if c.GeminiAPIKey == "" {
		problems = append(problems, "GEMINI_API_KEY is not set")
	}
	if c.AdviceTimeout <= 0 {
		problems = append(problems, fmt.Sprintf("invalid ADVICE_TIMEOUT %s: must be positive", c.AdviceTimeout))
	}

	switch c.StoreBackend {
	case BackendMemory:
	case BackendSQLite:
		if c.SQLitePath == "" {
			problems = append(problems, "SQLITE_PATH is required for the sqlite store")
		}
	default:
		problems = append(problems, fmt.Sprintf("invalid STORE_BACKEND '%s': must be one of memory, sqlite", c.StoreBackend))
	}

	switch c.FeedbackBackend {
	case BackendCSV:
		if c.FeedbackCSVPath == "" {
			problems = append(problems, "FEEDBACK_CSV_PATH is required for csv feedback")
		}
	case BackendSupabase:
		if c.SupabaseURL == "" || c.SupabaseKey == "" {
			problems = append(problems, "SUPABASE_URL and SUPABASE_KEY are required for supabase feedback")
		}
	default:
		problems = append(problems, fmt.Sprintf("invalid FEEDBACK_BACKEND '%s': must be one of csv, supabase", c.FeedbackBackend))
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		problems = append(problems, fmt.Sprintf("invalid TIMEZONE '%s': %v", c.Timezone, err))
	}
	if _, err := cron.ParseStandard(c.ReminderSchedule); err != nil {
		problems = append(problems, fmt.Sprintf("invalid REMINDER_SCHEDULE '%s': %v", c.ReminderSchedule, err))
	}
	if c.QueueSize < 1 {
		problems = append(problems, fmt.Sprintf("invalid QUEUE_SIZE %d: must be at least 1", c.QueueSize))
	}
	if c.LaneIdleTimeout <= 0 {
		problems = append(problems, fmt.Sprintf("invalid LANE_IDLE_TIMEOUT %s: must be positive", c.LaneIdleTimeout))
	}
	if c.MaxTextLength < 1 {
		problems = append(problems, fmt.Sprintf("invalid MAX_TEXT_LENGTH %d: must be at least 1", c.MaxTextLength))
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}

// Location returns the configured timezone. Validate guarantees it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
