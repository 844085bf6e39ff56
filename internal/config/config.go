package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port        string
	Debug       bool
	CORSOrigins []string

	// Hosted service credentials
	FirecrawlAPIKey      string
	TavilyAPIKey         string
	GeminiAPIKey         string
	GeminiModel          string
	GeminiProModel       string
	ScrapeCreatorsAPIKey string
	SerpAPIKey           string

	// Segment and intelligence configuration files
	ConfigDir string

	// Storage configuration
	StorageAccount   string
	StorageContainer string
	LocalStorageDir  string

	// Response cache
	RedisURL string
	CacheTTL time.Duration

	// Monthly VOC run
	MonthlyRunEnabled  bool
	MonthlyRunSchedule string

	// Notification configuration
	TeamsWebhookURL   string
	NotificationEmail string
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	geminiModel := getEnv("GEMINI_MODEL", "gemini-2.0-flash")

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Debug:       getBoolEnv("DEBUG", false),
		CORSOrigins: getSliceEnv("CORS_ORIGINS", []string{"*"}),

		FirecrawlAPIKey:      getEnv("FIRECRAWL_API_KEY", ""),
		TavilyAPIKey:         getEnv("TAVILY_API_KEY", ""),
		GeminiAPIKey:         getEnv("GEMINI_API_KEY", ""),
		GeminiModel:          geminiModel,
		GeminiProModel:       getEnv("GEMINI_MODEL_PRO", geminiModel),
		ScrapeCreatorsAPIKey: getEnv("SCRAPECREATORS_API_KEY", ""),
		SerpAPIKey:           getEnv("SERPAPI_API_KEY", ""),

		ConfigDir: getEnv("CONFIG_DIR", "./config"),

		StorageAccount:   getEnv("AZURE_STORAGE_ACCOUNT", ""),
		StorageContainer: getEnv("AZURE_STORAGE_CONTAINER", "content-finder"),
		LocalStorageDir:  getEnv("LOCAL_STORAGE_DIR", "./data"),

		RedisURL: getEnv("REDIS_URL", ""),
		CacheTTL: getDurationEnv("CACHE_TTL", time.Hour),

		MonthlyRunEnabled:  getBoolEnv("MONTHLY_RUN_ENABLED", false),
		MonthlyRunSchedule: getEnv("MONTHLY_RUN_SCHEDULE", "0 0 9 1 * *"),

		TeamsWebhookURL:   getEnv("TEAMS_WEBHOOK_URL", ""),
		NotificationEmail: getEnv("NOTIFICATION_EMAIL", ""),
		SMTPHost:          getEnv("SMTP_HOST", ""),
		SMTPPort:          getIntEnv("SMTP_PORT", 587),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),
	}

	// Validate required configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(c.MonthlyRunSchedule); err != nil {
		return fmt.Errorf("MONTHLY_RUN_SCHEDULE is not a valid cron expression: %w", err)
	}

	if c.NotificationEmail != "" {
		if c.SMTPHost == "" || c.SMTPUsername == "" || c.SMTPPassword == "" {
			return fmt.Errorf("SMTP configuration is required when NOTIFICATION_EMAIL is set")
		}
	}

	if c.MonthlyRunEnabled && !c.NotificationsEnabled() {
		return fmt.Errorf("at least one notification method must be configured for the monthly run (TEAMS_WEBHOOK_URL or NOTIFICATION_EMAIL)")
	}

	return nil
}

// NotificationsEnabled reports whether any notification channel is configured
func (c *Config) NotificationsEnabled() bool {
	return c.TeamsWebhookURL != "" || c.NotificationEmail != ""
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}
