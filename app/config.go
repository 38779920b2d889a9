package app

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the application configuration, loaded from the environment.
type (
	AppConfig struct {
		Database   DatabaseConfig
		Logging    LoggingConfig
		ConfigFile string
	}

	// WebhookConfig points at the external research worker (n8n-style
	// automation engine). Dispatches POST to URL and carry Secret in a
	// header; Timeout bounds every dispatch attempt.
	WebhookConfig struct {
		URL     string
		Secret  string
		Timeout time.Duration
	}

	// ResearchConfig tunes the lifecycle manager.
	ResearchConfig struct {
		MaxRetries         int
		SweepInterval      time.Duration
		ProcessingDeadline time.Duration
	}

	FCMConfig struct {
		Enabled         bool
		CredentialsPath string
	}
)

var (
	Logging  *LoggingConfig
	Database *DatabaseConfig
	Webhook  *WebhookConfig
	Research *ResearchConfig
	FCM      *FCMConfig
)

func Setup() {

	if err := godotenv.Load(".env"); err != nil {
		fmt.Println("Error loading .env file:", err)
	}

	Http := &AppConfig{
		Database: DatabaseConfig{
			Driver:   os.Getenv("DB_DRIVER"),
			Host:     os.Getenv("DB_HOST"),
			Username: os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			DBName:   os.Getenv("DB_NAME"),
			Port:     getEnvAsInt("DB_PORT", 3306),
			Debug:    os.Getenv("DB_DEBUG") == "true",
		},
		Logging: LoggingConfig{
			Type:       os.Getenv("LOG_TYPE"),
			Level:      os.Getenv("LOG_LEVEL"),
			ServerName: os.Getenv("SERVER_NAME"),
		},
	}

	Http.Database.Setup()
	Http.Logging.Setup()

	Database = &Http.Database
	Logging = &Http.Logging

	Webhook = &WebhookConfig{
		URL:     os.Getenv("RESEARCH_WEBHOOK_URL"),
		Secret:  os.Getenv("RESEARCH_WEBHOOK_SECRET"),
		Timeout: getEnvAsDuration("RESEARCH_WEBHOOK_TIMEOUT", 30*time.Second),
	}

	Research = &ResearchConfig{
		MaxRetries:         getEnvAsInt("RESEARCH_MAX_RETRIES", 3),
		SweepInterval:      getEnvAsDuration("RESEARCH_SWEEP_INTERVAL", 30*time.Second),
		ProcessingDeadline: getEnvAsDuration("RESEARCH_PROCESSING_DEADLINE", 10*time.Minute),
	}

	FCM = &FCMConfig{
		Enabled:         os.Getenv("FCM_ENABLED") == "true",
		CredentialsPath: os.Getenv("FCM_CREDENTIALS_PATH"),
	}
}

func Config(key string) string {
	return os.Getenv(key)
}

// Helper convert env -> int
func getEnvAsInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return i
}

// Helper convert env -> duration ("30s", "5m", ...)
func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}
