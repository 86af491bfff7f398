package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/Praneeth-A/onebox/internal/models"
)

type Config struct {
	Environment string
	LogLevel    string

	DBHost     string
	DBPort     string
	DBUsername string
	DBPassword string
	DBName     string
	DBSSLMode  string

	ClassifierURL   string
	SlackWebhookURL string
	WebhookURL      string

	BackfillWindow  time.Duration
	KeepAlivePeriod time.Duration
	ReconnectDelay  time.Duration

	Accounts []models.Account
}

func NewConfig() (*Config, error) {
	env := os.Getenv("ONEBOX_ENV")
	if env == "" {
		env = "development"
	}

	if env == "development" {
		if err := godotenv.Load(); err != nil {
			fmt.Println("Warning: .env file not found, using environment variables")
		}
	}

	config := &Config{
		Environment:     env,
		LogLevel:        getEnvOrDefault("ONEBOX_LOG_LEVEL", "info"),
		DBHost:          getEnvOrDefault("ONEBOX_DB_HOST", "localhost"),
		DBPort:          getEnvOrDefault("ONEBOX_DB_PORT", "5432"),
		DBUsername:      getEnvOrDefault("ONEBOX_DB_USER", "onebox"),
		DBPassword:      os.Getenv("ONEBOX_DB_PASSWORD"),
		DBName:          getEnvOrDefault("ONEBOX_DB_NAME", "onebox"),
		DBSSLMode:       getEnvOrDefault("ONEBOX_DB_SSLMODE", "disable"),
		ClassifierURL:   os.Getenv("ONEBOX_CLASSIFIER_URL"),
		SlackWebhookURL: os.Getenv("ONEBOX_SLACK_WEBHOOK_URL"),
		WebhookURL:      os.Getenv("ONEBOX_WEBHOOK_URL"),
		BackfillWindow:  time.Duration(getEnvIntOrDefault("ONEBOX_BACKFILL_DAYS", 30)) * 24 * time.Hour,
		KeepAlivePeriod: getEnvDurationOrDefault("ONEBOX_KEEPALIVE_PERIOD", 5*time.Minute),
		ReconnectDelay:  getEnvDurationOrDefault("ONEBOX_RECONNECT_DELAY", 10*time.Second),
	}

	accounts, err := loadAccounts()
	if err != nil {
		return nil, fmt.Errorf("failed to load accounts: %w", err)
	}
	config.Accounts = accounts

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) Validate() error {
	if c.DBPassword == "" {
		return fmt.Errorf("ONEBOX_DB_PASSWORD is required")
	}

	if len(c.Accounts) == 0 {
		return fmt.Errorf("at least one account must be configured (ONEBOX_ACCOUNT_1_*)")
	}

	for _, account := range c.Accounts {
		if account.Host == "" || account.Username == "" || account.Password == "" {
			return fmt.Errorf("account %q is missing host, username or password", account.ID)
		}
	}

	return nil
}

func (c *Config) GetDatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUsername,
		c.DBPassword,
		c.DBHost,
		c.DBPort,
		c.DBName,
		c.DBSSLMode,
	)
}

// loadAccounts reads numbered ONEBOX_ACCOUNT_<N>_* variables until the first
// index with no username set.
func loadAccounts() ([]models.Account, error) {
	var accounts []models.Account

	for i := 1; ; i++ {
		prefix := fmt.Sprintf("ONEBOX_ACCOUNT_%d_", i)
		username := os.Getenv(prefix + "USERNAME")
		if username == "" {
			break
		}

		port, err := strconv.Atoi(getEnvOrDefault(prefix+"PORT", "993"))
		if err != nil {
			return nil, fmt.Errorf("invalid %sPORT: %w", prefix, err)
		}

		useTLS := true
		if raw := os.Getenv(prefix + "TLS"); raw != "" {
			useTLS, err = strconv.ParseBool(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid %sTLS: %w", prefix, err)
			}
		}

		accounts = append(accounts, models.Account{
			ID:       getEnvOrDefault(prefix+"NAME", username),
			Host:     os.Getenv(prefix + "HOST"),
			Port:     port,
			Username: username,
			Password: os.Getenv(prefix + "PASSWORD"),
			UseTLS:   useTLS,
		})
	}

	return accounts, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return defaultValue
	}
	return value
}
