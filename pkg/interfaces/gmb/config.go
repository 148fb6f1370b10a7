package gmb

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds settings for the Google Business Profile API client.
type Config struct {
	// OAuth2 application credentials
	ClientID     string
	ClientSecret string

	// API Endpoints
	AccountsBaseURL string
	ReviewsBaseURL  string
	TokenURL        string

	// Request behaviour
	RequestTimeout time.Duration
	PageSize       int

	// Rate limiting for paginated review fetches
	RateLimit  int // requests per RateWindow
	RateWindow time.Duration

	// General Config
	Logger *logrus.Logger
}

// NewConfig builds a Config from environment variables.
func NewConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	pageSize, _ := strconv.Atoi(getEnvOrDefault("GMB_PAGE_SIZE", "50"))
	rateLimit, _ := strconv.Atoi(getEnvOrDefault("GMB_RATE_LIMIT", "300"))
	timeoutSec, _ := strconv.Atoi(getEnvOrDefault("GMB_REQUEST_TIMEOUT_SECONDS", "30"))

	config := &Config{
		ClientID:     os.Getenv("GMB_CLIENT_ID"),
		ClientSecret: os.Getenv("GMB_CLIENT_SECRET"),

		AccountsBaseURL: getEnvOrDefault("GMB_ACCOUNTS_BASE_URL", "https://mybusinessaccountmanagement.googleapis.com/v1"),
		ReviewsBaseURL:  getEnvOrDefault("GMB_REVIEWS_BASE_URL", "https://mybusiness.googleapis.com/v4"),
		TokenURL:        getEnvOrDefault("GMB_TOKEN_URL", "https://oauth2.googleapis.com/token"),

		RequestTimeout: time.Duration(timeoutSec) * time.Second,
		PageSize:       pageSize,
		RateLimit:      rateLimit,
		RateWindow:     time.Minute,

		Logger: func() *logrus.Logger {
			log := logrus.New()
			if level := os.Getenv("LOG_LEVEL"); level != "" {
				if parsedLevel, err := logrus.ParseLevel(level); err == nil {
					log.SetLevel(parsedLevel)
				}
			}
			return log
		}(),
	}

	config.Logger.WithFields(logrus.Fields{
		"client_id_exists": config.ClientID != "",
		"accounts_base":    config.AccountsBaseURL,
		"reviews_base":     config.ReviewsBaseURL,
		"page_size":        config.PageSize,
	}).Debug("Business Profile config initialized")

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the configuration and fills safe defaults.
func (c *Config) Validate() error {
	if c.Logger == nil {
		return fmt.Errorf("logger is required")
	}
	if c.ClientID == "" || c.ClientSecret == "" {
		return fmt.Errorf("GMB_CLIENT_ID and GMB_CLIENT_SECRET must be provided")
	}
	if c.PageSize < 1 || c.PageSize > 50 {
		return fmt.Errorf("page size must be between 1 and 50")
	}
	if c.RateLimit < 1 {
		return fmt.Errorf("rate limit must be positive")
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 30 * time.Second
	}
	if c.AccountsBaseURL == "" {
		c.AccountsBaseURL = "https://mybusinessaccountmanagement.googleapis.com/v1"
	}
	if c.ReviewsBaseURL == "" {
		c.ReviewsBaseURL = "https://mybusiness.googleapis.com/v4"
	}
	return nil
}

// Helper function to get environment variable with default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
