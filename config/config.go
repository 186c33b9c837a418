package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	// API Configuration
	APIPort        string
	APIHost        string
	APIEnvironment string
	AppURL         string

	// Database
	DatabaseDriver    string
	DatabaseURL       string
	DBSSLMode         string
	DBSSLCertPath     string
	DBSSLKeyPath      string
	DBSSLRootCertPath string

	// Redis (empty URL disables webhook de-duplication cache)
	RedisURL string

	// Shopify
	ShopifyAPISecret string

	// Capty
	CaptyAPIKey        string
	CommissionRate     float64
	TrackingScriptPath string
	ClickRecordTimeout time.Duration
	WebhookDedupTTL    time.Duration
	ReconcileEnabled   bool
	ReconcileSchedule  string

	// Statement archive (S3)
	StatementBucket    string
	StatementPrefix    string
	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	S3Endpoint         string

	// Rate Limiting
	RateLimitRequestsPerMinute int
	RateLimitBurst             int
	WebhookRateLimitPerMinute  int

	// Sentry
	SentryDSN         string
	SentryEnvironment string

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables
func Load() *Config {
	env := getEnv("API_ENVIRONMENT", "development")

	return &Config{
		// API
		APIPort:        getEnv("API_PORT", "3000"),
		APIHost:        getEnv("API_HOST", "0.0.0.0"),
		APIEnvironment: env,
		AppURL:         appURL(),

		// Database
		DatabaseDriver:    getEnv("DATABASE_DRIVER", "sqlite3"),
		DatabaseURL:       getEnv("DATABASE_URL", "file:capty.sqlite?_fk=1"),
		DBSSLMode:         getEnv("DB_SSL_MODE", ""),
		DBSSLCertPath:     getEnv("DB_SSL_CERT_PATH", ""),
		DBSSLKeyPath:      getEnv("DB_SSL_KEY_PATH", ""),
		DBSSLRootCertPath: getEnv("DB_SSL_ROOT_CERT_PATH", ""),

		// Redis
		RedisURL: getEnv("REDIS_URL", ""),

		// Shopify
		ShopifyAPISecret: getEnv("SHOPIFY_API_SECRET", ""),

		// Capty
		CaptyAPIKey:        getEnv("CAPTY_API_KEY", "capty-secret-key"),
		CommissionRate:     getEnvAsFloat("COMMISSION_RATE", 0.10),
		TrackingScriptPath: getEnv("TRACKING_SCRIPT_PATH", "public/capty-tracking.js"),
		ClickRecordTimeout: getEnvAsDuration("CLICK_RECORD_TIMEOUT", 2*time.Second),
		WebhookDedupTTL:    getEnvAsDuration("WEBHOOK_DEDUP_TTL", 48*time.Hour),
		ReconcileEnabled:   getEnvAsBool("RECONCILE_ENABLED", true),
		ReconcileSchedule:  getEnv("RECONCILE_SCHEDULE", "30 3 * * *"),

		// Statement archive
		StatementBucket:    getEnv("STATEMENT_BUCKET", ""),
		StatementPrefix:    getEnv("STATEMENT_PREFIX", "statements"),
		AWSRegion:          getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		S3Endpoint:         getEnv("S3_ENDPOINT", ""),

		// Rate Limiting
		RateLimitRequestsPerMinute: getEnvAsInt("RATE_LIMIT_REQUESTS_PER_MINUTE", 120),
		RateLimitBurst:             getEnvAsInt("RATE_LIMIT_BURST", 20),
		WebhookRateLimitPerMinute:  getEnvAsInt("WEBHOOK_RATE_LIMIT_PER_MINUTE", 600),

		// Sentry
		SentryDSN:         getEnv("SENTRY_DSN", ""),
		SentryEnvironment: getEnv("SENTRY_ENVIRONMENT", env),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// IsProduction reports whether the API runs in the production environment
func (c *Config) IsProduction() bool {
	return c.APIEnvironment == "production"
}

// appURL resolves the public URL of the app. Hosting providers expose it
// under different names, the explicit one wins.
func appURL() string {
	for _, key := range []string{"APP_URL", "SHOPIFY_APP_URL", "HOST"} {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return "http://localhost:3000"
}

// Helper functions
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}
