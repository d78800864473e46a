package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the civiceye service
type Config struct {
	// Database configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Server configuration
	Port           string
	TrustedProxies []string

	// Trust scorer configuration
	ScorerURL     string
	ScorerTimeout time.Duration

	// Auth configuration
	JWTSecret   string
	TokenExpiry time.Duration

	// RabbitMQ configuration
	RabbitMQHost                string
	RabbitMQPort                string
	RabbitMQUser                string
	RabbitMQPassword            string
	RabbitMQExchange            string
	RabbitMQSubmittedRoutingKey string
	RabbitMQVerifiedRoutingKey  string

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		// Database defaults
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "server"),
		DBPassword: getEnv("DB_PASSWORD", "secret_app"),
		DBName:     getEnv("DB_NAME", "civiceye"),

		// Server defaults
		Port:           getEnv("PORT", "5000"),
		TrustedProxies: getStringSliceEnv("TRUSTED_PROXIES", ""),

		// Scorer defaults; empty URL means the scorer is not configured and
		// verification requests resolve to UNAVAILABLE
		ScorerURL:     getEnv("TRUST_SCORER_URL", ""),
		ScorerTimeout: getDurationEnv("TRUST_SCORER_TIMEOUT", 30*time.Second),

		// Auth defaults
		JWTSecret:   getEnv("JWT_SECRET", "civiceye-dev-secret"),
		TokenExpiry: getDurationEnv("TOKEN_EXPIRY", 24*time.Hour),

		// RabbitMQ defaults
		RabbitMQHost:                getEnv("RABBITMQ_HOST", "localhost"),
		RabbitMQPort:                getEnv("RABBITMQ_PORT", "5672"),
		RabbitMQUser:                getEnv("RABBITMQ_USER", "guest"),
		RabbitMQPassword:            getEnv("RABBITMQ_PASSWORD", "guest"),
		RabbitMQExchange:            getEnv("RABBITMQ_EXCHANGE", "civiceye-exchange"),
		RabbitMQSubmittedRoutingKey: getEnv("RABBITMQ_SUBMITTED_ROUTING_KEY", "report.submitted"),
		RabbitMQVerifiedRoutingKey:  getEnv("RABBITMQ_VERIFIED_ROUTING_KEY", "report.verified"),

		// Logging defaults
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// GetAMQPURL builds the AMQP connection URL from the RabbitMQ settings.
func (c *Config) GetAMQPURL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/", c.RabbitMQUser, c.RabbitMQPassword, c.RabbitMQHost, c.RabbitMQPort)
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDurationEnv gets a duration environment variable or returns a default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getIntEnv gets an integer environment variable or returns a default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getStringSliceEnv gets a comma-separated environment variable as a slice
func getStringSliceEnv(key, defaultValue string) []string {
	value := getEnv(key, defaultValue)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
