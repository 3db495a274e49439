package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// generateConsumerID creates a unique consumer ID using hostname and PID
func generateConsumerID() string {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "triage"
	}
	return fmt.Sprintf("%s-%d", hostname, os.Getpid())
}

type Config struct {
	Port        string
	Environment string

	// Database
	DatabaseURL string
	RedisURL    string

	// OpenAI
	OpenAIAPIKey   string
	LLMModel       string
	LLMMaxTokens   int
	LLMTemperature float64
	LLMTimeoutSec  int

	// Consumer (Redis Stream)
	ConsumerID           string
	ConsumerGroup        string
	ConsumerBlockMS      int
	ConsumerMaxRetries   int
	ConsumerReclaimSec   int
	ConsumerPendingIdle  time.Duration
	ConsumerRetryDelayMS int

	// Routing
	AutoRoute bool

	// Shutdown
	ShutdownTimeout time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENV", "development"),

		// Database
		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),

		// OpenAI
		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
		LLMModel:       getEnv("LLM_MODEL", "gpt-4o-mini"),
		LLMMaxTokens:   getEnvInt("LLM_MAX_TOKENS", 512),
		LLMTemperature: getEnvFloat("LLM_TEMPERATURE", 0.0),
		LLMTimeoutSec:  getEnvInt("LLM_TIMEOUT_SEC", 30),

		// Consumer
		ConsumerID:           getEnv("CONSUMER_ID", generateConsumerID()),
		ConsumerGroup:        getEnv("CONSUMER_GROUP", "triage-workers"),
		ConsumerBlockMS:      getEnvInt("CONSUMER_BLOCK_MS", 5000),
		ConsumerMaxRetries:   getEnvInt("CONSUMER_MAX_RETRIES", 3),
		ConsumerReclaimSec:   getEnvInt("CONSUMER_RECLAIM_SEC", 30),
		ConsumerPendingIdle:  time.Duration(getEnvInt("CONSUMER_PENDING_IDLE_SEC", 120)) * time.Second,
		ConsumerRetryDelayMS: getEnvInt("CONSUMER_RETRY_DELAY_MS", 1000),

		// Routing
		AutoRoute: getEnvBool("AUTO_ROUTE", true),

		// Shutdown
		ShutdownTimeout: time.Duration(getEnvInt("SHUTDOWN_TIMEOUT_SEC", 30)) * time.Second,
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
