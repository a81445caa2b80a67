package config

import (
	"os"
	"strconv"
)

// Config holds all runtime configuration, loaded from environment variables.
type Config struct {
	Port        string
	Environment string

	// Store
	DatabaseURL string // empty = in-memory store (dev/test)

	// Identity provider
	JWKSURL string

	CORSOrigins string

	// LLM configuration
	AnthropicAPIKey string
	OpenAIAPIKey    string
	OpenAIBaseURL   string // optional, for OpenAI-compatible gateways
	DefaultModel    string

	// Context window
	MaxHistoryMessages int

	// Object storage (uploads)
	StorageEndpoint  string
	StorageAccessKey string
	StorageSecretKey string
	StorageBucket    string
	StorageUseSSL    bool
	StoragePublicURL string // base URL attachments are served from

	// Rate limiting (disabled when RedisAddr is empty)
	RedisAddr       string
	RedisPassword   string
	ChatRateLimit   int
	ChatRateWindowS int
}

// MaxTitleLength caps derived conversation titles.
const MaxTitleLength = 60

// DefaultMaxHistoryMessages bounds how much history is sent to the model.
const DefaultMaxHistoryMessages = 30

func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "dev"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		JWKSURL: getEnv("AUTH_JWKS_URL", ""),

		CORSOrigins: getEnv("CORS_ORIGINS", "http://localhost:3000"),

		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:   getEnv("OPENAI_BASE_URL", ""),
		DefaultModel:    getEnv("DEFAULT_MODEL", "gpt-4o-mini"),

		MaxHistoryMessages: getEnvInt("MAX_HISTORY_MESSAGES", DefaultMaxHistoryMessages),

		StorageEndpoint:  getEnv("STORAGE_ENDPOINT", ""),
		StorageAccessKey: getEnv("STORAGE_ACCESS_KEY", ""),
		StorageSecretKey: getEnv("STORAGE_SECRET_KEY", ""),
		StorageBucket:    getEnv("STORAGE_BUCKET", "chat-uploads"),
		StorageUseSSL:    getEnv("STORAGE_USE_SSL", "true") == "true",
		StoragePublicURL: getEnv("STORAGE_PUBLIC_URL", ""),

		RedisAddr:       getEnv("REDIS_ADDR", ""),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		ChatRateLimit:   getEnvInt("CHAT_RATE_LIMIT", 30),
		ChatRateWindowS: getEnvInt("CHAT_RATE_WINDOW_SECONDS", 60),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}
