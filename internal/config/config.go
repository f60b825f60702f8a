// Package config provides environment configuration for the API server.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Env                string
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	BaseURL            string
	AllowedOrigins     []string

	// Data store
	StoreBackend      string // webhook, sheets or memory
	SheetWebhookURL   string
	StoreTimeout      time.Duration
	GoogleSheetID     string
	GoogleServiceJSON string

	// Checkout
	StripeSecretKey     string
	StripeWebhookSecret string
	StripeCurrency      string

	// LLM settings
	LLMProvider     string
	LLMModel        string
	LLMTimeout      time.Duration
	GeminiAPIKey    string
	AnthropicAPIKey string
	OpenAIAPIKey    string

	// Sessions
	SessionBackend    string // memory or redis
	SessionTTL        time.Duration
	SessionMaxEntries int
	SessionLockTTL    time.Duration // redis lease per chat turn
	RedisAddr         string
	RedisPassword     string
	RedisDB           int

	// NATS settings
	NATSEnabled  bool
	NATSURL      string
	NATSCAFile   string
	NATSCertFile string
	NATSKeyFile  string
	NATSToken    string

	// JWT settings
	JWTSecret     string
	JWTExpiration time.Duration

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Background work
	CancellationPollSpec string

	// Restaurant
	RestaurantName    string
	RestaurantAddress string
	RestaurantHours   string
	RestaurantPhone   string
	RestaurantMapsURL string
	DefaultOrderTotal int64
	TablePrice        int64
	TableCapacity     int

	// Logging
	LogLevel string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

// Load reads configuration from environment variables, after loading a
// .env file from the working directory when one exists.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		// Server
		Env:                getEnv("ENV", "production"),
		ServerPort:         getEnv("PORT", "8000"),
		ServerReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
		ServerWriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 60*time.Second),
		BaseURL:            strings.TrimRight(getEnv("BASE_URL", "http://localhost:8000"), "/"),
		AllowedOrigins:     getListEnv("CORS_ALLOWED_ORIGINS", []string{"https://*", "http://*"}),

		// Data store
		StoreBackend:      strings.ToLower(getEnv("STORE_BACKEND", "webhook")),
		SheetWebhookURL:   getEnv("SHEET_WEBHOOK_URL", getEnv("GOOGLE_SHEET_WEBHOOK", "")),
		StoreTimeout:      getDurationEnv("STORE_TIMEOUT", 10*time.Second),
		GoogleSheetID:     getEnv("GOOGLE_SHEET_ID", ""),
		GoogleServiceJSON: getEnv("GOOGLE_SERVICE_JSON", ""),

		// Checkout
		StripeSecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
		StripeCurrency:      getEnv("STRIPE_CURRENCY", "inr"),

		// LLM
		LLMProvider:     strings.ToLower(getEnv("LLM_PROVIDER", "gemini")),
		LLMModel:        getEnv("LLM_MODEL", ""),
		LLMTimeout:      getDurationEnv("LLM_TIMEOUT", 15*time.Second),
		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),

		// Sessions
		SessionBackend:    strings.ToLower(getEnv("SESSION_BACKEND", "memory")),
		SessionTTL:        getDurationEnv("SESSION_TTL", 6*time.Hour),
		SessionMaxEntries: getIntEnv("SESSION_MAX_ENTRIES", 10000),
		SessionLockTTL:    getDurationEnv("SESSION_LOCK_TTL", time.Minute),
		RedisAddr:         getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		RedisDB:           getIntEnv("REDIS_DB", 0),

		// NATS
		NATSEnabled:  getBoolEnv("NATS_ENABLED", false),
		NATSURL:      getEnv("NATS_URL", "nats://localhost:4222"),
		NATSCAFile:   getEnv("NATS_CA_FILE", ""),
		NATSCertFile: getEnv("NATS_CERT_FILE", ""),
		NATSKeyFile:  getEnv("NATS_KEY_FILE", ""),
		NATSToken:    getEnv("NATS_TOKEN", ""),

		// JWT
		JWTSecret:     getEnv("JWT_SECRET", "development-secret-change-in-production"),
		JWTExpiration: getDurationEnv("JWT_EXPIRATION", 24*time.Hour),

		// Rate limiting
		RateLimitRequests: getIntEnv("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow:   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),

		CancellationPollSpec: getEnv("CANCELLATION_POLL_SPEC", "@every 30s"),

		// Restaurant
		RestaurantName:    getEnv("RESTAURANT_NAME", "Fifty Shades of Gravy"),
		RestaurantAddress: getEnv("RESTAURANT_ADDRESS", "Koramangala, Bengaluru, near Forum Mall"),
		RestaurantHours:   getEnv("RESTAURANT_HOURS", "11:00 AM – 11:00 PM"),
		RestaurantPhone:   getEnv("RESTAURANT_PHONE", "+91 98765 43210"),
		RestaurantMapsURL: getEnv("RESTAURANT_MAPS_URL", "https://goo.gl/maps/abc123"),
		DefaultOrderTotal: int64(getIntEnv("DEFAULT_ORDER_TOTAL", 500)),
		TablePrice:        int64(getIntEnv("TABLE_PRICE", 100)),
		TableCapacity:     getIntEnv("TABLE_CAPACITY", 4),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),

		// Tracing
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  getBoolEnv("TRACING_ENABLED", false),
	}
}

// LLMKey returns the API key configured for the selected provider.
func (c *Config) LLMKey() string {
	switch c.LLMProvider {
	case "anthropic":
		return c.AnthropicAPIKey
	case "openai":
		return c.OpenAIAPIKey
	default:
		return c.GeminiAPIKey
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
