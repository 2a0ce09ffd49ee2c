package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	FrontendURL string
	LogLevel    string
	// Backend API
	BackendURL           string
	BackendTimeout       time.Duration
	BackendUploadTimeout time.Duration
	// Session cookie
	SessionSecret string
	SessionTTL    time.Duration
	CookieSecure  bool
	// Redis (optional, in-memory fallback when empty)
	RedisURL       string
	RedisPassword  string
	ResultCacheTTL time.Duration
	// Progress transport: "sse" (default) or "amqp"
	StreamTransport string
	AMQPURL         string
	// Uploads
	MaxResumeBytes int64
	// Rate limiting
	RateLimitWindowSeconds     int
	RateLimitLoginThreshold    int
	RateLimitAnalysisThreshold int
}

func LoadConfig() (*Config, error) {
	// Only effective locally; a missing .env is fine in production
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		FrontendURL: strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:3000"), "/"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		// Trailing slash removed so paths never double up (".../api//jobs")
		BackendURL:           strings.TrimRight(getEnv("BACKEND_API_URL", "http://localhost:8000/api"), "/"),
		BackendTimeout:       getEnvDuration("BACKEND_TIMEOUT", 30*time.Second),
		BackendUploadTimeout: getEnvDuration("BACKEND_UPLOAD_TIMEOUT", 5*time.Minute),
		SessionSecret:        getEnv("SESSION_SECRET", ""),
		SessionTTL:           getEnvDuration("SESSION_TTL", 7*24*time.Hour),
		CookieSecure:         getEnvBool("COOKIE_SECURE", false),
		RedisURL:             getEnv("REDIS_URL", ""),
		RedisPassword:        getEnv("REDIS_PASSWORD", ""),
		ResultCacheTTL:       getEnvDuration("RESULT_CACHE_TTL", 30*time.Minute),
		StreamTransport:      strings.ToLower(getEnv("STREAM_TRANSPORT", "sse")),
		AMQPURL:              getEnv("AMQP_URL", ""),
		MaxResumeBytes:       int64(getEnvInt("MAX_RESUME_BYTES", 10<<20)),
		// Rate limiting (sensible defaults)
		RateLimitWindowSeconds:     getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 60),
		RateLimitLoginThreshold:    getEnvInt("RATE_LIMIT_LOGIN_THRESHOLD", 10),
		RateLimitAnalysisThreshold: getEnvInt("RATE_LIMIT_ANALYSIS_PER_MINUTE", 5),
	}

	if cfg.SessionSecret == "" {
		log.Println("WARNING: SESSION_SECRET is missing. Using an insecure development secret.")
		cfg.SessionSecret = "dev-insecure-session-secret"
	}

	if cfg.RedisURL == "" {
		log.Println("WARNING: REDIS_URL not configured. Result cache and rate limiting will use in-memory fallback.")
	}

	if cfg.StreamTransport == "amqp" && cfg.AMQPURL == "" {
		log.Println("WARNING: STREAM_TRANSPORT=amqp without AMQP_URL. Falling back to SSE.")
		cfg.StreamTransport = "sse"
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt returns an integer environment variable or fallback if not set/invalid
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvBool returns a boolean environment variable or fallback if not set/invalid
func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

// getEnvDuration accepts Go durations ("90s") or plain seconds ("90").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
