package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var (
	ErrMissingAPIKey  = errors.New("RAPIDAPI_KEY is required")
	ErrMissingAPIHost = errors.New("RAPIDAPI_HOST is required")
)

type Config struct {
	Port         string
	Environment  string
	Logging      LoggingConfig
	Upstream     UpstreamConfig
	Autocomplete AutocompleteConfig
	SessionTTL   time.Duration
	Store        StoreConfig
}

type LoggingConfig struct {
	Level  string
	Format string
}

// UpstreamConfig describes the third-party flight API. APIKey and APIHost have no
// defaults; Load fails when either is unset.
type UpstreamConfig struct {
	APIKey       string
	APIHost      string
	BaseURL      string
	Locale       string
	Timeout      time.Duration
	MaxRetries   int
	AirportRate  float64
	AirportBurst int
	FlightRate   float64
	FlightBurst  int
}

type AutocompleteConfig struct {
	Debounce       time.Duration
	BlurGrace      time.Duration
	MinQueryLength int
}

type StoreConfig struct {
	Backend       string // "memory" or "redis"
	TTL           time.Duration
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
}

func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	upstream := UpstreamConfig{
		APIKey:       getEnv("RAPIDAPI_KEY", ""),
		APIHost:      getEnv("RAPIDAPI_HOST", ""),
		Locale:       getEnv("SKY_LOCALE", "en-US"),
		Timeout:      getEnvDuration("UPSTREAM_TIMEOUT", 30*time.Second),
		MaxRetries:   getEnvInt("UPSTREAM_MAX_RETRIES", 0),
		AirportRate:  getEnvFloat("AIRPORT_RATE_LIMIT", 5),
		AirportBurst: getEnvInt("AIRPORT_RATE_BURST", 10),
		FlightRate:   getEnvFloat("FLIGHT_RATE_LIMIT", 2),
		FlightBurst:  getEnvInt("FLIGHT_RATE_BURST", 5),
	}
	if upstream.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if upstream.APIHost == "" {
		return nil, ErrMissingAPIHost
	}
	upstream.BaseURL = strings.TrimRight(getEnv("SKY_API_BASE_URL", "https://"+upstream.APIHost), "/")
	if upstream.MaxRetries < 0 {
		upstream.MaxRetries = 0
	}

	minLen := getEnvInt("AUTOCOMPLETE_MIN_LENGTH", 2)
	if minLen < 1 {
		minLen = 1
	}

	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
		Upstream: upstream,
		Autocomplete: AutocompleteConfig{
			Debounce:       getEnvDuration("AUTOCOMPLETE_DEBOUNCE", 300*time.Millisecond),
			BlurGrace:      getEnvDuration("AUTOCOMPLETE_BLUR_GRACE", 200*time.Millisecond),
			MinQueryLength: minLen,
		},
		SessionTTL: getEnvDuration("SESSION_TTL", 30*time.Minute),
		Store: StoreConfig{
			Backend:       strings.ToLower(getEnv("ITINERARY_STORE", "memory")),
			TTL:           getEnvDuration("ITINERARY_TTL", 30*time.Minute),
			RedisHost:     getEnv("REDIS_HOST", "localhost"),
			RedisPort:     getEnv("REDIS_PORT", "6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getEnvInt("REDIS_DB", 0),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return defaultValue
	}
	return f
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return defaultValue
	}
	return duration
}
