package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port      string
	Env       string
	LogLevel  string
	LogFormat string

	// Reservation API
	RestaurantAPIURL     string
	RestaurantAPITimeout time.Duration
	RestaurantTimezone   string

	// Optional read-through cache for slow-changing API data.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	CookieHashKey  string
	CookieBlockKey string

	// OperatorJWTSecret enables the /admin endpoints when set.
	OperatorJWTSecret string

	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int

	// Booking form behaviour
	ValidationDebounce time.Duration
	EmailCheckDebounce time.Duration
	SameDayLead        time.Duration
	BookingWindowDays  int
	DefaultCountry     string
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		Port:                 getEnv("PORT", "8080"),
		Env:                  getEnv("ENV", "development"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		LogFormat:            strings.ToLower(getEnv("LOG_FORMAT", "json")),
		RestaurantAPIURL:     strings.TrimRight(getEnv("RESTAURANT_API_URL", "http://127.0.0.1:8000"), "/"),
		RestaurantAPITimeout: getEnvAsDuration("RESTAURANT_API_TIMEOUT", 10*time.Second),
		RestaurantTimezone:   getEnv("RESTAURANT_TIMEZONE", "Africa/Casablanca"),
		RedisAddr:            getEnv("REDIS_ADDR", ""),
		RedisPassword:        getEnv("REDIS_PASSWORD", ""),
		RedisDB:              getEnvAsInt("REDIS_DB", 0),
		CacheTTL:             getEnvAsDuration("CACHE_TTL", 5*time.Minute),
		CookieHashKey:        getEnv("COOKIE_HASH_KEY", ""),
		CookieBlockKey:       getEnv("COOKIE_BLOCK_KEY", ""),
		OperatorJWTSecret:    getEnv("OPERATOR_JWT_SECRET", ""),
		CORSAllowedOrigins:   getEnvAsList("CORS_ALLOWED_ORIGINS"),
		RateLimitRPS:         getEnvAsFloat("RATE_LIMIT_RPS", 2),
		RateLimitBurst:       getEnvAsInt("RATE_LIMIT_BURST", 5),
		ValidationDebounce:   getEnvAsDuration("VALIDATION_DEBOUNCE", 400*time.Millisecond),
		EmailCheckDebounce:   getEnvAsDuration("EMAIL_CHECK_DEBOUNCE", 900*time.Millisecond),
		SameDayLead:          getEnvAsDuration("SAME_DAY_LEAD", 30*time.Minute),
		BookingWindowDays:    getEnvAsInt("BOOKING_WINDOW_DAYS", 90),
		DefaultCountry:       getEnv("DEFAULT_COUNTRY", "+212"),
	}
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// Location resolves RestaurantTimezone, falling back to UTC when the zone is unknown.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.RestaurantTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
