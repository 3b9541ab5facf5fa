package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DriverSQLite = "sqlite3"
	DriverMySQL  = "mysql"

	ProviderGemini = "gemini"
	ProviderStub   = "stub"
)

// Config holds all configuration for the road safety service
type Config struct {
	// Server configuration
	Port             string
	CORSAllowOrigins []string
	HTTPTimeout      time.Duration

	// Inference configuration
	LLMProvider   string
	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string

	// Weather and places providers
	OpenWeatherAPIKey  string
	OpenWeatherBaseURL string
	OverpassURL        string

	// Thresholds
	DamageThreshold       int
	VisibilityThresholdKm float64
	EmergencyRadiusMeters int
	EmergencyCacheTTL     time.Duration
	ImageMaxDimension     int

	// Database configuration
	DBDriver             string
	DBPath               string
	DBHost               string
	DBPort               string
	DBUser               string
	DBPassword           string
	DBName               string
	DBMaxOpenConns       int
	DBMaxIdleConns       int
	DBConnMaxLifetimeMin int
	DBPingMaxWaitSec     int

	// RabbitMQ configuration, disabled when the host is empty
	RabbitMQHost                 string
	RabbitMQPort                 string
	RabbitMQUser                 string
	RabbitMQPassword             string
	RabbitMQExchange             string
	RabbitMQEscalationRoutingKey string

	// Fallback coordinate when the caller has no location
	DefaultLat float64
	DefaultLng float64

	// Logging
	LogLevel  string
	LogFormat string
}

// Load loads configuration from environment variables
func Load() *Config {
	config := &Config{
		Port:             getEnv("PORT", "5500"),
		CORSAllowOrigins: getStringSliceEnv("CORS_ALLOW_ORIGINS", "*"),
		HTTPTimeout:      getDurationEnv("HTTP_TIMEOUT", 30*time.Second),

		LLMProvider:   getEnv("LLM_PROVIDER", ProviderGemini),
		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiBaseURL: getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),

		OpenWeatherAPIKey:  getEnv("OPENWEATHER_API_KEY", ""),
		OpenWeatherBaseURL: getEnv("OPENWEATHER_BASE_URL", "https://api.openweathermap.org/data/2.5"),
		OverpassURL:        getEnv("OVERPASS_URL", "https://overpass-api.de/api/interpreter"),

		DamageThreshold:       getIntEnv("DAMAGE_THRESHOLD", 75),
		VisibilityThresholdKm: getFloatEnv("VISIBILITY_THRESHOLD", 1.0),
		EmergencyRadiusMeters: getIntEnv("EMERGENCY_RADIUS", 5000),
		EmergencyCacheTTL:     getDurationEnv("EMERGENCY_CACHE_TTL", 24*time.Hour),
		ImageMaxDimension:     getIntEnv("IMAGE_MAX_DIMENSION", 1024),

		DBDriver:             getEnv("DB_DRIVER", DriverSQLite),
		DBPath:               getEnv("DB_PATH", "database.db"),
		DBHost:               getEnv("DB_HOST", "localhost"),
		DBPort:               getEnv("DB_PORT", "3306"),
		DBUser:               getEnv("DB_USER", "server"),
		DBPassword:           getEnv("DB_PASSWORD", "secret"),
		DBName:               getEnv("DB_NAME", "saferoads"),
		DBMaxOpenConns:       getIntEnv("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns:       getIntEnv("DB_MAX_IDLE_CONNS", 10),
		DBConnMaxLifetimeMin: getIntEnv("DB_CONN_MAX_LIFETIME_MIN", 5),
		DBPingMaxWaitSec:     getIntEnv("DB_PING_MAX_WAIT_SEC", 60),

		RabbitMQHost:                 getEnv("RABBITMQ_HOST", ""),
		RabbitMQPort:                 getEnv("RABBITMQ_PORT", "5672"),
		RabbitMQUser:                 getEnv("RABBITMQ_USER", "guest"),
		RabbitMQPassword:             getEnv("RABBITMQ_PASSWORD", "guest"),
		RabbitMQExchange:             getEnv("RABBITMQ_EXCHANGE", "saferoads"),
		RabbitMQEscalationRoutingKey: getEnv("RABBITMQ_ESCALATION_ROUTING_KEY", "escalation"),

		DefaultLat: getFloatEnv("DEFAULT_LAT", 22.5726),
		DefaultLng: getFloatEnv("DEFAULT_LNG", 88.3639),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	return config
}

// IsPlaceholder reports whether a credential is unset or still holds a template value
// such as YOUR_GEMINI_API_KEY_HERE.
func IsPlaceholder(key string) bool {
	key = strings.TrimSpace(key)
	return key == "" || strings.HasPrefix(key, "YOUR_")
}

func (c *Config) GeminiConfigured() bool {
	return !IsPlaceholder(c.GeminiAPIKey)
}

func (c *Config) OpenWeatherConfigured() bool {
	return !IsPlaceholder(c.OpenWeatherAPIKey)
}

func (c *Config) RabbitMQEnabled() bool {
	return c.RabbitMQHost != ""
}

func (c *Config) AMQPURL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/", c.RabbitMQUser, c.RabbitMQPassword, c.RabbitMQHost, c.RabbitMQPort)
}

// DSN returns the data source name for the configured driver.
func (c *Config) DSN() string {
	if c.DBDriver == DriverMySQL {
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&multiStatements=true", c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
	}
	return c.DBPath
}

// getStringSliceEnv gets a comma-separated environment variable as a string slice
func getStringSliceEnv(key, defaultValue string) []string {
	value := getEnv(key, defaultValue)
	if value == "" {
		return []string{}
	}

	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
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

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
