package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// JWT configuration
	JWT JWTConfig

	// CORS configuration
	CORS CORSConfig

	// Security configuration
	Security SecurityConfig

	// Redis configuration (idempotency locks)
	Redis RedisConfig

	// Kafka configuration (booking events)
	Kafka KafkaConfig

	// Payment gateway configuration
	Payment PaymentConfig

	// Booking commit configuration
	Booking BookingConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port        string
	Environment string // development, staging, production
	LogLevel    string // debug, info, warn, error
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL                string
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

// JWTConfig holds JWT-related configuration
type JWTConfig struct {
	Secret             string
	AccessTokenExpiry  time.Duration
	RequestTokenExpiry time.Duration
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	BcryptCost       int
	EnableRequestLog bool
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string // empty disables the distributed lock
	Password string
	DB       int
}

// KafkaConfig holds Kafka producer configuration
type KafkaConfig struct {
	Brokers []string // empty disables event publishing
	Topic   string
}

// PaymentConfig holds the mobile-money gateway configuration
type PaymentConfig struct {
	GatewayURL     string
	MerchantKey    string
	MerchantSecret string // SECRET - never expose to client
	Timeout        time.Duration
	Currency       string
}

// BookingConfig holds booking commit tuning
type BookingConfig struct {
	LockTTL           time.Duration // in-flight idempotency lock lifetime
	StaleAttemptAfter time.Duration // age after which an unfinished attempt is swept
	SweepInterval     time.Duration
	MaxPassengers     int
	SweeperEnabled    bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			MaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    time.Duration(getEnvAsInt("DATABASE_CONN_MAX_LIFETIME", 300)) * time.Second,
		},
		JWT: JWTConfig{
			Secret:             getEnv("JWT_SECRET", ""),
			AccessTokenExpiry:  time.Duration(getEnvAsInt("JWT_ACCESS_TOKEN_EXPIRY", 3600)) * time.Second,
			RequestTokenExpiry: time.Duration(getEnvAsInt("JWT_REQUEST_TOKEN_EXPIRY", 600)) * time.Second,
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization", "Idempotency-Key"}),
		},
		Security: SecurityConfig{
			BcryptCost:       getEnvAsInt("BCRYPT_COST", 12),
			EnableRequestLog: getEnvAsBool("ENABLE_REQUEST_LOGGING", true),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers: getEnvAsSlice("KAFKA_BROKERS", nil),
			Topic:   getEnv("KAFKA_BOOKING_TOPIC", "booking.confirmed"),
		},
		Payment: PaymentConfig{
			GatewayURL:     getEnv("PAYMENT_GATEWAY_URL", ""),
			MerchantKey:    getEnv("PAYMENT_MERCHANT_KEY", ""),
			MerchantSecret: getEnv("PAYMENT_MERCHANT_SECRET", ""),
			Timeout:        time.Duration(getEnvAsInt("PAYMENT_TIMEOUT_SECONDS", 30)) * time.Second,
			Currency:       getEnv("PAYMENT_CURRENCY", "XOF"),
		},
		Booking: BookingConfig{
			LockTTL:           time.Duration(getEnvAsInt("BOOKING_LOCK_TTL_SECONDS", 120)) * time.Second,
			StaleAttemptAfter: time.Duration(getEnvAsInt("BOOKING_STALE_ATTEMPT_MINUTES", 15)) * time.Minute,
			SweepInterval:     time.Duration(getEnvAsInt("BOOKING_SWEEP_INTERVAL_SECONDS", 60)) * time.Second,
			MaxPassengers:     getEnvAsInt("BOOKING_MAX_PASSENGERS", 20),
			SweeperEnabled:    getEnvAsBool("BOOKING_SWEEPER_ENABLED", true),
		},
	}

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.Payment.Timeout <= 0 {
		return fmt.Errorf("PAYMENT_TIMEOUT_SECONDS must be positive")
	}

	// The gateway is only mandatory outside development; cash still works without it
	if c.Server.Environment == "production" {
		if c.Payment.GatewayURL == "" {
			return fmt.Errorf("PAYMENT_GATEWAY_URL is required in production")
		}
		if c.Payment.MerchantKey == "" || c.Payment.MerchantSecret == "" {
			return fmt.Errorf("PAYMENT_MERCHANT_KEY and PAYMENT_MERCHANT_SECRET are required in production")
		}
	}

	if c.Booking.MaxPassengers < 1 {
		return fmt.Errorf("BOOKING_MAX_PASSENGERS must be at least 1")
	}

	return nil
}

// IsProduction reports whether the service runs in production
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// Helper functions to get environment variables

func getEnv(key string, defaultValue string) string {
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
		log.Printf("Invalid integer value for %s, using default: %d", key, defaultValue)
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
		log.Printf("Invalid boolean value for %s, using default: %t", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var result []string
	for _, v := range strings.Split(valueStr, ",") {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
