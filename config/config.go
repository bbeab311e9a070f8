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

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	CORS     CORSConfig
	S3       S3Config
	Redis    RedisConfig
	Kafka    KafkaConfig
	Catalog  CatalogConfig
	Timeouts TimeoutConfig
}

type ServerConfig struct {
	Port        string
	GinMode     string
	Environment string
	LogLevel    string
	LogFormat   string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type JWTConfig struct {
	Secret            string
	AccessTokenExpiry time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	BaseURL         string // CloudFront or S3 direct URL
}

// RedisConfig is optional; an empty Host disables the list cache and
// falls back to in-process scope locks.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	CacheTTL time.Duration
	LockTTL  time.Duration
}

// KafkaConfig is optional; no brokers means events are only logged.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type CatalogConfig struct {
	Locale string // BCP 47 tag used for name tie-breaks
}

type TimeoutConfig struct {
	Read       time.Duration
	Write      time.Duration
	TokenFetch time.Duration
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8080"),
			GinMode:     getEnv("GIN_MODE", "debug"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", ""),
			LogFormat:   getEnv("LOG_FORMAT", "console"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "admin"),
			Password: getEnv("DB_PASSWORD", "1234"),
			DBName:   getEnv("DB_NAME", "storefront"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		JWT: JWTConfig{
			Secret:            getEnv("JWT_SECRET", "your-secret-key"),
			AccessTokenExpiry: parseDuration(getEnv("JWT_ACCESS_TOKEN_EXPIRY", "15m"), 15*time.Minute),
		},
		CORS: CORSConfig{
			AllowedOrigins: parseSlice(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		},
		S3: S3Config{
			Region:          getEnv("AWS_REGION", "me-central-1"),
			Bucket:          getEnv("AWS_S3_BUCKET", "storefront-product-images"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			BaseURL:         getEnv("AWS_S3_BASE_URL", ""),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", ""),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       parseInt(getEnv("REDIS_DB", "0"), 0),
			CacheTTL: parseDuration(getEnv("REDIS_CACHE_TTL", "5m"), 5*time.Minute),
			LockTTL:  parseDuration(getEnv("REDIS_LOCK_TTL", "30s"), 30*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers: parseSlice(getEnv("KAFKA_BROKERS", "")),
			Topic:   getEnv("KAFKA_TOPIC", "order-events"),
		},
		Catalog: CatalogConfig{
			Locale: getEnv("CATALOG_LOCALE", "en"),
		},
		Timeouts: TimeoutConfig{
			Read:       parseDuration(getEnv("DB_READ_TIMEOUT", "5s"), 5*time.Second),
			Write:      parseDuration(getEnv("DB_WRITE_TIMEOUT", "10s"), 10*time.Second),
			TokenFetch: parseDuration(getEnv("TOKEN_FETCH_TIMEOUT", "3s"), 3*time.Second),
		},
	}

	if config.Server.Environment == "production" && config.JWT.Secret == "your-secret-key" {
		return nil, fmt.Errorf("JWT_SECRET must be set in production")
	}

	return config, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func (c *RedisConfig) Enabled() bool {
	return c.Host != ""
}

func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	duration, err := time.ParseDuration(s)
	if err != nil {
		log.Printf("Invalid duration %s, using default %s", s, fallback)
		return fallback
	}
	return duration
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Printf("Invalid integer %s, using default %d", s, fallback)
		return fallback
	}
	return n
}

func parseSlice(s string) []string {
	var result []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
