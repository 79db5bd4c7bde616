package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Push     PushConfig
	Kafka    KafkaConfig
	Storage  StorageConfig
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Address string // listen address, e.g. ":8080"
}

// DatabaseConfig contains database-related settings.
type DatabaseConfig struct {
	Path string // SQLite database file path
}

// RedisConfig contains session-store settings.
type RedisConfig struct {
	URL string
}

// AuthConfig contains authentication settings.
type AuthConfig struct {
	JWTSecret string
}

// PushConfig points at the push notification gateway.
type PushConfig struct {
	BaseURL string
	APIKey  string
}

// KafkaConfig configures the order-events publisher. Empty Brokers means
// events are logged to the console instead of published.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// StorageConfig configures proof-photo blob storage.
type StorageConfig struct {
	Dir           string // local directory for blobs
	PublicBaseURL string // prefix of returned public URLs
}

// Load loads configuration from the environment (and .env if present).
// JWT_SECRET is required.
func Load() (*Config, error) {
	cfg, err := LoadWithDefaults()
	if err != nil {
		return nil, err
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is not set; required for production")
	}
	return cfg, nil
}

// LoadWithDefaults is like Load but uses a safe default for JWT_SECRET in
// development. WARNING: only use in development.
func LoadWithDefaults() (*Config, error) {
	_ = godotenv.Load()

	var brokers []string
	if v := getEnv("KAFKA_BROKERS", ""); v != "" {
		brokers = strings.Split(v, ",")
	}
	return &Config{
		Server:   ServerConfig{Address: getEnv("SERVER_ADDRESS", ":8080")},
		Database: DatabaseConfig{Path: getEnv("DB_PATH", "delivery.db")},
		Redis:    RedisConfig{URL: getEnv("REDIS_URL", "redis://localhost:6379")},
		Auth:     AuthConfig{JWTSecret: getEnv("JWT_SECRET", "dev-secret-change-me")},
		Push: PushConfig{
			BaseURL: getEnv("PUSH_GATEWAY_URL", ""),
			APIKey:  getEnv("PUSH_GATEWAY_KEY", ""),
		},
		Kafka: KafkaConfig{
			Brokers: brokers,
			Topic:   getEnv("KAFKA_TOPIC", "order-events"),
		},
		Storage: StorageConfig{
			Dir:           getEnv("BLOB_DIR", "blobs"),
			PublicBaseURL: getEnv("BLOB_PUBLIC_URL", "http://localhost:8080/blobs"),
		},
	}, nil
}

// getEnv retrieves an environment variable with a default fallback.
func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

// getEnvInt retrieves an environment variable as an integer with a default fallback.
func getEnvInt(key string, defaultVal int) (int, error) {
	if value, exists := os.LookupEnv(key); exists {
		intVal, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("invalid integer for %s: %w", key, err)
		}
		return intVal, nil
	}
	return defaultVal, nil
}

// String returns a string representation of the config with secrets masked.
func (c *Config) String() string {
	return fmt.Sprintf("Config{Server: %s, DB: %s, Redis: %s, Kafka: %v, Auth: *** (masked) ***}",
		c.Server.Address, c.Database.Path, c.Redis.URL, c.Kafka.Brokers)
}
