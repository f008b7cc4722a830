package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// devSigningKey is only accepted outside production.
const devSigningKey = "dev-secret-key-change-in-production"

// Server captures HTTP server level configuration.
type Server struct {
	Addr               string
	MetricsAddr        string
	Environment        string
	JWTSigningKey      string
	JWTIssuer          string
	JWTAudience        string
	CORSAllowedOrigins []string
	ShutdownTimeout    time.Duration
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string
	Format string // json or text
}

// DatabaseConfig enables the postgres stores. An empty URL keeps everything in memory.
type DatabaseConfig struct {
	URL             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// RedisConfig enables the policy cache. An empty URL disables it.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CacheTTL     time.Duration
}

// KafkaConfig enables the ledger stream. No brokers means records are not
// streamed. With a database records go through the outbox relay; without one
// they are published directly after each append.
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	Partitions   int32
	PollInterval time.Duration
	BatchSize    int
}

// RateLimitConfig bounds requests per caller. With Redis configured the
// budget is shared across instances.
type RateLimitConfig struct {
	Disabled bool
	Writes   int
	Reads    int
	Window   time.Duration
}

// Config is everything cmd/server needs.
type Config struct {
	Server    Server
	Log       LogConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	RateLimit RateLimitConfig
}

func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// Load reads an optional .env file and then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds the config from environment variables so main stays lean.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Server: Server{
			Addr:               getEnv("MANDATE_ADDR", ":8080"),
			MetricsAddr:        getEnv("METRICS_ADDR", ""),
			Environment:        getEnv("ENVIRONMENT", "development"),
			JWTSigningKey:      getEnv("JWT_SIGNING_KEY", devSigningKey),
			JWTIssuer:          getEnv("JWT_ISSUER", "mandate"),
			JWTAudience:        getEnv("JWT_AUDIENCE", "mandate-api"),
			CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", nil),
			ShutdownTimeout:    getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        int32(getEnvAsInt("DB_MAX_CONNS", 10)),
			MinConns:        int32(getEnvAsInt("DB_MIN_CONNS", 1)),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL:          getEnv("REDIS_URL", ""),
			PoolSize:     getEnvAsInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvAsInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getEnvAsDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getEnvAsDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getEnvAsDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
			CacheTTL:     getEnvAsDuration("POLICY_CACHE_TTL", 10*time.Minute),
		},
		Kafka: KafkaConfig{
			Brokers:      getEnvAsList("KAFKA_BROKERS", nil),
			Topic:        getEnv("LEDGER_TOPIC", "mandate.ledger"),
			Partitions:   int32(getEnvAsInt("LEDGER_TOPIC_PARTITIONS", 3)),
			PollInterval: getEnvAsDuration("OUTBOX_POLL_INTERVAL", time.Second),
			BatchSize:    getEnvAsInt("OUTBOX_BATCH_SIZE", 100),
		},
		RateLimit: RateLimitConfig{
			Disabled: getEnvAsBool("RATE_LIMIT_DISABLED", false),
			Writes:   getEnvAsInt("RATE_LIMIT_WRITES", 60),
			Reads:    getEnvAsInt("RATE_LIMIT_READS", 600),
			Window:   getEnvAsDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate rejects settings that would start a broken or unsafe server.
func (c *Config) Validate() error {
	if c.IsProduction() && c.Server.JWTSigningKey == devSigningKey {
		return fmt.Errorf("JWT_SIGNING_KEY must be set in production")
	}
	if len(c.Server.JWTSigningKey) < 16 {
		return fmt.Errorf("JWT_SIGNING_KEY must be at least 16 bytes")
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.Log.Format)
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("DB_MAX_CONNS must be positive")
	}
	if c.Kafka.BatchSize < 1 {
		return fmt.Errorf("OUTBOX_BATCH_SIZE must be positive")
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Partitions < 1 {
		return fmt.Errorf("LEDGER_TOPIC_PARTITIONS must be positive")
	}
	if !c.RateLimit.Disabled {
		if c.RateLimit.Writes < 1 || c.RateLimit.Reads < 1 {
			return fmt.Errorf("RATE_LIMIT_WRITES and RATE_LIMIT_READS must be positive")
		}
		if c.RateLimit.Window < time.Second {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be at least 1s")
		}
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if v, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return v
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if b, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return b
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return d
	}
	return fallback
}

func getEnvAsList(key string, fallback []string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
