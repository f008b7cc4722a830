package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{"MANDATE_ADDR", "DATABASE_URL", "REDIS_URL", "KAFKA_BROKERS", "ENVIRONMENT", "JWT_SIGNING_KEY", "LOG_FORMAT", "RATE_LIMIT_DISABLED", "RATE_LIMIT_WRITES"} {
		t.Setenv(k, "")
	}

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Empty(t, cfg.Database.URL)
	assert.Equal(t, "mandate.ledger", cfg.Kafka.Topic)
	assert.Equal(t, 10*time.Minute, cfg.Redis.CacheTTL)
	assert.False(t, cfg.RateLimit.Disabled)
	assert.Equal(t, 60, cfg.RateLimit.Writes)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.False(t, cfg.IsProduction())
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("MANDATE_ADDR", ":9999")
	t.Setenv("DATABASE_URL", "postgres://localhost/mandate")
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092,")
	t.Setenv("OUTBOX_POLL_INTERVAL", "250ms")
	t.Setenv("DB_MAX_CONNS", "25")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 250*time.Millisecond, cfg.Kafka.PollInterval)
	assert.Equal(t, int32(25), cfg.Database.MaxConns)
	assert.Equal(t, []string{"https://app.example"}, cfg.Server.CORSAllowedOrigins)
}

func TestFromEnv_InvalidDurationFallsBack(t *testing.T) {
	t.Setenv("OUTBOX_POLL_INTERVAL", "soon")
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, time.Second, cfg.Kafka.PollInterval)
}

func TestValidate(t *testing.T) {
	t.Run("production requires a real signing key", func(t *testing.T) {
		t.Setenv("ENVIRONMENT", "production")
		t.Setenv("JWT_SIGNING_KEY", "")
		_, err := FromEnv()
		require.Error(t, err)
	})

	t.Run("kafka with no partitions", func(t *testing.T) {
		t.Setenv("KAFKA_BROKERS", "localhost:9092")
		t.Setenv("LEDGER_TOPIC_PARTITIONS", "0")
		_, err := FromEnv()
		require.ErrorContains(t, err, "LEDGER_TOPIC_PARTITIONS")
	})

	t.Run("rate limits must be positive", func(t *testing.T) {
		t.Setenv("RATE_LIMIT_WRITES", "0")
		_, err := FromEnv()
		require.ErrorContains(t, err, "RATE_LIMIT_WRITES")
	})

	t.Run("disabled rate limiting skips its checks", func(t *testing.T) {
		t.Setenv("RATE_LIMIT_DISABLED", "true")
		t.Setenv("RATE_LIMIT_WRITES", "0")
		cfg, err := FromEnv()
		require.NoError(t, err)
		assert.True(t, cfg.RateLimit.Disabled)
	})

	t.Run("bad log format", func(t *testing.T) {
		t.Setenv("LOG_FORMAT", "xml")
		_, err := FromEnv()
		require.Error(t, err)
	})
}
