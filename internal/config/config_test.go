package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSV(t *testing.T) {
	assert.Nil(t, CSV(""))
	assert.Equal(t, []string{"a:9092", "b:9092"}, CSV(" a:9092 , ,b:9092"))
}

func TestEnvHelpers_Defaults(t *testing.T) {
	t.Setenv("SWEET_INT", "oops")
	t.Setenv("SWEET_BOOL", "true")
	t.Setenv("SWEET_DUR", "90s")

	assert.Equal(t, 7, EnvIntDefault("SWEET_INT", 7))
	assert.True(t, EnvBoolDefault("SWEET_BOOL", false))
	assert.Equal(t, 90*time.Second, EnvDurationDefault("SWEET_DUR", time.Minute))
	assert.Equal(t, "fallback", EnvDefault("SWEET_MISSING", "fallback"))
}

func TestLoad_ReadsEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/sweets")
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("RATE_LIMIT_PER_WINDOW", "0")

	cfg := Load()

	assert.Equal(t, ":9090", cfg.Addr())
	assert.Equal(t, "/api", cfg.APIPrefix)
	assert.Equal(t, 7*24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 0, cfg.RateLimitPerWindow)
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	base := Config{
		DatabaseURL: "postgres://localhost/sweets",
		JWTSecret:   []byte("0123456789abcdef0123456789abcdef"),
		JWTTTL:      time.Hour,
		APIPrefix:   "/api",
	}
	require.NoError(t, base.Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{name: "no database", mutate: func(c *Config) { c.DatabaseURL = "" }},
		{name: "no secret", mutate: func(c *Config) { c.JWTSecret = nil }},
		{name: "short secret", mutate: func(c *Config) { c.JWTSecret = []byte("short") }},
		{name: "zero ttl", mutate: func(c *Config) { c.JWTTTL = 0 }},
		{name: "bad prefix", mutate: func(c *Config) { c.APIPrefix = "api" }},
		{name: "zero rate window", mutate: func(c *Config) { c.RateLimitPerWindow = 100; c.RateLimitWindow = 0 }},
		{name: "negative rate window", mutate: func(c *Config) { c.RateLimitPerWindow = 100; c.RateLimitWindow = -time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	disabled := base
	disabled.RateLimitPerWindow = 0
	disabled.RateLimitWindow = 0
	assert.NoError(t, disabled.Validate())
}
