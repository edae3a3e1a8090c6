package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func Test_parseEnv(t *testing.T) {
	t.Run("overlays set variables", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "s3cr3t")
		t.Setenv("ACCESS_TOKEN_TTL", "2h")
		t.Setenv("USER_CACHE_TTL", "4s")
		t.Setenv("REDIS_URL", "redis://localhost:6379/0")
		t.Setenv("LOG_FORMAT", "text")

		cfg := &Config{}
		cfg.LoadDefaults()
		parseEnv(cfg)

		assert.Equal(t, "s3cr3t", cfg.JWTSecret)
		assert.Equal(t, 2*time.Hour, cfg.AccessTokenTTL)
		assert.Equal(t, 4*time.Second, cfg.UserCacheTTL)
		assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
		assert.Equal(t, "text", cfg.LogFormat)
		assert.Equal(t, 720*time.Hour, cfg.RefreshTokenTTL)
	})

	t.Run("off disables listeners", func(t *testing.T) {
		t.Setenv("GRPC_ADDR", "off")
		t.Setenv("METRICS_ADDR", "off")

		cfg := &Config{}
		cfg.LoadDefaults()
		parseEnv(cfg)

		assert.Empty(t, cfg.GRPCAddr)
		assert.Empty(t, cfg.MetricsAddr)
	})

	t.Run("bad duration panics", func(t *testing.T) {
		t.Setenv("REFRESH_TOKEN_TTL", "a while")

		cfg := &Config{}
		assert.Panics(t, func() { parseEnv(cfg) })
	})
}
