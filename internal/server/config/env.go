package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// parseEnv overlays Config with values from the process environment. A .env
// file in the working directory is loaded first when present; variables that
// are already set in the environment win over the file.
func parseEnv(config *Config) {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			panic(err)
		}
	}

	envString(&config.HTTPAddr, "HTTP_ADDR")
	envString(&config.GRPCAddr, "GRPC_ADDR")
	envString(&config.MetricsAddr, "METRICS_ADDR")
	envString(&config.StorageBackend, "STORAGE_BACKEND")
	envString(&config.DatabaseDSN, "DATABASE_DSN")
	envString(&config.SQLitePath, "SQLITE_PATH")
	envString(&config.JWTSecret, "JWT_SECRET")
	envDuration(&config.AccessTokenTTL, "ACCESS_TOKEN_TTL")
	envDuration(&config.RefreshTokenTTL, "REFRESH_TOKEN_TTL")
	envString(&config.RedisURL, "REDIS_URL")
	envDuration(&config.UserCacheTTL, "USER_CACHE_TTL")
	envString(&config.S3AccessKey, "S3_ACCESS_KEY")
	envString(&config.S3SecretKey, "S3_SECRET_KEY")
	envString(&config.S3Bucket, "S3_BUCKET")
	envString(&config.S3Region, "S3_REGION")
	envString(&config.S3BaseEndpoint, "S3_BASE_ENDPOINT")
	envString(&config.LogFormat, "LOG_FORMAT")
	envString(&config.LogLevel, "LOG_LEVEL")

	// "off" lets an operator disable a listener that has a default address.
	if config.GRPCAddr == "off" {
		config.GRPCAddr = ""
	}
	if config.MetricsAddr == "off" {
		config.MetricsAddr = ""
	}
}

func envString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func envDuration(dst *time.Duration, key string) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		panic(fmt.Errorf("%s: %w", key, err))
	}
	*dst = d
}
