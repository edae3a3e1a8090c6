package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/gophmail/internal/flagx"
	"github.com/dmitrijs2005/gophmail/internal/timex"
)

// JsonConfig is the on-disk shape of the optional JSON configuration file.
// Interval fields use timex.Duration so both "15m" and integer nanoseconds
// are accepted. Absent or empty fields leave the current value untouched.
type JsonConfig struct {
	HTTPAddr        string         `json:"http_addr"`
	GRPCAddr        string         `json:"grpc_addr"`
	MetricsAddr     string         `json:"metrics_addr"`
	StorageBackend  string         `json:"storage_backend"`
	DatabaseDSN     string         `json:"database_dsn"`
	SQLitePath      string         `json:"sqlite_path"`
	JWTSecret       string         `json:"jwt_secret"`
	AccessTokenTTL  timex.Duration `json:"access_token_ttl"`
	RefreshTokenTTL timex.Duration `json:"refresh_token_ttl"`
	RedisURL        string         `json:"redis_url"`
	UserCacheTTL    timex.Duration `json:"user_cache_ttl"`
	S3AccessKey     string         `json:"s3_access_key"`
	S3SecretKey     string         `json:"s3_secret_key"`
	S3Bucket        string         `json:"s3_bucket"`
	S3Region        string         `json:"s3_region"`
	S3BaseEndpoint  string         `json:"s3_base_endpoint"`
	LogFormat       string         `json:"log_format"`
	LogLevel        string         `json:"log_level"`
}

// parseJson loads the file named by -c/-config in args, if any, and overlays
// its non-empty values onto config. A missing or malformed file panics.
func parseJson(config *Config, args []string) {
	jsonConfigFile := flagx.ConfigPath(args)

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	overlay(&config.HTTPAddr, c.HTTPAddr)
	overlay(&config.GRPCAddr, c.GRPCAddr)
	overlay(&config.MetricsAddr, c.MetricsAddr)
	overlay(&config.StorageBackend, c.StorageBackend)
	overlay(&config.DatabaseDSN, c.DatabaseDSN)
	overlay(&config.SQLitePath, c.SQLitePath)
	overlay(&config.JWTSecret, c.JWTSecret)
	overlay(&config.AccessTokenTTL, c.AccessTokenTTL.Duration)
	overlay(&config.RefreshTokenTTL, c.RefreshTokenTTL.Duration)
	overlay(&config.RedisURL, c.RedisURL)
	overlay(&config.UserCacheTTL, c.UserCacheTTL.Duration)
	overlay(&config.S3AccessKey, c.S3AccessKey)
	overlay(&config.S3SecretKey, c.S3SecretKey)
	overlay(&config.S3Bucket, c.S3Bucket)
	overlay(&config.S3Region, c.S3Region)
	overlay(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	overlay(&config.LogFormat, c.LogFormat)
	overlay(&config.LogLevel, c.LogLevel)
}

func overlay[T comparable](dst *T, v T) {
	var zero T
	if v != zero {
		*dst = v
	}
}
