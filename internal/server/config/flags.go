package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/gophmail/internal/flagx"
)

// parseFlags populates Config fields from command-line flags in args.
//
// Supported flags:
//
//	-a string        HTTP bind address (e.g. ":8080")
//	-grpc string     gRPC bind address, empty disables
//	-metrics string  metrics bind address, empty disables
//	-storage string  storage backend: postgres | sqlite
//	-d string        PostgreSQL DSN
//	-sqlite string   SQLite database file
//	-s string        JWT HMAC secret
//	-t duration      access token lifetime (e.g. "24h")
//	-r duration      refresh token lifetime
//	-redis string    Redis URL for the user state cache
//	-cache-ttl dur   user state cache TTL, 0 disables
//	-u string        S3 access key
//	-p string        S3 secret key
//	-b string        S3 bucket
//	-g string        S3 region
//	-e string        S3 base endpoint
//	-log-format      json | text
//	-log-level       debug | info | warn | error
//
// Only the flags above are picked out of args with flagx.FilterArgs, so the
// JSON config flag and cobra's own arguments do not collide with them.
func parseFlags(config *Config, args []string) {
	fs := flag.NewFlagSet("gophmail", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "HTTP address and port to run server")
	fs.StringVar(&config.GRPCAddr, "grpc", config.GRPCAddr, "gRPC address, empty disables")
	fs.StringVar(&config.MetricsAddr, "metrics", config.MetricsAddr, "metrics address, empty disables")
	fs.StringVar(&config.StorageBackend, "storage", config.StorageBackend, "storage backend (postgres|sqlite)")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SQLitePath, "sqlite", config.SQLitePath, "sqlite database file")
	fs.StringVar(&config.JWTSecret, "s", config.JWTSecret, "JWT secret key")
	fs.DurationVar(&config.AccessTokenTTL, "t", config.AccessTokenTTL, "access token lifetime")
	fs.DurationVar(&config.RefreshTokenTTL, "r", config.RefreshTokenTTL, "refresh token lifetime")
	fs.StringVar(&config.RedisURL, "redis", config.RedisURL, "redis URL for the user cache")
	fs.DurationVar(&config.UserCacheTTL, "cache-ttl", config.UserCacheTTL, "user cache TTL")
	fs.StringVar(&config.S3AccessKey, "u", config.S3AccessKey, "S3 access key")
	fs.StringVar(&config.S3SecretKey, "p", config.S3SecretKey, "S3 secret key")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.LogFormat, "log-format", config.LogFormat, "log format (json|text)")
	fs.StringVar(&config.LogLevel, "log-level", config.LogLevel, "log level")

	var allowed []string
	fs.VisitAll(func(f *flag.Flag) {
		allowed = append(allowed, "-"+f.Name, "--"+f.Name)
	})

	if err := fs.Parse(flagx.FilterArgs(args, allowed)); err != nil {
		panic(err)
	}
}
