// Package server wires configuration, storage, token handling and the
// account services into the HTTP, gRPC and metrics listeners and runs them
// until the context is cancelled.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/dmitrijs2005/gophmail/internal/logging"
	"github.com/dmitrijs2005/gophmail/internal/metrics"
	"github.com/dmitrijs2005/gophmail/internal/server/auth"
	"github.com/dmitrijs2005/gophmail/internal/server/config"
	"github.com/dmitrijs2005/gophmail/internal/server/httpapi"
	"github.com/dmitrijs2005/gophmail/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophmail/internal/server/services"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	gs "github.com/dmitrijs2005/gophmail/internal/server/grpc"
)

const metricsShutdownTimeout = 5 * time.Second

type App struct {
	config      *config.Config
	logger      logging.Logger
	store       repomanager.RepositoryManager
	redis       *redis.Client
	verifier    *auth.Verifier
	userService *services.UserService
	attachments *services.AttachmentService
}

// NewLogger builds the process logger from the log settings in c.
func NewLogger(c *config.Config) (logging.Logger, error) {
	l, err := logging.New(os.Stdout, c.LogFormat, c.LogLevel)
	if err != nil {
		return nil, err
	}
	return l.With("app", "gophmail"), nil
}

// OpenStore connects to the configured Credential Store backend.
func OpenStore(ctx context.Context, c *config.Config) (repomanager.RepositoryManager, error) {
	switch c.StorageBackend {
	case config.BackendPostgres:
		db, err := repomanager.OpenPostgres(ctx, c.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		return repomanager.NewPostgresRepositoryManager(db), nil
	case config.BackendSQLite:
		db, err := repomanager.OpenSQLite(ctx, c.SQLitePath)
		if err != nil {
			return nil, err
		}
		return repomanager.NewSQLiteRepositoryManager(db), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", c.StorageBackend)
	}
}

// openUserCache connects to Redis when the user state cache is enabled.
// It returns a nil client otherwise.
func openUserCache(ctx context.Context, c *config.Config) (*redis.Client, error) {
	if !c.UserCacheEnabled() {
		return nil, nil
	}
	return auth.OpenRedis(ctx, c.RedisURL)
}

// NewApp validates c and builds every dependency of the serve command.
// Migrations are applied before the app is returned.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	tokens, err := auth.NewTokenManager([]byte(c.JWTSecret), c.AccessTokenTTL)
	if err != nil {
		return nil, err
	}

	store, err := OpenStore(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	app := &App{config: c, logger: logger, store: store}

	if err := store.RunMigrations(ctx); err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("migrations failed: %w", err)
	}

	app.redis, err = openUserCache(ctx, c)
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	app.userService = services.NewUserService(store, tokens, c.RefreshTokenTTL, logger.With("module", "user_service"))

	lookup := auth.InstrumentedLookup(store.Users())
	if app.redis != nil {
		cache := auth.NewCachedUserLookup(lookup, app.redis, c.UserCacheTTL, logger.With("module", "user_cache"))
		app.userService.SetCacheInvalidator(cache)
		lookup = cache
		logger.Info(ctx, "user state cache enabled", "ttl", c.UserCacheTTL.String())
	}
	app.verifier = auth.NewVerifier(tokens, lookup)

	presigner, err := services.NewS3Presigner(ctx, c)
	if err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("s3 init error: %w", err)
	}
	app.attachments = services.NewAttachmentService(presigner, c.S3Bucket)

	return app, nil
}

// NewOperatorService returns a UserService for the operator CLI. It needs
// no signing secret; user changes still invalidate the cache when one is
// configured. The returned closer releases the store and Redis.
func NewOperatorService(ctx context.Context, c *config.Config, logger logging.Logger) (*services.UserService, func() error, error) {
	store, err := OpenStore(ctx, c)
	if err != nil {
		return nil, nil, fmt.Errorf("db init error: %w", err)
	}

	svc := services.NewUserService(store, nil, c.RefreshTokenTTL, logger)

	client, err := openUserCache(ctx, c)
	if err != nil {
		logger.Warn(ctx, "user cache unavailable; cached entries expire on their own", "error", err)
	}
	if client != nil {
		svc.SetCacheInvalidator(auth.NewCachedUserLookup(store.Users(), client, c.UserCacheTTL, logger))
	}

	closer := func() error {
		var errs []error
		if client != nil {
			errs = append(errs, client.Close())
		}
		errs = append(errs, store.Close())
		return errors.Join(errs...)
	}
	return svc, closer, nil
}

// Run serves until ctx is cancelled or a listener fails, then stops the
// others and releases resources.
func (app *App) Run(ctx context.Context) error {
	defer func() {
		if err := app.Close(); err != nil {
			app.logger.Error(ctx, "failed to release resources", "error", err.Error())
		}
	}()

	app.logger.Info(ctx, "Starting app...", "storage", app.config.StorageBackend)

	g, ctx := errgroup.WithContext(ctx)

	httpServer := httpapi.NewServer(app.config.HTTPAddr, app.logger, httpapi.Deps{
		Verifier:    app.verifier,
		Accounts:    app.userService,
		Attachments: app.attachments,
		Health:      app.store.Ping,
	})
	g.Go(func() error { return httpServer.Run(ctx) })

	if app.config.GRPCAddr != "" {
		grpcServer := gs.NewGRPCServer(app.config.GRPCAddr, app.logger, app.verifier, gs.DefaultMethodRoles)
		g.Go(func() error { return grpcServer.Run(ctx) })
	}

	if metrics.Enabled(app.config.MetricsAddr) {
		g.Go(func() error { return app.runMetrics(ctx) })
	}

	return g.Wait()
}

func (app *App) runMetrics(ctx context.Context) error {
	srv := metrics.NewServer(app.config.MetricsAddr)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	app.logger.Info(ctx, "Starting metrics server", "address", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close releases the store and the Redis client.
func (app *App) Close() error {
	var errs []error
	if app.redis != nil {
		errs = append(errs, app.redis.Close())
		app.redis = nil
	}
	if app.store != nil {
		errs = append(errs, app.store.Close())
		app.store = nil
	}
	return errors.Join(errs...)
}
