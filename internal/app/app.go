package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/httplog/v2"
	"github.com/vadimbarashkov/shortlink/internal/adapter/repository/memory"
	"github.com/vadimbarashkov/shortlink/internal/config"
	"github.com/vadimbarashkov/shortlink/internal/entity"
	"github.com/vadimbarashkov/shortlink/internal/shortcode"
	"github.com/vadimbarashkov/shortlink/internal/usecase"
	"github.com/vadimbarashkov/shortlink/pkg/middleware/ratelimit"
	"golang.org/x/sync/errgroup"

	delivery "github.com/vadimbarashkov/shortlink/internal/adapter/delivery/http"
	pgrepo "github.com/vadimbarashkov/shortlink/internal/adapter/repository/postgres"
	redisrepo "github.com/vadimbarashkov/shortlink/internal/adapter/repository/redis"
	sqliterepo "github.com/vadimbarashkov/shortlink/internal/adapter/repository/sqlite"
	pgpkg "github.com/vadimbarashkov/shortlink/pkg/postgres"
	redispkg "github.com/vadimbarashkov/shortlink/pkg/redis"
	sqlitepkg "github.com/vadimbarashkov/shortlink/pkg/sqlite"
)

const shutdownTimeout = 10 * time.Second

type urlRepository interface {
	FindByOriginalURL(ctx context.Context, originalURL string) (*entity.ShortLink, error)
	FindByShortCode(ctx context.Context, shortCode string) (*entity.ShortLink, error)
	ExistsByShortCode(ctx context.Context, shortCode string) (bool, error)
	Insert(ctx context.Context, shortCode, originalURL string) (*entity.ShortLink, error)
	IncrementHitCount(ctx context.Context, shortCode string) (*entity.ShortLink, error)
	Delete(ctx context.Context, shortCode string) error
	ListByHitCountDesc(ctx context.Context) ([]*entity.ShortLink, error)
}

// NewLogger builds the service logger writing to w: JSON in prod, concise
// text elsewhere.
func NewLogger(cfg *config.Config, w io.Writer) *httplog.Logger {
	level := slog.LevelInfo
	if cfg.Env == config.EnvDev {
		level = slog.LevelDebug
	}

	return httplog.NewLogger("shortlink", httplog.Options{
		JSON:            cfg.Env == config.EnvProd,
		Concise:         cfg.Env != config.EnvProd,
		LogLevel:        level,
		RequestHeaders:  cfg.Env != config.EnvProd,
		TimeFieldFormat: time.RFC3339,
		Writer:          w,
		Tags: map[string]string{
			"env":     cfg.Env,
			"storage": cfg.Storage,
		},
	})
}

// openRepository connects the configured store. The returned close function
// releases its connections.
func openRepository(ctx context.Context, cfg *config.Config) (urlRepository, func() error, error) {
	const op = "app.openRepository"

	switch cfg.Storage {
	case config.StorageMemory:
		return memory.NewURLRepository(), func() error { return nil }, nil

	case config.StoragePostgres:
		db, err := pgpkg.New(
			ctx,
			cfg.Postgres.DSN(),
			pgpkg.WithConnMaxIdleTime(cfg.Postgres.ConnMaxIdleTime),
			pgpkg.WithConnMaxLifetime(cfg.Postgres.ConnMaxLifetime),
			pgpkg.WithMaxIdleConns(cfg.Postgres.MaxIdleConns),
			pgpkg.WithMaxOpenConns(cfg.Postgres.MaxOpenConns),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: failed to connect to postgres: %w", op, err)
		}
		return pgrepo.NewURLRepository(db), db.Close, nil

	case config.StorageSQLite:
		db, err := sqlitepkg.New(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: failed to open sqlite: %w", op, err)
		}
		return sqliterepo.NewURLRepository(db), func() error { return sqlitepkg.Close(db) }, nil

	case config.StorageRedis:
		client, err := redispkg.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: failed to connect to redis: %w", op, err)
		}
		return redisrepo.NewURLRepository(client, redisrepo.WithKeyPrefix(cfg.Redis.KeyPrefix)), client.Close, nil
	}

	return nil, nil, fmt.Errorf("%s: unsupported storage %q", op, cfg.Storage)
}

// Migrate brings the schema of the configured store up to date. Memory and
// Redis stores need no schema.
func Migrate(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	const op = "app.Migrate"

	switch cfg.Storage {
	case config.StoragePostgres:
		version, err := pgpkg.RunMigrations(cfg.Postgres.MigrationsPath, cfg.Postgres.DSN())
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		logger.DebugContext(ctx, "postgres schema migrated", slog.Uint64("version", uint64(version)))

	case config.StorageSQLite:
		db, err := sqlitepkg.New(ctx, cfg.SQLite.Path)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		defer sqlitepkg.Close(db)

		if err := sqliterepo.NewURLRepository(db).Migrate(ctx); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	return nil
}

// NewUseCase wires the engine to the configured store. Callers must invoke
// the returned close function when done.
func NewUseCase(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*usecase.URLUseCase, func() error, error) {
	const op = "app.NewUseCase"

	repo, closeRepo, err := openRepository(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	uc := usecase.New(
		repo,
		shortcode.New(shortcode.WithLength(cfg.ShortCode.Length)),
		usecase.WithMaxRetries(cfg.ShortCode.MaxRetries),
		usecase.WithLogger(logger),
	)

	return uc, closeRepo, nil
}

// Run migrates the store and serves the HTTP API until ctx is done.
func Run(ctx context.Context, cfg *config.Config, logger *httplog.Logger) error {
	const op = "app.Run"

	if err := Migrate(ctx, cfg, logger.Logger); err != nil {
		return fmt.Errorf("%s: failed to migrate storage: %w", op, err)
	}

	uc, closeRepo, err := NewUseCase(ctx, cfg, logger.Logger)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer closeRepo()

	routerOpts := []delivery.RouterOption{
		delivery.WithBaseURL(cfg.HTTPServer.BaseURL),
	}
	if cfg.RateLimit.Enabled() {
		limiter := ratelimit.New(ctx, cfg.RateLimit.RPS, cfg.RateLimit.Burst)
		routerOpts = append(routerOpts, delivery.WithRateLimiter(limiter.Handler))
	}

	server := &http.Server{
		Addr:           cfg.HTTPServer.Addr(),
		Handler:        delivery.NewRouter(logger, uc, routerOpts...),
		ReadTimeout:    cfg.HTTPServer.ReadTimeout,
		WriteTimeout:   cfg.HTTPServer.WriteTimeout,
		IdleTimeout:    cfg.HTTPServer.IdleTimeout,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server",
			slog.String("addr", server.Addr),
			slog.String("storage", cfg.Storage))

		var err error

		switch cfg.Env {
		case config.EnvProd:
			err = server.ListenAndServeTLS(cfg.HTTPServer.CertFile, cfg.HTTPServer.KeyFile)
		default:
			err = server.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s: server error occurred: %w", op, err)
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		logger.Info("shutting down http server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("%s: failed to shutdown server: %w", op, err)
		}

		return nil
	})

	return g.Wait()
}
