// Command server runs the zync HTTP API.
//
//	@title			Zync API
//	@version		1.0
//	@description	Ephemeral notes, links, code snippets and file references with access keys, expiry and replies.
//	@license.name	MIT
//	@BasePath		/api
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/zync-backend/internal/config"
	httpapi "github.com/tbourn/zync-backend/internal/http"
	"github.com/tbourn/zync-backend/internal/observability"
	"github.com/tbourn/zync-backend/internal/ratelimit"
	"github.com/tbourn/zync-backend/internal/repo"
	"github.com/tbourn/zync-backend/internal/repo/boltstore"
	"github.com/tbourn/zync-backend/internal/services"
	"github.com/tbourn/zync-backend/internal/sysutil"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

const shutdownTimeout = 15 * time.Second

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	logger := sysutil.NewLogger(os.Stdout, cfg.LogPretty, cfg.OTEL.ServiceName)
	log.Logger = logger
	zerolog.DefaultContextLogger = &logger

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server exited")
	}
}

func run(cfg config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gin.SetMode(cfg.GinMode)

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		return fmt.Errorf("setup otel: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			logger.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	store, closeStore, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := closeStore.Close(); err != nil {
			logger.Warn().Err(err).Msg("store close")
		}
	}()

	counter, closeCounter, err := newCounter(ctx, cfg)
	if err != nil {
		return fmt.Errorf("rate limit counter: %w", err)
	}
	defer func() { _ = closeCounter.Close() }()

	svc := services.NewDropService(store)
	svc.DefaultTTL = cfg.Drops.DefaultTTL
	svc.MaxTTL = cfg.Drops.MaxTTL
	svc.IDLength = cfg.Drops.IDLength
	svc.KeyLength = cfg.Drops.KeyLength

	if cfg.Reaper.Enabled {
		reaper, err := services.NewReaper(store, cfg.Reaper.Cron, logger.With().Str("component", "reaper").Logger())
		if err != nil {
			return fmt.Errorf("reaper: %w", err)
		}
		go reaper.Start(ctx)
	}

	r := gin.New()
	if err := httpapi.RegisterRoutes(r, svc, counter, cfg); err != nil {
		return fmt.Errorf("register routes: %w", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", srv.Addr).
			Str("store", cfg.Store.Driver).
			Str("rate_limit_backend", cfg.RateLimit.Backend).
			Str("version", version).
			Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(sctx)
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// openStore opens the configured drop store. The returned closer releases
// its file handles.
func openStore(cfg config.Config) (services.DropStore, io.Closer, error) {
	switch cfg.Store.Driver {
	case config.StoreBolt:
		s, err := boltstore.Open(cfg.Store.BoltPath)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil

	case config.StoreSQLite:
		db, err := repo.OpenSQLite(cfg.Store.DBPath)
		if err != nil {
			return nil, nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, err
		}
		if err := repo.AutoMigrate(db); err != nil {
			_ = sqlDB.Close()
			return nil, nil, err
		}
		if cfg.OTEL.Enabled {
			if err := repo.EnableTracing(db); err != nil {
				_ = sqlDB.Close()
				return nil, nil, err
			}
		}
		return repo.NewSQLStore(db), sqlDB, nil
	}
	return nil, nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
}

// newCounter builds the rate-limit counter and starts any background
// maintenance it needs. Background work stops when ctx is done.
func newCounter(ctx context.Context, cfg config.Config) (ratelimit.Counter, io.Closer, error) {
	switch cfg.RateLimit.Backend {
	case config.RateBackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rdb.Ping(pctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("ping redis %s: %w", cfg.Redis.Addr, err)
		}
		c := ratelimit.NewRedisCounter(rdb, cfg.RateLimit.Window, cfg.RateLimit.Max,
			ratelimit.WithPrefix(cfg.Redis.Prefix))
		return c, rdb, nil

	case config.RateBackendMemory:
		c := ratelimit.NewMemoryCounter(cfg.RateLimit.Window, cfg.RateLimit.Max,
			ratelimit.WithCleanupEvery(cfg.RateLimit.Cleanup))
		c.StartJanitor(ctx)
		return c, closerFunc(func() error { return nil }), nil
	}
	return nil, nil, fmt.Errorf("unsupported rate limit backend %q", cfg.RateLimit.Backend)
}
