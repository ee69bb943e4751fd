// Command filebox runs the multi-tenant file storage service: the HTTP API,
// the background processing workers, and the scheduled maintenance jobs in
// one process.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	goredis "github.com/redis/go-redis/v9"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/filebox/internal/audit"
	"github.com/dmitrymomot/filebox/internal/config"
	"github.com/dmitrymomot/filebox/internal/db/migrations"
	"github.com/dmitrymomot/filebox/internal/gateway"
	"github.com/dmitrymomot/filebox/internal/httpapi"
	"github.com/dmitrymomot/filebox/internal/processing"
	"github.com/dmitrymomot/filebox/internal/registry"
	"github.com/dmitrymomot/filebox/internal/tenant"
	"github.com/dmitrymomot/filebox/pkg/apikey"
	"github.com/dmitrymomot/filebox/pkg/db"
	"github.com/dmitrymomot/filebox/pkg/health"
	"github.com/dmitrymomot/filebox/pkg/job"
	"github.com/dmitrymomot/filebox/pkg/logger"
	"github.com/dmitrymomot/filebox/pkg/redis"
	"github.com/dmitrymomot/filebox/pkg/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("filebox exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log := logger.NewWithSentry(logger.SentryConfig{
		DSN:         cfg.Sentry.DSN,
		Environment: cfg.Sentry.Environment,
	}, httpapi.RequestIDExtractor)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, db.Config{
		ConnectionString: cfg.Database.URL,
		MaxOpenConns:     cfg.Database.MaxOpenConns,
		MinConns:         cfg.Database.MinConns,
	})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	closeDB := db.Shutdown(pool)
	defer closeDB(context.Background())

	if err := db.Migrate(ctx, pool, migrations.FS, cfg.Database.MigrationsTable, log); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	// The queue keeps its own schema, versioned by river itself.
	riverMigrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		return fmt.Errorf("init queue migrator: %w", err)
	}
	if _, err := riverMigrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		return fmt.Errorf("apply queue migrations: %w", err)
	}

	var cache goredis.UniversalClient
	if cfg.Redis.URL != "" {
		cache, err = redis.Open(ctx, cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		closeRedis := redis.Shutdown(cache)
		defer closeRedis(context.Background())
	}

	broker, err := storage.New(cfg.Storage.Broker())
	if err != nil {
		return fmt.Errorf("init storage broker: %w", err)
	}

	auditStore := audit.NewPostgresStore(pool)
	recorder := audit.NewRecorder(auditStore, audit.WithLogger(log))

	keyOpts := []apikey.Option{apikey.WithLogger(log)}
	if cache != nil {
		keyOpts = append(keyOpts, apikey.WithCache(cache, cfg.Redis.CacheTTL.Std()))
	}
	keys := apikey.NewService(apikey.NewPostgresStore(pool), keyOpts...)

	files := registry.NewPostgresStore(pool)
	deps := processing.Deps{Files: files, Broker: broker, Audit: recorder, Logger: log}

	manager, err := job.NewManager(pool,
		job.WithLogger(log),
		job.WithMaxWorkers(cfg.Queue.MaxWorkers),
		job.WithQueue(processing.QueueMedia, cfg.Queue.MediaWorkers),
		job.WithTask(&processing.ValidateTask{Deps: deps}),
		job.WithTask(&processing.ChecksumTask{Deps: deps}),
		job.WithTask(&processing.MetadataTask{Deps: deps}),
		job.WithTask(&processing.ThumbnailTask{Deps: deps}),
		job.WithScheduledTask(&processing.StaleUploadSweep{
			Files:  files,
			TTL:    cfg.Queue.PendingTTL.Std(),
			Logger: log,
		}),
	)
	if err != nil {
		return fmt.Errorf("init job manager: %w", err)
	}

	gw := gateway.NewService(files, broker, manager, recorder,
		gateway.WithUploadPolicy(cfg.Upload),
		gateway.WithAuditStore(auditStore),
		gateway.WithLogger(log),
	)
	tenants := tenant.NewService(tenant.NewPostgresStore(pool), keys, recorder, log)

	checks := health.Checks{
		"database": db.Healthcheck(pool),
		"queue":    job.Healthcheck(manager),
	}
	if cache != nil {
		checks["redis"] = redis.Healthcheck(cache)
	}

	api := httpapi.NewServer(gw, keys, tenants, recorder,
		httpapi.WithHealthChecks(checks),
		httpapi.WithQueueStats(manager.Enqueuer),
		httpapi.WithLogger(log),
	)

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      api.Router(),
		ReadTimeout:  cfg.HTTP.ReadTimeout.Std(),
		WriteTimeout: cfg.HTTP.WriteTimeout.Std(),
	}

	if err := manager.Start(ctx); err != nil {
		return fmt.Errorf("start workers: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.InfoContext(ctx, "listening", slog.String("addr", cfg.HTTP.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout.Std())
		defer cancel()

		var errs []error
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
		if err := manager.Stop(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("worker shutdown: %w", err))
		}
		if err := recorder.Close(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("audit drain: %w", err))
		}
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("filebox stopped")
	return nil
}
