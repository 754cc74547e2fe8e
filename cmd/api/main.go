package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"arborlead_backend/internal/accounting"
	"arborlead_backend/internal/analytics"
	"arborlead_backend/internal/auth"
	"arborlead_backend/internal/customerportal"
	"arborlead_backend/internal/events"
	apphttp "arborlead_backend/internal/http"
	"arborlead_backend/internal/http/router"
	"arborlead_backend/internal/leads"
	"arborlead_backend/internal/notification"
	"arborlead_backend/internal/partners"
	"arborlead_backend/internal/quotes"
	"arborlead_backend/internal/storage"
	"arborlead_backend/platform/config"
	"arborlead_backend/platform/db"
	"arborlead_backend/platform/logger"
	"arborlead_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	// Shared validator instance for dependency injection
	val := validator.New()

	// Object store for lead photo attachments (MinIO); optional
	var objectStore storage.ObjectStore
	if cfg.IsMinIOEnabled() {
		minioSvc, err := storage.NewMinIOService(cfg)
		if err != nil {
			log.Error("failed to initialize storage service", "error", err)
			panic("failed to initialize storage service: " + err.Error())
		}
		bucket := cfg.GetMinioBucketLeadAttachments()
		if err := withRetry(ctx, log, "ensure attachments bucket", 5, 2*time.Second, func() error {
			return minioSvc.EnsureBucketExists(ctx, bucket)
		}); err != nil {
			log.Error("failed to ensure storage bucket exists", "error", err, "bucket", bucket)
			panic("failed to ensure storage bucket exists: " + err.Error())
		}
		objectStore = minioSvc
		log.Info("storage service initialized", "attachmentsBucket", bucket)
	} else {
		log.Warn("MINIO_ENDPOINT not configured; attachment uploads disabled")
	}

	// Redis cache for the KPI summary; optional
	var kpiCache *redis.Client
	if cfg.GetRedisURL() != "" {
		opt, err := redis.ParseURL(cfg.GetRedisURL())
		if err != nil {
			log.Error("failed to parse redis url", "error", err)
			panic("failed to parse redis url: " + err.Error())
		}
		kpiCache = redis.NewClient(opt)
		defer kpiCache.Close()
	} else {
		log.Warn("REDIS_URL not configured; KPI summaries computed per request")
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	partnersModule := partners.NewModule(pool, eventBus, log)
	portalModule := customerportal.NewModule(pool, cfg, log)

	leadsModule := leads.NewModule(pool, eventBus, partnersModule.Service(), partnersModule.Service(), objectStore, val, cfg, log)
	quotesModule := quotes.NewModule(pool, eventBus, portalModule.Tokens(), val, cfg, log)

	// Completes the portal wiring (breaks the token/quote dependency cycle)
	portalModule.SetQuoteService(quotesModule.Service(), val)

	authModule := auth.NewModule(pool, val, cfg, log)
	analyticsModule := analytics.NewModule(pool, eventBus, kpiCache, cfg, log)

	accountingModule, err := accounting.NewModule(pool, eventBus, cfg, log)
	if err != nil {
		log.Error("failed to initialize accounting module", "error", err)
		panic("failed to initialize accounting module: " + err.Error())
	}

	notificationModule := notification.NewModule(pool, eventBus, partnersModule.Service(), cfg, log)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			authModule,
			leadsModule,
			quotesModule,
			portalModule,
			partnersModule,
			analyticsModule,
			accountingModule,
			notificationModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
