// The scheduler binary runs the periodic pipeline maintenance: lead
// expiry sweeps, notification delivery, accounting retries, and the
// daily KPI rollup. It shares the database and event bus wiring with
// the API but exposes no HTTP surface.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"arborlead_backend/internal/accounting"
	"arborlead_backend/internal/analytics"
	"arborlead_backend/internal/email"
	"arborlead_backend/internal/events"
	"arborlead_backend/internal/leads"
	"arborlead_backend/internal/notification"
	"arborlead_backend/internal/partners"
	"arborlead_backend/internal/scheduler"
	"arborlead_backend/platform/config"
	"arborlead_backend/platform/db"
	"arborlead_backend/platform/logger"
	"arborlead_backend/platform/validator"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()

	var kpiCache *redis.Client
	if cfg.GetRedisURL() != "" {
		if opt, err := redis.ParseURL(cfg.GetRedisURL()); err == nil {
			kpiCache = redis.NewClient(opt)
			defer kpiCache.Close()
		}
	}

	// The sweep publishes lead.expired, so the analytics and notification
	// subscribers must be live in this process too.
	partnersModule := partners.NewModule(pool, eventBus, log)
	leadsModule := leads.NewModule(pool, eventBus, partnersModule.Service(), partnersModule.Service(), nil, val, cfg, log)
	analyticsModule := analytics.NewModule(pool, eventBus, kpiCache, cfg, log)
	notificationModule := notification.NewModule(pool, eventBus, partnersModule.Service(), cfg, log)

	accountingModule, err := accounting.NewModule(pool, eventBus, cfg, log)
	if err != nil {
		log.Error("failed to initialize accounting module", "error", err)
		panic("failed to initialize accounting module: " + err.Error())
	}

	var sender email.Sender
	if cfg.GetEmailEnabled() {
		sender = email.NewSMTPSender(cfg)
	} else {
		log.Warn("email disabled; notifications will be marked sent without delivery")
		sender = email.NoopSender{}
	}

	worker, err := scheduler.NewWorker(cfg,
		leadsModule.Service(),
		notificationModule.Service(),
		accountingModule.Service(),
		analyticsModule.Service(),
		sender, log,
	)
	if err != nil {
		log.Error("failed to initialize worker", "error", err)
		panic("failed to initialize worker: " + err.Error())
	}

	periodic, err := scheduler.NewPeriodic(cfg, log)
	if err != nil {
		log.Error("failed to initialize periodic scheduler", "error", err)
		panic("failed to initialize periodic scheduler: " + err.Error())
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		worker.Run(gctx)
		return nil
	})
	g.Go(func() error {
		periodic.Run()
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		periodic.Shutdown()
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("scheduler stopped", "error", err)
	}
	log.Info("scheduler shut down")
}
