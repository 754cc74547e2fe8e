package scheduler

import (
	"crypto/tls"
	"fmt"
	"log/slog"

	"arborlead_backend/platform/config"
	"arborlead_backend/platform/logger"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// Periodic registers the recurring pipeline tasks with asynq's cron
// scheduler. The worker process picks them up from the shared queue.
type Periodic struct {
	scheduler *asynq.Scheduler
	log       *logger.Logger
}

// NewPeriodic builds the cron registrations.
func NewPeriodic(cfg config.SchedulerConfig, log *logger.Logger) (*Periodic, error) {
	opt, err := redisClientOpt(cfg)
	if err != nil {
		return nil, err
	}

	queue := queueName(cfg)
	scheduler := asynq.NewScheduler(opt, nil)

	entries := []struct {
		spec string
		name string
	}{
		{leadExpirySweepSpec, TaskLeadExpirySweep},
		{notificationDrainSpec, TaskNotificationDrain},
		{accountingRetrySpec, TaskAccountingRetry},
		{kpiRollupSpec, TaskKPIRollup},
	}
	for _, e := range entries {
		if _, err := scheduler.Register(e.spec, newTask(e.name), asynq.Queue(queue)); err != nil {
			return nil, fmt.Errorf("failed to register %s: %w", e.name, err)
		}
	}

	return &Periodic{scheduler: scheduler, log: log}, nil
}

// Run blocks until the scheduler stops.
func (p *Periodic) Run() {
	if err := p.scheduler.Run(); err != nil {
		p.log.Error("periodic scheduler stopped", slog.String("error", err.Error()))
	}
}

// Shutdown stops the scheduler.
func (p *Periodic) Shutdown() {
	p.scheduler.Shutdown()
}

func queueName(cfg config.SchedulerConfig) string {
	if queue := cfg.GetAsynqQueueName(); queue != "" {
		return queue
	}
	return "default"
}

func redisClientOpt(cfg config.SchedulerConfig) (asynq.RedisClientOpt, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return asynq.RedisClientOpt{}, fmt.Errorf("redis url not configured")
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if cfg.GetRedisTLSInsecure() {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if cfg.GetRedisTLSInsecure() {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
