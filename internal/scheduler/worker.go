// Package scheduler runs the recurring pipeline maintenance: the lead
// expiry sweep, notification outbox drain, accounting retry, and the
// daily KPI rollup.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"arborlead_backend/internal/email"
	"arborlead_backend/platform/config"
	"arborlead_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// LeadSweeper expires overdue assignments.
type LeadSweeper interface {
	SweepExpired(ctx context.Context) (int, error)
}

// OutboxDispatcher delivers pending notifications.
type OutboxDispatcher interface {
	Dispatch(ctx context.Context, sender email.Sender, batchSize int) (int, error)
}

// InvoiceSyncer retries unsynced accounting invoices.
type InvoiceSyncer interface {
	SyncPending(ctx context.Context, batchSize int) (int, error)
}

// KPIRoller persists the daily metric rollup.
type KPIRoller interface {
	RollupDaily(ctx context.Context, day time.Time) error
}

// Worker consumes the periodic tasks from the asynq queue.
type Worker struct {
	server     *asynq.Server
	mux        *asynq.ServeMux
	sweeper    LeadSweeper
	dispatcher OutboxDispatcher
	syncer     InvoiceSyncer
	roller     KPIRoller
	sender     email.Sender
	log        *logger.Logger
}

// NewWorker wires the task handlers to the module services.
func NewWorker(cfg config.SchedulerConfig, sweeper LeadSweeper, dispatcher OutboxDispatcher, syncer InvoiceSyncer, roller KPIRoller, sender email.Sender, log *logger.Logger) (*Worker, error) {
	opt, err := redisClientOpt(cfg)
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:     server,
		mux:        mux,
		sweeper:    sweeper,
		dispatcher: dispatcher,
		syncer:     syncer,
		roller:     roller,
		sender:     sender,
		log:        log,
	}

	mux.HandleFunc(TaskLeadExpirySweep, w.handleLeadExpirySweep)
	mux.HandleFunc(TaskNotificationDrain, w.handleNotificationDrain)
	mux.HandleFunc(TaskAccountingRetry, w.handleAccountingRetry)
	mux.HandleFunc(TaskKPIRollup, w.handleKPIRollup)

	return w, nil
}

func (w *Worker) handleLeadExpirySweep(ctx context.Context, _ *asynq.Task) error {
	expired, err := w.sweeper.SweepExpired(ctx)
	if err != nil {
		return err
	}
	if expired > 0 {
		w.log.Info("expiry sweep", slog.Int("expired", expired))
	}
	return nil
}

func (w *Worker) handleNotificationDrain(ctx context.Context, _ *asynq.Task) error {
	sent, err := w.dispatcher.Dispatch(ctx, w.sender, outboxBatchSize)
	if err != nil {
		return err
	}
	if sent > 0 {
		w.log.Info("outbox drained", slog.Int("sent", sent))
	}
	return nil
}

func (w *Worker) handleAccountingRetry(ctx context.Context, _ *asynq.Task) error {
	synced, err := w.syncer.SyncPending(ctx, accountingBatchSize)
	if err != nil {
		return err
	}
	if synced > 0 {
		w.log.Info("invoices synced", slog.Int("synced", synced))
	}
	return nil
}

func (w *Worker) handleKPIRollup(ctx context.Context, _ *asynq.Task) error {
	// Roll up yesterday's completed day.
	day := time.Now().UTC().AddDate(0, 0, -1)
	return w.roller.RollupDaily(ctx, day)
}

// Run blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", slog.String("error", err.Error()))
	}
}
