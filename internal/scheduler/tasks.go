package scheduler

import "github.com/hibiken/asynq"

// Periodic task names.
const (
	TaskLeadExpirySweep   = "leads.expiry.sweep"
	TaskNotificationDrain = "notification.outbox.drain"
	TaskAccountingRetry   = "accounting.sync.retry"
	TaskKPIRollup         = "analytics.kpi.rollup"
)

// Cron specs for the periodic entries.
const (
	leadExpirySweepSpec   = "@every 1m"
	notificationDrainSpec = "@every 1m"
	accountingRetrySpec   = "@every 5m"
	kpiRollupSpec         = "5 0 * * *" // shortly after midnight
)

// Batch sizes per tick.
const (
	outboxBatchSize     = 50
	accountingBatchSize = 20
)

func newTask(name string) *asynq.Task {
	return asynq.NewTask(name, nil)
}
