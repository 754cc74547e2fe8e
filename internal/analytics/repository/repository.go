// Package repository persists the KPI event log and computes pipeline
// metrics directly in SQL.
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides database operations for analytics.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new analytics repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// InsertEvent appends one row to the KPI event log.
func (r *Repository) InsertEvent(ctx context.Context, entity string, entityID uuid.UUID, eventName string, occurredAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO kpi_events (id, entity, entity_id, event_name, occurred_at)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.New(), entity, entityID, eventName, occurredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert kpi event: %w", err)
	}
	return nil
}

// AvgAssignmentSecs measures intake to assignment. Nil when no lead has
// been assigned yet.
func (r *Repository) AvgAssignmentSecs(ctx context.Context) (*float64, error) {
	return r.avgSecs(ctx, `
		SELECT AVG(EXTRACT(EPOCH FROM assigned_at - created_at))
		FROM leads WHERE assigned_at IS NOT NULL`)
}

// AvgPartnerResponseSecs measures assignment to acceptance.
func (r *Repository) AvgPartnerResponseSecs(ctx context.Context) (*float64, error) {
	return r.avgSecs(ctx, `
		SELECT AVG(EXTRACT(EPOCH FROM accepted_at - assigned_at))
		FROM leads WHERE accepted_at IS NOT NULL AND assigned_at IS NOT NULL`)
}

// AvgQuoteTurnaroundSecs measures acceptance to the first sent quote.
func (r *Repository) AvgQuoteTurnaroundSecs(ctx context.Context) (*float64, error) {
	return r.avgSecs(ctx, `
		SELECT AVG(EXTRACT(EPOCH FROM quoted_at - accepted_at))
		FROM leads WHERE quoted_at IS NOT NULL AND accepted_at IS NOT NULL`)
}

func (r *Repository) avgSecs(ctx context.Context, query string) (*float64, error) {
	var avg *float64
	if err := r.pool.QueryRow(ctx, query).Scan(&avg); err != nil {
		return nil, fmt.Errorf("failed to compute average: %w", err)
	}
	return avg, nil
}

// DecisionCounts tallies partner decisions from the event log. Expired
// assignments count against the acceptance rate the same as rejections.
func (r *Repository) DecisionCounts(ctx context.Context) (accepted, rejected, expired int64, err error) {
	err = r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE event_name = 'lead.accepted'),
			COUNT(*) FILTER (WHERE event_name = 'lead.rejected'),
			COUNT(*) FILTER (WHERE event_name = 'lead.expired')
		FROM kpi_events`,
	).Scan(&accepted, &rejected, &expired)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to count decisions: %w", err)
	}
	return accepted, rejected, expired, nil
}

// ApprovalCounts tallies terminal customer responses.
func (r *Repository) ApprovalCounts(ctx context.Context) (approved, declined int64, err error) {
	err = r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'approved'),
			COUNT(*) FILTER (WHERE status = 'declined')
		FROM quotes`,
	).Scan(&approved, &declined)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count approvals: %w", err)
	}
	return approved, declined, nil
}

// UpsertDailyMetric writes one rollup value, overwriting any earlier
// rollup of the same metric for the same day.
func (r *Repository) UpsertDailyMetric(ctx context.Context, day time.Time, name string, value float64) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO kpi_metrics (metric_date, name, value, computed_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (metric_date, name) DO UPDATE
		SET value = EXCLUDED.value, computed_at = EXCLUDED.computed_at`,
		day.Format("2006-01-02"), name, value,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert kpi metric %s: %w", name, err)
	}
	return nil
}
