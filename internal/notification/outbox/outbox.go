// Package outbox persists pending notifications so delivery failures never
// touch lifecycle state. Subscribers enqueue rows; the scheduler drains them.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Message kinds, one per notification template.
const (
	KindLeadAssigned   = "lead_assigned"
	KindLeadAccepted   = "lead_accepted"
	KindQuoteSent      = "quote_sent"
	KindQuoteResponded = "quote_responded"
)

// Delivery statuses.
const (
	StatusPending = "pending"
	StatusSent    = "sent"
	StatusFailed  = "failed"
)

const maxAttempts = 5

// Message is a queued notification.
type Message struct {
	ID        uuid.UUID       `db:"id"`
	Kind      string          `db:"kind"`
	Recipient string          `db:"recipient"`
	Payload   json.RawMessage `db:"payload"`
	Status    string          `db:"status"`
	Attempts  int             `db:"attempts"`
	LastError *string         `db:"last_error"`
	CreatedAt time.Time       `db:"created_at"`
	SentAt    *time.Time      `db:"sent_at"`
}

// Repository stores outbox rows.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates the outbox repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Enqueue inserts a pending message.
func (r *Repository) Enqueue(ctx context.Context, kind, recipient string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal outbox payload: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO notification_outbox (id, kind, recipient, payload, status, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, 0, now())`,
		uuid.New(), kind, recipient, raw, StatusPending,
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue notification: %w", err)
	}
	return nil
}

// ClaimPending locks and returns up to limit pending messages. SKIP LOCKED
// lets concurrent dispatchers drain the queue without stepping on each
// other.
func (r *Repository) ClaimPending(ctx context.Context, limit int) ([]Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, kind, recipient, payload, status, attempts, last_error, created_at, sent_at
		FROM notification_outbox
		WHERE status = $1 AND attempts < $2
		ORDER BY created_at
		LIMIT $3
		FOR UPDATE SKIP LOCKED`,
		StatusPending, maxAttempts, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to claim outbox messages: %w", err)
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.Kind, &m.Recipient, &m.Payload, &m.Status,
			&m.Attempts, &m.LastError, &m.CreatedAt, &m.SentAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// MarkSent records a successful delivery.
func (r *Repository) MarkSent(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE notification_outbox SET status = $2, sent_at = now() WHERE id = $1`,
		id, StatusSent,
	)
	return err
}

// MarkFailed bumps the attempt counter; the row flips to failed once the
// retry budget is exhausted.
func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, cause string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE notification_outbox
		SET attempts = attempts + 1,
			last_error = $2,
			status = CASE WHEN attempts + 1 >= $3 THEN $4 ELSE status END
		WHERE id = $1`,
		id, cause, maxAttempts, StatusFailed,
	)
	return err
}
