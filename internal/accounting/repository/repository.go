// Package repository persists accounting invoices and their provider
// sync state.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"arborlead_backend/platform/apperr"
)

// Sync statuses.
const (
	StatusPending = "pending"
	StatusSynced  = "synced"
	StatusFailed  = "failed"
)

const maxSyncAttempts = 5

// Invoice is a bookkeeping invoice derived from an approved quote.
type Invoice struct {
	ID          uuid.UUID  `db:"id"`
	QuoteID     uuid.UUID  `db:"quote_id"`
	PartnerID   uuid.UUID  `db:"partner_id"`
	NetOre      int64      `db:"net_ore"`
	VATOre      int64      `db:"vat_ore"`
	GrossOre    int64      `db:"gross_ore"`
	Provider    string     `db:"provider"`
	ExternalRef *string    `db:"external_ref"`
	Status      string     `db:"status"`
	Attempts    int        `db:"attempts"`
	LastError   *string    `db:"last_error"`
	CreatedAt   time.Time  `db:"created_at"`
	SyncedAt    *time.Time `db:"synced_at"`
}

const invoiceColumns = `
	id, quote_id, partner_id, net_ore, vat_ore, gross_ore,
	provider, external_ref, status, attempts, last_error, created_at, synced_at`

// Repository provides database operations for accounting invoices.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new accounting repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a pending invoice. The unique quote_id constraint makes
// duplicate approval events harmless.
func (r *Repository) Create(ctx context.Context, inv Invoice) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO accounting_invoices
			(id, quote_id, partner_id, net_ore, vat_ore, gross_ore, provider, status, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, now())
		ON CONFLICT (quote_id) DO NOTHING`,
		inv.ID, inv.QuoteID, inv.PartnerID, inv.NetOre, inv.VATOre, inv.GrossOre,
		inv.Provider, StatusPending,
	)
	if err != nil {
		return fmt.Errorf("failed to create accounting invoice: %w", err)
	}
	return nil
}

// GetByQuoteID returns the invoice for a quote.
func (r *Repository) GetByQuoteID(ctx context.Context, quoteID uuid.UUID) (Invoice, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+invoiceColumns+` FROM accounting_invoices WHERE quote_id = $1`, quoteID)

	inv, err := scanInvoice(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Invoice{}, apperr.NotFound("no invoice for this quote")
		}
		return Invoice{}, fmt.Errorf("failed to get accounting invoice: %w", err)
	}
	return inv, nil
}

// ListUnsynced returns pending invoices with retry budget left, oldest
// first.
func (r *Repository) ListUnsynced(ctx context.Context, limit int) ([]Invoice, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+invoiceColumns+`
		FROM accounting_invoices
		WHERE status = $1 AND attempts < $2
		ORDER BY created_at
		LIMIT $3
		FOR UPDATE SKIP LOCKED`,
		StatusPending, maxSyncAttempts, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list unsynced invoices: %w", err)
	}
	defer rows.Close()

	var out []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// MarkSynced records a successful provider submission.
func (r *Repository) MarkSynced(ctx context.Context, id uuid.UUID, externalRef string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE accounting_invoices
		SET status = $2, external_ref = $3, synced_at = now()
		WHERE id = $1`,
		id, StatusSynced, externalRef,
	)
	return err
}

// MarkSyncFailed bumps the attempt counter; the invoice flips to failed
// once the retry budget is exhausted.
func (r *Repository) MarkSyncFailed(ctx context.Context, id uuid.UUID, cause string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE accounting_invoices
		SET attempts = attempts + 1,
			last_error = $2,
			status = CASE WHEN attempts + 1 >= $3 THEN $4 ELSE status END
		WHERE id = $1`,
		id, cause, maxSyncAttempts, StatusFailed,
	)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvoice(row rowScanner) (Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.QuoteID, &inv.PartnerID, &inv.NetOre, &inv.VATOre,
		&inv.GrossOre, &inv.Provider, &inv.ExternalRef, &inv.Status, &inv.Attempts,
		&inv.LastError, &inv.CreatedAt, &inv.SyncedAt)
	return inv, err
}
