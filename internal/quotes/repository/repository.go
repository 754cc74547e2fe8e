// Package repository provides database operations for quotes.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	leadsdomain "arborlead_backend/internal/leads/domain"
	"arborlead_backend/internal/quotes/domain"
	"arborlead_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Quote is the database model for a partner's offer on a lead.
type Quote struct {
	ID                 uuid.UUID     `db:"id"`
	LeadID             uuid.UUID     `db:"lead_id"`
	PartnerID          uuid.UUID     `db:"partner_id"`
	Status             domain.Status `db:"status"`
	TotalOre           int64         `db:"total_ore"`
	CommissionOre      int64         `db:"commission_ore"`
	SentAt             *time.Time    `db:"sent_at"`
	CustomerResponseAt *time.Time    `db:"customer_response_at"`
	Feedback           *string       `db:"feedback"`
	CreatedAt          time.Time     `db:"created_at"`
	UpdatedAt          time.Time     `db:"updated_at"`
}

// Item is a single line on a quote.
type Item struct {
	ID              uuid.UUID            `db:"id"`
	QuoteID         uuid.UUID            `db:"quote_id"`
	SortOrder       int                  `db:"sort_order"`
	Quantity        int                  `db:"quantity"`
	TreeSpecies     domain.TreeSpecies   `db:"tree_species"`
	OperationType   domain.OperationType `db:"operation_type"`
	CustomOperation *string              `db:"custom_operation"`
	CostOre         int64                `db:"cost_ore"`
	CreatedAt       time.Time            `db:"created_at"`
}

const quoteColumns = `
	id, lead_id, partner_id, status, total_ore, commission_ore,
	sent_at, customer_response_at, feedback, created_at, updated_at`

const quoteNotFoundMsg = "quote not found"

// Repository provides database operations for quotes. Lifecycle mutations
// follow the same conditional-update pattern as leads.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new quotes repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateWithItems inserts a draft quote with its lines and moves the lead
// accepted → quoted in the same transaction. If the lead is not in accepted
// status owned by the partner, nothing is written.
func (r *Repository) CreateWithItems(ctx context.Context, quote *Quote, items []Item) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE leads SET status = $3, quoted_at = $4, updated_at = $4
		WHERE id = $1 AND assigned_partner_id = $2 AND status = $5`,
		quote.LeadID, quote.PartnerID, leadsdomain.StatusQuoted, quote.CreatedAt, leadsdomain.StatusAccepted,
	)
	if err != nil {
		return fmt.Errorf("failed to mark lead quoted: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.diagnoseLead(ctx, quote.LeadID, quote.PartnerID)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO quotes (id, lead_id, partner_id, status, total_ore, commission_ore, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`,
		quote.ID, quote.LeadID, quote.PartnerID, quote.Status,
		quote.TotalOre, quote.CommissionOre, quote.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert quote: %w", err)
	}

	for _, item := range items {
		_, err = tx.Exec(ctx, `
			INSERT INTO quote_items (id, quote_id, sort_order, quantity, tree_species, operation_type, custom_operation, cost_ore, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			item.ID, item.QuoteID, item.SortOrder, item.Quantity,
			item.TreeSpecies, item.OperationType, item.CustomOperation, item.CostOre, item.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert quote item: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// GetByID fetches a single quote.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Quote, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE id = $1`, id)
	quote, err := scanQuote(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Quote{}, apperr.NotFound(quoteNotFoundMsg)
	}
	return quote, err
}

// GetItems returns a quote's lines in display order.
func (r *Repository) GetItems(ctx context.Context, quoteID uuid.UUID) ([]Item, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, quote_id, sort_order, quantity, tree_species, operation_type, custom_operation, cost_ore, created_at
		FROM quote_items WHERE quote_id = $1 ORDER BY sort_order`,
		quoteID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list quote items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ID, &item.QuoteID, &item.SortOrder, &item.Quantity,
			&item.TreeSpecies, &item.OperationType, &item.CustomOperation, &item.CostOre, &item.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ListByLead returns a lead's quotes, newest first.
func (r *Repository) ListByLead(ctx context.Context, leadID uuid.UUID) ([]Quote, error) {
	return r.list(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE lead_id = $1 ORDER BY created_at DESC`, leadID)
}

// ListByPartner returns a partner's quotes, newest first.
func (r *Repository) ListByPartner(ctx context.Context, partnerID uuid.UUID) ([]Quote, error) {
	return r.list(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE partner_id = $1 ORDER BY created_at DESC`, partnerID)
}

func (r *Repository) list(ctx context.Context, query string, arg interface{}) ([]Quote, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list quotes: %w", err)
	}
	defer rows.Close()

	var quotes []Quote
	for rows.Next() {
		quote, err := scanQuote(rows)
		if err != nil {
			return nil, err
		}
		quotes = append(quotes, quote)
	}
	return quotes, rows.Err()
}

// Send moves a quote draft → sent for the owning partner.
func (r *Repository) Send(ctx context.Context, quoteID, partnerID uuid.UUID, sentAt time.Time) (Quote, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE quotes SET status = $3, sent_at = $4, updated_at = $4
		WHERE id = $1 AND partner_id = $2 AND status = $5`,
		quoteID, partnerID, domain.StatusSent, sentAt, domain.StatusDraft,
	)
	if err != nil {
		return Quote{}, fmt.Errorf("failed to send quote: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return Quote{}, r.diagnoseSend(ctx, quoteID, partnerID)
	}
	return r.GetByID(ctx, quoteID)
}

// Respond moves a quote sent → approved/declined. The predicate requires
// the quote to be within its response window, so a stale portal link can
// never flip a terminal decision.
func (r *Repository) Respond(ctx context.Context, quoteID uuid.UUID, to domain.Status, feedback *string, respondedAt time.Time) (Quote, error) {
	if to != domain.StatusApproved && to != domain.StatusDeclined {
		return Quote{}, apperr.Internal("illegal quote decision " + string(to))
	}

	cutoff := respondedAt.Add(-domain.SentQuoteTTL)
	tag, err := r.pool.Exec(ctx, `
		UPDATE quotes SET status = $2, customer_response_at = $3, feedback = $4, updated_at = $3
		WHERE id = $1 AND status = $5 AND sent_at >= $6`,
		quoteID, to, respondedAt, feedback, domain.StatusSent, cutoff,
	)
	if err != nil {
		return Quote{}, fmt.Errorf("failed to record quote response: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return Quote{}, r.diagnoseRespond(ctx, quoteID, respondedAt)
	}
	return r.GetByID(ctx, quoteID)
}

// ── Failure diagnosis ─────────────────────────────────────────────────────────

func (r *Repository) diagnoseLead(ctx context.Context, leadID, partnerID uuid.UUID) error {
	var status leadsdomain.Status
	var assignedPartnerID *uuid.UUID
	err := r.pool.QueryRow(ctx,
		`SELECT status, assigned_partner_id FROM leads WHERE id = $1`, leadID,
	).Scan(&status, &assignedPartnerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("lead not found")
	}
	if err != nil {
		return err
	}
	if assignedPartnerID == nil || *assignedPartnerID != partnerID {
		return apperr.Forbidden("lead is not assigned to this partner")
	}
	return apperr.Conflict(fmt.Sprintf("lead is %s", status))
}

func (r *Repository) diagnoseSend(ctx context.Context, quoteID, partnerID uuid.UUID) error {
	quote, err := r.GetByID(ctx, quoteID)
	if err != nil {
		return err
	}
	if quote.PartnerID != partnerID {
		return apperr.Forbidden("quote does not belong to this partner")
	}
	return apperr.Conflict(fmt.Sprintf("quote is %s", quote.Status))
}

func (r *Repository) diagnoseRespond(ctx context.Context, quoteID uuid.UUID, now time.Time) error {
	quote, err := r.GetByID(ctx, quoteID)
	if err != nil {
		return err
	}
	if quote.Status == domain.StatusSent && quote.SentAt != nil && now.Sub(*quote.SentAt) > domain.SentQuoteTTL {
		return apperr.Conflict("quote offer has expired")
	}
	return apperr.Conflict(fmt.Sprintf("quote is %s", quote.Status))
}

func scanQuote(row pgx.Row) (Quote, error) {
	var quote Quote
	err := row.Scan(
		&quote.ID, &quote.LeadID, &quote.PartnerID, &quote.Status,
		&quote.TotalOre, &quote.CommissionOre,
		&quote.SentAt, &quote.CustomerResponseAt, &quote.Feedback,
		&quote.CreatedAt, &quote.UpdatedAt,
	)
	return quote, err
}
