package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"arborlead_backend/internal/leads/domain"
	"arborlead_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ── Domain Models ─────────────────────────────────────────────────────────────

// Lead is the database model for a customer inquiry.
type Lead struct {
	ID                 uuid.UUID     `db:"id"`
	CustomerName       string        `db:"customer_name"`
	CustomerEmail      string        `db:"customer_email"`
	CustomerPhone      string        `db:"customer_phone"`
	Address            string        `db:"address"`
	City               string        `db:"city"`
	PostalCode         string        `db:"postal_code"`
	Region             string        `db:"region"`
	Summary            string        `db:"summary"`
	Details            *string       `db:"details"`
	Status             domain.Status `db:"status"`
	AssignedPartnerID  *uuid.UUID    `db:"assigned_partner_id"`
	AssignedAt         *time.Time    `db:"assigned_at"`
	AcceptedAt         *time.Time    `db:"accepted_at"`
	QuotedAt           *time.Time    `db:"quoted_at"`
	CustomerResponseAt *time.Time    `db:"customer_response_at"`
	ExpiresAt          *time.Time    `db:"expires_at"`
	LeadFeeOre         int64         `db:"lead_fee_ore"`
	CommissionBps      int           `db:"commission_bps"`
	Billed             bool          `db:"billed"`
	ViewedDetails      bool          `db:"viewed_details"`
	ViewCount          int           `db:"view_count"`
	Latitude           *float64      `db:"latitude"`
	Longitude          *float64      `db:"longitude"`
	CreatedAt          time.Time     `db:"created_at"`
	UpdatedAt          time.Time     `db:"updated_at"`
}

// ListParams contains parameters for listing leads.
type ListParams struct {
	Status    *domain.Status
	Region    *string
	PartnerID *uuid.UUID
	Page      int
	PageSize  int
}

const leadNotFoundMsg = "lead not found"

const leadColumns = `
	id, customer_name, customer_email, customer_phone, address, city, postal_code, region,
	summary, details, status, assigned_partner_id,
	assigned_at, accepted_at, quoted_at, customer_response_at, expires_at,
	lead_fee_ore, commission_bps, billed, viewed_details, view_count,
	latitude, longitude, created_at, updated_at`

// ── Repository ────────────────────────────────────────────────────────────────

// Repository provides database operations for leads. All lifecycle mutations
// are single conditional updates guarded on the prior status, so racing
// writers resolve in the database: exactly one wins, the rest see a typed
// conflict.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new leads repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new lead in status new.
func (r *Repository) Create(ctx context.Context, lead *Lead) error {
	query := `
		INSERT INTO leads (
			id, customer_name, customer_email, customer_phone, address, city, postal_code, region,
			summary, details, status, lead_fee_ore, commission_bps, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err := r.pool.Exec(ctx, query,
		lead.ID, lead.CustomerName, lead.CustomerEmail, lead.CustomerPhone,
		lead.Address, lead.City, lead.PostalCode, lead.Region,
		lead.Summary, lead.Details, lead.Status,
		lead.LeadFeeOre, lead.CommissionBps, lead.CreatedAt, lead.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert lead: %w", err)
	}
	return nil
}

// GetByID fetches a single lead.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Lead, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id)
	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, apperr.NotFound(leadNotFoundMsg)
	}
	return lead, err
}

// List returns leads matching the filter, newest first.
func (r *Repository) List(ctx context.Context, params ListParams) ([]Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE 1=1`
	args := []interface{}{}
	argPos := 1

	if params.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argPos)
		args = append(args, *params.Status)
		argPos++
	}
	if params.Region != nil {
		query += fmt.Sprintf(" AND region = $%d", argPos)
		args = append(args, *params.Region)
		argPos++
	}
	if params.PartnerID != nil {
		query += fmt.Sprintf(" AND assigned_partner_id = $%d", argPos)
		args = append(args, *params.PartnerID)
		argPos++
	}

	query += " ORDER BY created_at DESC"

	pageSize := params.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 25
	}
	page := params.Page
	if page < 1 {
		page = 1
	}
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	defer rows.Close()

	var leads []Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

// Assign moves a lead new → assigned with a compare-and-swap on status.
// Exactly one of two racing assigns succeeds; the loser gets a conflict.
func (r *Repository) Assign(ctx context.Context, leadID, partnerID uuid.UUID, assignedAt, expiresAt time.Time) (Lead, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads
		SET status = $3, assigned_partner_id = $2, assigned_at = $4, expires_at = $5, updated_at = $4
		WHERE id = $1 AND status = $6`,
		leadID, partnerID, domain.StatusAssigned, assignedAt, expiresAt, domain.StatusNew,
	)
	if err != nil {
		return Lead{}, fmt.Errorf("failed to assign lead: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return Lead{}, r.diagnoseAssign(ctx, leadID)
	}
	return r.GetByID(ctx, leadID)
}

// PartnerDecide moves a lead assigned → accepted/rejected for the owning
// partner. The predicate also requires the lead to be unexpired, so an
// overdue-but-unswept lead can never be accepted.
func (r *Repository) PartnerDecide(ctx context.Context, leadID, partnerID uuid.UUID, to domain.Status, decidedAt time.Time) (Lead, error) {
	if to != domain.StatusAccepted && to != domain.StatusRejected {
		return Lead{}, apperr.Internal("illegal partner decision " + string(to))
	}

	acceptedAt := &decidedAt
	if to == domain.StatusRejected {
		acceptedAt = nil
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE leads
		SET status = $3, accepted_at = COALESCE($4, accepted_at), updated_at = $5
		WHERE id = $1 AND assigned_partner_id = $2 AND status = $6
			AND (expires_at IS NULL OR expires_at >= $5)`,
		leadID, partnerID, to, acceptedAt, decidedAt, domain.StatusAssigned,
	)
	if err != nil {
		return Lead{}, fmt.Errorf("failed to update lead decision: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return Lead{}, r.diagnoseDecision(ctx, leadID, partnerID, decidedAt)
	}
	return r.GetByID(ctx, leadID)
}

// Recall moves a lead assigned → new, clearing the assignment.
func (r *Repository) Recall(ctx context.Context, leadID uuid.UUID, now time.Time) (Lead, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads
		SET status = $2, assigned_partner_id = NULL, assigned_at = NULL, expires_at = NULL, updated_at = $3
		WHERE id = $1 AND status = $4`,
		leadID, domain.StatusNew, now, domain.StatusAssigned,
	)
	if err != nil {
		return Lead{}, fmt.Errorf("failed to recall lead: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return Lead{}, r.diagnoseAssign(ctx, leadID)
	}
	return r.GetByID(ctx, leadID)
}

// Complete moves a lead approved → completed.
func (r *Repository) Complete(ctx context.Context, leadID uuid.UUID, now time.Time) (Lead, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads SET status = $2, updated_at = $3
		WHERE id = $1 AND status = $4`,
		leadID, domain.StatusCompleted, now, domain.StatusApproved,
	)
	if err != nil {
		return Lead{}, fmt.Errorf("failed to complete lead: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return Lead{}, r.diagnoseAssign(ctx, leadID)
	}
	return r.GetByID(ctx, leadID)
}

// MarkBilled flips the billed flag exactly once. Returns false when the
// lead was already billed, making the fee charge idempotent.
func (r *Repository) MarkBilled(ctx context.Context, leadID uuid.UUID, now time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads SET billed = TRUE, updated_at = $2
		WHERE id = $1 AND billed = FALSE`,
		leadID, now,
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark lead billed: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// MirrorQuoteResponse reflects a customer's quote decision onto the lead.
// The mirrored value is informational; the quote row is authoritative.
func (r *Repository) MirrorQuoteResponse(ctx context.Context, leadID uuid.UUID, to domain.Status, respondedAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE leads SET status = $2, customer_response_at = $3, updated_at = $3
		WHERE id = $1 AND status = $4`,
		leadID, to, respondedAt, domain.StatusQuoted,
	)
	if err != nil {
		return fmt.Errorf("failed to mirror quote response: %w", err)
	}
	return nil
}

// SweepExpired materializes assigned → expired for leads whose expiry has
// strictly passed, returning the affected IDs. Uses the same predicate as
// the lazy guard, so the two strategies cannot disagree.
func (r *Repository) SweepExpired(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		UPDATE leads SET status = $1, updated_at = $2
		WHERE status = $3 AND expires_at IS NOT NULL AND expires_at < $2
		RETURNING id`,
		domain.StatusExpired, now, domain.StatusAssigned,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to sweep expired leads: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// RecordDetailView increments the partner view counter.
func (r *Repository) RecordDetailView(ctx context.Context, leadID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE leads SET viewed_details = TRUE, view_count = view_count + 1
		WHERE id = $1`, leadID)
	return err
}

// SetCoordinates stores geotag coordinates extracted from an attachment.
func (r *Repository) SetCoordinates(ctx context.Context, leadID uuid.UUID, lat, lng float64) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE leads SET latitude = $2, longitude = $3, updated_at = now()
		WHERE id = $1`, leadID, lat, lng)
	return err
}

// ── Failure diagnosis ─────────────────────────────────────────────────────────

// diagnoseAssign distinguishes a missing lead from an illegal transition
// after a zero-row conditional update.
func (r *Repository) diagnoseAssign(ctx context.Context, leadID uuid.UUID) error {
	lead, err := r.GetByID(ctx, leadID)
	if err != nil {
		return err
	}
	return apperr.Conflict(fmt.Sprintf("lead is %s", lead.Status))
}

func (r *Repository) diagnoseDecision(ctx context.Context, leadID, partnerID uuid.UUID, now time.Time) error {
	lead, err := r.GetByID(ctx, leadID)
	if err != nil {
		return err
	}
	if lead.AssignedPartnerID == nil || *lead.AssignedPartnerID != partnerID {
		return apperr.Forbidden("lead is not assigned to this partner")
	}
	effective := domain.Effective(lead.Status, lead.ExpiresAt, now)
	return apperr.Conflict(fmt.Sprintf("lead is %s", effective))
}

func scanLead(row pgx.Row) (Lead, error) {
	var lead Lead
	err := row.Scan(
		&lead.ID, &lead.CustomerName, &lead.CustomerEmail, &lead.CustomerPhone,
		&lead.Address, &lead.City, &lead.PostalCode, &lead.Region,
		&lead.Summary, &lead.Details, &lead.Status, &lead.AssignedPartnerID,
		&lead.AssignedAt, &lead.AcceptedAt, &lead.QuotedAt, &lead.CustomerResponseAt, &lead.ExpiresAt,
		&lead.LeadFeeOre, &lead.CommissionBps, &lead.Billed, &lead.ViewedDetails, &lead.ViewCount,
		&lead.Latitude, &lead.Longitude, &lead.CreatedAt, &lead.UpdatedAt,
	)
	return lead, err
}
