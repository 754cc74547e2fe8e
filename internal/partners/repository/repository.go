// Package repository provides database operations for partners and their
// debt ledger. Partners are users with role partner; the ledger columns
// live on the same row.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"arborlead_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Partner is the partner projection of a users row.
type Partner struct {
	ID          uuid.UUID `db:"id"`
	Email       string    `db:"email"`
	Name        string    `db:"name"`
	CompanyName string    `db:"company_name"`
	Region      string    `db:"region"`
	DebtOre     int64     `db:"debt_ore"`
	Active      bool      `db:"active"`
	CreatedAt   time.Time `db:"created_at"`
}

// Invoice is a monthly settlement of a partner's accumulated debt.
type Invoice struct {
	ID        uuid.UUID `db:"id"`
	PartnerID uuid.UUID `db:"partner_id"`
	Period    string    `db:"period"`
	AmountOre int64     `db:"amount_ore"`
	CreatedAt time.Time `db:"created_at"`
}

// Stats aggregates a partner's lead performance for ranking.
type Stats struct {
	PartnerID         uuid.UUID
	Assigned          int
	Accepted          int
	AvgResponseSecs   float64
	AcceptanceRate    float64
}

const partnerColumns = `id, email, name, company_name, region, debt_ore, active, created_at`

// Repository provides partner database operations.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new partners repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetByID fetches an active partner.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Partner, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+partnerColumns+` FROM users
		WHERE id = $1 AND role = 'partner' AND active`, id)
	partner, err := scanPartner(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Partner{}, apperr.NotFound("partner not found")
	}
	return partner, err
}

// List returns active partners, optionally filtered by region.
func (r *Repository) List(ctx context.Context, region string) ([]Partner, error) {
	query := `SELECT ` + partnerColumns + ` FROM users WHERE role = 'partner' AND active`
	args := []interface{}{}
	if region != "" {
		query += ` AND region = $1`
		args = append(args, region)
	}
	query += ` ORDER BY company_name`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list partners: %w", err)
	}
	defer rows.Close()

	var partners []Partner
	for rows.Next() {
		partner, err := scanPartner(rows)
		if err != nil {
			return nil, err
		}
		partners = append(partners, partner)
	}
	return partners, rows.Err()
}

// AddDebt adds an amount to a partner's ledger.
func (r *Repository) AddDebt(ctx context.Context, partnerID uuid.UUID, amountOre int64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET debt_ore = debt_ore + $2, updated_at = now()
		WHERE id = $1 AND role = 'partner'`,
		partnerID, amountOre,
	)
	if err != nil {
		return fmt.Errorf("failed to add partner debt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("partner not found")
	}
	return nil
}

// SettleDebts invoices every partner carrying debt and zeroes their ledger
// in one transaction, so a crash between the two steps cannot double-bill.
func (r *Repository) SettleDebts(ctx context.Context, period string, now time.Time) ([]Invoice, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		SELECT id, debt_ore FROM users
		WHERE role = 'partner' AND debt_ore > 0
		FOR UPDATE`)
	if err != nil {
		return nil, fmt.Errorf("failed to lock indebted partners: %w", err)
	}

	type debtor struct {
		id   uuid.UUID
		debt int64
	}
	var debtors []debtor
	for rows.Next() {
		var d debtor
		if err := rows.Scan(&d.id, &d.debt); err != nil {
			rows.Close()
			return nil, err
		}
		debtors = append(debtors, d)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	invoices := make([]Invoice, 0, len(debtors))
	for _, d := range debtors {
		invoice := Invoice{
			ID:        uuid.New(),
			PartnerID: d.id,
			Period:    period,
			AmountOre: d.debt,
			CreatedAt: now,
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO partner_invoices (id, partner_id, period, amount_ore, created_at)
			VALUES ($1, $2, $3, $4, $5)`,
			invoice.ID, invoice.PartnerID, invoice.Period, invoice.AmountOre, invoice.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert partner invoice: %w", err)
		}
		_, err = tx.Exec(ctx, `
			UPDATE users SET debt_ore = 0, updated_at = $2 WHERE id = $1`,
			d.id, now,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to reset partner debt: %w", err)
		}
		invoices = append(invoices, invoice)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return invoices, nil
}

// ListInvoices returns a partner's settlement invoices, newest first.
func (r *Repository) ListInvoices(ctx context.Context, partnerID uuid.UUID) ([]Invoice, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, partner_id, period, amount_ore, created_at
		FROM partner_invoices WHERE partner_id = $1 ORDER BY created_at DESC`,
		partnerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	var invoices []Invoice
	for rows.Next() {
		var inv Invoice
		if err := rows.Scan(&inv.ID, &inv.PartnerID, &inv.Period, &inv.AmountOre, &inv.CreatedAt); err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

// PerformanceStats aggregates per-partner acceptance rate and response time
// from the leads table, optionally scoped to a region.
func (r *Repository) PerformanceStats(ctx context.Context, region string) ([]Stats, error) {
	query := `
		SELECT assigned_partner_id,
			COUNT(*) AS assigned,
			COUNT(*) FILTER (WHERE accepted_at IS NOT NULL) AS accepted,
			COALESCE(AVG(EXTRACT(EPOCH FROM (accepted_at - assigned_at))) FILTER (WHERE accepted_at IS NOT NULL), 0) AS avg_response_secs
		FROM leads
		WHERE assigned_partner_id IS NOT NULL`
	args := []interface{}{}
	if region != "" {
		query += ` AND region = $1`
		args = append(args, region)
	}
	query += ` GROUP BY assigned_partner_id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate partner stats: %w", err)
	}
	defer rows.Close()

	var stats []Stats
	for rows.Next() {
		var s Stats
		if err := rows.Scan(&s.PartnerID, &s.Assigned, &s.Accepted, &s.AvgResponseSecs); err != nil {
			return nil, err
		}
		if s.Assigned > 0 {
			s.AcceptanceRate = float64(s.Accepted) / float64(s.Assigned)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

func scanPartner(row pgx.Row) (Partner, error) {
	var p Partner
	err := row.Scan(&p.ID, &p.Email, &p.Name, &p.CompanyName, &p.Region,
		&p.DebtOre, &p.Active, &p.CreatedAt)
	return p, err
}
