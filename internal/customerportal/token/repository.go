package token

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

// Repository stores portal tokens in customer_access_tokens.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates the token repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert stores a freshly issued token record.
func (r *Repository) Insert(ctx context.Context, rec *Record) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO customer_access_tokens (id, quote_id, customer_email, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.ID, rec.QuoteID, rec.CustomerEmail, rec.TokenHash, rec.ExpiresAt, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert access token: %w", err)
	}
	return nil
}

// FindByHash looks up a token by its hash.
func (r *Repository) FindByHash(ctx context.Context, hash string) (Record, error) {
	var rec Record
	err := r.pool.QueryRow(ctx, `
		SELECT id, quote_id, customer_email, token_hash, expires_at, revoked_at, created_at
		FROM customer_access_tokens WHERE token_hash = $1`,
		hash,
	).Scan(&rec.ID, &rec.QuoteID, &rec.CustomerEmail, &rec.TokenHash,
		&rec.ExpiresAt, &rec.RevokedAt, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, apperr.NotFound("token not found")
	}
	return rec, err
}

// RevokeForQuote marks all live tokens for a quote as revoked.
func (r *Repository) RevokeForQuote(ctx context.Context, quoteID uuid.UUID, revokedAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE customer_access_tokens SET revoked_at = $2
		WHERE quote_id = $1 AND revoked_at IS NULL`,
		quoteID, revokedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to revoke tokens: %w", err)
	}
	return nil
}
