// Package token implements opaque customer access tokens for the portal.
//
// Portal tokens are a separate trust domain from staff JWTs: they are
// random bytes with no structure, scoped to a single quote, and stored
// only as a SHA-256 hash. A database leak exposes no usable tokens.
package token

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"time"

	"arborlead_backend/platform/apperr"
	"arborlead_backend/platform/config"
	"arborlead_backend/platform/logger"

	"github.com/google/uuid"
)

const tokenBytes = 32

// Record is the stored form of an issued token.
type Record struct {
	ID            uuid.UUID
	QuoteID       uuid.UUID
	CustomerEmail string
	TokenHash     string
	ExpiresAt     time.Time
	RevokedAt     *time.Time
	CreatedAt     time.Time
}

// Store is the persistence surface for portal tokens.
type Store interface {
	Insert(ctx context.Context, rec *Record) error
	FindByHash(ctx context.Context, hash string) (Record, error)
	RevokeForQuote(ctx context.Context, quoteID uuid.UUID, revokedAt time.Time) error
}

// Verification is the outcome of a token check.
type Verification struct {
	Valid         bool
	QuoteID       uuid.UUID
	CustomerEmail string
}

// Service issues and verifies customer portal tokens.
type Service struct {
	store Store
	ttl   time.Duration
	log   *logger.Logger
	now   func() time.Time
}

// New creates the token service.
func New(store Store, cfg config.PortalConfig, log *logger.Logger) *Service {
	return &Service{
		store: store,
		ttl:   cfg.GetCustomerTokenTTL(),
		log:   log,
		now:   time.Now,
	}
}

// Issue mints a fresh token for a quote and revokes any prior tokens, so
// at most one portal link works per quote. The clear-text token is
// returned once for the notification email and never persisted.
func (s *Service) Issue(ctx context.Context, quoteID uuid.UUID, customerEmail string) (string, error) {
	raw := make([]byte, tokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "failed to generate token", err)
	}
	clear := base64.RawURLEncoding.EncodeToString(raw)

	now := s.now().UTC()
	if err := s.store.RevokeForQuote(ctx, quoteID, now); err != nil {
		return "", err
	}

	rec := Record{
		ID:            uuid.New(),
		QuoteID:       quoteID,
		CustomerEmail: customerEmail,
		TokenHash:     hashToken(clear),
		ExpiresAt:     now.Add(s.ttl),
		CreatedAt:     now,
	}
	if err := s.store.Insert(ctx, &rec); err != nil {
		return "", err
	}
	return clear, nil
}

// Verify checks a presented token. Any failure, unknown hash, revoked,
// expired, returns an invalid result; the caller never learns which.
func (s *Service) Verify(ctx context.Context, presented string) Verification {
	if presented == "" {
		return Verification{}
	}

	rec, err := s.store.FindByHash(ctx, hashToken(presented))
	if err != nil {
		return Verification{}
	}

	now := s.now().UTC()
	if rec.RevokedAt != nil || now.After(rec.ExpiresAt) {
		return Verification{}
	}

	// The hash lookup already authenticated the token; the constant-time
	// compare guards against a store that matches on prefix.
	if subtle.ConstantTimeCompare([]byte(rec.TokenHash), []byte(hashToken(presented))) != 1 {
		return Verification{}
	}

	return Verification{
		Valid:         true,
		QuoteID:       rec.QuoteID,
		CustomerEmail: rec.CustomerEmail,
	}
}

func hashToken(clear string) string {
	sum := sha256.Sum256([]byte(clear))
	return hex.EncodeToString(sum[:])
}
