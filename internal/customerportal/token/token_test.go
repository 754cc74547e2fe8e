package token

import (
	"context"
	"testing"
	"time"

	"arborlead_backend/platform/apperr"
	"arborlead_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeStore struct {
	records map[string]Record
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]Record)}
}

func (f *fakeStore) Insert(_ context.Context, rec *Record) error {
	f.records[rec.TokenHash] = *rec
	return nil
}

func (f *fakeStore) FindByHash(_ context.Context, hash string) (Record, error) {
	rec, ok := f.records[hash]
	if !ok {
		return Record{}, apperr.NotFound("token not found")
	}
	return rec, nil
}

func (f *fakeStore) RevokeForQuote(_ context.Context, quoteID uuid.UUID, revokedAt time.Time) error {
	for hash, rec := range f.records {
		if rec.QuoteID == quoteID && rec.RevokedAt == nil {
			at := revokedAt
			rec.RevokedAt = &at
			f.records[hash] = rec
		}
	}
	return nil
}

type portalConfig struct{ ttl time.Duration }

func (c portalConfig) GetCustomerTokenTTL() time.Duration { return c.ttl }
func (portalConfig) GetAppBaseURL() string                { return "http://localhost:4200" }

func newService(store *fakeStore, ttl time.Duration) *Service {
	return New(store, portalConfig{ttl: ttl}, logger.New("development"))
}

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	store := newFakeStore()
	svc := newService(store, 30*24*time.Hour)
	quoteID := uuid.New()

	clear, err := svc.Issue(context.Background(), quoteID, "anna@example.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if clear == "" {
		t.Fatal("empty token")
	}

	// Only the hash is at rest.
	for hash := range store.records {
		if hash == clear {
			t.Fatal("clear-text token stored")
		}
	}

	v := svc.Verify(context.Background(), clear)
	if !v.Valid || v.QuoteID != quoteID || v.CustomerEmail != "anna@example.com" {
		t.Fatalf("verification = %+v, want valid for quote %s", v, quoteID)
	}
}

func TestVerifyFailsClosed(t *testing.T) {
	svc := newService(newFakeStore(), time.Hour)

	for _, presented := range []string{"", "garbage", "eyJhbGciOiJIUzI1NiJ9.e30.x"} {
		if v := svc.Verify(context.Background(), presented); v.Valid {
			t.Fatalf("token %q verified", presented)
		}
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	store := newFakeStore()
	svc := newService(store, time.Hour)

	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	clear, err := svc.Issue(context.Background(), uuid.New(), "anna@example.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	svc.now = func() time.Time { return base.Add(time.Hour + time.Minute) }
	if v := svc.Verify(context.Background(), clear); v.Valid {
		t.Fatal("expired token verified")
	}
}

func TestReissueRevokesPriorTokens(t *testing.T) {
	store := newFakeStore()
	svc := newService(store, time.Hour)
	quoteID := uuid.New()

	first, err := svc.Issue(context.Background(), quoteID, "anna@example.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	second, err := svc.Issue(context.Background(), quoteID, "anna@example.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if v := svc.Verify(context.Background(), first); v.Valid {
		t.Fatal("revoked token still verifies")
	}
	if v := svc.Verify(context.Background(), second); !v.Valid {
		t.Fatal("fresh token does not verify")
	}
}
