// Package connector holds the thin HTTP clients for the external
// bookkeeping providers. All providers receive the same invoice shape;
// only endpoint paths and auth headers differ.
package connector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Invoice is the provider-neutral invoice submitted for bookkeeping.
// Amounts are in öre.
type Invoice struct {
	QuoteID     uuid.UUID `json:"quoteId"`
	PartnerID   uuid.UUID `json:"partnerId"`
	NetOre      int64     `json:"netOre"`
	VATOre      int64     `json:"vatOre"`
	GrossOre    int64     `json:"grossOre"`
	Description string    `json:"description"`
	IssuedAt    time.Time `json:"issuedAt"`
}

// Connector submits invoices to one bookkeeping provider and returns the
// provider's reference for the created document.
type Connector interface {
	Name() string
	SubmitInvoice(ctx context.Context, inv Invoice) (externalRef string, err error)
}

// Settings configures a provider client.
type Settings struct {
	Provider  string `yaml:"provider"`
	BaseURL   string `yaml:"base_url"`
	APIKey    string `yaml:"api_key"`
	CompanyID string `yaml:"company_id"`
}

const requestTimeout = 10 * time.Second

// New returns the connector selected by settings.
func New(s Settings) (Connector, error) {
	client := &http.Client{Timeout: requestTimeout}
	switch s.Provider {
	case "quickbooks":
		return &quickbooks{settings: s, client: client}, nil
	case "xero":
		return &xero{settings: s, client: client}, nil
	case "fortnox":
		return &fortnox{settings: s, client: client}, nil
	case "visma":
		return &visma{settings: s, client: client}, nil
	default:
		return nil, fmt.Errorf("unknown accounting provider %q", s.Provider)
	}
}

// postInvoice is the shared request cycle. Each provider supplies its
// path and auth header.
func postInvoice(ctx context.Context, client *http.Client, url string, headers map[string]string, inv Invoice) (string, error) {
	body, err := json.Marshal(inv)
	if err != nil {
		return "", fmt.Errorf("failed to marshal invoice: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("provider request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("provider returned status %d", resp.StatusCode)
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode provider response: %w", err)
	}
	if out.ID == "" {
		return "", fmt.Errorf("provider response missing document id")
	}
	return out.ID, nil
}
