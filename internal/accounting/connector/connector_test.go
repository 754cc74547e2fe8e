package connector

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
)

func TestNewSelectsProviderFromSettings(t *testing.T) {
	for _, provider := range []string{"quickbooks", "xero", "fortnox", "visma"} {
		conn, err := New(Settings{Provider: provider, BaseURL: "https://api.example.com", APIKey: "k"})
		if err != nil {
			t.Fatalf("New(%s): %v", provider, err)
		}
		if conn.Name() != provider {
			t.Fatalf("Name() = %s, want %s", conn.Name(), provider)
		}
	}

	if _, err := New(Settings{Provider: "bokio"}); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}

func TestLoadSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounting.yaml")
	content := []byte(`accounting:
  provider: fortnox
  base_url: https://api.fortnox.se
  api_key: secret
  company_id: "42"
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	settings, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if settings.Provider != "fortnox" || settings.CompanyID != "42" {
		t.Fatalf("unexpected settings: %+v", settings)
	}

	if _, err := LoadSettings(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestFortnoxSubmitInvoice(t *testing.T) {
	var gotPath, gotToken string
	var gotInvoice Invoice

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotToken = r.Header.Get("Access-Token")
		if err := json.NewDecoder(r.Body).Decode(&gotInvoice); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "fx-9"})
	}))
	defer srv.Close()

	conn, err := New(Settings{Provider: "fortnox", BaseURL: srv.URL, APIKey: "secret"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ref, err := conn.SubmitInvoice(context.Background(), Invoice{
		QuoteID:  uuid.New(),
		NetOre:   100000,
		VATOre:   25000,
		GrossOre: 125000,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if ref != "fx-9" {
		t.Fatalf("ref = %s, want fx-9", ref)
	}
	if gotPath != "/3/invoices" {
		t.Fatalf("path = %s", gotPath)
	}
	if gotToken != "secret" {
		t.Fatalf("token header = %q", gotToken)
	}
	if gotInvoice.GrossOre != 125000 {
		t.Fatalf("gross = %d", gotInvoice.GrossOre)
	}
}

func TestSubmitInvoiceRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	conn, err := New(Settings{Provider: "visma", BaseURL: srv.URL, APIKey: "k"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := conn.SubmitInvoice(context.Background(), Invoice{}); err == nil {
		t.Fatalf("expected error for 502 response")
	}
}
