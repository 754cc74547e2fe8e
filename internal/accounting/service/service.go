// Package service builds bookkeeping invoices from approved quotes and
// pushes them to the configured provider. Submission runs out of band;
// a provider outage never touches the quote lifecycle.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"arborlead_backend/internal/accounting/connector"
	"arborlead_backend/internal/accounting/repository"
	"arborlead_backend/internal/events"
	"arborlead_backend/platform/logger"
)

// Swedish VAT on arborist services.
const vatBps = 2500

// Store is what the service needs from the accounting repository.
type Store interface {
	Create(ctx context.Context, inv repository.Invoice) error
	GetByQuoteID(ctx context.Context, quoteID uuid.UUID) (repository.Invoice, error)
	ListUnsynced(ctx context.Context, limit int) ([]repository.Invoice, error)
	MarkSynced(ctx context.Context, id uuid.UUID, externalRef string) error
	MarkSyncFailed(ctx context.Context, id uuid.UUID, cause string) error
}

// Service owns invoice creation and provider sync.
type Service struct {
	repo      Store
	connector connector.Connector
	log       *logger.Logger
}

// New creates the accounting service.
func New(repo Store, conn connector.Connector, log *logger.Logger) *Service {
	return &Service{repo: repo, connector: conn, log: log}
}

// VATOre returns the VAT amount for a net total, rounded half up at the
// öre.
func VATOre(netOre int64) int64 {
	return (netOre*vatBps + 5000) / 10000
}

// Subscribe registers the invoice creation listener for customer
// approvals.
func (s *Service) Subscribe(bus events.Bus) {
	bus.Subscribe(events.EventQuoteResponded, events.HandlerFunc(s.onQuoteResponded))
}

func (s *Service) onQuoteResponded(ctx context.Context, event events.Event) error {
	e, ok := event.(events.QuoteResponded)
	if !ok || e.Decision != "approved" {
		return nil
	}

	vat := VATOre(e.TotalOre)
	inv := repository.Invoice{
		ID:        uuid.New(),
		QuoteID:   e.QuoteID,
		PartnerID: e.PartnerID,
		NetOre:    e.TotalOre,
		VATOre:    vat,
		GrossOre:  e.TotalOre + vat,
		Provider:  s.connector.Name(),
	}
	if err := s.repo.Create(ctx, inv); err != nil {
		return fmt.Errorf("failed to record invoice for quote %s: %w", e.QuoteID, err)
	}

	s.log.Info("accounting invoice recorded",
		slog.String("quote_id", e.QuoteID.String()),
		slog.Int64("gross_ore", inv.GrossOre),
		slog.String("provider", inv.Provider),
	)
	return nil
}

// Status returns the sync state of a quote's invoice.
func (s *Service) Status(ctx context.Context, quoteID uuid.UUID) (repository.Invoice, error) {
	return s.repo.GetByQuoteID(ctx, quoteID)
}

// SyncPending submits a batch of pending invoices to the provider.
// Failures are recorded per invoice and never abort the batch. Returns
// the number of invoices synced.
func (s *Service) SyncPending(ctx context.Context, batchSize int) (int, error) {
	pending, err := s.repo.ListUnsynced(ctx, batchSize)
	if err != nil {
		return 0, err
	}

	synced := 0
	for _, inv := range pending {
		ref, err := s.connector.SubmitInvoice(ctx, connector.Invoice{
			QuoteID:     inv.QuoteID,
			PartnerID:   inv.PartnerID,
			NetOre:      inv.NetOre,
			VATOre:      inv.VATOre,
			GrossOre:    inv.GrossOre,
			Description: fmt.Sprintf("Trädvårdsarbete, offert %s", inv.QuoteID),
			IssuedAt:    inv.CreatedAt,
		})
		if err != nil {
			s.log.Error("invoice sync failed",
				slog.String("invoice_id", inv.ID.String()),
				slog.String("provider", s.connector.Name()),
				slog.Int("attempts", inv.Attempts+1),
				slog.String("error", err.Error()),
			)
			if markErr := s.repo.MarkSyncFailed(ctx, inv.ID, err.Error()); markErr != nil {
				s.log.DatabaseError("invoice mark failed", markErr)
			}
			continue
		}
		if err := s.repo.MarkSynced(ctx, inv.ID, ref); err != nil {
			s.log.DatabaseError("invoice mark synced", err)
			continue
		}
		synced++
	}
	return synced, nil
}
