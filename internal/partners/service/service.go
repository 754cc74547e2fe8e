// Package service implements partner billing and ranking. The debt ledger
// accumulates lead fees and commissions; monthly settlement turns the
// balance into an invoice and resets it.
package service

import (
	"context"
	"sort"
	"time"

	"arborlead_backend/internal/events"
	leadsvc "arborlead_backend/internal/leads/service"
	"arborlead_backend/internal/partners/repository"
	"arborlead_backend/platform/logger"

	"github.com/google/uuid"
)

// Store is the persistence surface for partner operations.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (repository.Partner, error)
	List(ctx context.Context, region string) ([]repository.Partner, error)
	AddDebt(ctx context.Context, partnerID uuid.UUID, amountOre int64) error
	SettleDebts(ctx context.Context, period string, now time.Time) ([]repository.Invoice, error)
	ListInvoices(ctx context.Context, partnerID uuid.UUID) ([]repository.Invoice, error)
	PerformanceStats(ctx context.Context, region string) ([]repository.Stats, error)
}

// RankedPartner is a partner with its performance figures.
type RankedPartner struct {
	Partner         repository.Partner
	AcceptanceRate  float64
	AvgResponseSecs float64
}

// Service provides partner directory, billing, and ranking operations.
type Service struct {
	repo Store
	log  *logger.Logger
	now  func() time.Time
}

// New creates the partners service.
func New(repo Store, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log, now: time.Now}
}

// GetPartner resolves a partner for the leads module.
func (s *Service) GetPartner(ctx context.Context, id uuid.UUID) (leadsvc.PartnerInfo, error) {
	partner, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return leadsvc.PartnerInfo{}, err
	}
	return leadsvc.PartnerInfo{
		ID:     partner.ID,
		Email:  partner.Email,
		Region: partner.Region,
	}, nil
}

// PartnerEmail resolves a partner id to its address for notifications.
func (s *Service) PartnerEmail(ctx context.Context, id uuid.UUID) (string, error) {
	partner, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return partner.Email, nil
}

// Get returns a partner with ledger balance.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (repository.Partner, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns active partners, optionally filtered by region.
func (s *Service) List(ctx context.Context, region string) ([]repository.Partner, error) {
	return s.repo.List(ctx, region)
}

// ChargeLeadFee adds the fixed lead fee to the partner's ledger. The
// caller guarantees once-per-lead semantics via the lead's billed flag.
func (s *Service) ChargeLeadFee(ctx context.Context, partnerID, leadID uuid.UUID, amountOre int64) error {
	if err := s.repo.AddDebt(ctx, partnerID, amountOre); err != nil {
		return err
	}
	s.log.Info("charged lead fee", "partnerId", partnerID, "leadId", leadID, "amountOre", amountOre)
	return nil
}

// ChargeCommission adds the platform's cut of an approved quote to the
// partner's ledger.
func (s *Service) ChargeCommission(ctx context.Context, partnerID, quoteID uuid.UUID, commissionOre int64) error {
	if err := s.repo.AddDebt(ctx, partnerID, commissionOre); err != nil {
		return err
	}
	s.log.Info("charged commission", "partnerId", partnerID, "quoteId", quoteID, "amountOre", commissionOre)
	return nil
}

// GenerateMonthlyInvoices settles every indebted partner's ledger for the
// current period. Re-running in the same period only touches partners who
// accrued new debt since the last run.
func (s *Service) GenerateMonthlyInvoices(ctx context.Context) ([]repository.Invoice, error) {
	now := s.now().UTC()
	period := now.Format("2006-01")

	invoices, err := s.repo.SettleDebts(ctx, period, now)
	if err != nil {
		return nil, err
	}
	s.log.Info("generated partner invoices", "period", period, "count", len(invoices))
	return invoices, nil
}

// ListInvoices returns a partner's settlement history.
func (s *Service) ListInvoices(ctx context.Context, partnerID uuid.UUID) ([]repository.Invoice, error) {
	return s.repo.ListInvoices(ctx, partnerID)
}

// TopPartners ranks partners by acceptance rate, breaking ties with the
// faster average response time.
func (s *Service) TopPartners(ctx context.Context, region string, limit int) ([]RankedPartner, error) {
	partners, err := s.repo.List(ctx, region)
	if err != nil {
		return nil, err
	}
	stats, err := s.repo.PerformanceStats(ctx, region)
	if err != nil {
		return nil, err
	}

	byPartner := make(map[uuid.UUID]repository.Stats, len(stats))
	for _, st := range stats {
		byPartner[st.PartnerID] = st
	}

	ranked := make([]RankedPartner, 0, len(partners))
	for _, partner := range partners {
		st := byPartner[partner.ID]
		ranked = append(ranked, RankedPartner{
			Partner:         partner,
			AcceptanceRate:  st.AcceptanceRate,
			AvgResponseSecs: st.AvgResponseSecs,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].AcceptanceRate != ranked[j].AcceptanceRate {
			return ranked[i].AcceptanceRate > ranked[j].AcceptanceRate
		}
		return ranked[i].AvgResponseSecs < ranked[j].AvgResponseSecs
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// SubscribeCommissionCharging registers the quote.responded listener that
// bills commissions on approvals.
func (s *Service) SubscribeCommissionCharging(bus events.Bus) {
	bus.Subscribe(events.EventQuoteResponded, events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.QuoteResponded)
		if !ok || e.Decision != "approved" {
			return nil
		}
		if err := s.ChargeCommission(ctx, e.PartnerID, e.QuoteID, e.CommissionOre); err != nil {
			s.log.Error("failed to charge commission", "quoteId", e.QuoteID, "partnerId", e.PartnerID, "error", err)
			return err
		}
		return nil
	}))
}
