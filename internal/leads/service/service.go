// Package service implements the lead lifecycle: assignment, partner
// decisions, expiry, and the admin recall/complete paths. Every transition
// is delegated to a single conditional update in the store, so concurrent
// actors resolve in the database rather than in process memory.
package service

import (
	"context"
	"time"

	"arborlead_backend/internal/events"
	"arborlead_backend/internal/leads/domain"
	"arborlead_backend/internal/leads/repository"
	"arborlead_backend/internal/leads/transport"
	"arborlead_backend/platform/apperr"
	"arborlead_backend/platform/config"
	"arborlead_backend/platform/logger"
	"arborlead_backend/platform/phone"

	"github.com/google/uuid"
)

// Store is the persistence surface the lifecycle service needs.
// Implemented by the leads repository; faked in tests.
type Store interface {
	Create(ctx context.Context, lead *repository.Lead) error
	GetByID(ctx context.Context, id uuid.UUID) (repository.Lead, error)
	List(ctx context.Context, params repository.ListParams) ([]repository.Lead, error)
	Assign(ctx context.Context, leadID, partnerID uuid.UUID, assignedAt, expiresAt time.Time) (repository.Lead, error)
	PartnerDecide(ctx context.Context, leadID, partnerID uuid.UUID, to domain.Status, decidedAt time.Time) (repository.Lead, error)
	Recall(ctx context.Context, leadID uuid.UUID, now time.Time) (repository.Lead, error)
	Complete(ctx context.Context, leadID uuid.UUID, now time.Time) (repository.Lead, error)
	MarkBilled(ctx context.Context, leadID uuid.UUID, now time.Time) (bool, error)
	SweepExpired(ctx context.Context, now time.Time) ([]uuid.UUID, error)
	RecordDetailView(ctx context.Context, leadID uuid.UUID) error
}

// PartnerInfo is the minimal partner projection the lifecycle needs.
type PartnerInfo struct {
	ID     uuid.UUID
	Email  string
	Region string
}

// PartnerDirectory resolves partners from the partners module.
type PartnerDirectory interface {
	GetPartner(ctx context.Context, id uuid.UUID) (PartnerInfo, error)
}

// Billing charges the lead fee to a partner's debt ledger on acceptance.
// Failures are logged, never rolled back into the lifecycle transition.
type Billing interface {
	ChargeLeadFee(ctx context.Context, partnerID, leadID uuid.UUID, amountOre int64) error
}

// Service orchestrates lead lifecycle operations.
type Service struct {
	repo     Store
	partners PartnerDirectory
	billing  Billing
	bus      events.Bus
	cfg      config.LeadConfig
	log      *logger.Logger
	now      func() time.Time
}

// New creates the lifecycle service.
func New(repo Store, partners PartnerDirectory, billing Billing, cfg config.LeadConfig, log *logger.Logger) *Service {
	return &Service{
		repo:     repo,
		partners: partners,
		billing:  billing,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

// SetEventBus wires the domain event bus (optional).
func (s *Service) SetEventBus(bus events.Bus) {
	s.bus = bus
}

// Create registers an inbound inquiry in status new. The phone number is
// normalized to E.164 when it parses.
func (s *Service) Create(ctx context.Context, req transport.CreateLeadRequest) (repository.Lead, error) {
	now := s.now().UTC()

	lead := repository.Lead{
		ID:            uuid.New(),
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: phone.NormalizeE164(req.CustomerPhone),
		Address:       req.Address,
		City:          req.City,
		PostalCode:    req.PostalCode,
		Region:        req.Region,
		Summary:       req.Summary,
		Status:        domain.StatusNew,
		LeadFeeOre:    s.cfg.GetLeadFeeOre(),
		CommissionBps: s.cfg.GetCommissionBps(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if req.Details != "" {
		details := req.Details
		lead.Details = &details
	}

	if err := s.repo.Create(ctx, &lead); err != nil {
		return repository.Lead{}, err
	}
	return lead, nil
}

// Get fetches a lead. The caller maps the expiry-aware effective status.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (repository.Lead, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns leads matching the filter.
func (s *Service) List(ctx context.Context, params repository.ListParams) ([]repository.Lead, error) {
	return s.repo.List(ctx, params)
}

// Assign moves a new lead to a partner. The store guards the new → assigned
// step, so of two racing assigns exactly one succeeds.
func (s *Service) Assign(ctx context.Context, leadID, partnerID uuid.UUID) (repository.Lead, error) {
	partner, err := s.partners.GetPartner(ctx, partnerID)
	if err != nil {
		return repository.Lead{}, err
	}

	now := s.now().UTC()
	expiresAt := now.Add(s.cfg.GetLeadExpiry())

	lead, err := s.repo.Assign(ctx, leadID, partnerID, now, expiresAt)
	if err != nil {
		return repository.Lead{}, err
	}

	s.log.LifecycleEvent("lead", lead.ID.String(), string(domain.StatusNew), string(domain.StatusAssigned))
	if s.bus != nil {
		s.bus.Publish(ctx, events.LeadAssigned{
			BaseEvent:    events.NewBaseEvent(),
			LeadID:       lead.ID,
			PartnerID:    partnerID,
			PartnerEmail: partner.Email,
			Region:       lead.Region,
			ExpiresAt:    expiresAt,
		})
	}
	return lead, nil
}

// Accept records the owning partner's acceptance and charges the lead fee.
// The store predicate rejects expired-but-unswept leads.
func (s *Service) Accept(ctx context.Context, leadID, partnerID uuid.UUID) (repository.Lead, error) {
	now := s.now().UTC()

	lead, err := s.repo.PartnerDecide(ctx, leadID, partnerID, domain.StatusAccepted, now)
	if err != nil {
		return repository.Lead{}, err
	}

	s.log.LifecycleEvent("lead", lead.ID.String(), string(domain.StatusAssigned), string(domain.StatusAccepted))
	s.chargeLeadFee(ctx, lead, partnerID, now)

	if s.bus != nil {
		s.bus.Publish(ctx, events.LeadAccepted{
			BaseEvent:     events.NewBaseEvent(),
			LeadID:        lead.ID,
			PartnerID:     partnerID,
			CustomerEmail: lead.CustomerEmail,
			CustomerName:  lead.CustomerName,
			LeadFeeOre:    lead.LeadFeeOre,
		})
	}
	return lead, nil
}

// Reject records the owning partner's rejection; terminal for the lead.
func (s *Service) Reject(ctx context.Context, leadID, partnerID uuid.UUID) (repository.Lead, error) {
	now := s.now().UTC()

	lead, err := s.repo.PartnerDecide(ctx, leadID, partnerID, domain.StatusRejected, now)
	if err != nil {
		return repository.Lead{}, err
	}

	s.log.LifecycleEvent("lead", lead.ID.String(), string(domain.StatusAssigned), string(domain.StatusRejected))
	if s.bus != nil {
		s.bus.Publish(ctx, events.LeadRejected{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    lead.ID,
			PartnerID: partnerID,
		})
	}
	return lead, nil
}

// Recall is the admin path moving an assigned lead back to new for
// reassignment.
func (s *Service) Recall(ctx context.Context, leadID uuid.UUID) (repository.Lead, error) {
	lead, err := s.repo.Recall(ctx, leadID, s.now().UTC())
	if err != nil {
		return repository.Lead{}, err
	}
	s.log.LifecycleEvent("lead", lead.ID.String(), string(domain.StatusAssigned), string(domain.StatusNew))
	return lead, nil
}

// Complete marks an approved lead's job as finished.
func (s *Service) Complete(ctx context.Context, leadID uuid.UUID) (repository.Lead, error) {
	lead, err := s.repo.Complete(ctx, leadID, s.now().UTC())
	if err != nil {
		return repository.Lead{}, err
	}
	s.log.LifecycleEvent("lead", lead.ID.String(), string(domain.StatusApproved), string(domain.StatusCompleted))
	return lead, nil
}

// PartnerDetail returns a lead for the owning partner and records the view.
// Pre-acceptance views bump the counter; that feeds the KPI reporting.
func (s *Service) PartnerDetail(ctx context.Context, leadID, partnerID uuid.UUID) (repository.Lead, error) {
	lead, err := s.repo.GetByID(ctx, leadID)
	if err != nil {
		return repository.Lead{}, err
	}
	if lead.AssignedPartnerID == nil || *lead.AssignedPartnerID != partnerID {
		return repository.Lead{}, apperr.Forbidden("lead is not assigned to this partner")
	}

	if lead.Status == domain.StatusAssigned {
		if err := s.repo.RecordDetailView(ctx, lead.ID); err != nil {
			s.log.Error("failed to record lead view", "leadId", lead.ID, "error", err)
		}
	}
	return lead, nil
}

// SweepExpired eagerly materializes overdue assignments; used by the
// scheduler. The lazy guard in PartnerDecide stays authoritative.
func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	now := s.now().UTC()
	ids, err := s.repo.SweepExpired(ctx, now)
	if err != nil {
		return 0, err
	}

	for _, id := range ids {
		s.log.LifecycleEvent("lead", id.String(), string(domain.StatusAssigned), string(domain.StatusExpired))
		if s.bus != nil {
			s.bus.Publish(ctx, events.LeadExpired{
				BaseEvent: events.NewBaseEvent(),
				LeadID:    id,
			})
		}
	}
	return len(ids), nil
}

// chargeLeadFee bills the fixed fee exactly once per lead. The transition
// has already committed; a billing failure is logged and left to the debt
// reconciliation, never propagated.
func (s *Service) chargeLeadFee(ctx context.Context, lead repository.Lead, partnerID uuid.UUID, now time.Time) {
	if s.billing == nil {
		return
	}

	first, err := s.repo.MarkBilled(ctx, lead.ID, now)
	if err != nil {
		s.log.Error("failed to mark lead billed", "leadId", lead.ID, "error", err)
		return
	}
	if !first {
		return
	}

	if err := s.billing.ChargeLeadFee(ctx, partnerID, lead.ID, lead.LeadFeeOre); err != nil {
		s.log.Error("failed to charge lead fee", "leadId", lead.ID, "partnerId", partnerID, "error", err)
	}
}
