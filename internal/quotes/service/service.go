// Package service implements the quote lifecycle: draft creation on an
// accepted lead, sending to the customer, and recording the customer's
// portal decision.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"arborlead_backend/internal/events"
	leadsdomain "arborlead_backend/internal/leads/domain"
	leadsrepo "arborlead_backend/internal/leads/repository"
	"arborlead_backend/internal/quotes/domain"
	"arborlead_backend/internal/quotes/repository"
	"arborlead_backend/internal/quotes/transport"
	"arborlead_backend/platform/apperr"
	"arborlead_backend/platform/config"
	"arborlead_backend/platform/logger"

	"github.com/google/uuid"
)

// Store is the persistence surface the quote lifecycle needs.
type Store interface {
	CreateWithItems(ctx context.Context, quote *repository.Quote, items []repository.Item) error
	GetByID(ctx context.Context, id uuid.UUID) (repository.Quote, error)
	GetItems(ctx context.Context, quoteID uuid.UUID) ([]repository.Item, error)
	ListByLead(ctx context.Context, leadID uuid.UUID) ([]repository.Quote, error)
	ListByPartner(ctx context.Context, partnerID uuid.UUID) ([]repository.Quote, error)
	Send(ctx context.Context, quoteID, partnerID uuid.UUID, sentAt time.Time) (repository.Quote, error)
	Respond(ctx context.Context, quoteID uuid.UUID, to domain.Status, feedback *string, respondedAt time.Time) (repository.Quote, error)
}

// LeadMirror reads lead details and reflects quote decisions onto the lead.
// Implemented by the leads repository.
type LeadMirror interface {
	GetByID(ctx context.Context, id uuid.UUID) (leadsrepo.Lead, error)
	MirrorQuoteResponse(ctx context.Context, leadID uuid.UUID, to leadsdomain.Status, respondedAt time.Time) error
}

// TokenIssuer mints customer portal tokens when a quote goes out.
type TokenIssuer interface {
	Issue(ctx context.Context, quoteID uuid.UUID, customerEmail string) (string, error)
}

// Service orchestrates quote operations.
type Service struct {
	repo   Store
	leads  LeadMirror
	tokens TokenIssuer
	bus    events.Bus
	cfg    config.LeadConfig
	log    *logger.Logger
	now    func() time.Time
}

// New creates the quote service.
func New(repo Store, leads LeadMirror, tokens TokenIssuer, cfg config.LeadConfig, log *logger.Logger) *Service {
	return &Service{
		repo:   repo,
		leads:  leads,
		tokens: tokens,
		cfg:    cfg,
		log:    log,
		now:    time.Now,
	}
}

// SetEventBus wires the domain event bus (optional).
func (s *Service) SetEventBus(bus events.Bus) {
	s.bus = bus
}

// Create validates the items, computes totals, and inserts a draft quote
// while moving the lead accepted → quoted in one transaction.
func (s *Service) Create(ctx context.Context, partnerID uuid.UUID, req transport.CreateQuoteRequest) (repository.Quote, []repository.Item, error) {
	now := s.now().UTC()

	quote := repository.Quote{
		ID:        uuid.New(),
		LeadID:    req.LeadID,
		PartnerID: partnerID,
		Status:    domain.StatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}

	items := make([]repository.Item, 0, len(req.Items))
	lines := make([]domain.Line, 0, len(req.Items))
	for i, raw := range req.Items {
		species, err := domain.ValidateSpecies(raw.TreeSpecies)
		if err != nil {
			return repository.Quote{}, nil, err
		}
		op, err := domain.ValidateOperation(raw.OperationType, raw.CustomOperation)
		if err != nil {
			return repository.Quote{}, nil, err
		}

		item := repository.Item{
			ID:            uuid.New(),
			QuoteID:       quote.ID,
			SortOrder:     i,
			Quantity:      raw.Quantity,
			TreeSpecies:   species,
			OperationType: op,
			CostOre:       raw.CostOre,
			CreatedAt:     now,
		}
		if raw.CustomOperation != "" {
			custom := raw.CustomOperation
			item.CustomOperation = &custom
		}
		items = append(items, item)
		lines = append(lines, domain.Line{Quantity: raw.Quantity, CostOre: raw.CostOre})
	}

	quote.TotalOre = domain.Total(lines)
	quote.CommissionOre = domain.Commission(quote.TotalOre, s.cfg.GetCommissionBps())

	if err := s.repo.CreateWithItems(ctx, &quote, items); err != nil {
		return repository.Quote{}, nil, err
	}

	s.log.LifecycleEvent("quote", quote.ID.String(), "", string(domain.StatusDraft))
	return quote, items, nil
}

// Send moves a draft quote to sent, issues a customer portal token, and
// publishes quote.sent for the notification pipeline.
func (s *Service) Send(ctx context.Context, quoteID, partnerID uuid.UUID) (repository.Quote, error) {
	now := s.now().UTC()

	quote, err := s.repo.Send(ctx, quoteID, partnerID, now)
	if err != nil {
		return repository.Quote{}, err
	}
	s.log.LifecycleEvent("quote", quote.ID.String(), string(domain.StatusDraft), string(domain.StatusSent))

	lead, err := s.leads.GetByID(ctx, quote.LeadID)
	if err != nil {
		s.log.Error("failed to load lead for sent quote", "quoteId", quote.ID, "error", err)
		return quote, nil
	}

	var portalToken string
	if s.tokens != nil {
		portalToken, err = s.tokens.Issue(ctx, quote.ID, lead.CustomerEmail)
		if err != nil {
			s.log.Error("failed to issue portal token", "quoteId", quote.ID, "error", err)
		}
	}

	if s.bus != nil {
		s.bus.Publish(ctx, events.QuoteSent{
			BaseEvent:     events.NewBaseEvent(),
			QuoteID:       quote.ID,
			LeadID:        quote.LeadID,
			CustomerEmail: lead.CustomerEmail,
			CustomerName:  lead.CustomerName,
			TotalOre:      quote.TotalOre,
			PortalToken:   portalToken,
		})
	}
	return quote, nil
}

// Respond records a customer's decision on a sent quote and mirrors it
// onto the lead. A second call on the same quote is a conflict; the first
// decision stands.
func (s *Service) Respond(ctx context.Context, quoteID uuid.UUID, decision, feedback string) (repository.Quote, error) {
	var to domain.Status
	switch decision {
	case string(domain.StatusApproved):
		to = domain.StatusApproved
	case string(domain.StatusDeclined):
		to = domain.StatusDeclined
	default:
		return repository.Quote{}, apperr.Validation("decision must be approved or declined")
	}

	now := s.now().UTC()
	var feedbackPtr *string
	if feedback != "" {
		feedbackPtr = &feedback
	}

	quote, err := s.repo.Respond(ctx, quoteID, to, feedbackPtr, now)
	if err != nil {
		return repository.Quote{}, err
	}
	s.log.LifecycleEvent("quote", quote.ID.String(), string(domain.StatusSent), string(to))

	// The quote row is authoritative; the lead mirror is informational and
	// its failure must not undo the customer's decision.
	leadStatus := leadsdomain.StatusApproved
	if to == domain.StatusDeclined {
		leadStatus = leadsdomain.StatusDeclined
	}
	if err := s.leads.MirrorQuoteResponse(ctx, quote.LeadID, leadStatus, now); err != nil {
		s.log.Error("failed to mirror quote response onto lead", "quoteId", quote.ID, "leadId", quote.LeadID, "error", err)
	}

	if s.bus != nil {
		s.bus.Publish(ctx, events.QuoteResponded{
			BaseEvent:     events.NewBaseEvent(),
			QuoteID:       quote.ID,
			LeadID:        quote.LeadID,
			PartnerID:     quote.PartnerID,
			Decision:      string(to),
			Feedback:      feedback,
			TotalOre:      quote.TotalOre,
			CommissionOre: quote.CommissionOre,
		})
	}
	return quote, nil
}

// Get returns a quote with its items.
func (s *Service) Get(ctx context.Context, quoteID uuid.UUID) (repository.Quote, []repository.Item, error) {
	quote, err := s.repo.GetByID(ctx, quoteID)
	if err != nil {
		return repository.Quote{}, nil, err
	}
	items, err := s.repo.GetItems(ctx, quoteID)
	if err != nil {
		return repository.Quote{}, nil, err
	}
	return quote, items, nil
}

// ListByLead returns a lead's quotes.
func (s *Service) ListByLead(ctx context.Context, leadID uuid.UUID) ([]repository.Quote, error) {
	return s.repo.ListByLead(ctx, leadID)
}

// ListByPartner returns a partner's quotes.
func (s *Service) ListByPartner(ctx context.Context, partnerID uuid.UUID) ([]repository.Quote, error) {
	return s.repo.ListByPartner(ctx, partnerID)
}

// OffertText renders the customer-facing offer summary in Swedish.
func OffertText(quote repository.Quote, items []repository.Item) string {
	var b strings.Builder
	b.WriteString("Offert för arbete:\n")
	for _, item := range items {
		operation := string(item.OperationType)
		if item.OperationType == domain.OpOther && item.CustomOperation != nil {
			operation = *item.CustomOperation
		}
		fmt.Fprintf(&b, "%dx %s - %s à %s SEK\n", item.Quantity, item.TreeSpecies, operation, formatKronor(item.CostOre))
	}
	fmt.Fprintf(&b, "\nTotal: %s SEK", formatKronor(quote.TotalOre))
	return b.String()
}

// formatKronor renders öre as kronor with two decimals.
func formatKronor(ore int64) string {
	sign := ""
	if ore < 0 {
		sign = "-"
		ore = -ore
	}
	return fmt.Sprintf("%s%d.%02d", sign, ore/100, ore%100)
}
