package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	leadsdomain "arborlead_backend/internal/leads/domain"
	leadsrepo "arborlead_backend/internal/leads/repository"
	"arborlead_backend/internal/quotes/domain"
	"arborlead_backend/internal/quotes/repository"
	"arborlead_backend/internal/quotes/transport"
	"arborlead_backend/platform/apperr"
	"arborlead_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeStore struct {
	mu     sync.Mutex
	quotes map[uuid.UUID]repository.Quote
	items  map[uuid.UUID][]repository.Item
	leads  *fakeLeads
}

func newFakeStore(leads *fakeLeads) *fakeStore {
	return &fakeStore{
		quotes: make(map[uuid.UUID]repository.Quote),
		items:  make(map[uuid.UUID][]repository.Item),
		leads:  leads,
	}
}

func (f *fakeStore) CreateWithItems(_ context.Context, quote *repository.Quote, items []repository.Item) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	lead, ok := f.leads.leads[quote.LeadID]
	if !ok {
		return apperr.NotFound("lead not found")
	}
	if lead.AssignedPartnerID == nil || *lead.AssignedPartnerID != quote.PartnerID {
		return apperr.Forbidden("lead is not assigned to this partner")
	}
	if lead.Status != leadsdomain.StatusAccepted {
		return apperr.Conflict(fmt.Sprintf("lead is %s", lead.Status))
	}
	lead.Status = leadsdomain.StatusQuoted
	f.leads.leads[quote.LeadID] = lead
	f.quotes[quote.ID] = *quote
	f.items[quote.ID] = items
	return nil
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (repository.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	quote, ok := f.quotes[id]
	if !ok {
		return repository.Quote{}, apperr.NotFound("quote not found")
	}
	return quote, nil
}

func (f *fakeStore) GetItems(_ context.Context, quoteID uuid.UUID) ([]repository.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items[quoteID], nil
}

func (f *fakeStore) ListByLead(_ context.Context, leadID uuid.UUID) ([]repository.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repository.Quote
	for _, quote := range f.quotes {
		if quote.LeadID == leadID {
			out = append(out, quote)
		}
	}
	return out, nil
}

func (f *fakeStore) ListByPartner(_ context.Context, partnerID uuid.UUID) ([]repository.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repository.Quote
	for _, quote := range f.quotes {
		if quote.PartnerID == partnerID {
			out = append(out, quote)
		}
	}
	return out, nil
}

func (f *fakeStore) Send(_ context.Context, quoteID, partnerID uuid.UUID, sentAt time.Time) (repository.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	quote, ok := f.quotes[quoteID]
	if !ok {
		return repository.Quote{}, apperr.NotFound("quote not found")
	}
	if quote.PartnerID != partnerID {
		return repository.Quote{}, apperr.Forbidden("quote does not belong to this partner")
	}
	if quote.Status != domain.StatusDraft {
		return repository.Quote{}, apperr.Conflict(fmt.Sprintf("quote is %s", quote.Status))
	}
	quote.Status = domain.StatusSent
	quote.SentAt = &sentAt
	f.quotes[quoteID] = quote
	return quote, nil
}

func (f *fakeStore) Respond(_ context.Context, quoteID uuid.UUID, to domain.Status, feedback *string, respondedAt time.Time) (repository.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	quote, ok := f.quotes[quoteID]
	if !ok {
		return repository.Quote{}, apperr.NotFound("quote not found")
	}
	if quote.Status != domain.StatusSent {
		return repository.Quote{}, apperr.Conflict(fmt.Sprintf("quote is %s", quote.Status))
	}
	if quote.SentAt != nil && respondedAt.Sub(*quote.SentAt) > domain.SentQuoteTTL {
		return repository.Quote{}, apperr.Conflict("quote offer has expired")
	}
	quote.Status = to
	quote.CustomerResponseAt = &respondedAt
	quote.Feedback = feedback
	f.quotes[quoteID] = quote
	return quote, nil
}

type fakeLeads struct {
	mu       sync.Mutex
	leads    map[uuid.UUID]leadsrepo.Lead
	mirrored []leadsdomain.Status
}

func (f *fakeLeads) GetByID(_ context.Context, id uuid.UUID) (leadsrepo.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lead, ok := f.leads[id]
	if !ok {
		return leadsrepo.Lead{}, apperr.NotFound("lead not found")
	}
	return lead, nil
}

func (f *fakeLeads) MirrorQuoteResponse(_ context.Context, leadID uuid.UUID, to leadsdomain.Status, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	lead := f.leads[leadID]
	if lead.Status == leadsdomain.StatusQuoted {
		lead.Status = to
		f.leads[leadID] = lead
	}
	f.mirrored = append(f.mirrored, to)
	return nil
}

type fakeTokens struct {
	issued int
}

func (f *fakeTokens) Issue(_ context.Context, _ uuid.UUID, _ string) (string, error) {
	f.issued++
	return "portal-token", nil
}

type testLeadConfig struct{}

func (testLeadConfig) GetLeadExpiry() time.Duration { return 48 * time.Hour }
func (testLeadConfig) GetLeadFeeOre() int64         { return 50000 }
func (testLeadConfig) GetCommissionBps() int        { return 1000 }

func setup() (*Service, *fakeStore, *fakeLeads, *fakeTokens, uuid.UUID, uuid.UUID) {
	partnerID := uuid.New()
	leadID := uuid.New()
	leads := &fakeLeads{leads: map[uuid.UUID]leadsrepo.Lead{
		leadID: {
			ID:                leadID,
			CustomerName:      "Anna Lind",
			CustomerEmail:     "anna@example.com",
			Status:            leadsdomain.StatusAccepted,
			AssignedPartnerID: &partnerID,
		},
	}}
	store := newFakeStore(leads)
	tokens := &fakeTokens{}
	svc := New(store, leads, tokens, testLeadConfig{}, logger.New("development"))
	return svc, store, leads, tokens, leadID, partnerID
}

func validItems() []transport.QuoteItemRequest {
	return []transport.QuoteItemRequest{
		{Quantity: 2, TreeSpecies: "Tall (Pine)", OperationType: "Trädfällning", CostOre: 10000},
		{Quantity: 1, TreeSpecies: "Ek (Oak)", OperationType: "Stubbfräsning", CostOre: 5000},
	}
}

func TestCreateComputesTotalsAndMovesLead(t *testing.T) {
	svc, _, leads, _, leadID, partnerID := setup()

	quote, items, err := svc.Create(context.Background(), partnerID, transport.CreateQuoteRequest{
		LeadID: leadID,
		Items:  validItems(),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if quote.TotalOre != 25000 {
		t.Fatalf("totalOre = %d, want 25000", quote.TotalOre)
	}
	if quote.CommissionOre != 2500 {
		t.Fatalf("commissionOre = %d, want 2500", quote.CommissionOre)
	}
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
	if leads.leads[leadID].Status != leadsdomain.StatusQuoted {
		t.Fatalf("lead status = %s, want quoted", leads.leads[leadID].Status)
	}
}

func TestCreateRejectsAnnatWithoutCustomText(t *testing.T) {
	svc, _, _, _, leadID, partnerID := setup()

	_, _, err := svc.Create(context.Background(), partnerID, transport.CreateQuoteRequest{
		LeadID: leadID,
		Items: []transport.QuoteItemRequest{
			{Quantity: 1, TreeSpecies: "Tall (Pine)", OperationType: "Annat", CostOre: 10000},
		},
	})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestCreateOnUnacceptedLeadConflicts(t *testing.T) {
	svc, _, leads, _, leadID, partnerID := setup()
	lead := leads.leads[leadID]
	lead.Status = leadsdomain.StatusAssigned
	leads.leads[leadID] = lead

	_, _, err := svc.Create(context.Background(), partnerID, transport.CreateQuoteRequest{
		LeadID: leadID,
		Items:  validItems(),
	})
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
}

func TestSendIssuesTokenAndPublishes(t *testing.T) {
	svc, _, _, tokens, leadID, partnerID := setup()
	bus := newRecordingBus()
	svc.SetEventBus(bus)

	quote, _, err := svc.Create(context.Background(), partnerID, transport.CreateQuoteRequest{
		LeadID: leadID, Items: validItems(),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	sent, err := svc.Send(context.Background(), quote.ID, partnerID)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if sent.Status != domain.StatusSent || sent.SentAt == nil {
		t.Fatalf("status = %s sentAt = %v, want sent with timestamp", sent.Status, sent.SentAt)
	}
	if tokens.issued != 1 {
		t.Fatalf("tokens issued = %d, want 1", tokens.issued)
	}
	if got := bus.names(); len(got) != 1 || got[0] != "quote.sent" {
		t.Fatalf("published = %v, want [quote.sent]", got)
	}

	// Re-sending is a conflict.
	if _, err := svc.Send(context.Background(), quote.ID, partnerID); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("second send err = %v, want conflict", err)
	}
}

func TestRespondIsTerminalAndMirrorsLead(t *testing.T) {
	svc, _, leads, _, leadID, partnerID := setup()

	quote, _, err := svc.Create(context.Background(), partnerID, transport.CreateQuoteRequest{
		LeadID: leadID, Items: validItems(),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Send(context.Background(), quote.ID, partnerID); err != nil {
		t.Fatalf("Send: %v", err)
	}

	responded, err := svc.Respond(context.Background(), quote.ID, "approved", "ser bra ut")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if responded.Status != domain.StatusApproved {
		t.Fatalf("status = %s, want approved", responded.Status)
	}
	if leads.leads[leadID].Status != leadsdomain.StatusApproved {
		t.Fatalf("lead status = %s, want approved", leads.leads[leadID].Status)
	}

	// A replayed decision must not flip the outcome.
	if _, err := svc.Respond(context.Background(), quote.ID, "declined", ""); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("replay err = %v, want conflict", err)
	}
	final, _ := svc.repo.GetByID(context.Background(), quote.ID)
	if final.Status != domain.StatusApproved {
		t.Fatalf("final status = %s, decision must stand", final.Status)
	}
}

func TestRespondAfterOfferWindowConflicts(t *testing.T) {
	svc, _, _, _, leadID, partnerID := setup()

	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	quote, _, err := svc.Create(context.Background(), partnerID, transport.CreateQuoteRequest{
		LeadID: leadID, Items: validItems(),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Send(context.Background(), quote.ID, partnerID); err != nil {
		t.Fatalf("Send: %v", err)
	}

	svc.now = func() time.Time { return base.Add(31 * 24 * time.Hour) }
	if _, err := svc.Respond(context.Background(), quote.ID, "approved", ""); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("err = %v, want conflict after offer window", err)
	}
}

func TestRespondRejectsUnknownDecision(t *testing.T) {
	svc, _, _, _, _, _ := setup()
	if _, err := svc.Respond(context.Background(), uuid.New(), "maybe", ""); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestOffertText(t *testing.T) {
	custom := "Flytta fågelholk"
	quote := repository.Quote{TotalOre: 25000}
	items := []repository.Item{
		{Quantity: 2, TreeSpecies: domain.SpeciesPine, OperationType: domain.OpFelling, CostOre: 10000},
		{Quantity: 1, TreeSpecies: domain.SpeciesOak, OperationType: domain.OpOther, CustomOperation: &custom, CostOre: 5000},
	}

	text := OffertText(quote, items)
	want := "Offert för arbete:\n" +
		"2x Tall (Pine) - Trädfällning à 100.00 SEK\n" +
		"1x Ek (Oak) - Flytta fågelholk à 50.00 SEK\n" +
		"\nTotal: 250.00 SEK"
	if text != want {
		t.Fatalf("offert text = %q, want %q", text, want)
	}
}
