package service

import (
	"context"
	"testing"
	"time"

	"arborlead_backend/internal/events"
	"arborlead_backend/internal/partners/repository"
	"arborlead_backend/platform/apperr"
	"arborlead_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeStore struct {
	partners map[uuid.UUID]repository.Partner
	invoices []repository.Invoice
	stats    []repository.Stats
}

func newFakeStore() *fakeStore {
	return &fakeStore{partners: make(map[uuid.UUID]repository.Partner)}
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (repository.Partner, error) {
	p, ok := f.partners[id]
	if !ok || !p.Active {
		return repository.Partner{}, apperr.NotFound("partner not found")
	}
	return p, nil
}

func (f *fakeStore) List(_ context.Context, region string) ([]repository.Partner, error) {
	var out []repository.Partner
	for _, p := range f.partners {
		if p.Active && (region == "" || p.Region == region) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) AddDebt(_ context.Context, partnerID uuid.UUID, amountOre int64) error {
	p, ok := f.partners[partnerID]
	if !ok {
		return apperr.NotFound("partner not found")
	}
	p.DebtOre += amountOre
	f.partners[partnerID] = p
	return nil
}

func (f *fakeStore) SettleDebts(_ context.Context, period string, now time.Time) ([]repository.Invoice, error) {
	var out []repository.Invoice
	for id, p := range f.partners {
		if p.DebtOre > 0 {
			out = append(out, repository.Invoice{
				ID: uuid.New(), PartnerID: id, Period: period, AmountOre: p.DebtOre, CreatedAt: now,
			})
			p.DebtOre = 0
			f.partners[id] = p
		}
	}
	f.invoices = append(f.invoices, out...)
	return out, nil
}

func (f *fakeStore) ListInvoices(_ context.Context, partnerID uuid.UUID) ([]repository.Invoice, error) {
	var out []repository.Invoice
	for _, inv := range f.invoices {
		if inv.PartnerID == partnerID {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (f *fakeStore) PerformanceStats(_ context.Context, _ string) ([]repository.Stats, error) {
	return f.stats, nil
}

func seedPartner(store *fakeStore, region string, debt int64) uuid.UUID {
	id := uuid.New()
	store.partners[id] = repository.Partner{
		ID: id, Email: id.String() + "@example.com", CompanyName: "Trädproffs AB",
		Region: region, DebtOre: debt, Active: true,
	}
	return id
}

func TestChargesAccumulateDebt(t *testing.T) {
	store := newFakeStore()
	svc := New(store, logger.New("development"))
	partnerID := seedPartner(store, "Stockholm", 0)

	if err := svc.ChargeLeadFee(context.Background(), partnerID, uuid.New(), 50000); err != nil {
		t.Fatalf("ChargeLeadFee: %v", err)
	}
	if err := svc.ChargeCommission(context.Background(), partnerID, uuid.New(), 2500); err != nil {
		t.Fatalf("ChargeCommission: %v", err)
	}

	if got := store.partners[partnerID].DebtOre; got != 52500 {
		t.Fatalf("debt = %d, want 52500", got)
	}
}

func TestGenerateMonthlyInvoicesResetsDebtOnce(t *testing.T) {
	store := newFakeStore()
	svc := New(store, logger.New("development"))
	svc.now = func() time.Time { return time.Date(2026, 3, 31, 23, 0, 0, 0, time.UTC) }

	indebted := seedPartner(store, "Stockholm", 52500)
	seedPartner(store, "Göteborg", 0)

	invoices, err := svc.GenerateMonthlyInvoices(context.Background())
	if err != nil {
		t.Fatalf("GenerateMonthlyInvoices: %v", err)
	}
	if len(invoices) != 1 {
		t.Fatalf("invoices = %d, want 1", len(invoices))
	}
	if invoices[0].PartnerID != indebted || invoices[0].AmountOre != 52500 || invoices[0].Period != "2026-03" {
		t.Fatalf("invoice = %+v", invoices[0])
	}
	if store.partners[indebted].DebtOre != 0 {
		t.Fatalf("debt not reset: %d", store.partners[indebted].DebtOre)
	}

	// A second run with no new debt invoices nothing.
	again, err := svc.GenerateMonthlyInvoices(context.Background())
	if err != nil {
		t.Fatalf("GenerateMonthlyInvoices: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("second run produced %d invoices, want 0", len(again))
	}
}

func TestTopPartnersRanksByAcceptanceThenSpeed(t *testing.T) {
	store := newFakeStore()
	svc := New(store, logger.New("development"))

	fast := seedPartner(store, "Stockholm", 0)
	slow := seedPartner(store, "Stockholm", 0)
	weak := seedPartner(store, "Stockholm", 0)

	store.stats = []repository.Stats{
		{PartnerID: fast, Assigned: 10, Accepted: 9, AcceptanceRate: 0.9, AvgResponseSecs: 600},
		{PartnerID: slow, Assigned: 10, Accepted: 9, AcceptanceRate: 0.9, AvgResponseSecs: 7200},
		{PartnerID: weak, Assigned: 10, Accepted: 3, AcceptanceRate: 0.3, AvgResponseSecs: 60},
	}

	ranked, err := svc.TopPartners(context.Background(), "Stockholm", 2)
	if err != nil {
		t.Fatalf("TopPartners: %v", err)
	}
	if len(ranked) != 2 {
		t.Fatalf("ranked = %d, want 2", len(ranked))
	}
	if ranked[0].Partner.ID != fast || ranked[1].Partner.ID != slow {
		t.Fatalf("order = %s, %s; want fast then slow", ranked[0].Partner.ID, ranked[1].Partner.ID)
	}
}

func TestCommissionSubscriberChargesOnlyApprovals(t *testing.T) {
	store := newFakeStore()
	svc := New(store, logger.New("development"))
	partnerID := seedPartner(store, "Stockholm", 0)

	bus := events.NewInMemoryBus(logger.New("development"))
	svc.SubscribeCommissionCharging(bus)

	err := bus.PublishSync(context.Background(), events.QuoteResponded{
		BaseEvent: events.NewBaseEvent(),
		QuoteID:   uuid.New(), PartnerID: partnerID,
		Decision: "approved", CommissionOre: 2500,
	})
	if err != nil {
		t.Fatalf("PublishSync: %v", err)
	}
	err = bus.PublishSync(context.Background(), events.QuoteResponded{
		BaseEvent: events.NewBaseEvent(),
		QuoteID:   uuid.New(), PartnerID: partnerID,
		Decision: "declined", CommissionOre: 9999,
	})
	if err != nil {
		t.Fatalf("PublishSync: %v", err)
	}

	if got := store.partners[partnerID].DebtOre; got != 2500 {
		t.Fatalf("debt = %d, want 2500 (declined must not charge)", got)
	}
}
