package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"arborlead_backend/internal/leads/domain"
	"arborlead_backend/internal/leads/repository"
	"arborlead_backend/internal/leads/transport"
	"arborlead_backend/platform/apperr"
	"arborlead_backend/platform/logger"

	"github.com/google/uuid"
)

// fakeStore is an in-memory Store mirroring the repository's
// compare-and-swap semantics, including the expiry predicate.
type fakeStore struct {
	mu    sync.Mutex
	leads map[uuid.UUID]repository.Lead
}

func newFakeStore() *fakeStore {
	return &fakeStore{leads: make(map[uuid.UUID]repository.Lead)}
}

func (f *fakeStore) Create(_ context.Context, lead *repository.Lead) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leads[lead.ID] = *lead
	return nil
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (repository.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lead, ok := f.leads[id]
	if !ok {
		return repository.Lead{}, apperr.NotFound("lead not found")
	}
	return lead, nil
}

func (f *fakeStore) List(_ context.Context, _ repository.ListParams) ([]repository.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]repository.Lead, 0, len(f.leads))
	for _, lead := range f.leads {
		out = append(out, lead)
	}
	return out, nil
}

func (f *fakeStore) Assign(_ context.Context, leadID, partnerID uuid.UUID, assignedAt, expiresAt time.Time) (repository.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lead, ok := f.leads[leadID]
	if !ok {
		return repository.Lead{}, apperr.NotFound("lead not found")
	}
	if lead.Status != domain.StatusNew {
		return repository.Lead{}, apperr.Conflict(fmt.Sprintf("lead is %s", lead.Status))
	}
	lead.Status = domain.StatusAssigned
	lead.AssignedPartnerID = &partnerID
	lead.AssignedAt = &assignedAt
	lead.ExpiresAt = &expiresAt
	f.leads[leadID] = lead
	return lead, nil
}

func (f *fakeStore) PartnerDecide(_ context.Context, leadID, partnerID uuid.UUID, to domain.Status, decidedAt time.Time) (repository.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lead, ok := f.leads[leadID]
	if !ok {
		return repository.Lead{}, apperr.NotFound("lead not found")
	}
	if lead.AssignedPartnerID == nil || *lead.AssignedPartnerID != partnerID {
		return repository.Lead{}, apperr.Forbidden("lead is not assigned to this partner")
	}
	if lead.Status != domain.StatusAssigned || (lead.ExpiresAt != nil && lead.ExpiresAt.Before(decidedAt)) {
		effective := domain.Effective(lead.Status, lead.ExpiresAt, decidedAt)
		return repository.Lead{}, apperr.Conflict(fmt.Sprintf("lead is %s", effective))
	}
	lead.Status = to
	if to == domain.StatusAccepted {
		lead.AcceptedAt = &decidedAt
	}
	f.leads[leadID] = lead
	return lead, nil
}

func (f *fakeStore) Recall(_ context.Context, leadID uuid.UUID, _ time.Time) (repository.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lead, ok := f.leads[leadID]
	if !ok {
		return repository.Lead{}, apperr.NotFound("lead not found")
	}
	if lead.Status != domain.StatusAssigned {
		return repository.Lead{}, apperr.Conflict(fmt.Sprintf("lead is %s", lead.Status))
	}
	lead.Status = domain.StatusNew
	lead.AssignedPartnerID = nil
	lead.AssignedAt = nil
	lead.ExpiresAt = nil
	f.leads[leadID] = lead
	return lead, nil
}

func (f *fakeStore) Complete(_ context.Context, leadID uuid.UUID, _ time.Time) (repository.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lead, ok := f.leads[leadID]
	if !ok {
		return repository.Lead{}, apperr.NotFound("lead not found")
	}
	if lead.Status != domain.StatusApproved {
		return repository.Lead{}, apperr.Conflict(fmt.Sprintf("lead is %s", lead.Status))
	}
	lead.Status = domain.StatusCompleted
	f.leads[leadID] = lead
	return lead, nil
}

func (f *fakeStore) MarkBilled(_ context.Context, leadID uuid.UUID, _ time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lead, ok := f.leads[leadID]
	if !ok {
		return false, apperr.NotFound("lead not found")
	}
	if lead.Billed {
		return false, nil
	}
	lead.Billed = true
	f.leads[leadID] = lead
	return true, nil
}

func (f *fakeStore) SweepExpired(_ context.Context, now time.Time) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []uuid.UUID
	for id, lead := range f.leads {
		if lead.Status == domain.StatusAssigned && lead.ExpiresAt != nil && lead.ExpiresAt.Before(now) {
			lead.Status = domain.StatusExpired
			f.leads[id] = lead
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f *fakeStore) RecordDetailView(_ context.Context, leadID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	lead := f.leads[leadID]
	lead.ViewedDetails = true
	lead.ViewCount++
	f.leads[leadID] = lead
	return nil
}

type fakeDirectory struct {
	partners map[uuid.UUID]PartnerInfo
}

func (f *fakeDirectory) GetPartner(_ context.Context, id uuid.UUID) (PartnerInfo, error) {
	p, ok := f.partners[id]
	if !ok {
		return PartnerInfo{}, apperr.NotFound("partner not found")
	}
	return p, nil
}

type fakeBilling struct {
	mu      sync.Mutex
	charges []int64
}

func (f *fakeBilling) ChargeLeadFee(_ context.Context, _, _ uuid.UUID, amountOre int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.charges = append(f.charges, amountOre)
	return nil
}

type testLeadConfig struct{}

func (testLeadConfig) GetLeadExpiry() time.Duration { return 48 * time.Hour }
func (testLeadConfig) GetLeadFeeOre() int64         { return 50000 }
func (testLeadConfig) GetCommissionBps() int        { return 1000 }

func newTestService(store *fakeStore, dir *fakeDirectory, billing *fakeBilling) *Service {
	svc := New(store, dir, billing, testLeadConfig{}, logger.New("development"))
	return svc
}

func seedLead(store *fakeStore, status domain.Status) uuid.UUID {
	id := uuid.New()
	store.leads[id] = repository.Lead{
		ID:            id,
		CustomerName:  "Anna Lind",
		CustomerEmail: "anna@example.com",
		Region:        "Stockholm",
		Status:        status,
		LeadFeeOre:    50000,
		CommissionBps: 1000,
		CreatedAt:     time.Now().UTC(),
	}
	return id
}

func TestCreateSetsNewStatusAndFee(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeDirectory{}, &fakeBilling{})

	lead, err := svc.Create(context.Background(), transport.CreateLeadRequest{
		CustomerName:  "Anna Lind",
		CustomerEmail: "anna@example.com",
		CustomerPhone: "070-123 45 67",
		Address:       "Storgatan 1",
		City:          "Stockholm",
		PostalCode:    "111 22",
		Region:        "Stockholm",
		Summary:       "Stor tall nära huset behöver fällas",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if lead.Status != domain.StatusNew {
		t.Fatalf("status = %s, want new", lead.Status)
	}
	if lead.LeadFeeOre != 50000 {
		t.Fatalf("leadFeeOre = %d, want 50000", lead.LeadFeeOre)
	}
	if lead.CustomerPhone != "+46701234567" {
		t.Fatalf("phone = %q, want normalized E.164", lead.CustomerPhone)
	}
}

func TestAssignRaceHasExactlyOneWinner(t *testing.T) {
	store := newFakeStore()
	partnerA := uuid.New()
	partnerB := uuid.New()
	dir := &fakeDirectory{partners: map[uuid.UUID]PartnerInfo{
		partnerA: {ID: partnerA, Email: "a@example.com"},
		partnerB: {ID: partnerB, Email: "b@example.com"},
	}}
	svc := newTestService(store, dir, &fakeBilling{})
	leadID := seedLead(store, domain.StatusNew)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, pid := range []uuid.UUID{partnerA, partnerB} {
		wg.Add(1)
		go func(i int, pid uuid.UUID) {
			defer wg.Done()
			_, errs[i] = svc.Assign(context.Background(), leadID, pid)
		}(i, pid)
	}
	wg.Wait()

	var wins, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case apperr.Is(err, apperr.KindConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 || conflicts != 1 {
		t.Fatalf("wins = %d, conflicts = %d, want exactly one of each", wins, conflicts)
	}
}

func TestAssignUnknownPartnerFails(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeDirectory{partners: map[uuid.UUID]PartnerInfo{}}, &fakeBilling{})
	leadID := seedLead(store, domain.StatusNew)

	_, err := svc.Assign(context.Background(), leadID, uuid.New())
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
	lead, _ := store.GetByID(context.Background(), leadID)
	if lead.Status != domain.StatusNew {
		t.Fatalf("lead moved to %s on failed assign", lead.Status)
	}
}

func TestAcceptChargesFeeOnce(t *testing.T) {
	store := newFakeStore()
	partnerID := uuid.New()
	dir := &fakeDirectory{partners: map[uuid.UUID]PartnerInfo{
		partnerID: {ID: partnerID, Email: "p@example.com"},
	}}
	billing := &fakeBilling{}
	svc := newTestService(store, dir, billing)
	leadID := seedLead(store, domain.StatusNew)

	if _, err := svc.Assign(context.Background(), leadID, partnerID); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	lead, err := svc.Accept(context.Background(), leadID, partnerID)
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if lead.Status != domain.StatusAccepted {
		t.Fatalf("status = %s, want accepted", lead.Status)
	}
	if len(billing.charges) != 1 || billing.charges[0] != 50000 {
		t.Fatalf("charges = %v, want one charge of 50000", billing.charges)
	}

	// Second accept is a conflict and must not double-bill.
	if _, err := svc.Accept(context.Background(), leadID, partnerID); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("second accept err = %v, want conflict", err)
	}
	if len(billing.charges) != 1 {
		t.Fatalf("charges = %v after repeat accept, want one", billing.charges)
	}
}

func TestAcceptByWrongPartnerForbidden(t *testing.T) {
	store := newFakeStore()
	owner := uuid.New()
	intruder := uuid.New()
	dir := &fakeDirectory{partners: map[uuid.UUID]PartnerInfo{
		owner:    {ID: owner, Email: "o@example.com"},
		intruder: {ID: intruder, Email: "i@example.com"},
	}}
	svc := newTestService(store, dir, &fakeBilling{})
	leadID := seedLead(store, domain.StatusNew)

	if _, err := svc.Assign(context.Background(), leadID, owner); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if _, err := svc.Accept(context.Background(), leadID, intruder); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("err = %v, want forbidden", err)
	}
}

func TestAcceptAfterExpiryConflicts(t *testing.T) {
	store := newFakeStore()
	partnerID := uuid.New()
	dir := &fakeDirectory{partners: map[uuid.UUID]PartnerInfo{
		partnerID: {ID: partnerID, Email: "p@example.com"},
	}}
	svc := newTestService(store, dir, &fakeBilling{})
	leadID := seedLead(store, domain.StatusNew)

	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }
	if _, err := svc.Assign(context.Background(), leadID, partnerID); err != nil {
		t.Fatalf("Assign: %v", err)
	}

	// 48h window: at the boundary instant accepting still succeeds,
	// one nanosecond later it is expired even before any sweep ran.
	svc.now = func() time.Time { return base.Add(48*time.Hour + time.Nanosecond) }
	if _, err := svc.Accept(context.Background(), leadID, partnerID); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("err = %v, want conflict on expired lead", err)
	}
}

func TestAcceptAtBoundaryInstantSucceeds(t *testing.T) {
	store := newFakeStore()
	partnerID := uuid.New()
	dir := &fakeDirectory{partners: map[uuid.UUID]PartnerInfo{
		partnerID: {ID: partnerID, Email: "p@example.com"},
	}}
	svc := newTestService(store, dir, &fakeBilling{})
	leadID := seedLead(store, domain.StatusNew)

	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }
	if _, err := svc.Assign(context.Background(), leadID, partnerID); err != nil {
		t.Fatalf("Assign: %v", err)
	}

	svc.now = func() time.Time { return base.Add(48 * time.Hour) }
	lead, err := svc.Accept(context.Background(), leadID, partnerID)
	if err != nil {
		t.Fatalf("Accept at boundary: %v", err)
	}
	if lead.Status != domain.StatusAccepted {
		t.Fatalf("status = %s, want accepted", lead.Status)
	}
}

func TestSweepExpiredOnlyTouchesOverdueAssignments(t *testing.T) {
	store := newFakeStore()
	partnerID := uuid.New()
	dir := &fakeDirectory{partners: map[uuid.UUID]PartnerInfo{
		partnerID: {ID: partnerID, Email: "p@example.com"},
	}}
	svc := newTestService(store, dir, &fakeBilling{})

	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	overdue := seedLead(store, domain.StatusNew)
	fresh := seedLead(store, domain.StatusNew)
	accepted := seedLead(store, domain.StatusAccepted)

	if _, err := svc.Assign(context.Background(), overdue, partnerID); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	svc.now = func() time.Time { return base.Add(47 * time.Hour) }
	if _, err := svc.Assign(context.Background(), fresh, partnerID); err != nil {
		t.Fatalf("Assign: %v", err)
	}

	svc.now = func() time.Time { return base.Add(49 * time.Hour) }
	n, err := svc.SweepExpired(context.Background())
	if err != nil {
		t.Fatalf("SweepExpired: %v", err)
	}
	if n != 1 {
		t.Fatalf("swept = %d, want 1", n)
	}

	for id, want := range map[uuid.UUID]domain.Status{
		overdue:  domain.StatusExpired,
		fresh:    domain.StatusAssigned,
		accepted: domain.StatusAccepted,
	} {
		lead, _ := store.GetByID(context.Background(), id)
		if lead.Status != want {
			t.Fatalf("lead %s status = %s, want %s", id, lead.Status, want)
		}
	}
}

func TestRecallReturnsLeadToPool(t *testing.T) {
	store := newFakeStore()
	partnerID := uuid.New()
	dir := &fakeDirectory{partners: map[uuid.UUID]PartnerInfo{
		partnerID: {ID: partnerID, Email: "p@example.com"},
	}}
	svc := newTestService(store, dir, &fakeBilling{})
	leadID := seedLead(store, domain.StatusNew)

	if _, err := svc.Assign(context.Background(), leadID, partnerID); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	lead, err := svc.Recall(context.Background(), leadID)
	if err != nil {
		t.Fatalf("Recall: %v", err)
	}
	if lead.Status != domain.StatusNew || lead.AssignedPartnerID != nil {
		t.Fatalf("recall left status=%s partner=%v", lead.Status, lead.AssignedPartnerID)
	}

	// A recalled lead is assignable again.
	if _, err := svc.Assign(context.Background(), leadID, partnerID); err != nil {
		t.Fatalf("reassign after recall: %v", err)
	}
}

func TestPartnerDetailCountsPreAcceptanceViews(t *testing.T) {
	store := newFakeStore()
	partnerID := uuid.New()
	dir := &fakeDirectory{partners: map[uuid.UUID]PartnerInfo{
		partnerID: {ID: partnerID, Email: "p@example.com"},
	}}
	svc := newTestService(store, dir, &fakeBilling{})
	leadID := seedLead(store, domain.StatusNew)

	if _, err := svc.Assign(context.Background(), leadID, partnerID); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if _, err := svc.PartnerDetail(context.Background(), leadID, partnerID); err != nil {
		t.Fatalf("PartnerDetail: %v", err)
	}
	if _, err := svc.PartnerDetail(context.Background(), leadID, partnerID); err != nil {
		t.Fatalf("PartnerDetail: %v", err)
	}

	lead, _ := store.GetByID(context.Background(), leadID)
	if lead.ViewCount != 2 || !lead.ViewedDetails {
		t.Fatalf("viewCount = %d viewed = %v, want 2/true", lead.ViewCount, lead.ViewedDetails)
	}

	if _, err := svc.PartnerDetail(context.Background(), leadID, uuid.New()); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("err = %v, want forbidden for non-owner", err)
	}
}
