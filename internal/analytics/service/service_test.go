package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"arborlead_backend/internal/events"
	"arborlead_backend/platform/logger"
)

type fakeStore struct {
	computeCalls  atomic.Int64
	eventRows     []string
	avgAssignment *float64
	accepted      int64
	rejected      int64
	expired       int64
	approved      int64
	declined      int64
	rollups       map[string]float64
}

func (f *fakeStore) InsertEvent(_ context.Context, entity string, _ uuid.UUID, eventName string, _ time.Time) error {
	f.eventRows = append(f.eventRows, entity+":"+eventName)
	return nil
}

func (f *fakeStore) AvgAssignmentSecs(context.Context) (*float64, error) {
	f.computeCalls.Add(1)
	return f.avgAssignment, nil
}

func (f *fakeStore) AvgPartnerResponseSecs(context.Context) (*float64, error) { return nil, nil }
func (f *fakeStore) AvgQuoteTurnaroundSecs(context.Context) (*float64, error) { return nil, nil }

func (f *fakeStore) DecisionCounts(context.Context) (int64, int64, int64, error) {
	return f.accepted, f.rejected, f.expired, nil
}

func (f *fakeStore) ApprovalCounts(context.Context) (int64, int64, error) {
	return f.approved, f.declined, nil
}

func (f *fakeStore) UpsertDailyMetric(_ context.Context, _ time.Time, name string, value float64) error {
	if f.rollups == nil {
		f.rollups = map[string]float64{}
	}
	f.rollups[name] = value
	return nil
}

type analyticsConfig struct{}

func (analyticsConfig) GetRedisURL() string           { return "" }
func (analyticsConfig) GetKPICacheTTL() time.Duration { return 60 * time.Second }

func newCache(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	return mr, redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestSummaryComputesRates(t *testing.T) {
	avg := 3600.0
	store := &fakeStore{avgAssignment: &avg, accepted: 6, rejected: 3, expired: 1, approved: 3, declined: 1}
	svc := New(store, nil, analyticsConfig{}, logger.New("development"))

	summary, err := svc.Summary(context.Background())
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.AvgAssignmentSecs == nil || *summary.AvgAssignmentSecs != 3600.0 {
		t.Fatalf("avg assignment = %v", summary.AvgAssignmentSecs)
	}
	if summary.AcceptanceRate == nil || *summary.AcceptanceRate != 0.6 {
		t.Fatalf("acceptance rate = %v, want 0.6", summary.AcceptanceRate)
	}
	if summary.ApprovalRate == nil || *summary.ApprovalRate != 0.75 {
		t.Fatalf("approval rate = %v, want 0.75", summary.ApprovalRate)
	}
	if summary.AvgPartnerResponseSecs != nil {
		t.Fatalf("expected nil partner response average with no data")
	}
}

func TestSummaryServedFromCacheUntilTTL(t *testing.T) {
	mr, cache := newCache(t)
	store := &fakeStore{accepted: 1}
	svc := New(store, cache, analyticsConfig{}, logger.New("development"))

	ctx := context.Background()
	if _, err := svc.Summary(ctx); err != nil {
		t.Fatalf("first summary: %v", err)
	}
	if _, err := svc.Summary(ctx); err != nil {
		t.Fatalf("second summary: %v", err)
	}
	if got := store.computeCalls.Load(); got != 1 {
		t.Fatalf("compute ran %d times, want 1 (second call cached)", got)
	}

	mr.FastForward(61 * time.Second)
	if _, err := svc.Summary(ctx); err != nil {
		t.Fatalf("post-expiry summary: %v", err)
	}
	if got := store.computeCalls.Load(); got != 2 {
		t.Fatalf("compute ran %d times after ttl, want 2", got)
	}
}

func TestSubscriberLogsEveryTransition(t *testing.T) {
	store := &fakeStore{}
	svc := New(store, nil, analyticsConfig{}, logger.New("development"))

	bus := events.NewInMemoryBus(logger.New("development"))
	svc.Subscribe(bus)

	ctx := context.Background()
	leadID, quoteID := uuid.New(), uuid.New()
	publish := func(e events.Event) {
		t.Helper()
		if err := bus.PublishSync(ctx, e); err != nil {
			t.Fatalf("publish %s: %v", e.EventName(), err)
		}
	}
	publish(events.LeadAssigned{BaseEvent: events.NewBaseEvent(), LeadID: leadID})
	publish(events.LeadRejected{BaseEvent: events.NewBaseEvent(), LeadID: leadID})
	publish(events.LeadExpired{BaseEvent: events.NewBaseEvent(), LeadID: leadID})
	publish(events.QuoteSent{BaseEvent: events.NewBaseEvent(), QuoteID: quoteID})
	publish(events.QuoteResponded{BaseEvent: events.NewBaseEvent(), QuoteID: quoteID})

	want := []string{
		"lead:lead.assigned",
		"lead:lead.rejected",
		"lead:lead.expired",
		"quote:quote.sent",
		"quote:quote.responded",
	}
	if len(store.eventRows) != len(want) {
		t.Fatalf("logged %d events, want %d", len(store.eventRows), len(want))
	}
	for i, w := range want {
		if store.eventRows[i] != w {
			t.Fatalf("event[%d] = %s, want %s", i, store.eventRows[i], w)
		}
	}
}

func TestRollupSkipsMetricsWithoutData(t *testing.T) {
	store := &fakeStore{accepted: 2, rejected: 2}
	svc := New(store, nil, analyticsConfig{}, logger.New("development"))

	day := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	if err := svc.RollupDaily(context.Background(), day); err != nil {
		t.Fatalf("rollup: %v", err)
	}

	if got, ok := store.rollups["acceptance_rate"]; !ok || got != 0.5 {
		t.Fatalf("acceptance_rate rollup = %v (present=%v)", got, ok)
	}
	if _, ok := store.rollups["avg_assignment_secs"]; ok {
		t.Fatalf("avg_assignment_secs rolled up despite no data")
	}
	if _, ok := store.rollups["approval_rate"]; ok {
		t.Fatalf("approval_rate rolled up despite no responses")
	}
}
