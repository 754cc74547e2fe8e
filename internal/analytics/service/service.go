// Package service computes pipeline KPIs. Reads fan out across the
// metric queries and the result sits behind a short redis cache so the
// admin dashboard can poll freely.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"arborlead_backend/internal/events"
	"arborlead_backend/platform/config"
	"arborlead_backend/platform/logger"
)

const summaryCacheKey = "kpi:summary"

// Store is what the service needs from the analytics repository.
type Store interface {
	InsertEvent(ctx context.Context, entity string, entityID uuid.UUID, eventName string, occurredAt time.Time) error
	AvgAssignmentSecs(ctx context.Context) (*float64, error)
	AvgPartnerResponseSecs(ctx context.Context) (*float64, error)
	AvgQuoteTurnaroundSecs(ctx context.Context) (*float64, error)
	DecisionCounts(ctx context.Context) (accepted, rejected, expired int64, err error)
	ApprovalCounts(ctx context.Context) (approved, declined int64, err error)
	UpsertDailyMetric(ctx context.Context, day time.Time, name string, value float64) error
}

// Summary is the KPI set served to admins. Averages are nil until the
// pipeline has data for them.
type Summary struct {
	AvgAssignmentSecs      *float64  `json:"avgAssignmentSecs"`
	AvgPartnerResponseSecs *float64  `json:"avgPartnerResponseSecs"`
	AvgQuoteTurnaroundSecs *float64  `json:"avgQuoteTurnaroundSecs"`
	AcceptanceRate         *float64  `json:"acceptanceRate"`
	ApprovalRate           *float64  `json:"approvalRate"`
	GeneratedAt            time.Time `json:"generatedAt"`
}

// Service owns KPI event logging, the summary cache, and daily rollups.
type Service struct {
	repo  Store
	cache *redis.Client
	cfg   config.AnalyticsConfig
	log   *logger.Logger
	now   func() time.Time
}

// New creates the analytics service. cache may be nil; summaries are then
// computed on every request.
func New(repo Store, cache *redis.Client, cfg config.AnalyticsConfig, log *logger.Logger) *Service {
	return &Service{repo: repo, cache: cache, cfg: cfg, log: log, now: time.Now}
}

// Subscribe registers the KPI event log listener for every lifecycle
// transition.
func (s *Service) Subscribe(bus events.Bus) {
	record := events.HandlerFunc(s.onEvent)
	for _, name := range []string{
		events.EventLeadAssigned,
		events.EventLeadAccepted,
		events.EventLeadRejected,
		events.EventLeadExpired,
		events.EventQuoteSent,
		events.EventQuoteResponded,
	} {
		bus.Subscribe(name, record)
	}
}

func (s *Service) onEvent(ctx context.Context, event events.Event) error {
	var entity string
	var entityID uuid.UUID

	switch e := event.(type) {
	case events.LeadAssigned:
		entity, entityID = "lead", e.LeadID
	case events.LeadAccepted:
		entity, entityID = "lead", e.LeadID
	case events.LeadRejected:
		entity, entityID = "lead", e.LeadID
	case events.LeadExpired:
		entity, entityID = "lead", e.LeadID
	case events.QuoteSent:
		entity, entityID = "quote", e.QuoteID
	case events.QuoteResponded:
		entity, entityID = "quote", e.QuoteID
	default:
		return nil
	}

	return s.repo.InsertEvent(ctx, entity, entityID, event.EventName(), event.OccurredAt())
}

// Summary returns the KPI set, served from cache when fresh.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	if s.cache != nil {
		raw, err := s.cache.Get(ctx, summaryCacheKey).Bytes()
		if err == nil {
			var cached Summary
			if jsonErr := json.Unmarshal(raw, &cached); jsonErr == nil {
				return cached, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.log.Warn("kpi cache read failed", slog.String("error", err.Error()))
		}
	}

	summary, err := s.compute(ctx)
	if err != nil {
		return Summary{}, err
	}

	if s.cache != nil {
		raw, err := json.Marshal(summary)
		if err == nil {
			if err := s.cache.Set(ctx, summaryCacheKey, raw, s.cfg.GetKPICacheTTL()).Err(); err != nil {
				s.log.Warn("kpi cache write failed", slog.String("error", err.Error()))
			}
		}
	}
	return summary, nil
}

func (s *Service) compute(ctx context.Context) (Summary, error) {
	summary := Summary{GeneratedAt: s.now().UTC()}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		summary.AvgAssignmentSecs, err = s.repo.AvgAssignmentSecs(gctx)
		return err
	})
	g.Go(func() (err error) {
		summary.AvgPartnerResponseSecs, err = s.repo.AvgPartnerResponseSecs(gctx)
		return err
	})
	g.Go(func() (err error) {
		summary.AvgQuoteTurnaroundSecs, err = s.repo.AvgQuoteTurnaroundSecs(gctx)
		return err
	})
	g.Go(func() error {
		accepted, rejected, expired, err := s.repo.DecisionCounts(gctx)
		if err != nil {
			return err
		}
		if total := accepted + rejected + expired; total > 0 {
			rate := float64(accepted) / float64(total)
			summary.AcceptanceRate = &rate
		}
		return nil
	})
	g.Go(func() error {
		approved, declined, err := s.repo.ApprovalCounts(gctx)
		if err != nil {
			return err
		}
		if total := approved + declined; total > 0 {
			rate := float64(approved) / float64(total)
			summary.ApprovalRate = &rate
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return Summary{}, err
	}
	return summary, nil
}

// RollupDaily recomputes the KPI set and persists one row per metric for
// the given day. Metrics without data are skipped.
func (s *Service) RollupDaily(ctx context.Context, day time.Time) error {
	summary, err := s.compute(ctx)
	if err != nil {
		return err
	}

	metrics := map[string]*float64{
		"avg_assignment_secs":       summary.AvgAssignmentSecs,
		"avg_partner_response_secs": summary.AvgPartnerResponseSecs,
		"avg_quote_turnaround_secs": summary.AvgQuoteTurnaroundSecs,
		"acceptance_rate":           summary.AcceptanceRate,
		"approval_rate":             summary.ApprovalRate,
	}
	for name, value := range metrics {
		if value == nil {
			continue
		}
		if err := s.repo.UpsertDailyMetric(ctx, day, name, *value); err != nil {
			return err
		}
	}
	return nil
}
