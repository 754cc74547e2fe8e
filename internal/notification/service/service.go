// Package service turns domain events into outbox rows and drains the
// outbox through the mail sender. Enqueueing and delivery are separate
// steps so a slow or failing SMTP host never blocks a lifecycle
// transition.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"arborlead_backend/internal/email"
	"arborlead_backend/internal/events"
	"arborlead_backend/internal/notification/outbox"
	"arborlead_backend/platform/config"
	"arborlead_backend/platform/logger"
)

// OutboxStore is what the service needs from the outbox repository.
type OutboxStore interface {
	Enqueue(ctx context.Context, kind, recipient string, payload any) error
	ClaimPending(ctx context.Context, limit int) ([]outbox.Message, error)
	MarkSent(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, cause string) error
}

// PartnerDirectory resolves a partner id to a deliverable address.
type PartnerDirectory interface {
	PartnerEmail(ctx context.Context, id uuid.UUID) (string, error)
}

// Payloads stored in the outbox, one per message kind.
type leadAssignedPayload struct {
	LeadID    uuid.UUID `json:"leadId"`
	Region    string    `json:"region"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type leadAcceptedPayload struct {
	LeadID       uuid.UUID `json:"leadId"`
	CustomerName string    `json:"customerName"`
}

type quoteSentPayload struct {
	QuoteID      uuid.UUID `json:"quoteId"`
	CustomerName string    `json:"customerName"`
	TotalOre     int64     `json:"totalOre"`
	PortalURL    string    `json:"portalUrl"`
}

type quoteRespondedPayload struct {
	QuoteID  uuid.UUID `json:"quoteId"`
	Decision string    `json:"decision"`
	Feedback string    `json:"feedback"`
	TotalOre int64     `json:"totalOre"`
}

// Service enqueues and dispatches notifications.
type Service struct {
	outbox   OutboxStore
	partners PartnerDirectory
	cfg      config.NotificationConfig
	log      *logger.Logger
}

// New creates the notification service.
func New(store OutboxStore, partners PartnerDirectory, cfg config.NotificationConfig, log *logger.Logger) *Service {
	return &Service{outbox: store, partners: partners, cfg: cfg, log: log}
}

// Subscribe registers the outbox-filling handlers on the event bus.
func (s *Service) Subscribe(bus events.Bus) {
	bus.Subscribe(events.EventLeadAssigned, events.HandlerFunc(s.onLeadAssigned))
	bus.Subscribe(events.EventLeadAccepted, events.HandlerFunc(s.onLeadAccepted))
	bus.Subscribe(events.EventQuoteSent, events.HandlerFunc(s.onQuoteSent))
	bus.Subscribe(events.EventQuoteResponded, events.HandlerFunc(s.onQuoteResponded))
}

func (s *Service) onLeadAssigned(ctx context.Context, event events.Event) error {
	e, ok := event.(events.LeadAssigned)
	if !ok {
		return nil
	}
	return s.outbox.Enqueue(ctx, outbox.KindLeadAssigned, e.PartnerEmail, leadAssignedPayload{
		LeadID:    e.LeadID,
		Region:    e.Region,
		ExpiresAt: e.ExpiresAt,
	})
}

func (s *Service) onLeadAccepted(ctx context.Context, event events.Event) error {
	e, ok := event.(events.LeadAccepted)
	if !ok {
		return nil
	}
	return s.outbox.Enqueue(ctx, outbox.KindLeadAccepted, e.CustomerEmail, leadAcceptedPayload{
		LeadID:       e.LeadID,
		CustomerName: e.CustomerName,
	})
}

func (s *Service) onQuoteSent(ctx context.Context, event events.Event) error {
	e, ok := event.(events.QuoteSent)
	if !ok {
		return nil
	}
	return s.outbox.Enqueue(ctx, outbox.KindQuoteSent, e.CustomerEmail, quoteSentPayload{
		QuoteID:      e.QuoteID,
		CustomerName: e.CustomerName,
		TotalOre:     e.TotalOre,
		PortalURL:    s.portalURL(e.PortalToken),
	})
}

func (s *Service) onQuoteResponded(ctx context.Context, event events.Event) error {
	e, ok := event.(events.QuoteResponded)
	if !ok {
		return nil
	}
	partnerEmail, err := s.partners.PartnerEmail(ctx, e.PartnerID)
	if err != nil {
		return fmt.Errorf("failed to resolve partner address for quote %s: %w", e.QuoteID, err)
	}
	return s.outbox.Enqueue(ctx, outbox.KindQuoteResponded, partnerEmail, quoteRespondedPayload{
		QuoteID:  e.QuoteID,
		Decision: e.Decision,
		Feedback: e.Feedback,
		TotalOre: e.TotalOre,
	})
}

func (s *Service) portalURL(token string) string {
	return fmt.Sprintf("%s/offert?token=%s", s.cfg.GetAppBaseURL(), token)
}

// Dispatch claims a batch of pending messages and delivers them. Failures
// are recorded per message and never abort the batch. Returns the number
// of messages delivered.
func (s *Service) Dispatch(ctx context.Context, sender email.Sender, batchSize int) (int, error) {
	msgs, err := s.outbox.ClaimPending(ctx, batchSize)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, msg := range msgs {
		if err := s.deliver(ctx, sender, msg); err != nil {
			s.log.Error("notification delivery failed",
				slog.String("id", msg.ID.String()),
				slog.String("kind", msg.Kind),
				slog.Int("attempts", msg.Attempts+1),
				slog.String("error", err.Error()),
			)
			if markErr := s.outbox.MarkFailed(ctx, msg.ID, err.Error()); markErr != nil {
				s.log.DatabaseError("outbox mark failed", markErr)
			}
			continue
		}
		if err := s.outbox.MarkSent(ctx, msg.ID); err != nil {
			s.log.DatabaseError("outbox mark sent", err)
			continue
		}
		sent++
	}
	return sent, nil
}

func (s *Service) deliver(ctx context.Context, sender email.Sender, msg outbox.Message) error {
	switch msg.Kind {
	case outbox.KindLeadAssigned:
		var p leadAssignedPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return err
		}
		return sender.SendLeadAssignedEmail(ctx, msg.Recipient, p.Region,
			p.ExpiresAt.Format("2006-01-02 15:04"))
	case outbox.KindLeadAccepted:
		var p leadAcceptedPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return err
		}
		return sender.SendLeadAcceptedEmail(ctx, msg.Recipient, p.CustomerName)
	case outbox.KindQuoteSent:
		var p quoteSentPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return err
		}
		return sender.SendQuoteEmail(ctx, msg.Recipient, p.CustomerName,
			email.FormatSEK(p.TotalOre), p.PortalURL)
	case outbox.KindQuoteResponded:
		var p quoteRespondedPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return err
		}
		return sender.SendQuoteRespondedEmail(ctx, msg.Recipient, p.Decision,
			p.Feedback, email.FormatSEK(p.TotalOre))
	default:
		return fmt.Errorf("unknown outbox kind %q", msg.Kind)
	}
}
