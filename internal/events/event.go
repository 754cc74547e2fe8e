package events

import (
	"time"

	"github.com/google/uuid"
)

// Event names. Subscribers register against these constants.
const (
	EventLeadAssigned   = "lead.assigned"
	EventLeadAccepted   = "lead.accepted"
	EventLeadRejected   = "lead.rejected"
	EventLeadExpired    = "lead.expired"
	EventQuoteSent      = "quote.sent"
	EventQuoteResponded = "quote.responded"
)

// LeadAssigned is published when an admin assigns a lead to a partner.
type LeadAssigned struct {
	BaseEvent
	LeadID       uuid.UUID
	PartnerID    uuid.UUID
	PartnerEmail string
	Region       string
	ExpiresAt    time.Time
}

// EventName identifies the event type.
func (LeadAssigned) EventName() string { return EventLeadAssigned }

// LeadAccepted is published when a partner accepts an assigned lead.
type LeadAccepted struct {
	BaseEvent
	LeadID        uuid.UUID
	PartnerID     uuid.UUID
	CustomerEmail string
	CustomerName  string
	LeadFeeOre    int64
}

// EventName identifies the event type.
func (LeadAccepted) EventName() string { return EventLeadAccepted }

// LeadRejected is published when a partner rejects an assigned lead.
type LeadRejected struct {
	BaseEvent
	LeadID    uuid.UUID
	PartnerID uuid.UUID
}

// EventName identifies the event type.
func (LeadRejected) EventName() string { return EventLeadRejected }

// LeadExpired is published for each lead the expiry sweep transitions.
type LeadExpired struct {
	BaseEvent
	LeadID uuid.UUID
}

// EventName identifies the event type.
func (LeadExpired) EventName() string { return EventLeadExpired }

// QuoteSent is published when a quote is sent to the customer. PortalToken
// carries the freshly issued customer access token for the notification
// email; it is never persisted in clear text.
type QuoteSent struct {
	BaseEvent
	QuoteID       uuid.UUID
	LeadID        uuid.UUID
	CustomerEmail string
	CustomerName  string
	TotalOre      int64
	PortalToken   string
}

// EventName identifies the event type.
func (QuoteSent) EventName() string { return EventQuoteSent }

// QuoteResponded is published when a customer approves or declines a quote.
type QuoteResponded struct {
	BaseEvent
	QuoteID       uuid.UUID
	LeadID        uuid.UUID
	PartnerID     uuid.UUID
	Decision      string
	Feedback      string
	TotalOre      int64
	CommissionOre int64
}

// EventName identifies the event type.
func (QuoteResponded) EventName() string { return EventQuoteResponded }
