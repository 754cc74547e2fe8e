package transport

import (
	"time"

	"arborlead_backend/internal/leads/domain"
	"arborlead_backend/internal/leads/repository"

	"github.com/google/uuid"
)

// ── Requests ──────────────────────────────────────────────────────────────────

// CreateLeadRequest is the intake payload for a new customer inquiry.
type CreateLeadRequest struct {
	CustomerName  string `json:"customerName" validate:"required,min=1,max=200"`
	CustomerEmail string `json:"customerEmail" validate:"required,email"`
	CustomerPhone string `json:"customerPhone" validate:"required,min=5,max=20"`
	Address       string `json:"address" validate:"required,min=1,max=300"`
	City          string `json:"city" validate:"required,min=1,max=100"`
	PostalCode    string `json:"postalCode" validate:"required,min=1,max=20"`
	Region        string `json:"region" validate:"required,min=1,max=100"`
	Summary       string `json:"summary" validate:"required,min=1,max=2000"`
	Details       string `json:"details" validate:"omitempty,max=10000"`
}

// ListLeadsQuery filters the lead listing.
type ListLeadsQuery struct {
	Status   string `form:"status" validate:"omitempty"`
	Region   string `form:"region" validate:"omitempty,max=100"`
	Page     int    `form:"page" validate:"omitempty,min=1"`
	PageSize int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

// ── Responses ─────────────────────────────────────────────────────────────────

// LeadResponse is the full lead representation for admins and the owning
// partner after acceptance.
type LeadResponse struct {
	ID                 uuid.UUID  `json:"id"`
	CustomerName       string     `json:"customerName"`
	CustomerEmail      string     `json:"customerEmail"`
	CustomerPhone      string     `json:"customerPhone"`
	Address            string     `json:"address"`
	City               string     `json:"city"`
	PostalCode         string     `json:"postalCode"`
	Region             string     `json:"region"`
	Summary            string     `json:"summary"`
	Details            *string    `json:"details,omitempty"`
	Status             string     `json:"status"`
	AssignedPartnerID  *uuid.UUID `json:"assignedPartnerId,omitempty"`
	AssignedAt         *time.Time `json:"assignedAt,omitempty"`
	AcceptedAt         *time.Time `json:"acceptedAt,omitempty"`
	QuotedAt           *time.Time `json:"quotedAt,omitempty"`
	CustomerResponseAt *time.Time `json:"customerResponseAt,omitempty"`
	ExpiresAt          *time.Time `json:"expiresAt,omitempty"`
	LeadFeeOre         int64      `json:"leadFeeOre"`
	CommissionBps      int        `json:"commissionBps"`
	Billed             bool       `json:"billed"`
	ViewCount          int        `json:"viewCount"`
	Latitude           *float64   `json:"latitude,omitempty"`
	Longitude          *float64   `json:"longitude,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

// LeadPreviewResponse is the redacted view a partner sees before accepting:
// region and summary only, no direct customer contact details.
type LeadPreviewResponse struct {
	ID        uuid.UUID  `json:"id"`
	City      string     `json:"city"`
	Region    string     `json:"region"`
	Summary   string     `json:"summary"`
	Status    string     `json:"status"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// AttachmentResponse describes an uploaded lead photo.
type AttachmentResponse struct {
	ID          uuid.UUID `json:"id"`
	FileName    string    `json:"fileName"`
	ContentType string    `json:"contentType"`
	SizeBytes   int64     `json:"sizeBytes"`
	DownloadURL string    `json:"downloadUrl,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ── Mappers ───────────────────────────────────────────────────────────────────

// ToLeadResponse converts a repository lead, reporting the expiry-aware
// effective status.
func ToLeadResponse(lead repository.Lead, now time.Time) LeadResponse {
	return LeadResponse{
		ID:                 lead.ID,
		CustomerName:       lead.CustomerName,
		CustomerEmail:      lead.CustomerEmail,
		CustomerPhone:      lead.CustomerPhone,
		Address:            lead.Address,
		City:               lead.City,
		PostalCode:         lead.PostalCode,
		Region:             lead.Region,
		Summary:            lead.Summary,
		Details:            lead.Details,
		Status:             string(domain.Effective(lead.Status, lead.ExpiresAt, now)),
		AssignedPartnerID:  lead.AssignedPartnerID,
		AssignedAt:         lead.AssignedAt,
		AcceptedAt:         lead.AcceptedAt,
		QuotedAt:           lead.QuotedAt,
		CustomerResponseAt: lead.CustomerResponseAt,
		ExpiresAt:          lead.ExpiresAt,
		LeadFeeOre:         lead.LeadFeeOre,
		CommissionBps:      lead.CommissionBps,
		Billed:             lead.Billed,
		ViewCount:          lead.ViewCount,
		Latitude:           lead.Latitude,
		Longitude:          lead.Longitude,
		CreatedAt:          lead.CreatedAt,
		UpdatedAt:          lead.UpdatedAt,
	}
}

// ToLeadPreviewResponse converts a repository lead to the redacted partner view.
func ToLeadPreviewResponse(lead repository.Lead, now time.Time) LeadPreviewResponse {
	return LeadPreviewResponse{
		ID:        lead.ID,
		City:      lead.City,
		Region:    lead.Region,
		Summary:   lead.Summary,
		Status:    string(domain.Effective(lead.Status, lead.ExpiresAt, now)),
		ExpiresAt: lead.ExpiresAt,
		CreatedAt: lead.CreatedAt,
	}
}
