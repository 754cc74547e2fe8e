// Package transport defines request/response DTOs for the quotes module.
package transport

import (
	"time"

	"arborlead_backend/internal/quotes/repository"

	"github.com/google/uuid"
)

// QuoteItemRequest is a single line in a quote creation payload.
type QuoteItemRequest struct {
	Quantity        int    `json:"quantity" validate:"required,min=1"`
	TreeSpecies     string `json:"treeSpecies" validate:"required"`
	OperationType   string `json:"operationType" validate:"required"`
	CustomOperation string `json:"customOperation" validate:"omitempty,max=255"`
	CostOre         int64  `json:"costOre" validate:"min=0"`
}

// CreateQuoteRequest creates a draft quote on an accepted lead.
type CreateQuoteRequest struct {
	LeadID uuid.UUID          `json:"leadId" validate:"required"`
	Items  []QuoteItemRequest `json:"items" validate:"required,min=1,dive"`
}

// RespondRequest carries a customer's decision from the portal.
type RespondRequest struct {
	Decision string `json:"decision" validate:"required,oneof=approved declined"`
	Feedback string `json:"feedback" validate:"omitempty,max=2000"`
}

// QuoteItemResponse is a quote line in API responses.
type QuoteItemResponse struct {
	ID              uuid.UUID `json:"id"`
	Quantity        int       `json:"quantity"`
	TreeSpecies     string    `json:"treeSpecies"`
	OperationType   string    `json:"operationType"`
	CustomOperation *string   `json:"customOperation,omitempty"`
	CostOre         int64     `json:"costOre"`
}

// QuoteResponse is the full quote representation.
type QuoteResponse struct {
	ID                 uuid.UUID           `json:"id"`
	LeadID             uuid.UUID           `json:"leadId"`
	PartnerID          uuid.UUID           `json:"partnerId"`
	Status             string              `json:"status"`
	TotalOre           int64               `json:"totalOre"`
	CommissionOre      int64               `json:"commissionOre"`
	SentAt             *time.Time          `json:"sentAt,omitempty"`
	CustomerResponseAt *time.Time          `json:"customerResponseAt,omitempty"`
	Feedback           *string             `json:"feedback,omitempty"`
	Items              []QuoteItemResponse `json:"items,omitempty"`
	OffertText         string              `json:"offertText,omitempty"`
	CreatedAt          time.Time           `json:"createdAt"`
	UpdatedAt          time.Time           `json:"updatedAt"`
}

// CatalogResponse lists the selectable species and operations.
type CatalogResponse struct {
	TreeSpecies    []string `json:"treeSpecies"`
	OperationTypes []string `json:"operationTypes"`
}

// ToQuoteResponse converts a repository quote and its items.
func ToQuoteResponse(quote repository.Quote, items []repository.Item) QuoteResponse {
	out := QuoteResponse{
		ID:                 quote.ID,
		LeadID:             quote.LeadID,
		PartnerID:          quote.PartnerID,
		Status:             string(quote.Status),
		TotalOre:           quote.TotalOre,
		CommissionOre:      quote.CommissionOre,
		SentAt:             quote.SentAt,
		CustomerResponseAt: quote.CustomerResponseAt,
		Feedback:           quote.Feedback,
		CreatedAt:          quote.CreatedAt,
		UpdatedAt:          quote.UpdatedAt,
	}
	for _, item := range items {
		out.Items = append(out.Items, QuoteItemResponse{
			ID:              item.ID,
			Quantity:        item.Quantity,
			TreeSpecies:     string(item.TreeSpecies),
			OperationType:   string(item.OperationType),
			CustomOperation: item.CustomOperation,
			CostOre:         item.CostOre,
		})
	}
	return out
}
