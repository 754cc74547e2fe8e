// Package handler serves the admin accounting endpoints.
package handler

import (
	"net/http"
	"time"

	"arborlead_backend/internal/accounting/service"
	"arborlead_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler serves accounting routes.
type Handler struct {
	svc *service.Service
}

// New creates the accounting handler.
func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterAdminRoutes mounts the accounting endpoints.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("/invoices/:quoteId/status", h.Status)
}

type statusResponse struct {
	QuoteID     uuid.UUID  `json:"quoteId"`
	Provider    string     `json:"provider"`
	Status      string     `json:"status"`
	ExternalRef *string    `json:"externalRef,omitempty"`
	NetOre      int64      `json:"netOre"`
	VATOre      int64      `json:"vatOre"`
	GrossOre    int64      `json:"grossOre"`
	Attempts    int        `json:"attempts"`
	LastError   *string    `json:"lastError,omitempty"`
	SyncedAt    *time.Time `json:"syncedAt,omitempty"`
}

// Status returns the provider sync state for a quote's invoice.
func (h *Handler) Status(c *gin.Context) {
	quoteID, err := uuid.Parse(c.Param("quoteId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}

	inv, err := h.svc.Status(c.Request.Context(), quoteID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, statusResponse{
		QuoteID:     inv.QuoteID,
		Provider:    inv.Provider,
		Status:      inv.Status,
		ExternalRef: inv.ExternalRef,
		NetOre:      inv.NetOre,
		VATOre:      inv.VATOre,
		GrossOre:    inv.GrossOre,
		Attempts:    inv.Attempts,
		LastError:   inv.LastError,
		SyncedAt:    inv.SyncedAt,
	})
}
