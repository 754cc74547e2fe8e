// Package handler provides admin HTTP handlers for the partners module.
package handler

import (
	"net/http"
	"strconv"
	"time"

	"arborlead_backend/internal/partners/repository"
	"arborlead_backend/internal/partners/service"
	"arborlead_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler serves partner directory and billing routes.
type Handler struct {
	svc *service.Service
}

// New creates the partners handler.
func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterAdminRoutes mounts the admin partner endpoints.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/top", h.Top)
	rg.POST("/generate-invoices", h.GenerateInvoices)
	rg.GET("/:id", h.Get)
	rg.GET("/:id/invoices", h.ListInvoices)
}

type partnerResponse struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	CompanyName string    `json:"companyName"`
	Region      string    `json:"region"`
	DebtOre     int64     `json:"debtOre"`
	CreatedAt   time.Time `json:"createdAt"`
}

type rankedPartnerResponse struct {
	partnerResponse
	AcceptanceRate  float64 `json:"acceptanceRate"`
	AvgResponseSecs float64 `json:"avgResponseSecs"`
}

type invoiceResponse struct {
	ID        uuid.UUID `json:"id"`
	PartnerID uuid.UUID `json:"partnerId"`
	Period    string    `json:"period"`
	AmountOre int64     `json:"amountOre"`
	CreatedAt time.Time `json:"createdAt"`
}

func toPartnerResponse(p repository.Partner) partnerResponse {
	return partnerResponse{
		ID:          p.ID,
		Email:       p.Email,
		Name:        p.Name,
		CompanyName: p.CompanyName,
		Region:      p.Region,
		DebtOre:     p.DebtOre,
		CreatedAt:   p.CreatedAt,
	}
}

func toInvoiceResponse(inv repository.Invoice) invoiceResponse {
	return invoiceResponse{
		ID:        inv.ID,
		PartnerID: inv.PartnerID,
		Period:    inv.Period,
		AmountOre: inv.AmountOre,
		CreatedAt: inv.CreatedAt,
	}
}

// List returns active partners, optionally filtered by region.
func (h *Handler) List(c *gin.Context) {
	partners, err := h.svc.List(c.Request.Context(), c.Query("region"))
	if httpkit.HandleError(c, err) {
		return
	}

	out := make([]partnerResponse, 0, len(partners))
	for _, p := range partners {
		out = append(out, toPartnerResponse(p))
	}
	httpkit.OK(c, out)
}

// Get returns a single partner with ledger balance.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}

	partner, err := h.svc.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toPartnerResponse(partner))
}

// Top returns partners ranked by performance.
func (h *Handler) Top(c *gin.Context) {
	limit := 10
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 100 {
			httpkit.Error(c, http.StatusBadRequest, "limit must be within [1, 100]", nil)
			return
		}
		limit = parsed
	}

	ranked, err := h.svc.TopPartners(c.Request.Context(), c.Query("region"), limit)
	if httpkit.HandleError(c, err) {
		return
	}

	out := make([]rankedPartnerResponse, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, rankedPartnerResponse{
			partnerResponse: toPartnerResponse(r.Partner),
			AcceptanceRate:  r.AcceptanceRate,
			AvgResponseSecs: r.AvgResponseSecs,
		})
	}
	httpkit.OK(c, out)
}

// GenerateInvoices settles all indebted partners for the current period.
func (h *Handler) GenerateInvoices(c *gin.Context) {
	invoices, err := h.svc.GenerateMonthlyInvoices(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}

	out := make([]invoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		out = append(out, toInvoiceResponse(inv))
	}
	httpkit.OK(c, out)
}

// ListInvoices returns a partner's settlement history.
func (h *Handler) ListInvoices(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}

	invoices, err := h.svc.ListInvoices(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	out := make([]invoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		out = append(out, toInvoiceResponse(inv))
	}
	httpkit.OK(c, out)
}
