// Package handler provides HTTP handlers for the quotes bounded context.
package handler

import (
	"net/http"

	"arborlead_backend/internal/quotes/domain"
	"arborlead_backend/internal/quotes/service"
	"arborlead_backend/internal/quotes/transport"
	"arborlead_backend/platform/httpkit"
	"arborlead_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler serves quote routes for partners and admins.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates the quotes handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterPartnerRoutes mounts the authenticated partner endpoints.
func (h *Handler) RegisterPartnerRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.ListMine)
	rg.POST("", h.Create)
	rg.GET("/catalog", h.Catalog)
	rg.GET("/:id", h.Get)
	rg.POST("/:id/send", h.Send)
}

// RegisterAdminRoutes mounts the admin endpoints.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.ListByLead)
	rg.GET("/:id", h.GetAdmin)
}

// Create inserts a draft quote on an accepted lead owned by the partner.
func (h *Handler) Create(c *gin.Context) {
	partnerID, ok := httpkit.UserID(c)
	if !ok {
		httpkit.Error(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	var req transport.CreateQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusUnprocessableEntity, msgValidationFailed, err.Error())
		return
	}

	quote, items, err := h.svc.Create(c.Request.Context(), partnerID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, transport.ToQuoteResponse(quote, items))
}

// Send moves a draft quote to sent and notifies the customer.
func (h *Handler) Send(c *gin.Context) {
	partnerID, ok := httpkit.UserID(c)
	if !ok {
		httpkit.Error(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	quote, err := h.svc.Send(c.Request.Context(), id, partnerID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToQuoteResponse(quote, nil))
}

// Get returns a quote with items and offert text for the owning partner.
func (h *Handler) Get(c *gin.Context) {
	partnerID, ok := httpkit.UserID(c)
	if !ok {
		httpkit.Error(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	quote, items, err := h.svc.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	if quote.PartnerID != partnerID {
		httpkit.Error(c, http.StatusForbidden, "forbidden", nil)
		return
	}

	out := transport.ToQuoteResponse(quote, items)
	out.OffertText = service.OffertText(quote, items)
	httpkit.OK(c, out)
}

// GetAdmin returns any quote with items for admins.
func (h *Handler) GetAdmin(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	quote, items, err := h.svc.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	out := transport.ToQuoteResponse(quote, items)
	out.OffertText = service.OffertText(quote, items)
	httpkit.OK(c, out)
}

// ListMine returns the authenticated partner's quotes.
func (h *Handler) ListMine(c *gin.Context) {
	partnerID, ok := httpkit.UserID(c)
	if !ok {
		httpkit.Error(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	quotes, err := h.svc.ListByPartner(c.Request.Context(), partnerID)
	if httpkit.HandleError(c, err) {
		return
	}

	out := make([]transport.QuoteResponse, 0, len(quotes))
	for _, quote := range quotes {
		out = append(out, transport.ToQuoteResponse(quote, nil))
	}
	httpkit.OK(c, out)
}

// ListByLead returns a lead's quotes for admins.
func (h *Handler) ListByLead(c *gin.Context) {
	leadID, err := uuid.Parse(c.Query("leadId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "leadId query parameter is required", nil)
		return
	}

	quotes, err := h.svc.ListByLead(c.Request.Context(), leadID)
	if httpkit.HandleError(c, err) {
		return
	}

	out := make([]transport.QuoteResponse, 0, len(quotes))
	for _, quote := range quotes {
		out = append(out, transport.ToQuoteResponse(quote, nil))
	}
	httpkit.OK(c, out)
}

// Catalog returns the selectable species and operations for the quote form.
func (h *Handler) Catalog(c *gin.Context) {
	species := domain.AllSpecies()
	operations := domain.AllOperations()

	out := transport.CatalogResponse{
		TreeSpecies:    make([]string, 0, len(species)),
		OperationTypes: make([]string, 0, len(operations)),
	}
	for _, s := range species {
		out.TreeSpecies = append(out.TreeSpecies, string(s))
	}
	for _, op := range operations {
		out.OperationTypes = append(out.OperationTypes, string(op))
	}
	httpkit.OK(c, out)
}
