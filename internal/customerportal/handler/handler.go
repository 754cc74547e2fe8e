// Package handler serves the tokenized customer portal. Every route
// authenticates with an opaque portal token; staff JWTs are never accepted.
package handler

import (
	"net/http"

	"arborlead_backend/internal/customerportal/token"
	quotesvc "arborlead_backend/internal/quotes/service"
	"arborlead_backend/internal/quotes/transport"
	"arborlead_backend/platform/httpkit"
	"arborlead_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const portalTokenHeader = "X-Portal-Token"

// Handler serves the customer portal routes.
type Handler struct {
	tokens *token.Service
	quotes *quotesvc.Service
	val    *validator.Validator
}

// New creates the portal handler.
func New(tokens *token.Service, quotes *quotesvc.Service, val *validator.Validator) *Handler {
	return &Handler{tokens: tokens, quotes: quotes, val: val}
}

// RegisterRoutes mounts the portal endpoints.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/verify-token", h.VerifyToken)
	rg.GET("/quote", h.GetQuote)
	rg.POST("/quote/:id/status", h.Respond)
}

type verifyRequest struct {
	Token string `json:"token" validate:"required"`
}

type verifyResponse struct {
	Valid         bool       `json:"valid"`
	QuoteID       *uuid.UUID `json:"quoteId,omitempty"`
	CustomerEmail string     `json:"customerEmail,omitempty"`
}

// VerifyToken checks a portal token and returns its scope. An invalid
// token is a 200 with valid=false, never a hint about why.
func (h *Handler) VerifyToken(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}

	v := h.tokens.Verify(c.Request.Context(), req.Token)
	if !v.Valid {
		httpkit.OK(c, verifyResponse{Valid: false})
		return
	}
	httpkit.OK(c, verifyResponse{
		Valid:         true,
		QuoteID:       &v.QuoteID,
		CustomerEmail: v.CustomerEmail,
	})
}

// GetQuote returns the token's quote with its offert text.
func (h *Handler) GetQuote(c *gin.Context) {
	v := h.tokens.Verify(c.Request.Context(), c.GetHeader(portalTokenHeader))
	if !v.Valid {
		httpkit.Error(c, http.StatusForbidden, "invalid or expired token", nil)
		return
	}

	quote, items, err := h.quotes.Get(c.Request.Context(), v.QuoteID)
	if httpkit.HandleError(c, err) {
		return
	}

	out := transport.ToQuoteResponse(quote, items)
	out.OffertText = quotesvc.OffertText(quote, items)
	httpkit.OK(c, out)
}

type respondRequest struct {
	Token    string `json:"token" validate:"required"`
	Decision string `json:"decision" validate:"required,oneof=approved declined"`
	Feedback string `json:"feedback" validate:"omitempty,max=2000"`
}

// Respond records the customer's decision. The token must be valid and
// scoped to the quote in the path; either failure is a 403.
func (h *Handler) Respond(c *gin.Context) {
	quoteID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}

	var req respondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusUnprocessableEntity, "validation failed", err.Error())
		return
	}

	v := h.tokens.Verify(c.Request.Context(), req.Token)
	if !v.Valid {
		httpkit.Error(c, http.StatusForbidden, "invalid or expired token", nil)
		return
	}
	if v.QuoteID != quoteID {
		httpkit.Error(c, http.StatusForbidden, "token is not valid for this quote", nil)
		return
	}

	quote, err := h.quotes.Respond(c.Request.Context(), quoteID, req.Decision, req.Feedback)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToQuoteResponse(quote, nil))
}
