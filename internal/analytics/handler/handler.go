// Package handler serves the admin KPI endpoints.
package handler

import (
	"arborlead_backend/internal/analytics/service"
	"arborlead_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// Handler serves analytics routes.
type Handler struct {
	svc *service.Service
}

// New creates the analytics handler.
func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterAdminRoutes mounts the KPI endpoints.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("/kpi/summary", h.Summary)
}

// Summary returns the current KPI set.
func (h *Handler) Summary(c *gin.Context) {
	summary, err := h.svc.Summary(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, summary)
}
