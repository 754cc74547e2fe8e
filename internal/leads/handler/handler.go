// Package handler provides HTTP handlers for the leads bounded context.
package handler

import (
	"context"
	"net/http"
	"time"

	"arborlead_backend/internal/leads/domain"
	"arborlead_backend/internal/leads/repository"
	"arborlead_backend/internal/leads/service"
	"arborlead_backend/internal/leads/transport"
	"arborlead_backend/platform/httpkit"
	"arborlead_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler serves lead routes for admins, partners, and public intake.
type Handler struct {
	svc         *service.Service
	attachments *service.AttachmentService
	val         *validator.Validator
}

// New creates the leads handler.
func New(svc *service.Service, attachments *service.AttachmentService, val *validator.Validator) *Handler {
	return &Handler{svc: svc, attachments: attachments, val: val}
}

// RegisterIntakeRoutes mounts the public intake endpoints.
func (h *Handler) RegisterIntakeRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.POST("/:id/attachments", h.UploadAttachment)
}

// RegisterAdminRoutes mounts the admin lead management endpoints.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/:id", h.GetByID)
	rg.GET("/:id/attachments", h.ListAttachments)
	rg.PUT("/:id/assign", h.Assign)
	rg.POST("/:id/recall", h.Recall)
	rg.POST("/:id/complete", h.Complete)
}

// RegisterPartnerRoutes mounts the authenticated partner endpoints.
func (h *Handler) RegisterPartnerRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.ListMine)
	rg.GET("/:id", h.PartnerDetail)
	rg.GET("/:id/attachments", h.ListAttachments)
	rg.POST("/:id/accept", h.Accept)
	rg.POST("/:id/reject", h.Reject)
}

// Create handles public lead intake.
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusUnprocessableEntity, msgValidationFailed, err.Error())
		return
	}

	lead, err := h.svc.Create(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, transport.ToLeadResponse(lead, time.Now().UTC()))
}

// List returns leads matching the admin's filter.
func (h *Handler) List(c *gin.Context) {
	var query transport.ListLeadsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	params := repository.ListParams{Page: query.Page, PageSize: query.PageSize}
	if query.Status != "" {
		status, err := domain.ParseStatus(query.Status)
		if err != nil {
			httpkit.Error(c, http.StatusUnprocessableEntity, msgValidationFailed, err.Error())
			return
		}
		params.Status = &status
	}
	if query.Region != "" {
		params.Region = &query.Region
	}

	leads, err := h.svc.List(c.Request.Context(), params)
	if httpkit.HandleError(c, err) {
		return
	}

	now := time.Now().UTC()
	out := make([]transport.LeadResponse, 0, len(leads))
	for _, lead := range leads {
		out = append(out, transport.ToLeadResponse(lead, now))
	}
	httpkit.OK(c, out)
}

// GetByID returns a full lead for admins.
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	lead, err := h.svc.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLeadResponse(lead, time.Now().UTC()))
}

// Assign hands a new lead to a partner.
func (h *Handler) Assign(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req struct {
		PartnerID uuid.UUID `json:"partnerId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	lead, err := h.svc.Assign(c.Request.Context(), id, req.PartnerID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLeadResponse(lead, time.Now().UTC()))
}

// Recall pulls an assigned lead back into the unassigned pool.
func (h *Handler) Recall(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	lead, err := h.svc.Recall(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLeadResponse(lead, time.Now().UTC()))
}

// Complete marks an approved lead's job as done.
func (h *Handler) Complete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	lead, err := h.svc.Complete(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLeadResponse(lead, time.Now().UTC()))
}

// ListMine returns the authenticated partner's leads.
func (h *Handler) ListMine(c *gin.Context) {
	partnerID, ok := httpkit.UserID(c)
	if !ok {
		httpkit.Error(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	var query transport.ListLeadsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	params := repository.ListParams{PartnerID: &partnerID, Page: query.Page, PageSize: query.PageSize}
	leads, err := h.svc.List(c.Request.Context(), params)
	if httpkit.HandleError(c, err) {
		return
	}

	// Assigned leads stay redacted until the partner commits to the fee.
	now := time.Now().UTC()
	out := make([]any, 0, len(leads))
	for _, lead := range leads {
		if domain.Effective(lead.Status, lead.ExpiresAt, now) == domain.StatusAssigned {
			out = append(out, transport.ToLeadPreviewResponse(lead, now))
			continue
		}
		out = append(out, transport.ToLeadResponse(lead, now))
	}
	httpkit.OK(c, out)
}

// PartnerDetail returns a lead for the owning partner, redacted before
// acceptance, and records the view.
func (h *Handler) PartnerDetail(c *gin.Context) {
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

	lead, err := h.svc.PartnerDetail(c.Request.Context(), id, partnerID)
	if httpkit.HandleError(c, err) {
		return
	}

	now := time.Now().UTC()
	if domain.Effective(lead.Status, lead.ExpiresAt, now) == domain.StatusAssigned {
		httpkit.OK(c, transport.ToLeadPreviewResponse(lead, now))
		return
	}
	httpkit.OK(c, transport.ToLeadResponse(lead, now))
}

// Accept records the partner's acceptance of an assigned lead.
func (h *Handler) Accept(c *gin.Context) {
	h.decide(c, h.svc.Accept)
}

// Reject records the partner's rejection of an assigned lead.
func (h *Handler) Reject(c *gin.Context) {
	h.decide(c, h.svc.Reject)
}

func (h *Handler) decide(c *gin.Context, op func(ctx context.Context, leadID, partnerID uuid.UUID) (repository.Lead, error)) {
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

	lead, err := op(c.Request.Context(), id, partnerID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToLeadResponse(lead, time.Now().UTC()))
}

// UploadAttachment stores a site photo against a lead.
func (h *Handler) UploadAttachment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if h.attachments == nil {
		httpkit.Error(c, http.StatusServiceUnavailable, "attachments are not enabled", nil)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "missing file", nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "failed to read file", nil)
		return
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	att, err := h.attachments.Upload(c.Request.Context(), id, fileHeader.Filename, contentType, file, fileHeader.Size)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.Created(c, transport.AttachmentResponse{
		ID:          att.ID,
		FileName:    att.FileName,
		ContentType: att.ContentType,
		SizeBytes:   att.SizeBytes,
		CreatedAt:   att.CreatedAt,
	})
}

// ListAttachments returns a lead's attachments with presigned download URLs.
func (h *Handler) ListAttachments(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if h.attachments == nil {
		httpkit.OK(c, []transport.AttachmentResponse{})
		return
	}

	atts, urls, err := h.attachments.List(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	out := make([]transport.AttachmentResponse, 0, len(atts))
	for _, att := range atts {
		out = append(out, transport.AttachmentResponse{
			ID:          att.ID,
			FileName:    att.FileName,
			ContentType: att.ContentType,
			SizeBytes:   att.SizeBytes,
			DownloadURL: urls[att.ID],
			CreatedAt:   att.CreatedAt,
		})
	}
	httpkit.OK(c, out)
}
