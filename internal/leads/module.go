// Package leads provides the lead management bounded context module.
package leads

import (
	"arborlead_backend/internal/events"
	apphttp "arborlead_backend/internal/http"
	"arborlead_backend/internal/leads/handler"
	"arborlead_backend/internal/leads/repository"
	"arborlead_backend/internal/leads/service"
	"arborlead_backend/internal/storage"
	"arborlead_backend/platform/config"
	"arborlead_backend/platform/logger"
	"arborlead_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the leads module with all its
// dependencies. The object store is optional; without it the attachment
// endpoints degrade gracefully.
func NewModule(
	pool *pgxpool.Pool,
	eventBus events.Bus,
	partners service.PartnerDirectory,
	billing service.Billing,
	store storage.ObjectStore,
	val *validator.Validator,
	cfg *config.Config,
	log *logger.Logger,
) *Module {
	repo := repository.New(pool)

	svc := service.New(repo, partners, billing, cfg, log)
	svc.SetEventBus(eventBus)

	var attachments *service.AttachmentService
	if store != nil {
		attachments = service.NewAttachmentService(repo, store, cfg, log)
	}

	return &Module{
		handler: handler.New(svc, attachments, val),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// Service exposes the lifecycle service for the scheduler and other modules.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts leads routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterIntakeRoutes(ctx.V1.Group("/leads"))
	m.handler.RegisterPartnerRoutes(ctx.Protected.Group("/leads"))
	m.handler.RegisterAdminRoutes(ctx.Admin.Group("/leads"))
}

// Compile-time check that Module implements http.Module.
var _ apphttp.Module = (*Module)(nil)
