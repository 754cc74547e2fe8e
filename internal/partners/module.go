// Package partners provides the partner directory and billing module.
package partners

import (
	"arborlead_backend/internal/events"
	apphttp "arborlead_backend/internal/http"
	"arborlead_backend/internal/partners/handler"
	"arborlead_backend/internal/partners/repository"
	"arborlead_backend/internal/partners/service"
	"arborlead_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the partners bounded context implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates the partners module and subscribes the commission
// charging listener.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, log *logger.Logger) *Module {
	svc := service.New(repository.New(pool), log)
	svc.SubscribeCommissionCharging(eventBus)

	return &Module{
		handler: handler.New(svc),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "partners"
}

// Service exposes the partners service; the leads module uses it as its
// partner directory and billing collaborator.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts partner routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterAdminRoutes(ctx.Admin.Group("/partners"))
}

// Compile-time check that Module implements http.Module.
var _ apphttp.Module = (*Module)(nil)
