// Package accounting provides the bookkeeping integration module.
package accounting

import (
	"arborlead_backend/internal/accounting/connector"
	"arborlead_backend/internal/accounting/handler"
	"arborlead_backend/internal/accounting/repository"
	"arborlead_backend/internal/accounting/service"
	"arborlead_backend/internal/events"
	apphttp "arborlead_backend/internal/http"
	"arborlead_backend/platform/config"
	"arborlead_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the accounting bounded context implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule loads the provider settings, builds the connector, and
// subscribes the invoice creation listener.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, cfg *config.Config, log *logger.Logger) (*Module, error) {
	settings, err := connector.LoadSettings(cfg.GetAccountingConfigPath())
	if err != nil {
		return nil, err
	}
	conn, err := connector.New(settings)
	if err != nil {
		return nil, err
	}

	svc := service.New(repository.New(pool), conn, log)
	svc.Subscribe(eventBus)

	return &Module{
		handler: handler.New(svc),
		service: svc,
	}, nil
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "accounting"
}

// Service exposes the accounting service for the scheduler's retry task.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts accounting routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterAdminRoutes(ctx.Admin.Group("/accounting"))
}

// Compile-time check that Module implements http.Module.
var _ apphttp.Module = (*Module)(nil)
