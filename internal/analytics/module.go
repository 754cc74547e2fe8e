// Package analytics provides the KPI logging and reporting module.
package analytics

import (
	"arborlead_backend/internal/analytics/handler"
	"arborlead_backend/internal/analytics/repository"
	"arborlead_backend/internal/analytics/service"
	"arborlead_backend/internal/events"
	apphttp "arborlead_backend/internal/http"
	"arborlead_backend/platform/config"
	"arborlead_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Module is the analytics bounded context implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates the analytics module and subscribes the KPI event
// logger. cache may be nil when redis is unavailable.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, cache *redis.Client, cfg *config.Config, log *logger.Logger) *Module {
	svc := service.New(repository.New(pool), cache, cfg, log)
	svc.Subscribe(eventBus)

	return &Module{
		handler: handler.New(svc),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "analytics"
}

// Service exposes the analytics service for the scheduler's daily rollup.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts analytics routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterAdminRoutes(ctx.Admin.Group("/analytics"))
}

// Compile-time check that Module implements http.Module.
var _ apphttp.Module = (*Module)(nil)
