// Package notification wires the event subscribers and the mail outbox.
package notification

import (
	"arborlead_backend/internal/events"
	apphttp "arborlead_backend/internal/http"
	"arborlead_backend/internal/notification/outbox"
	"arborlead_backend/internal/notification/service"
	"arborlead_backend/platform/config"
	"arborlead_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module owns the notification outbox. It exposes no HTTP routes; the
// scheduler drives delivery through Service().Dispatch.
type Module struct {
	svc *service.Service
}

// NewModule creates the notification module and subscribes it to the bus.
func NewModule(pool *pgxpool.Pool, bus events.Bus, partners service.PartnerDirectory, cfg *config.Config, log *logger.Logger) *Module {
	repo := outbox.NewRepository(pool)
	svc := service.New(repo, partners, cfg, log)
	svc.Subscribe(bus)
	return &Module{svc: svc}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "notification"
}

// Service exposes the notification service for the scheduler.
func (m *Module) Service() *service.Service {
	return m.svc
}

// RegisterRoutes implements http.Module; notifications are internal only.
func (m *Module) RegisterRoutes(*apphttp.RouterContext) {}

// Compile-time check that Module implements http.Module.
var _ apphttp.Module = (*Module)(nil)
