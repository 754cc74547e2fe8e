// Package quotes provides the quote management bounded context module.
package quotes

import (
	"arborlead_backend/internal/events"
	apphttp "arborlead_backend/internal/http"
	leadsrepo "arborlead_backend/internal/leads/repository"
	"arborlead_backend/internal/quotes/handler"
	"arborlead_backend/internal/quotes/repository"
	"arborlead_backend/internal/quotes/service"
	"arborlead_backend/platform/config"
	"arborlead_backend/platform/logger"
	"arborlead_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the quotes bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the quotes module. The token issuer
// comes from the customer portal module; it mints the link the customer
// uses to respond.
func NewModule(
	pool *pgxpool.Pool,
	eventBus events.Bus,
	tokens service.TokenIssuer,
	val *validator.Validator,
	cfg *config.Config,
	log *logger.Logger,
) *Module {
	repo := repository.New(pool)
	leads := leadsrepo.New(pool)

	svc := service.New(repo, leads, tokens, cfg, log)
	svc.SetEventBus(eventBus)

	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "quotes"
}

// Service exposes the quote service for the customer portal module.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts quote routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterPartnerRoutes(ctx.Protected.Group("/quotes"))
	m.handler.RegisterAdminRoutes(ctx.Admin.Group("/quotes"))
}

// Compile-time check that Module implements http.Module.
var _ apphttp.Module = (*Module)(nil)
