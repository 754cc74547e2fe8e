// Package customerportal provides the tokenized customer-facing module.
package customerportal

import (
	"arborlead_backend/internal/customerportal/handler"
	"arborlead_backend/internal/customerportal/token"
	apphttp "arborlead_backend/internal/http"
	quotesvc "arborlead_backend/internal/quotes/service"
	"arborlead_backend/platform/config"
	"arborlead_backend/platform/logger"
	"arborlead_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the customer portal bounded context implementing http.Module.
type Module struct {
	tokens  *token.Service
	handler *handler.Handler
}

// NewModule creates the portal module. The quote service is wired in after
// construction because the quotes module needs this module's token issuer.
func NewModule(pool *pgxpool.Pool, cfg *config.Config, log *logger.Logger) *Module {
	tokens := token.New(token.NewRepository(pool), cfg, log)
	return &Module{tokens: tokens}
}

// Tokens exposes the token service; the quotes module uses it as issuer.
func (m *Module) Tokens() *token.Service {
	return m.tokens
}

// SetQuoteService completes wiring once the quotes module exists.
func (m *Module) SetQuoteService(quotes *quotesvc.Service, val *validator.Validator) {
	m.handler = handler.New(m.tokens, quotes, val)
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "customerportal"
}

// RegisterRoutes mounts the portal routes with the stricter rate limiter.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.V1.Group("/customer-portal")
	if ctx.PortalRateLimiter != nil {
		group.Use(ctx.PortalRateLimiter.RateLimit())
	}
	m.handler.RegisterRoutes(group)
}

// Compile-time check that Module implements http.Module.
var _ apphttp.Module = (*Module)(nil)
