// Package auth provides the staff authentication module.
package auth

import (
	"arborlead_backend/internal/auth/handler"
	"arborlead_backend/internal/auth/repository"
	"arborlead_backend/internal/auth/service"
	apphttp "arborlead_backend/internal/http"
	"arborlead_backend/platform/config"
	"arborlead_backend/platform/logger"
	"arborlead_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the auth bounded context implementing http.Module.
type Module struct {
	handler *handler.Handler
}

// NewModule creates the auth module.
func NewModule(pool *pgxpool.Pool, val *validator.Validator, cfg *config.Config, log *logger.Logger) *Module {
	svc := service.New(repository.New(pool), cfg, log)
	return &Module{handler: handler.New(svc, val)}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "auth"
}

// RegisterRoutes mounts auth routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterPublicRoutes(ctx.V1.Group("/auth"))
	m.handler.RegisterProtectedRoutes(ctx.Protected.Group("/auth"))
}

// Compile-time check that Module implements http.Module.
var _ apphttp.Module = (*Module)(nil)
