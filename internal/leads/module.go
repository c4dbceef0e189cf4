// Package leads provides the lead capture bounded context module.
// It persists completed diagnostics, captured phones and expert questions
// and exposes them to operators.
package leads

import (
	"time"

	"repair_audit_backend/internal/events"
	apphttp "repair_audit_backend/internal/http"
	"repair_audit_backend/internal/leads/handler"
	"repair_audit_backend/internal/leads/repository"
	"repair_audit_backend/internal/leads/service"
	"repair_audit_backend/platform/logger"
	"repair_audit_backend/platform/validator"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates the leads module and subscribes it to diagnostic events.
func NewModule(db repository.DB, eventBus events.Bus, reminders service.ReminderScheduler, reminderDelay time.Duration, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(db)
	svc := service.New(repo, reminders, reminderDelay, log)
	svc.RegisterHandlers(eventBus)

	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// Service returns the leads service for the scheduler worker.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts the admin-only listings.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Admin)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
