// Package diagnostic provides the renovation loss diagnostic bounded context:
// the questionnaire, the loss calculator, the offer funnel and the public
// HTTP API that drives them.
package diagnostic

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"repair_audit_backend/internal/diagnostic/agent"
	"repair_audit_backend/internal/diagnostic/domain"
	"repair_audit_backend/internal/diagnostic/handler"
	"repair_audit_backend/internal/diagnostic/repository"
	"repair_audit_backend/internal/diagnostic/service"
	"repair_audit_backend/internal/diagnostic/transport"
	"repair_audit_backend/internal/events"
	apphttp "repair_audit_backend/internal/http"
	"repair_audit_backend/platform/config"
	"repair_audit_backend/platform/logger"
	"repair_audit_backend/platform/validator"
)

// Module is the diagnostic bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	store   repository.SessionStore
	log     *logger.Logger
}

// NewModule wires the questionnaire machine, the session store and the
// personalizer into the diagnostic service.
func NewModule(policies *domain.PolicyTable, store repository.SessionStore, personalizer agent.Personalizer, eventBus events.Bus, funnel config.FunnelConfig, val *validator.Validator, log *logger.Logger) (*Module, error) {
	if err := transport.RegisterValidations(val); err != nil {
		return nil, fmt.Errorf("register diagnostic validations: %w", err)
	}

	machine := domain.NewMachine(policies)
	svc := service.New(machine, store, personalizer, eventBus, funnel, log)

	return &Module{
		handler: handler.New(svc, val, funnel.GetExpertTelegram()),
		service: svc,
		store:   store,
		log:     log,
	}, nil
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "diagnostic"
}

// Service returns the diagnostic service for chat transports.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts the public, rate limited diagnostic routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.V1.Group("/diagnostic")
	if ctx.PublicRateLimiter != nil {
		group.Use(ctx.PublicRateLimiter.RateLimit())
	}
	m.handler.RegisterRoutes(group)
}

// RunJanitor purges in-memory sessions idle for longer than ttl, checking
// every interval until ctx is done. Other stores expire sessions themselves
// and the call returns immediately.
func (m *Module) RunJanitor(ctx context.Context, interval, ttl time.Duration) {
	mem, ok := m.store.(*repository.MemoryStore)
	if !ok || interval <= 0 || ttl <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := mem.PurgeIdle(now.Add(-ttl)); n > 0 {
				m.log.Info("idle diagnostic sessions purged", slog.Int("count", n), slog.Int("remaining", mem.Len()))
			}
		}
	}
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
