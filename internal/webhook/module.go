// Package webhook provides the inbound WhatsApp (GOWA) webhook that lets
// users run the diagnostic from a chat.
package webhook

import (
	apphttp "repair_audit_backend/internal/http"
	"repair_audit_backend/platform/config"
	"repair_audit_backend/platform/logger"
)

// Module is the webhook bounded context module implementing http.Module.
type Module struct {
	handler *Handler
	service *Service
	secret  string
	enabled bool
	log     *logger.Logger
}

// NewModule creates the webhook module. With a nil sender the route is not
// mounted.
func NewModule(diagnostic DiagnosticService, sender MessageSender, cfg config.WhatsAppConfig, log *logger.Logger) *Module {
	svc := NewService(diagnostic, sender, cfg.GetWhatsAppPacing(), log)
	return &Module{
		handler: NewHandler(svc),
		service: svc,
		secret:  cfg.GetWhatsAppWebhookSecret(),
		enabled: sender != nil,
		log:     log,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "webhook"
}

// Service exposes the inbound processor, mainly so shutdown can wait for it.
func (m *Module) Service() *Service {
	return m.service
}

// RegisterRoutes mounts the signed GOWA webhook. Without a gateway or a
// webhook secret the route stays unmounted.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	if !m.enabled {
		m.log.Info("whatsapp webhook disabled: gateway not configured")
		return
	}
	if m.secret == "" {
		m.log.Warn("whatsapp webhook disabled: WHATSAPP_WEBHOOK_SECRET is empty")
		return
	}
	ctx.V1.POST("/webhook/whatsapp", SignatureMiddleware(m.secret), m.handler.HandleWhatsAppInbound)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
