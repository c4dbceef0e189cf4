// Package notification turns lead events into operator alerts: WhatsApp
// messages to the admin phone, an e-mail to the expert and a live SSE feed.
// Domain modules publish events and never talk to the channels directly.
package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"repair_audit_backend/internal/diagnostic/domain"
	"repair_audit_backend/internal/email"
	"repair_audit_backend/internal/events"
	apphttp "repair_audit_backend/internal/http"
	"repair_audit_backend/internal/notification/sse"
	"repair_audit_backend/platform/httpkit"
	"repair_audit_backend/platform/logger"
)

// WhatsAppSender sends WhatsApp messages.
type WhatsAppSender interface {
	SendMessage(ctx context.Context, phoneNumber string, message string) error
}

// Config is the notification slice of the application config.
type Config interface {
	GetAdminPhone() string
	GetExpertEmail() string
}

// Module handles notification events.
type Module struct {
	whatsapp WhatsAppSender
	email    email.Sender
	sse      *sse.Service
	cfg      Config
	log      *logger.Logger
}

// New creates the notification module. whatsapp may be nil, in which case
// admin chat alerts are skipped.
func New(whatsapp WhatsAppSender, sender email.Sender, cfg Config, log *logger.Logger) *Module {
	if sender == nil {
		sender = email.NoopSender{}
	}
	return &Module{
		whatsapp: whatsapp,
		email:    sender,
		sse:      sse.New(log),
		cfg:      cfg,
		log:      log,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "notification"
}

// SSE exposes the operator feed.
func (m *Module) SSE() *sse.Service {
	return m.sse
}

// RegisterRoutes mounts the operator event stream.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Admin.GET("/notifications/stream", m.sse.Handler(func(c *gin.Context) string {
		return httpkit.GetIdentity(c).Subject()
	}))
}

// RegisterHandlers subscribes the module to the events it reacts to.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.DiagnosticCompleted{}.EventName(), events.HandlerFunc(m.handleDiagnosticCompleted))
	bus.Subscribe(events.PhoneCaptured{}.EventName(), events.HandlerFunc(m.handlePhoneCaptured))
	bus.Subscribe(events.ExpertQuestionAsked{}.EventName(), events.HandlerFunc(m.handleExpertQuestion))
	bus.Subscribe(events.CallbackReminderDue{}.EventName(), events.HandlerFunc(m.handleCallbackReminder))
	m.log.Info("notification module registered event handlers")
}

func (m *Module) handleDiagnosticCompleted(_ context.Context, event events.Event) error {
	e, ok := event.(events.DiagnosticCompleted)
	if !ok {
		return nil
	}
	m.sse.Broadcast(sse.Event{
		Type:      sse.EventDiagnosticCompleted,
		SessionID: e.SessionID,
		Data: map[string]interface{}{
			"stage":   e.Stage,
			"area":    e.Area,
			"lossAvg": e.LossAvg,
			"channel": e.Channel,
		},
	})
	return nil
}

func (m *Module) handlePhoneCaptured(ctx context.Context, event events.Event) error {
	e, ok := event.(events.PhoneCaptured)
	if !ok {
		return nil
	}

	loss := unknownValue
	if e.LossAvg > 0 {
		loss = domain.FormatMoney(e.LossAvg)
	}
	text := fmt.Sprintf(phoneCapturedAlertFormat, e.Phone, e.Channel, orUnknown(e.Stage), loss)

	m.sse.Broadcast(sse.Event{Type: sse.EventPhoneCaptured, SessionID: e.SessionID, Message: e.Phone})
	return m.alertAdmin(ctx, text)
}

// handleExpertQuestion alerts the admin chat and e-mails the expert in
// parallel. Both are attempted even when one fails.
func (m *Module) handleExpertQuestion(ctx context.Context, event events.Event) error {
	e, ok := event.(events.ExpertQuestionAsked)
	if !ok {
		return nil
	}

	m.sse.Broadcast(sse.Event{Type: sse.EventExpertQuestion, SessionID: e.SessionID, Message: e.Question})

	var g errgroup.Group
	g.Go(func() error {
		text := fmt.Sprintf(expertQuestionAlertFormat, e.Question, orUnknown(e.Phone), e.Channel)
		return m.alertAdmin(ctx, text)
	})
	g.Go(func() error {
		to := m.cfg.GetExpertEmail()
		if to == "" {
			return nil
		}
		err := m.email.SendExpertQuestionEmail(ctx, to, email.ExpertQuestion{
			SessionID: e.SessionID,
			Channel:   e.Channel,
			Question:  e.Question,
			Phone:     e.Phone,
			AskedAt:   e.OccurredAt(),
		})
		if err != nil {
			return fmt.Errorf("expert email: %w", err)
		}
		m.log.Info("expert question emailed", slog.String("session", e.SessionID))
		return nil
	})
	return g.Wait()
}

func (m *Module) handleCallbackReminder(ctx context.Context, event events.Event) error {
	e, ok := event.(events.CallbackReminderDue)
	if !ok {
		return nil
	}

	m.sse.Broadcast(sse.Event{Type: sse.EventCallbackReminder, Message: e.Phone, Data: map[string]interface{}{"leadId": e.LeadID}})
	text := fmt.Sprintf(callbackReminderFormat, e.Phone, e.CapturedAt.Format(reminderTimeLayout))
	return m.alertAdmin(ctx, text)
}

func (m *Module) alertAdmin(ctx context.Context, text string) error {
	admin := m.cfg.GetAdminPhone()
	if m.whatsapp == nil || admin == "" {
		m.log.Debug("admin whatsapp alert skipped: not configured")
		return nil
	}
	if err := m.whatsapp.SendMessage(ctx, admin, text); err != nil {
		return fmt.Errorf("admin whatsapp alert: %w", err)
	}
	return nil
}

func orUnknown(s string) string {
	if s == "" {
		return unknownValue
	}
	return s
}
