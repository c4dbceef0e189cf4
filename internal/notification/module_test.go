package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repair_audit_backend/internal/email"
	"repair_audit_backend/internal/events"
	"repair_audit_backend/platform/logger"
)

type testConfig struct {
	adminPhone  string
	expertEmail string
}

func (c testConfig) GetAdminPhone() string  { return c.adminPhone }
func (c testConfig) GetExpertEmail() string { return c.expertEmail }

type whatsAppStub struct {
	mu   sync.Mutex
	sent map[string][]string
	err  error
}

func (w *whatsAppStub) SendMessage(_ context.Context, phone, text string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	if w.sent == nil {
		w.sent = make(map[string][]string)
	}
	w.sent[phone] = append(w.sent[phone], text)
	return nil
}

type emailStub struct {
	mu   sync.Mutex
	to   []string
	last email.ExpertQuestion
	err  error
}

func (e *emailStub) SendExpertQuestionEmail(_ context.Context, to string, q email.ExpertQuestion) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.to = append(e.to, to)
	e.last = q
	return e.err
}

func newTestModule(wa *whatsAppStub, mail *emailStub, cfg testConfig) *Module {
	var sender WhatsAppSender
	if wa != nil {
		sender = wa
	}
	var es email.Sender
	if mail != nil {
		es = mail
	}
	return New(sender, es, cfg, logger.Discard())
}

func publishSync(t *testing.T, m *Module, ev events.Event) error {
	t.Helper()
	bus := events.NewInMemoryBus(logger.Discard())
	m.RegisterHandlers(bus)
	return bus.PublishSync(context.Background(), ev)
}

func TestPhoneCapturedAlertsAdmin(t *testing.T) {
	wa := &whatsAppStub{}
	m := newTestModule(wa, nil, testConfig{adminPhone: "+79615223190"})

	err := publishSync(t, m, events.PhoneCaptured{
		BaseEvent: events.NewBaseEvent(),
		SessionID: "whatsapp:79031234567",
		Channel:   "whatsapp",
		Phone:     "+79031234567",
		Stage:     "rough",
		LossAvg:   400000,
	})
	require.NoError(t, err)

	msgs := wa.sent["+79615223190"]
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "+79031234567")
	assert.Contains(t, msgs[0], "rough")
	assert.Contains(t, msgs[0], "400 тыс ₽")
}

func TestPhoneCapturedWithoutResultUsesPlaceholders(t *testing.T) {
	wa := &whatsAppStub{}
	m := newTestModule(wa, nil, testConfig{adminPhone: "+79615223190"})

	require.NoError(t, publishSync(t, m, events.PhoneCaptured{Phone: "+79031234567", Channel: "web"}))
	assert.Contains(t, wa.sent["+79615223190"][0], "Стадия: —")
}

func TestExpertQuestionFansOut(t *testing.T) {
	wa := &whatsAppStub{}
	mail := &emailStub{}
	m := newTestModule(wa, mail, testConfig{adminPhone: "+79615223190", expertEmail: "expert@example.com"})
	asked := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)

	err := publishSync(t, m, events.ExpertQuestionAsked{
		BaseEvent: events.BaseEvent{Timestamp: asked},
		SessionID: "s-1",
		Channel:   "web",
		Question:  "Нужна ли гидроизоляция в ванной?",
	})
	require.NoError(t, err)

	assert.Contains(t, wa.sent["+79615223190"][0], "Нужна ли гидроизоляция")
	assert.Equal(t, []string{"expert@example.com"}, mail.to)
	assert.Equal(t, asked, mail.last.AskedAt)
	assert.Equal(t, "Нужна ли гидроизоляция в ванной?", mail.last.Question)
}

func TestExpertQuestionReportsChannelFailureButStillEmails(t *testing.T) {
	wa := &whatsAppStub{err: errors.New("gateway down")}
	mail := &emailStub{}
	m := newTestModule(wa, mail, testConfig{adminPhone: "+79615223190", expertEmail: "expert@example.com"})

	err := publishSync(t, m, events.ExpertQuestionAsked{Question: "?", Channel: "web"})

	assert.ErrorContains(t, err, "gateway down")
	assert.Len(t, mail.to, 1)
}

func TestAlertsSkippedWhenNotConfigured(t *testing.T) {
	m := newTestModule(nil, nil, testConfig{})

	assert.NoError(t, publishSync(t, m, events.PhoneCaptured{Phone: "+79031234567"}))
	assert.NoError(t, publishSync(t, m, events.ExpertQuestionAsked{Question: "?"}))

	wa := &whatsAppStub{}
	m = newTestModule(wa, nil, testConfig{})
	assert.NoError(t, publishSync(t, m, events.PhoneCaptured{Phone: "+79031234567"}))
	assert.Empty(t, wa.sent)
}

func TestCallbackReminderAlertsAdmin(t *testing.T) {
	wa := &whatsAppStub{}
	m := newTestModule(wa, nil, testConfig{adminPhone: "+79615223190"})

	err := publishSync(t, m, events.CallbackReminderDue{
		BaseEvent:  events.NewBaseEvent(),
		LeadID:     "c0ffee00-0000-0000-0000-000000000000",
		Phone:      "+79031234567",
		CapturedAt: time.Date(2026, 10, 17, 14, 5, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	msgs := wa.sent["+79615223190"]
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "+79031234567")
	assert.Contains(t, msgs[0], "17.10 14:05")
}
