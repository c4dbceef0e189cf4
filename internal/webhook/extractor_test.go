package webhook

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"repair_audit_backend/internal/diagnostic/domain"
	"repair_audit_backend/internal/diagnostic/service"
)

func TestToInbound(t *testing.T) {
	tests := []struct {
		name    string
		payload gowaPayload
		want    InboundMessage
		ok      bool
	}{
		{
			name:    "direct text",
			payload: gowaPayload{SenderID: "79615223190", From: "79615223190@s.whatsapp.net", Message: &gowaMessage{ID: "m1", Text: "  привет "}},
			want:    InboundMessage{ID: "m1", ChatPhone: "79615223190", Text: "привет"},
			ok:      true,
		},
		{
			name:    "sender taken from jid with device suffix",
			payload: gowaPayload{From: "79615223190:7@s.whatsapp.net", Message: &gowaMessage{Text: "1"}},
			want:    InboundMessage{ChatPhone: "79615223190", Text: "1"},
			ok:      true,
		},
		{
			name:    "group chat",
			payload: gowaPayload{SenderID: "79615223190", ChatID: "12345@g.us", Message: &gowaMessage{Text: "hi"}},
		},
		{
			name:    "own message",
			payload: gowaPayload{SenderID: "79615223190", IsFromMe: true, Message: &gowaMessage{Text: "hi"}},
		},
		{
			name:    "receipt",
			payload: gowaPayload{SenderID: "79615223190", Event: "message.ack"},
		},
		{
			name:    "empty text",
			payload: gowaPayload{SenderID: "79615223190", Message: &gowaMessage{Text: "   "}},
		},
		{
			name: "shared contact",
			payload: gowaPayload{SenderID: "79615223190", Contact: &gowaContact{
				DisplayName: "Иван",
				VCard:       "BEGIN:VCARD\r\nVERSION:3.0\r\nFN:Иван\r\nitem1.TEL;waid=79031234567:+7 903 123-45-67\r\nEND:VCARD",
			}},
			want: InboundMessage{ChatPhone: "79615223190", ContactPhone: "+79031234567", HasContact: true},
			ok:   true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.payload.toInbound()
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestVCardPhoneWithoutWaid(t *testing.T) {
	vcard := "BEGIN:VCARD\nTEL;TYPE=CELL:+7 961 522-31-90\nTEL:+7 495 000-00-00\nEND:VCARD"
	assert.Equal(t, "+7 961 522-31-90", vcardPhone(vcard))
	assert.Equal(t, "", vcardPhone("BEGIN:VCARD\nFN:x\nEND:VCARD"))
}

func TestExtractEvent(t *testing.T) {
	options := []string{"первый", domain.SendContactLabel, domain.BackLabel}

	ev := extractEvent(InboundMessage{ChatPhone: "79615223190", Text: "1"}, options)
	assert.Equal(t, service.InboundEvent{Type: service.EventAnswer, Channel: ChannelWhatsApp, Text: "первый"}, ev)

	ev = extractEvent(InboundMessage{ChatPhone: "79615223190", Text: "2"}, options)
	assert.Equal(t, service.EventContact, ev.Type)
	assert.Equal(t, "+79615223190", ev.Phone)

	ev = extractEvent(InboundMessage{ChatPhone: "79615223190", Text: "3"}, options)
	assert.Equal(t, service.EventBack, ev.Type)

	// out of range numbers and phone numbers pass through as text
	ev = extractEvent(InboundMessage{ChatPhone: "79615223190", Text: "4"}, options)
	assert.Equal(t, "4", ev.Text)
	ev = extractEvent(InboundMessage{ChatPhone: "79615223190", Text: "89615223190"}, options)
	assert.Equal(t, "89615223190", ev.Text)

	ev = extractEvent(InboundMessage{ChatPhone: "79615223190", Text: "/ASK"}, options)
	assert.Equal(t, service.InboundEvent{Type: service.EventCallback, Channel: ChannelWhatsApp, Data: domain.CallbackAskQuestion}, ev)

	ev = extractEvent(InboundMessage{ChatPhone: "79615223190", Text: "/start"}, options)
	assert.Equal(t, service.EventAnswer, ev.Type)
	assert.Equal(t, "/start", ev.Text)

	ev = extractEvent(InboundMessage{ChatPhone: "79615223190", HasContact: true, ContactPhone: "+79031234567"}, options)
	assert.Equal(t, service.InboundEvent{Type: service.EventContact, Channel: ChannelWhatsApp, Phone: "+79031234567"}, ev)
}

func TestRenderReply(t *testing.T) {
	reply := service.Reply{
		Messages: []service.Message{
			{Text: "⏳ считаю", DelayMs: 1500},
			{Text: "Оплата", Links: []service.Link{
				{Label: "STANDARD", URL: "https://pay.example.com/standard"},
				{Label: "Задать вопрос", Callback: domain.CallbackAskQuestion},
			}},
		},
		Options: []string{"да", "нет"},
	}

	out := renderReply(reply)

	if assert.Len(t, out, 2) {
		assert.Equal(t, "⏳ считаю", out[0].Text)
		assert.Equal(t, int64(1500), out[0].Delay.Milliseconds())
		assert.Contains(t, out[1].Text, "STANDARD: https://pay.example.com/standard")
		assert.Contains(t, out[1].Text, "Задать вопрос: отправьте /ask")
		assert.Contains(t, out[1].Text, "1. да\n2. нет")
	}

	out = renderReply(service.Reply{Options: []string{"старт"}})
	if assert.Len(t, out, 1) {
		assert.Contains(t, out[0].Text, "1. старт")
	}
}

func TestRecentIDsEvictsOldest(t *testing.T) {
	r := newRecentIDs(2)
	assert.True(t, r.add("a"))
	assert.False(t, r.add("a"))
	assert.True(t, r.add("b"))
	assert.True(t, r.add("c"))
	assert.True(t, r.add("a"))
	assert.False(t, r.add("c"))
}
