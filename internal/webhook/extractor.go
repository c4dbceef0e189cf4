package webhook

import (
	"strconv"
	"strings"

	"repair_audit_backend/internal/diagnostic/domain"
	"repair_audit_backend/internal/diagnostic/service"
)

// ChannelWhatsApp tags sessions created from this webhook.
const ChannelWhatsApp = "whatsapp"

// WhatsApp has no inline buttons, so callback links are offered as
// short commands instead.
var callbackCommands = map[string]string{
	"/ask":  domain.CallbackAskQuestion,
	"/call": domain.CallbackCallExpert,
}

var commandForCallback = map[string]string{
	domain.CallbackAskQuestion: "/ask",
	domain.CallbackAskInBot:    "/ask",
	domain.CallbackCallExpert:  "/call",
}

// SessionID derives the diagnostic session of a chat.
func SessionID(chatPhone string) string {
	return ChannelWhatsApp + ":" + chatPhone
}

// extractEvent maps a chat message to a diagnostic event. Numeric replies
// pick from options, the numbered list sent with the previous reply.
func extractEvent(msg InboundMessage, options []string) service.InboundEvent {
	if msg.HasContact {
		return service.InboundEvent{Type: service.EventContact, Channel: ChannelWhatsApp, Phone: msg.ContactPhone}
	}

	text := msg.Text
	if cb, ok := callbackCommands[strings.ToLower(text)]; ok {
		return service.InboundEvent{Type: service.EventCallback, Channel: ChannelWhatsApp, Data: cb}
	}
	if n, err := strconv.Atoi(text); err == nil && len(text) <= 2 && n >= 1 && n <= len(options) {
		text = options[n-1]
	}

	switch text {
	case domain.BackLabel:
		return service.InboundEvent{Type: service.EventBack, Channel: ChannelWhatsApp}
	case domain.SendContactLabel:
		// the sender's own number is the contact they mean
		return service.InboundEvent{Type: service.EventContact, Channel: ChannelWhatsApp, Phone: "+" + msg.ChatPhone}
	}
	return service.InboundEvent{Type: service.EventAnswer, Channel: ChannelWhatsApp, Text: text}
}
