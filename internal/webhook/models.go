package webhook

import "strings"

// gowaPayload is the body GOWA posts for every received message.
type gowaPayload struct {
	SenderID  string        `json:"sender_id"`
	ChatID    string        `json:"chat_id"`
	From      string        `json:"from"`
	Timestamp string        `json:"timestamp"`
	PushName  string        `json:"pushname"`
	IsFromMe  bool          `json:"is_from_me"`
	Message   *gowaMessage  `json:"message,omitempty"`
	Contact   *gowaContact  `json:"contact,omitempty"`
	Event     string        `json:"event,omitempty"`
	Action    string        `json:"action,omitempty"`
	Reaction  *gowaReaction `json:"reaction,omitempty"`
}

type gowaMessage struct {
	ID            string `json:"id"`
	Text          string `json:"text"`
	RepliedID     string `json:"replied_id"`
	QuotedMessage string `json:"quoted_message"`
}

type gowaContact struct {
	DisplayName string `json:"displayName"`
	VCard       string `json:"vcard"`
}

type gowaReaction struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

// InboundMessage is a direct chat message reduced to what the diagnostic
// needs. ChatPhone holds digits only.
type InboundMessage struct {
	ID           string
	ChatPhone    string
	Text         string
	ContactPhone string
	HasContact   bool
}

const (
	userJIDSuffix  = "@s.whatsapp.net"
	groupJIDSuffix = "@g.us"
)

// toInbound reduces a payload to an InboundMessage. Group chats, own
// messages, reactions and receipts are reported as not ok.
func (p gowaPayload) toInbound() (InboundMessage, bool) {
	if p.IsFromMe || p.Reaction != nil || p.Action != "" {
		return InboundMessage{}, false
	}
	if p.Event != "" && p.Event != "message" {
		return InboundMessage{}, false
	}
	if strings.HasSuffix(p.ChatID, groupJIDSuffix) || strings.HasSuffix(p.From, groupJIDSuffix) {
		return InboundMessage{}, false
	}

	chat := jidDigits(p.SenderID)
	if chat == "" {
		chat = jidDigits(p.From)
	}
	if chat == "" {
		return InboundMessage{}, false
	}

	msg := InboundMessage{ChatPhone: chat}
	if p.Message != nil {
		msg.ID = p.Message.ID
		msg.Text = strings.TrimSpace(p.Message.Text)
	}
	if p.Contact != nil {
		msg.HasContact = true
		msg.ContactPhone = vcardPhone(p.Contact.VCard)
	}
	if msg.Text == "" && !msg.HasContact {
		return InboundMessage{}, false
	}
	return msg, true
}

// jidDigits strips the JID server and device parts: "7961...:12@s.whatsapp.net"
// becomes "7961...".
func jidDigits(jid string) string {
	user, _, _ := strings.Cut(strings.TrimSpace(jid), "@")
	user, _, _ = strings.Cut(user, ":")
	for _, r := range user {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return user
}

// vcardPhone returns the first number of a vCard, preferring the waid
// parameter WhatsApp adds to TEL lines.
func vcardPhone(vcard string) string {
	var first string
	for _, line := range strings.Split(strings.ReplaceAll(vcard, "\r\n", "\n"), "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(strings.ToUpper(line), "TEL") && !strings.Contains(strings.ToUpper(line), ".TEL") {
			continue
		}
		head, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		for _, param := range strings.Split(head, ";") {
			if k, v, ok := strings.Cut(param, "="); ok && strings.EqualFold(k, "waid") && v != "" {
				return "+" + v
			}
		}
		if first == "" {
			first = strings.TrimSpace(value)
		}
	}
	return first
}
