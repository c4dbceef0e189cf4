package service

import (
	"repair_audit_backend/internal/diagnostic/agent"
	"repair_audit_backend/internal/diagnostic/domain"
)

// EventType is the kind of inbound event a transport delivers.
type EventType string

const (
	EventStart    EventType = "start"
	EventAnswer   EventType = "answer"
	EventBack     EventType = "back"
	EventCommand  EventType = "command"
	EventCallback EventType = "callback"
	EventContact  EventType = "contact"
)

// InboundEvent is one user action. Text carries the answer label or
// command, Data the callback id and Phone a shared contact number.
type InboundEvent struct {
	Type    EventType `json:"type"`
	Channel string    `json:"channel,omitempty"`
	Text    string    `json:"text,omitempty"`
	Data    string    `json:"data,omitempty"`
	Phone   string    `json:"phone,omitempty"`
}

// Link is an inline button: either a URL or a callback id.
type Link struct {
	Label    string `json:"label"`
	URL      string `json:"url,omitempty"`
	Callback string `json:"callback,omitempty"`
}

// Message is one outbound chat message. DelayMs hints how long a transport
// should wait before sending the next one.
type Message struct {
	Text    string `json:"text"`
	DelayMs int    `json:"delayMs,omitempty"`
	Links   []Link `json:"links,omitempty"`
}

// Reply is everything produced by one inbound event.
type Reply struct {
	SessionID string         `json:"sessionId"`
	State     domain.State   `json:"state"`
	Messages  []Message      `json:"messages"`
	Prompt    *domain.Prompt `json:"prompt,omitempty"`
	// Options is the reply keyboard to show with the last message.
	Options []string    `json:"options,omitempty"`
	Result  *ResultView `json:"result,omitempty"`
}

// EchoedLabels are the answers shown back with a result. Control and
// Fixation are empty when the question was skipped.
type EchoedLabels struct {
	Stage    string `json:"stage"`
	Area     string `json:"area"`
	Control  string `json:"control,omitempty"`
	Fixation string `json:"fixation,omitempty"`
}

// ResultView is a loss result with its personalization.
type ResultView struct {
	Loss            domain.LossResult     `json:"loss"`
	Labels          EchoedLabels          `json:"labels"`
	Personalization agent.Personalization `json:"personalization"`
}

func (r *Reply) say(text string, delayMs int) {
	r.Messages = append(r.Messages, Message{Text: text, DelayMs: delayMs})
}

func (r *Reply) sayWithLinks(text string, links []Link) {
	r.Messages = append(r.Messages, Message{Text: text, Links: links})
}
