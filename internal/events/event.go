// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"repair_audit_backend/platform/events"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
	InMemoryBus = events.InMemoryBus
)

// Re-export platform functions
var (
	NewBaseEvent   = events.NewBaseEvent
	NewInMemoryBus = events.NewInMemoryBus
)

// =============================================================================
// Diagnostic Domain Events
// =============================================================================

// DiagnosticStarted is published when a session begins the questionnaire.
type DiagnosticStarted struct {
	BaseEvent
	SessionID string `json:"sessionId"`
	Channel   string `json:"channel"`
}

func (e DiagnosticStarted) EventName() string { return "diagnostic.started" }

// DiagnosticCompleted is published once the loss result is computed.
type DiagnosticCompleted struct {
	BaseEvent
	SessionID       string  `json:"sessionId"`
	Channel         string  `json:"channel"`
	Stage           string  `json:"stage"`
	Area            string  `json:"area"`
	Control         string  `json:"control"`
	Fixation        string  `json:"fixation"`
	LossMin         int64   `json:"lossMin"`
	LossAvg         int64   `json:"lossAvg"`
	LossMax         int64   `json:"lossMax"`
	TotalMultiplier float64 `json:"totalMultiplier"`
}

func (e DiagnosticCompleted) EventName() string { return "diagnostic.completed" }

// OfferSelected is published when the user picks an item from the offer menu.
type OfferSelected struct {
	BaseEvent
	SessionID string `json:"sessionId"`
	Channel   string `json:"channel"`
	Offer     string `json:"offer"`
}

func (e OfferSelected) EventName() string { return "diagnostic.offer.selected" }

// =============================================================================
// Lead Domain Events
// =============================================================================

// PhoneCaptured is published when the user leaves a valid phone number.
type PhoneCaptured struct {
	BaseEvent
	SessionID string `json:"sessionId"`
	Channel   string `json:"channel"`
	Phone     string `json:"phone"`
	Stage     string `json:"stage,omitempty"`
	LossAvg   int64  `json:"lossAvg,omitempty"`
}

func (e PhoneCaptured) EventName() string { return "leads.phone.captured" }

// ExpertQuestionAsked is published when a question for the expert is stored.
type ExpertQuestionAsked struct {
	BaseEvent
	SessionID string `json:"sessionId"`
	Channel   string `json:"channel"`
	Question  string `json:"question"`
	Phone     string `json:"phone,omitempty"`
}

func (e ExpertQuestionAsked) EventName() string { return "leads.expert_question.asked" }

// =============================================================================
// Notification Events
// =============================================================================

// CallbackReminderDue is published by the scheduler worker when a captured
// phone has waited the configured delay without being called back.
type CallbackReminderDue struct {
	BaseEvent
	LeadID     string    `json:"leadId"`
	Phone      string    `json:"phone"`
	CapturedAt time.Time `json:"capturedAt"`
}

func (e CallbackReminderDue) EventName() string { return "notification.callback_reminder.due" }
