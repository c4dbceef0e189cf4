// Package sse streams operator notifications over Server-Sent Events.
package sse

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"repair_audit_backend/platform/logger"
)

// EventType represents different types of SSE events
type EventType string

const (
	EventDiagnosticCompleted EventType = "diagnostic_completed"
	EventPhoneCaptured       EventType = "phone_captured"
	EventExpertQuestion      EventType = "expert_question"
	EventCallbackReminder    EventType = "callback_reminder"
)

const clientBuffer = 32

// Event represents an SSE event payload
type Event struct {
	Type      EventType   `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

// client represents a connected operator
type client struct {
	subject string
	events  chan Event
}

// Service manages SSE connections and broadcasts to every connected operator.
type Service struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	log     *logger.Logger
}

// New creates a new SSE service
func New(log *logger.Logger) *Service {
	return &Service{
		clients: make(map[*client]struct{}),
		log:     log,
	}
}

func (s *Service) addClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c] = struct{}{}
}

func (s *Service) removeClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c]; !ok {
		return
	}
	delete(s.clients, c)
	close(c.events)
}

// Clients returns the number of connected operators.
func (s *Service) Clients() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Broadcast sends an event to every connected operator. Slow clients with a
// full buffer miss the event.
func (s *Service) Broadcast(event Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for c := range s.clients {
		select {
		case c.events <- event:
		default:
			s.log.Warn("sse buffer full", slog.String("subject", c.subject), slog.String("event", string(event.Type)))
		}
	}
}

// Handler returns a Gin handler for SSE connections. getSubject identifies
// the operator; an empty subject is rejected.
func (s *Service) Handler(getSubject func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		subject := getSubject(c)
		if subject == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Writer.Header().Set("Content-Type", "text/event-stream")
		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")
		c.Writer.Header().Set("X-Accel-Buffering", "no")

		cl := &client{subject: subject, events: make(chan Event, clientBuffer)}
		s.addClient(cl)
		defer s.removeClient(cl)

		c.SSEvent("connected", gin.H{"subject": subject})
		c.Writer.Flush()
		s.log.Debug("sse client connected", slog.String("subject", subject))

		clientGone := c.Request.Context().Done()
		for {
			select {
			case <-clientGone:
				s.log.Debug("sse client disconnected", slog.String("subject", subject))
				return
			case event, ok := <-cl.events:
				if !ok {
					return
				}
				data, _ := json.Marshal(event)
				c.SSEvent(string(event.Type), string(data))
				c.Writer.Flush()
			}
		}
	}
}

// Close disconnects every client.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for c := range s.clients {
		close(c.events)
	}
	s.clients = make(map[*client]struct{})
}
