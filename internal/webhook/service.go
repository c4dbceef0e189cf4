package webhook

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"repair_audit_backend/internal/diagnostic/service"
	"repair_audit_backend/platform/keyedmutex"
	"repair_audit_backend/platform/logger"
)

const recentMessageCapacity = 1024

// DiagnosticService is the part of the diagnostic service the webhook drives.
type DiagnosticService interface {
	Handle(ctx context.Context, sessionID string, ev service.InboundEvent) (service.Reply, error)
	Options(ctx context.Context, sessionID string) ([]string, error)
}

// MessageSender delivers a text message to a phone number.
type MessageSender interface {
	SendMessage(ctx context.Context, phoneNumber string, message string) error
}

// Service turns inbound WhatsApp messages into diagnostic events and sends
// the replies back in order. Messages of one chat are processed one at a
// time so paced replies never interleave.
type Service struct {
	diagnostic DiagnosticService
	sender     MessageSender
	pacing     time.Duration
	sleep      func(ctx context.Context, d time.Duration) error
	log        *logger.Logger

	chats    *keyedmutex.Mutex
	recent   *recentIDs
	inflight sync.WaitGroup
}

// NewService creates the inbound message processor.
func NewService(diagnostic DiagnosticService, sender MessageSender, pacing time.Duration, log *logger.Logger) *Service {
	return &Service{
		diagnostic: diagnostic,
		sender:     sender,
		pacing:     pacing,
		sleep:      sleepContext,
		log:        log,
		chats:      keyedmutex.New(),
		recent:     newRecentIDs(recentMessageCapacity),
	}
}

// Enqueue processes msg in the background. GOWA expects a quick answer to
// its webhook call while a paced reply can take several seconds.
func (s *Service) Enqueue(ctx context.Context, msg InboundMessage) {
	if msg.ID != "" && !s.recent.add(msg.ID) {
		s.log.Debug("duplicate whatsapp message ignored", slog.String("id", msg.ID))
		return
	}
	detached := context.WithoutCancel(ctx)
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		if err := s.Process(detached, msg); err != nil {
			s.log.WithContext(detached).Error("whatsapp message processing failed",
				slog.String("chat", msg.ChatPhone),
				slog.String("error", err.Error()),
			)
		}
	}()
}

// Wait blocks until every enqueued message has been processed.
func (s *Service) Wait() {
	s.inflight.Wait()
}

// Process handles one message synchronously.
func (s *Service) Process(ctx context.Context, msg InboundMessage) error {
	unlock := s.chats.Lock(msg.ChatPhone)
	defer unlock()

	sessionID := SessionID(msg.ChatPhone)
	ctx = context.WithValue(ctx, logger.SessionIDKey, sessionID)

	options, err := s.diagnostic.Options(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load options: %w", err)
	}

	reply, err := s.diagnostic.Handle(ctx, sessionID, extractEvent(msg, options))
	if err != nil {
		return fmt.Errorf("handle whatsapp event: %w", err)
	}

	return s.deliver(ctx, msg.ChatPhone, renderReply(reply))
}

func (s *Service) deliver(ctx context.Context, chatPhone string, messages []outgoing) error {
	for i, m := range messages {
		if err := s.sender.SendMessage(ctx, chatPhone, m.Text); err != nil {
			return fmt.Errorf("send message %d/%d: %w", i+1, len(messages), err)
		}
		if i == len(messages)-1 {
			break
		}
		if err := s.sleep(ctx, max(m.Delay, s.pacing)); err != nil {
			return err
		}
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// recentIDs remembers the last n message ids so webhook retries are not
// answered twice.
type recentIDs struct {
	mu    sync.Mutex
	seen  map[string]struct{}
	order []string
	next  int
}

func newRecentIDs(n int) *recentIDs {
	return &recentIDs{seen: make(map[string]struct{}, n), order: make([]string, n)}
}

// add records id and reports whether it was new.
func (r *recentIDs) add(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.seen[id]; ok {
		return false
	}
	if old := r.order[r.next]; old != "" {
		delete(r.seen, old)
	}
	r.order[r.next] = id
	r.next = (r.next + 1) % len(r.order)
	r.seen[id] = struct{}{}
	return true
}
