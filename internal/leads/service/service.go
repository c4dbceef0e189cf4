// Package service records diagnostic leads and schedules callback reminders.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"repair_audit_backend/internal/events"
	"repair_audit_backend/internal/leads/repository"
	"repair_audit_backend/platform/apperr"
	"repair_audit_backend/platform/logger"
)

// ReminderScheduler enqueues the delayed callback reminder for a contact.
type ReminderScheduler interface {
	ScheduleCallbackReminder(ctx context.Context, contactID uuid.UUID, runAt time.Time) error
}

type Service struct {
	repo          repository.LeadsRepository
	reminders     ReminderScheduler
	reminderDelay time.Duration
	log           *logger.Logger
	now           func() time.Time
}

// New creates the leads service. reminders may be nil when no scheduler is
// configured.
func New(repo repository.LeadsRepository, reminders ReminderScheduler, reminderDelay time.Duration, log *logger.Logger) *Service {
	return &Service{
		repo:          repo,
		reminders:     reminders,
		reminderDelay: reminderDelay,
		log:           log,
		now:           time.Now,
	}
}

// RegisterHandlers subscribes the service to diagnostic events.
func (s *Service) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.DiagnosticCompleted{}.EventName(), events.HandlerFunc(s.handleDiagnosticCompleted))
	bus.Subscribe(events.PhoneCaptured{}.EventName(), events.HandlerFunc(s.handlePhoneCaptured))
	bus.Subscribe(events.ExpertQuestionAsked{}.EventName(), events.HandlerFunc(s.handleExpertQuestion))
}

func (s *Service) handleDiagnosticCompleted(ctx context.Context, event events.Event) error {
	e, ok := event.(events.DiagnosticCompleted)
	if !ok {
		return nil
	}
	_, err := s.repo.CreateDiagnostic(ctx, repository.CreateDiagnosticParams{
		SessionID:       e.SessionID,
		Channel:         e.Channel,
		Stage:           e.Stage,
		Area:            e.Area,
		Control:         e.Control,
		Fixation:        e.Fixation,
		LossMin:         e.LossMin,
		LossAvg:         e.LossAvg,
		LossMax:         e.LossMax,
		TotalMultiplier: e.TotalMultiplier,
	})
	if err != nil {
		s.log.DatabaseError("leads.create_diagnostic", err)
	}
	return err
}

func (s *Service) handlePhoneCaptured(ctx context.Context, event events.Event) error {
	e, ok := event.(events.PhoneCaptured)
	if !ok {
		return nil
	}
	contact, err := s.repo.CreateContact(ctx, repository.CreateContactParams{
		SessionID: e.SessionID,
		Channel:   e.Channel,
		Phone:     e.Phone,
		Stage:     e.Stage,
		LossAvg:   e.LossAvg,
	})
	if err != nil {
		s.log.DatabaseError("leads.create_contact", err)
		return err
	}

	if s.reminders == nil || s.reminderDelay <= 0 {
		return nil
	}
	runAt := s.now().Add(s.reminderDelay)
	if err := s.reminders.ScheduleCallbackReminder(ctx, contact.ID, runAt); err != nil {
		s.log.Error("failed to schedule callback reminder", "contactId", contact.ID, "error", err)
		return err
	}
	return nil
}

func (s *Service) handleExpertQuestion(ctx context.Context, event events.Event) error {
	e, ok := event.(events.ExpertQuestionAsked)
	if !ok {
		return nil
	}
	_, err := s.repo.CreateQuestion(ctx, repository.CreateQuestionParams{
		SessionID: e.SessionID,
		Channel:   e.Channel,
		Question:  e.Question,
		Phone:     e.Phone,
	})
	if err != nil {
		s.log.DatabaseError("leads.create_question", err)
	}
	return err
}

// ClaimReminder marks the contact reminded and returns it. ok is false when
// the contact was already reminded or no longer exists.
func (s *Service) ClaimReminder(ctx context.Context, contactID uuid.UUID) (repository.Contact, bool, error) {
	contact, err := s.repo.ClaimReminder(ctx, contactID, s.now())
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Contact{}, false, nil
	}
	if err != nil {
		return repository.Contact{}, false, err
	}
	return contact, true, nil
}

func (s *Service) GetContact(ctx context.Context, id uuid.UUID) (repository.Contact, error) {
	c, err := s.repo.GetContact(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Contact{}, apperr.NotFound("lead not found")
	}
	return c, err
}

func (s *Service) ListContacts(ctx context.Context, params repository.ListParams) ([]repository.Contact, int, error) {
	return s.repo.ListContacts(ctx, params)
}

func (s *Service) ListQuestions(ctx context.Context, params repository.ListParams) ([]repository.ExpertQuestion, int, error) {
	return s.repo.ListQuestions(ctx, params)
}

func (s *Service) ListDiagnostics(ctx context.Context, params repository.ListParams) ([]repository.DiagnosticResult, int, error) {
	return s.repo.ListDiagnostics(ctx, params)
}
