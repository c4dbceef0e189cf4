package scheduler

import (
	"context"
	"fmt"

	"repair_audit_backend/internal/events"
	"repair_audit_backend/internal/leads/repository"
	"repair_audit_backend/platform/config"
	"repair_audit_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// ReminderClaimer marks a contact reminded; ok is false when it already was.
type ReminderClaimer interface {
	ClaimReminder(ctx context.Context, contactID uuid.UUID) (repository.Contact, bool, error)
}

type Worker struct {
	server   *asynq.Server
	mux      *asynq.ServeMux
	contacts ReminderClaimer
	bus      events.Bus
	log      *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, contacts ReminderClaimer, bus events.Bus, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	w := newWorker(contacts, bus, log)
	w.server = server
	return w, nil
}

func newWorker(contacts ReminderClaimer, bus events.Bus, log *logger.Logger) *Worker {
	mux := asynq.NewServeMux()
	w := &Worker{
		mux:      mux,
		contacts: contacts,
		bus:      bus,
		log:      log,
	}
	mux.HandleFunc(TaskCallbackReminder, w.handleCallbackReminder)
	return w
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleCallbackReminder(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseCallbackReminderPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	contactID := payload.ContactID

	contact, ok, err := w.contacts.ClaimReminder(ctx, contactID)
	if err != nil {
		return err
	}
	if !ok {
		w.log.Info("callback reminder already handled", "contactId", contactID)
		return nil
	}

	if w.bus == nil {
		return nil
	}

	return w.bus.PublishSync(ctx, events.CallbackReminderDue{
		BaseEvent:  events.NewBaseEvent(),
		LeadID:     contact.ID.String(),
		Phone:      contact.Phone,
		CapturedAt: contact.CreatedAt,
	})
}
