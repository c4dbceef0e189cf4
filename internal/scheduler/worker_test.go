package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repair_audit_backend/internal/events"
	"repair_audit_backend/internal/leads/repository"
	"repair_audit_backend/platform/logger"
)

type fakeClaimer struct {
	contact repository.Contact
	ok      bool
	err     error
	calls   int
}

func (f *fakeClaimer) ClaimReminder(context.Context, uuid.UUID) (repository.Contact, bool, error) {
	f.calls++
	return f.contact, f.ok, f.err
}

func subscribeReminders(bus events.Bus) *[]events.CallbackReminderDue {
	var got []events.CallbackReminderDue
	bus.Subscribe(events.CallbackReminderDue{}.EventName(), events.HandlerFunc(func(_ context.Context, e events.Event) error {
		got = append(got, e.(events.CallbackReminderDue))
		return nil
	}))
	return &got
}

func reminderTask(t *testing.T, id uuid.UUID) *asynq.Task {
	t.Helper()
	task, err := NewCallbackReminderTask(CallbackReminderPayload{ContactID: id})
	require.NoError(t, err)
	return task
}

func TestCallbackReminderPublishesDueEvent(t *testing.T) {
	id := uuid.New()
	captured := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	claimer := &fakeClaimer{ok: true, contact: repository.Contact{ID: id, Phone: "+79615223190", CreatedAt: captured}}
	bus := events.NewInMemoryBus(logger.Discard())
	got := subscribeReminders(bus)
	w := newWorker(claimer, bus, logger.Discard())

	err := w.handleCallbackReminder(context.Background(), reminderTask(t, id))

	require.NoError(t, err)
	require.Len(t, *got, 1)
	assert.Equal(t, id.String(), (*got)[0].LeadID)
	assert.Equal(t, "+79615223190", (*got)[0].Phone)
	assert.Equal(t, captured, (*got)[0].CapturedAt)
}

func TestCallbackReminderSkipsClaimedContact(t *testing.T) {
	claimer := &fakeClaimer{ok: false}
	bus := events.NewInMemoryBus(logger.Discard())
	got := subscribeReminders(bus)
	w := newWorker(claimer, bus, logger.Discard())

	require.NoError(t, w.handleCallbackReminder(context.Background(), reminderTask(t, uuid.New())))
	assert.Empty(t, *got)
}

func TestCallbackReminderRetriesOnStoreError(t *testing.T) {
	claimer := &fakeClaimer{err: errors.New("db down")}
	w := newWorker(claimer, nil, logger.Discard())

	err := w.handleCallbackReminder(context.Background(), reminderTask(t, uuid.New()))

	require.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry))
}

func TestCallbackReminderRejectsBadPayload(t *testing.T) {
	claimer := &fakeClaimer{}
	w := newWorker(claimer, nil, logger.Discard())

	err := w.handleCallbackReminder(context.Background(), asynq.NewTask(TaskCallbackReminder, []byte(`{"contactId":"nope"}`)))

	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Zero(t, claimer.calls)
}

func TestCallbackReminderTaskNeedsContact(t *testing.T) {
	_, err := NewCallbackReminderTask(CallbackReminderPayload{})
	assert.Error(t, err)

	_, err = ParseCallbackReminderPayload(asynq.NewTask(TaskCallbackReminder, []byte(`{}`)))
	assert.Error(t, err)
}

func TestRedisClientOpt(t *testing.T) {
	opt, err := redisClientOpt("redis://:secret@cache:6380/2", false)
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opt.Addr)
	assert.Equal(t, "secret", opt.Password)
	assert.Equal(t, 2, opt.DB)
	assert.Nil(t, opt.TLSConfig)

	opt, err = redisClientOpt("rediss://cache:6380", true)
	require.NoError(t, err)
	require.NotNil(t, opt.TLSConfig)
	assert.True(t, opt.TLSConfig.InsecureSkipVerify)
}
