package scheduler

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// TaskCallbackReminder asks the worker to remind the admin about a phone
// that has not been called back yet.
const TaskCallbackReminder = "leads.callback_reminder"

var errEmptyContact = errors.New("callback reminder without contact id")

type CallbackReminderPayload struct {
	ContactID uuid.UUID `json:"contactId"`
}

func NewCallbackReminderTask(payload CallbackReminderPayload) (*asynq.Task, error) {
	if payload.ContactID == uuid.Nil {
		return nil, errEmptyContact
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCallbackReminder, data), nil
}

// ParseCallbackReminderPayload decodes and checks a task payload. Errors are
// permanent: the same bytes will never decode.
func ParseCallbackReminderPayload(task *asynq.Task) (CallbackReminderPayload, error) {
	var payload CallbackReminderPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return CallbackReminderPayload{}, fmt.Errorf("decode callback reminder: %w", err)
	}
	if payload.ContactID == uuid.Nil {
		return CallbackReminderPayload{}, errEmptyContact
	}
	return payload, nil
}

func reminderTaskID(contactID uuid.UUID) string {
	return "callback-reminder:" + contactID.String()
}
