package scheduler

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"repair_audit_backend/platform/config"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

const (
	reminderMaxRetry  = 5
	reminderRetention = 7 * 24 * time.Hour
)

// Client enqueues delayed jobs for the worker.
type Client struct {
	client *asynq.Client
	queue  string
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queueName(cfg),
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// ScheduleCallbackReminder enqueues the reminder for runAt. The task id is
// derived from the contact so a contact is never reminded twice.
func (c *Client) ScheduleCallbackReminder(ctx context.Context, contactID uuid.UUID, runAt time.Time) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewCallbackReminderTask(CallbackReminderPayload{ContactID: contactID})
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task,
		asynq.ProcessAt(runAt),
		asynq.Queue(c.queue),
		asynq.TaskID(reminderTaskID(contactID)),
		asynq.MaxRetry(reminderMaxRetry),
		asynq.Retention(reminderRetention),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		// already scheduled for this contact
		return nil
	}
	return err
}

func queueName(cfg config.SchedulerConfig) string {
	if q := cfg.GetAsynqQueueName(); q != "" {
		return q
	}
	return "default"
}

// redisClientOpt builds the asynq connection from a redis:// or rediss://
// URL. tlsInsecure skips certificate checks, and turns TLS on for plain
// redis:// URLs.
func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	parsed, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, fmt.Errorf("parse redis url: %w", err)
	}

	opt := asynq.RedisClientOpt{
		Addr:     parsed.Addr,
		Username: parsed.Username,
		Password: parsed.Password,
		DB:       parsed.DB,
	}
	switch {
	case parsed.TLSConfig != nil:
		opt.TLSConfig = parsed.TLSConfig.Clone()
		opt.TLSConfig.InsecureSkipVerify = opt.TLSConfig.InsecureSkipVerify || tlsInsecure
	case tlsInsecure:
		opt.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return opt, nil
}
