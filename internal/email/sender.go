package email

import (
	"context"
	"time"
)

// ExpertQuestion is the payload of the e-mail forwarded to the expert.
type ExpertQuestion struct {
	SessionID string
	Channel   string
	Question  string
	Phone     string
	AskedAt   time.Time
}

// Sender delivers transactional e-mail.
type Sender interface {
	SendExpertQuestionEmail(ctx context.Context, toEmail string, q ExpertQuestion) error
}

// NoopSender drops every message. It is used when e-mail is disabled.
type NoopSender struct{}

func (NoopSender) SendExpertQuestionEmail(ctx context.Context, toEmail string, q ExpertQuestion) error {
	return nil
}
