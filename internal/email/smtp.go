package email

import (
	"context"
	"fmt"
	"net"
	"time"

	gomail "github.com/wneessen/go-mail"

	"repair_audit_backend/platform/config"
)

const askedAtLayout = "02.01.2006 15:04 MST"

// SMTPSender delivers rendered HTML e-mail over SMTP via go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

// NewSMTPSender creates a new SMTPSender with the given SMTP credentials.
func NewSMTPSender(host string, port int, username, password, fromEmail, fromName string) *SMTPSender {
	return &SMTPSender{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		fromName:  fromName,
		fromEmail: fromEmail,
	}
}

// NewSender returns an SMTP sender when e-mail is enabled and configured,
// otherwise a NoopSender.
func NewSender(cfg config.EmailConfig) Sender {
	if !cfg.GetEmailEnabled() || cfg.GetSMTPHost() == "" {
		return NoopSender{}
	}
	return NewSMTPSender(
		cfg.GetSMTPHost(),
		cfg.GetSMTPPort(),
		cfg.GetSMTPUsername(),
		cfg.GetSMTPPassword(),
		cfg.GetEmailFromAddress(),
		cfg.GetEmailFromName(),
	)
}

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, htmlContent string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	opts := []gomail.Option{
		gomail.WithPort(s.port),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15 * time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	}
	if s.username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.username),
			gomail.WithPassword(s.password),
		)
	}

	client, err := gomail.NewClient(s.host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}

func (s *SMTPSender) SendExpertQuestionEmail(ctx context.Context, toEmail string, q ExpertQuestion) error {
	content, err := renderExpertQuestion(q)
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, expertQuestionSubject(q), content)
}

func renderExpertQuestion(q ExpertQuestion) (string, error) {
	askedAt := q.AskedAt
	if askedAt.IsZero() {
		askedAt = time.Now()
	}
	return renderEmailTemplate("expert_question.html", expertQuestionEmailData{
		baseEmailData: baseEmailData{
			Title:      subjectExpertQuestion,
			Heading:    subjectExpertQuestion,
			Subheading: "Пользователь диагностики ремонта задал вопрос",
		},
		Question: q.Question,
		Phone:    q.Phone,
		Channel:  q.Channel,
		AskedAt:  askedAt.Format(askedAtLayout),
	})
}

func expertQuestionSubject(q ExpertQuestion) string {
	if q.Phone == "" {
		return subjectExpertQuestion
	}
	return fmt.Sprintf(subjectExpertQuestionFmt, q.Phone)
}
