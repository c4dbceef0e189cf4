// Package service orchestrates the diagnostic conversation: the
// questionnaire, result rendering and the offer funnel that follows it.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"repair_audit_backend/internal/diagnostic/agent"
	"repair_audit_backend/internal/diagnostic/domain"
	"repair_audit_backend/internal/diagnostic/repository"
	"repair_audit_backend/internal/events"
	"repair_audit_backend/platform/apperr"
	"repair_audit_backend/platform/config"
	"repair_audit_backend/platform/keyedmutex"
	"repair_audit_backend/platform/logger"
)

// Display pacing hints in milliseconds.
const (
	calculatingDelayMs = 1500
	resultDelayMs      = 5000
	reflectionDelayMs  = 3000
	solutionDelayMs    = 2000
)

// Service handles inbound events for diagnostic sessions.
type Service struct {
	machine      *domain.Machine
	store        repository.SessionStore
	personalizer agent.Personalizer
	eventBus     events.Bus
	funnel       config.FunnelConfig
	log          *logger.Logger
	locks        *keyedmutex.Mutex
	now          func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source for new sessions.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates the diagnostic service.
func New(machine *domain.Machine, store repository.SessionStore, personalizer agent.Personalizer, eventBus events.Bus, funnel config.FunnelConfig, log *logger.Logger, opts ...Option) *Service {
	s := &Service{
		machine:      machine,
		store:        store,
		personalizer: personalizer,
		eventBus:     eventBus,
		funnel:       funnel,
		log:          log,
		locks:        keyedmutex.New(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handle applies ev to the session and persists it. Events for one session
// are serialized; different sessions proceed in parallel.
func (s *Service) Handle(ctx context.Context, sessionID string, ev InboundEvent) (Reply, error) {
	if strings.TrimSpace(sessionID) == "" {
		return Reply{}, apperr.Validation("session id is required")
	}
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	ctx = context.WithValue(ctx, logger.SessionIDKey, sessionID)

	session, err := s.load(ctx, sessionID, ev.Channel)
	if err != nil {
		return Reply{}, err
	}
	from := session.State

	reply, err := s.dispatch(ctx, session, ev)
	if err != nil {
		return Reply{}, err
	}

	if err := s.store.Save(ctx, session); err != nil {
		return Reply{}, fmt.Errorf("save session: %w", err)
	}

	reply.SessionID = session.ID
	reply.State = session.State
	s.log.WithContext(ctx).DiagnosticEvent(session.ID, string(ev.Type), string(from), string(session.State))
	return reply, nil
}

// Snapshot returns the stored session.
func (s *Service) Snapshot(ctx context.Context, sessionID string) (*domain.Session, error) {
	session, err := s.store.Get(ctx, sessionID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("session not found")
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

// Options returns the keyboard the session currently expects. Unknown
// sessions get the start button.
func (s *Service) Options(ctx context.Context, sessionID string) ([]string, error) {
	session, err := s.store.Get(ctx, sessionID)
	if errors.Is(err, repository.ErrNotFound) {
		return []string{domain.StartLabel}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return s.currentOptions(session), nil
}

// Reset removes a session.
func (s *Service) Reset(ctx context.Context, sessionID string) error {
	unlock := s.locks.Lock(sessionID)
	defer unlock()
	return s.store.Delete(ctx, sessionID)
}

func (s *Service) load(ctx context.Context, sessionID, channel string) (*domain.Session, error) {
	session, err := s.store.Get(ctx, sessionID)
	if errors.Is(err, repository.ErrNotFound) {
		if channel == "" {
			channel = "web"
		}
		return domain.NewSession(sessionID, channel, s.now()), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return session, nil
}

func (s *Service) dispatch(ctx context.Context, session *domain.Session, ev InboundEvent) (Reply, error) {
	text := strings.TrimSpace(ev.Text)

	switch ev.Type {
	case EventStart:
		return s.startDiagnostic(ctx, session), nil
	case EventCommand:
		return s.handleCommand(ctx, session, text), nil
	case EventCallback:
		return s.handleCallback(session, ev.Data), nil
	case EventContact:
		if session.State == domain.StateAwaitingPhone {
			return s.capturePhone(ctx, session, ev.Phone), nil
		}
		return s.unknownInput(session), nil
	case EventBack:
		if session.State.IsQuestionnaire() {
			return s.questionnaireBack(ctx, session)
		}
		return s.unknownInput(session), nil
	case EventAnswer:
	default:
		return Reply{}, apperr.Validation(fmt.Sprintf("unknown event type %q", ev.Type))
	}

	// typed commands arrive as plain text from chat transports
	if strings.HasPrefix(text, "/") {
		return s.handleCommand(ctx, session, text), nil
	}
	if text == domain.StartLabel {
		return s.startDiagnostic(ctx, session), nil
	}
	if domain.IsContactExpertButton(text) {
		return s.contactExpert(session), nil
	}

	switch {
	case session.State.IsQuestionnaire() || session.State == domain.StateCalculating:
		return s.questionnaireAnswer(ctx, session, text)
	case session.State == domain.StateShowingResults:
		return s.afterResults(session, text), nil
	case session.State == domain.StateChoosingOffer:
		return s.chooseOffer(ctx, session, text), nil
	case session.State == domain.StateAwaitingPhone:
		return s.phoneInput(ctx, session, text), nil
	case session.State == domain.StateAwaitingQuestion:
		return s.expertQuestion(ctx, session, text), nil
	default:
		return s.unknownInput(session), nil
	}
}

func (s *Service) handleCommand(ctx context.Context, session *domain.Session, text string) Reply {
	var command string
	if fields := strings.Fields(text); len(fields) > 0 {
		command = strings.ToLower(fields[0])
	}
	switch command {
	case "/start":
		s.resetToIdle(session)
		r := Reply{Options: []string{domain.StartLabel}}
		r.say(greetingText, 0)
		return r
	case "/help":
		r := Reply{}
		r.say(fmt.Sprintf(helpFormat, s.funnel.GetExpertPhone(), s.funnel.GetExpertTelegram()), 0)
		return r
	case "/cancel":
		s.resetToIdle(session)
		r := Reply{Options: []string{domain.StartLabel}}
		r.say(cancelledText, 0)
		return r
	default:
		s.log.WithContext(ctx).Debug("unknown command", "command", command)
		return s.unknownInput(session)
	}
}

func (s *Service) resetToIdle(session *domain.Session) {
	fresh := domain.NewSession(session.ID, session.Channel, s.now())
	fresh.Phone = session.Phone
	*session = *fresh
}

func (s *Service) startDiagnostic(ctx context.Context, session *domain.Session) Reply {
	step := s.machine.Start(session)
	s.eventBus.Publish(ctx, events.DiagnosticStarted{
		BaseEvent: events.NewBaseEvent(),
		SessionID: session.ID,
		Channel:   session.Channel,
	})
	return s.renderStep(ctx, session, step)
}

func (s *Service) questionnaireAnswer(ctx context.Context, session *domain.Session, text string) (Reply, error) {
	step, err := s.machine.Answer(session, text)
	if err != nil {
		return s.stepFailure(ctx, session, err)
	}
	return s.renderStep(ctx, session, step), nil
}

func (s *Service) questionnaireBack(ctx context.Context, session *domain.Session) (Reply, error) {
	step, err := s.machine.Back(session)
	if err != nil {
		return Reply{}, err
	}
	return s.renderStep(ctx, session, step), nil
}

// stepFailure turns a configuration error into a generic user message; the
// session stays in Calculating and the next event retries.
func (s *Service) stepFailure(ctx context.Context, session *domain.Session, err error) (Reply, error) {
	if domain.IsConfigurationError(err) {
		s.log.WithContext(ctx).ConfigurationError("diagnostic.calculate", err)
		r := Reply{}
		r.say(calculationFailed, 0)
		return r, nil
	}
	if errors.Is(err, domain.ErrNotInQuestionnaire) {
		return s.unknownInput(session), nil
	}
	return Reply{}, err
}

func (s *Service) renderStep(ctx context.Context, session *domain.Session, step domain.Step) Reply {
	r := Reply{}
	if step.Notice != "" {
		r.say(step.Notice, 0)
	}
	for _, c := range step.Comments {
		r.say(c, 0)
	}
	if step.Outcome == domain.OutcomeCompleted && step.Result != nil {
		s.renderCompletion(ctx, session, *step.Result, &r)
		return r
	}
	if step.Prompt != nil {
		r.say(step.Prompt.Text, 0)
		r.Prompt = step.Prompt
		r.Options = promptOptions(step.Prompt)
	}
	return r
}

func promptOptions(p *domain.Prompt) []string {
	options := append([]string(nil), p.Options...)
	if p.AllowBack {
		options = append(options, domain.BackLabel)
	}
	return options
}

func (s *Service) unknownInput(session *domain.Session) Reply {
	r := Reply{}
	switch session.State {
	case domain.StateIdle:
		r.say(startPromptText, 0)
		r.Options = []string{domain.StartLabel}
	case domain.StateShowingResults:
		r.say(pickAboveText, 0)
		r.Options = []string{domain.ShowSolutionLabel}
	case domain.StateChoosingOffer:
		r.say(pickFromListText, 0)
		r.Options = domain.OfferMenu
	default:
		r.say(useButtonsText, 0)
		if p := s.machine.CurrentPrompt(session); p != nil {
			r.Prompt = p
			r.Options = promptOptions(p)
		}
	}
	return r
}
