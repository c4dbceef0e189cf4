package domain

import (
	"errors"
	"fmt"
	"time"
)

// BackLabel is the button that asks to change the previous answer.
const BackLabel = "◀️ Изменить предыдущий ответ"

// SkippedFixationLabel is echoed for a fixation answer the flow synthesized.
const SkippedFixationLabel = "Пропущено"

// User-facing notices of the questionnaire.
const (
	NoticeInvalidAnswer = "Пожалуйста, выберите вариант из списка"
	NoticeFirstQuestion = "Это первый вопрос, назад нельзя."
	NoticeBackToStage   = "Возвращаю к вопросу о стадии ремонта..."
	NoticeBackToArea    = "Возвращаю к вопросу о площади..."
	NoticeBackToControl = "Возвращаю к вопросу о контроле..."
)

// ErrNotInQuestionnaire is returned for answer or back events outside the
// four question states.
var ErrNotInQuestionnaire = errors.New("session is not answering the questionnaire")

// Outcome classifies what a questionnaire event did.
type Outcome string

const (
	OutcomeAdvanced  Outcome = "advanced"
	OutcomeReprompt  Outcome = "reprompt"
	OutcomeBackNoop  Outcome = "back_noop"
	OutcomeWentBack  Outcome = "went_back"
	OutcomeCompleted Outcome = "completed"
)

// Prompt is the next question: which one, its wording and the exact labels
// that are valid answers. The back button is rendered when AllowBack is set.
type Prompt struct {
	QuestionID Dimension `json:"questionId"`
	Text       string    `json:"text"`
	Options    []string  `json:"options"`
	AllowBack  bool      `json:"allowBack"`
}

// Step is the result of one questionnaire event.
type Step struct {
	Outcome  Outcome     `json:"outcome"`
	Prompt   *Prompt     `json:"prompt,omitempty"`
	Notice   string      `json:"notice,omitempty"`
	Comments []string    `json:"comments,omitempty"`
	Skipped  []Dimension `json:"skipped,omitempty"`
	Result   *LossResult `json:"result,omitempty"`
}

// Machine drives the branching questionnaire over a Session. It holds no
// per-session state and is safe for concurrent use across sessions.
type Machine struct {
	policies *PolicyTable
	calc     *Calculator
	now      func() time.Time
}

// MachineOption configures a Machine.
type MachineOption func(*Machine)

// WithClock overrides the time source used for history timestamps.
func WithClock(now func() time.Time) MachineOption {
	return func(m *Machine) { m.now = now }
}

// NewMachine creates a machine over policies.
func NewMachine(policies *PolicyTable, opts ...MachineOption) *Machine {
	m := &Machine{
		policies: policies,
		calc:     NewCalculator(policies),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Policies exposes the table the machine was built with.
func (m *Machine) Policies() *PolicyTable { return m.policies }

// Calculator exposes the calculator the machine was built with.
func (m *Machine) Calculator() *Calculator { return m.calc }

// Start clears previous answers and asks the stage question.
func (m *Machine) Start(s *Session) Step {
	s.resetAnswers()
	s.State = StateAwaitingStage
	s.UpdatedAt = m.now()
	return Step{Outcome: OutcomeAdvanced, Prompt: m.promptFor(s)}
}

// CurrentPrompt returns the prompt of the state s is in, or nil outside the
// question states.
func (m *Machine) CurrentPrompt(s *Session) *Prompt {
	return m.promptFor(s)
}

// Answer applies a label to the current question. BackLabel is treated as
// a back request. An unresolvable label leaves s untouched and re-issues
// the same prompt.
func (m *Machine) Answer(s *Session, label string) (Step, error) {
	if label == BackLabel {
		return m.Back(s)
	}

	switch s.State {
	case StateAwaitingStage:
		code, err := ResolveStage(label)
		if err != nil {
			return m.reprompt(s), nil
		}
		return m.acceptStage(s, code, label), nil

	case StateAwaitingArea:
		code, err := ResolveArea(label)
		if err != nil {
			return m.reprompt(s), nil
		}
		return m.acceptArea(s, code, label)

	case StateAwaitingControl:
		code, err := ResolveControl(label, s.StageCode())
		if err != nil {
			return m.reprompt(s), nil
		}
		return m.acceptControl(s, code, label)

	case StateAwaitingFixation:
		code, err := ResolveFixation(label, s.StageCode())
		if err != nil {
			return m.reprompt(s), nil
		}
		return m.acceptFixation(s, code, label)

	case StateCalculating:
		return m.Calculate(s)

	default:
		return Step{}, fmt.Errorf("answer in state %s: %w", s.State, ErrNotInQuestionnaire)
	}
}

// Back moves one question back. From the first question it is a no-op with
// a notice. From fixation it always returns to the control question, even
// when control was synthesized as skip.
func (m *Machine) Back(s *Session) (Step, error) {
	var target State
	var notice string

	switch s.State {
	case StateAwaitingStage:
		return Step{Outcome: OutcomeBackNoop, Notice: NoticeFirstQuestion, Prompt: m.promptFor(s)}, nil
	case StateAwaitingArea:
		target, notice = StateAwaitingStage, NoticeBackToStage
		s.dropLastIf(DimensionStage)
	case StateAwaitingControl:
		target, notice = StateAwaitingArea, NoticeBackToArea
		s.dropLastIf(DimensionArea)
	case StateAwaitingFixation:
		target, notice = StateAwaitingControl, NoticeBackToControl
		s.dropLastIf(DimensionControl)
	default:
		return Step{}, fmt.Errorf("back in state %s: %w", s.State, ErrNotInQuestionnaire)
	}

	s.State = target
	s.UpdatedAt = m.now()
	return Step{Outcome: OutcomeWentBack, Notice: notice, Prompt: m.promptFor(s)}, nil
}

// Calculate runs the calculator on the stored codes. On a configuration
// error the session stays in Calculating so a later event can retry.
func (m *Machine) Calculate(s *Session) (Step, error) {
	if !s.Complete() {
		return Step{}, configurationError("calculation reached with unanswered questions")
	}
	s.State = StateCalculating
	result, err := m.calc.Compute(s.Stage.Code, s.Area.Code, s.Control.Code, s.Fixation.Code)
	if err != nil {
		return Step{}, err
	}
	now := m.now()
	s.Result = &result
	s.State = StateShowingResults
	s.CompletedAt = &now
	s.UpdatedAt = now
	return Step{Outcome: OutcomeCompleted, Result: &result}, nil
}

func (m *Machine) reprompt(s *Session) Step {
	return Step{Outcome: OutcomeReprompt, Notice: NoticeInvalidAnswer, Prompt: m.promptFor(s)}
}

func (m *Machine) acceptStage(s *Session, code Stage, label string) Step {
	now := m.now()
	if s.Stage != nil && s.Stage.Code != code {
		// control and fixation label sets depend on the stage
		s.Control, s.Fixation = nil, nil
	}
	s.Stage = &Answer[Stage]{Code: code, Label: label}
	s.record(DimensionStage, label, now)
	s.State = StateAwaitingArea
	s.UpdatedAt = now

	step := Step{Outcome: OutcomeAdvanced, Prompt: m.promptFor(s)}
	if p, err := m.policies.Lookup(code); err == nil && p.Comment != "" {
		step.Comments = []string{p.Comment}
	}
	return step
}

func (m *Machine) acceptArea(s *Session, code Area, label string) (Step, error) {
	now := m.now()
	s.Area = &Answer[Area]{Code: code, Label: label}
	s.record(DimensionArea, label, now)
	s.UpdatedAt = now

	comments := m.policies.Comments()
	step := Step{Outcome: OutcomeAdvanced}
	if code == AreaUnknown {
		step.Comments = appendNonEmpty(step.Comments, comments.AreaUnknown)
	} else if comments.AreaKnown != "" {
		step.Comments = append(step.Comments, fmt.Sprintf(comments.AreaKnown, label))
	}

	if m.policies.SkipsControl(s.StageCode()) {
		s.Control = &Answer[Control]{Code: ControlSkip, Label: TooLateLabel}
		step.Skipped = append(step.Skipped, DimensionControl)
		return m.afterControl(s, step)
	}

	s.State = StateAwaitingControl
	step.Prompt = m.promptFor(s)
	return step, nil
}

func (m *Machine) acceptControl(s *Session, code Control, label string) (Step, error) {
	now := m.now()
	s.Control = &Answer[Control]{Code: code, Label: label}
	s.record(DimensionControl, label, now)
	s.UpdatedAt = now

	step := Step{Outcome: OutcomeAdvanced}
	step.Comments = appendNonEmpty(step.Comments, m.policies.Comments().Control[code])
	return m.afterControl(s, step)
}

func (m *Machine) afterControl(s *Session, step Step) (Step, error) {
	if m.policies.SkipsFixation(s.StageCode()) {
		s.Fixation = &Answer[Fixation]{Code: FixationSkip, Label: SkippedFixationLabel}
		step.Skipped = append(step.Skipped, DimensionFixation)
		return m.finish(s, step)
	}
	s.State = StateAwaitingFixation
	step.Prompt = m.promptFor(s)
	return step, nil
}

func (m *Machine) acceptFixation(s *Session, code Fixation, label string) (Step, error) {
	now := m.now()
	s.Fixation = &Answer[Fixation]{Code: code, Label: label}
	s.record(DimensionFixation, label, now)
	s.UpdatedAt = now

	step := Step{Outcome: OutcomeAdvanced}
	step.Comments = appendNonEmpty(step.Comments, m.policies.Comments().Fixation[code])
	return m.finish(s, step)
}

func (m *Machine) finish(s *Session, step Step) (Step, error) {
	calc, err := m.Calculate(s)
	if err != nil {
		return Step{}, err
	}
	step.Outcome = calc.Outcome
	step.Result = calc.Result
	step.Prompt = nil
	return step, nil
}

func (m *Machine) promptFor(s *Session) *Prompt {
	q := m.policies.Questions()
	stage := s.StageCode()

	switch s.State {
	case StateAwaitingStage:
		return &Prompt{QuestionID: DimensionStage, Text: q.Stage, Options: OptionLabels(DimensionStage, stage)}
	case StateAwaitingArea:
		return &Prompt{QuestionID: DimensionArea, Text: q.Area, Options: OptionLabels(DimensionArea, stage), AllowBack: true}
	case StateAwaitingControl:
		text := q.Control
		if stage == StageLiving {
			text = q.ControlLiving
		}
		return &Prompt{QuestionID: DimensionControl, Text: text, Options: OptionLabels(DimensionControl, stage), AllowBack: true}
	case StateAwaitingFixation:
		text := q.Fixation
		switch stage {
		case StageNotStarted:
			text = q.FixationNotStarted
		case StageLiving:
			text = q.FixationLiving
		}
		return &Prompt{QuestionID: DimensionFixation, Text: text, Options: OptionLabels(DimensionFixation, stage), AllowBack: true}
	default:
		return nil
	}
}

func appendNonEmpty(list []string, text string) []string {
	if text == "" {
		return list
	}
	return append(list, text)
}
