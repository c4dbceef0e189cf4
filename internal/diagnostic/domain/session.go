package domain

import "time"

// State is the position of a session in the conversation.
type State string

const (
	StateIdle             State = "idle"
	StateAwaitingStage    State = "awaiting_stage"
	StateAwaitingArea     State = "awaiting_area"
	StateAwaitingControl  State = "awaiting_control"
	StateAwaitingFixation State = "awaiting_fixation"
	StateCalculating      State = "calculating"
	StateShowingResults   State = "showing_results"
	StateChoosingOffer    State = "choosing_offer"
	StateAwaitingPhone    State = "awaiting_phone"
	StateAwaitingQuestion State = "awaiting_question"
)

// IsQuestionnaire reports whether s is one of the four question states.
func (s State) IsQuestionnaire() bool {
	switch s {
	case StateAwaitingStage, StateAwaitingArea, StateAwaitingControl, StateAwaitingFixation:
		return true
	}
	return false
}

// Answer is an accepted answer: the resolved code and the label as shown.
type Answer[C Code] struct {
	Code  C      `json:"code"`
	Label string `json:"label"`
}

// HistoryEntry is one accepted, user-given answer. Synthesized skips are
// not recorded.
type HistoryEntry struct {
	Question  Dimension `json:"question"`
	Answer    string    `json:"answer"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is the per-user conversation record.
type Session struct {
	ID             string            `json:"id"`
	Channel        string            `json:"channel"`
	State          State             `json:"state"`
	Stage          *Answer[Stage]    `json:"stage,omitempty"`
	Area           *Answer[Area]     `json:"area,omitempty"`
	Control        *Answer[Control]  `json:"control,omitempty"`
	Fixation       *Answer[Fixation] `json:"fixation,omitempty"`
	Result         *LossResult       `json:"result,omitempty"`
	Phone          string            `json:"phone,omitempty"`
	ExpertQuestion string            `json:"expertQuestion,omitempty"`
	History        []HistoryEntry    `json:"history"`
	StartedAt      time.Time         `json:"startedAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
	CompletedAt    *time.Time        `json:"completedAt,omitempty"`
}

// NewSession creates an idle session.
func NewSession(id, channel string, now time.Time) *Session {
	return &Session{
		ID:        id,
		Channel:   channel,
		State:     StateIdle,
		History:   []HistoryEntry{},
		StartedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy so stores never share mutable state with callers.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Stage = cloneAnswer(s.Stage)
	c.Area = cloneAnswer(s.Area)
	c.Control = cloneAnswer(s.Control)
	c.Fixation = cloneAnswer(s.Fixation)
	c.History = append([]HistoryEntry{}, s.History...)
	if s.Result != nil {
		r := *s.Result
		r.Examples = append([]Example(nil), s.Result.Examples...)
		c.Result = &r
	}
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

func cloneAnswer[C Code](a *Answer[C]) *Answer[C] {
	if a == nil {
		return nil
	}
	c := *a
	return &c
}

// StageCode returns the stored stage code or "" when unanswered.
func (s *Session) StageCode() Stage {
	if s.Stage == nil {
		return ""
	}
	return s.Stage.Code
}

// Complete reports whether all four codes are set.
func (s *Session) Complete() bool {
	return s.Stage != nil && s.Area != nil && s.Control != nil && s.Fixation != nil
}

func (s *Session) resetAnswers() {
	s.Stage, s.Area, s.Control, s.Fixation = nil, nil, nil, nil
	s.Result = nil
	s.CompletedAt = nil
	s.History = []HistoryEntry{}
}

func (s *Session) record(q Dimension, label string, at time.Time) {
	s.History = append(s.History, HistoryEntry{Question: q, Answer: label, Timestamp: at})
}

// dropLastIf removes the last history entry when it answers q.
func (s *Session) dropLastIf(q Dimension) {
	if n := len(s.History); n > 0 && s.History[n-1].Question == q {
		s.History = s.History[:n-1]
	}
}
