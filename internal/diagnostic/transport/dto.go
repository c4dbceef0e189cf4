package transport

import (
	"time"

	"repair_audit_backend/internal/diagnostic/domain"
)

// CreateSessionRequest starts a new diagnostic. Channel tags where the
// client runs and defaults to "web".
type CreateSessionRequest struct {
	Channel string `json:"channel" validate:"omitempty,max=32,alphanum"`
}

// SessionEventRequest delivers one user action to a session.
type SessionEventRequest struct {
	Type  string `json:"type" validate:"required,oneof=start answer back command callback contact"`
	Text  string `json:"text" validate:"max=4000"`
	Data  string `json:"data" validate:"max=64"`
	Phone string `json:"phone" validate:"max=32"`
}

// EstimateRequest is a stateless calculator call in answer codes.
type EstimateRequest struct {
	Stage    string `json:"stage" validate:"required,dimension_code=stage"`
	Area     string `json:"area" validate:"required,dimension_code=area"`
	Control  string `json:"control" validate:"omitempty,dimension_code=control"`
	Fixation string `json:"fixation" validate:"omitempty,dimension_code=fixation"`
}

// QRQuery sizes the expert contact QR code in pixels.
type QRQuery struct {
	Size int `form:"size" validate:"omitempty,min=128,max=1024"`
}

type AnswerResponse struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

type HistoryResponse struct {
	Question  domain.Dimension `json:"question"`
	Answer    string           `json:"answer"`
	Timestamp time.Time        `json:"timestamp"`
}

// SessionResponse is the public snapshot of a session. The captured phone
// is reported only as a flag.
type SessionResponse struct {
	ID          string                              `json:"id"`
	Channel     string                              `json:"channel"`
	State       domain.State                        `json:"state"`
	Answers     map[domain.Dimension]AnswerResponse `json:"answers"`
	Result      *domain.LossResult                  `json:"result,omitempty"`
	History     []HistoryResponse                   `json:"history"`
	Options     []string                            `json:"options,omitempty"`
	HasPhone    bool                                `json:"hasPhone"`
	StartedAt   time.Time                           `json:"startedAt"`
	UpdatedAt   time.Time                           `json:"updatedAt"`
	CompletedAt *time.Time                          `json:"completedAt,omitempty"`
}
