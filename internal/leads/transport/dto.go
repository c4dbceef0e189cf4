package transport

import (
	"time"

	"github.com/google/uuid"
)

// ListQuery is the paging query of admin listings.
type ListQuery struct {
	Limit  int `form:"limit" validate:"omitempty,min=1,max=200"`
	Offset int `form:"offset" validate:"omitempty,min=0"`
}

type ContactResponse struct {
	ID         uuid.UUID  `json:"id"`
	SessionID  string     `json:"sessionId"`
	Channel    string     `json:"channel"`
	Phone      string     `json:"phone"`
	Stage      *string    `json:"stage,omitempty"`
	LossAvg    *int64     `json:"lossAvg,omitempty"`
	RemindedAt *time.Time `json:"remindedAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

type QuestionResponse struct {
	ID        uuid.UUID `json:"id"`
	SessionID string    `json:"sessionId"`
	Channel   string    `json:"channel"`
	Question  string    `json:"question"`
	Phone     *string   `json:"phone,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type DiagnosticResponse struct {
	ID              uuid.UUID `json:"id"`
	SessionID       string    `json:"sessionId"`
	Channel         string    `json:"channel"`
	Stage           string    `json:"stage"`
	Area            string    `json:"area"`
	Control         string    `json:"control"`
	Fixation        string    `json:"fixation"`
	LossMin         int64     `json:"lossMin"`
	LossAvg         int64     `json:"lossAvg"`
	LossMax         int64     `json:"lossMax"`
	TotalMultiplier float64   `json:"totalMultiplier"`
	CreatedAt       time.Time `json:"createdAt"`
}

// ListResponse is a page of items with the unpaged total.
type ListResponse[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}
