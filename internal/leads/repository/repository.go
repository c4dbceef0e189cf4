package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var ErrNotFound = errors.New("lead not found")

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

type Repository struct {
	db DB
}

func New(db DB) *Repository {
	return &Repository{db: db}
}

// DiagnosticResult is one completed questionnaire.
type DiagnosticResult struct {
	ID              uuid.UUID
	SessionID       string
	Channel         string
	Stage           string
	Area            string
	Control         string
	Fixation        string
	LossMin         int64
	LossAvg         int64
	LossMax         int64
	TotalMultiplier float64
	CreatedAt       time.Time
}

// Contact is a phone number left for a callback.
type Contact struct {
	ID         uuid.UUID
	SessionID  string
	Channel    string
	Phone      string
	Stage      *string
	LossAvg    *int64
	RemindedAt *time.Time
	CreatedAt  time.Time
}

// ExpertQuestion is a free-text question forwarded to the expert.
type ExpertQuestion struct {
	ID        uuid.UUID
	SessionID string
	Channel   string
	Question  string
	Phone     *string
	CreatedAt time.Time
}

type CreateDiagnosticParams struct {
	SessionID       string
	Channel         string
	Stage           string
	Area            string
	Control         string
	Fixation        string
	LossMin         int64
	LossAvg         int64
	LossMax         int64
	TotalMultiplier float64
}

type CreateContactParams struct {
	SessionID string
	Channel   string
	Phone     string
	Stage     string
	LossAvg   int64
}

type CreateQuestionParams struct {
	SessionID string
	Channel   string
	Question  string
	Phone     string
}

// ListParams pages newest-first listings.
type ListParams struct {
	Limit  int
	Offset int
}

func (p ListParams) normalized() ListParams {
	if p.Limit <= 0 {
		p.Limit = defaultPageSize
	}
	if p.Limit > maxPageSize {
		p.Limit = maxPageSize
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

func (r *Repository) CreateDiagnostic(ctx context.Context, params CreateDiagnosticParams) (DiagnosticResult, error) {
	out := DiagnosticResult{
		ID:              uuid.New(),
		SessionID:       params.SessionID,
		Channel:         params.Channel,
		Stage:           params.Stage,
		Area:            params.Area,
		Control:         params.Control,
		Fixation:        params.Fixation,
		LossMin:         params.LossMin,
		LossAvg:         params.LossAvg,
		LossMax:         params.LossMax,
		TotalMultiplier: params.TotalMultiplier,
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO diagnostic_results
			(id, session_id, channel, stage, area, control, fixation, loss_min, loss_avg, loss_max, total_multiplier)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at
	`, out.ID, out.SessionID, out.Channel, out.Stage, out.Area, out.Control, out.Fixation,
		out.LossMin, out.LossAvg, out.LossMax, out.TotalMultiplier).Scan(&out.CreatedAt)
	if err != nil {
		return DiagnosticResult{}, fmt.Errorf("insert diagnostic result: %w", err)
	}
	return out, nil
}

func (r *Repository) CreateContact(ctx context.Context, params CreateContactParams) (Contact, error) {
	out := Contact{
		ID:        uuid.New(),
		SessionID: params.SessionID,
		Channel:   params.Channel,
		Phone:     params.Phone,
		Stage:     nullableString(params.Stage),
		LossAvg:   nullableInt(params.LossAvg),
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO lead_contacts (id, session_id, channel, phone, stage, loss_avg)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, out.ID, out.SessionID, out.Channel, out.Phone, out.Stage, out.LossAvg).Scan(&out.CreatedAt)
	if err != nil {
		return Contact{}, fmt.Errorf("insert lead contact: %w", err)
	}
	return out, nil
}

func (r *Repository) CreateQuestion(ctx context.Context, params CreateQuestionParams) (ExpertQuestion, error) {
	out := ExpertQuestion{
		ID:        uuid.New(),
		SessionID: params.SessionID,
		Channel:   params.Channel,
		Question:  params.Question,
		Phone:     nullableString(params.Phone),
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO expert_questions (id, session_id, channel, question, phone)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, out.ID, out.SessionID, out.Channel, out.Question, out.Phone).Scan(&out.CreatedAt)
	if err != nil {
		return ExpertQuestion{}, fmt.Errorf("insert expert question: %w", err)
	}
	return out, nil
}

const contactColumns = `id, session_id, channel, phone, stage, loss_avg, reminded_at, created_at`

func (r *Repository) GetContact(ctx context.Context, id uuid.UUID) (Contact, error) {
	var c Contact
	err := r.db.QueryRow(ctx, `SELECT `+contactColumns+` FROM lead_contacts WHERE id = $1`, id).
		Scan(&c.ID, &c.SessionID, &c.Channel, &c.Phone, &c.Stage, &c.LossAvg, &c.RemindedAt, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Contact{}, ErrNotFound
	}
	if err != nil {
		return Contact{}, err
	}
	return c, nil
}

// ClaimReminder sets reminded_at when it is still empty. A contact that was
// already reminded, or does not exist, returns ErrNotFound.
func (r *Repository) ClaimReminder(ctx context.Context, contactID uuid.UUID, at time.Time) (Contact, error) {
	var c Contact
	err := r.db.QueryRow(ctx, `
		UPDATE lead_contacts SET reminded_at = $2
		WHERE id = $1 AND reminded_at IS NULL
		RETURNING `+contactColumns, contactID, at).
		Scan(&c.ID, &c.SessionID, &c.Channel, &c.Phone, &c.Stage, &c.LossAvg, &c.RemindedAt, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Contact{}, ErrNotFound
	}
	if err != nil {
		return Contact{}, err
	}
	return c, nil
}

func (r *Repository) ListContacts(ctx context.Context, params ListParams) ([]Contact, int, error) {
	params = params.normalized()
	rows, err := r.db.Query(ctx, `
		SELECT `+contactColumns+`, COUNT(*) OVER()
		FROM lead_contacts
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, params.Limit, params.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := make([]Contact, 0)
	total := 0
	for rows.Next() {
		var c Contact
		if err := rows.Scan(&c.ID, &c.SessionID, &c.Channel, &c.Phone, &c.Stage, &c.LossAvg, &c.RemindedAt, &c.CreatedAt, &total); err != nil {
			return nil, 0, err
		}
		items = append(items, c)
	}
	if rows.Err() != nil {
		return nil, 0, rows.Err()
	}
	return items, total, nil
}

func (r *Repository) ListQuestions(ctx context.Context, params ListParams) ([]ExpertQuestion, int, error) {
	params = params.normalized()
	rows, err := r.db.Query(ctx, `
		SELECT id, session_id, channel, question, phone, created_at, COUNT(*) OVER()
		FROM expert_questions
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, params.Limit, params.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := make([]ExpertQuestion, 0)
	total := 0
	for rows.Next() {
		var q ExpertQuestion
		if err := rows.Scan(&q.ID, &q.SessionID, &q.Channel, &q.Question, &q.Phone, &q.CreatedAt, &total); err != nil {
			return nil, 0, err
		}
		items = append(items, q)
	}
	if rows.Err() != nil {
		return nil, 0, rows.Err()
	}
	return items, total, nil
}

func (r *Repository) ListDiagnostics(ctx context.Context, params ListParams) ([]DiagnosticResult, int, error) {
	params = params.normalized()
	rows, err := r.db.Query(ctx, `
		SELECT id, session_id, channel, stage, area, control, fixation,
			loss_min, loss_avg, loss_max, total_multiplier::float8, created_at, COUNT(*) OVER()
		FROM diagnostic_results
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, params.Limit, params.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := make([]DiagnosticResult, 0)
	total := 0
	for rows.Next() {
		var d DiagnosticResult
		if err := rows.Scan(&d.ID, &d.SessionID, &d.Channel, &d.Stage, &d.Area, &d.Control, &d.Fixation,
			&d.LossMin, &d.LossAvg, &d.LossMax, &d.TotalMultiplier, &d.CreatedAt, &total); err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	if rows.Err() != nil {
		return nil, 0, rows.Err()
	}
	return items, total, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullableInt(v int64) *int64 {
	if v == 0 {
		return nil
	}
	return &v
}
