package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool the repository uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// =====================================
// Segregated Interfaces
// =====================================

// DiagnosticWriter records completed diagnostics.
type DiagnosticWriter interface {
	CreateDiagnostic(ctx context.Context, params CreateDiagnosticParams) (DiagnosticResult, error)
}

// ContactWriter records captured phone numbers.
type ContactWriter interface {
	CreateContact(ctx context.Context, params CreateContactParams) (Contact, error)
}

// QuestionWriter records questions for the expert.
type QuestionWriter interface {
	CreateQuestion(ctx context.Context, params CreateQuestionParams) (ExpertQuestion, error)
}

// ReminderClaimer marks a contact as reminded exactly once.
type ReminderClaimer interface {
	ClaimReminder(ctx context.Context, contactID uuid.UUID, at time.Time) (Contact, error)
}

// LeadReader lists captured leads for operators.
type LeadReader interface {
	GetContact(ctx context.Context, id uuid.UUID) (Contact, error)
	ListContacts(ctx context.Context, params ListParams) ([]Contact, int, error)
	ListQuestions(ctx context.Context, params ListParams) ([]ExpertQuestion, int, error)
	ListDiagnostics(ctx context.Context, params ListParams) ([]DiagnosticResult, int, error)
}

// LeadsRepository is the full repository surface.
type LeadsRepository interface {
	DiagnosticWriter
	ContactWriter
	QuestionWriter
	ReminderClaimer
	LeadReader
}

var _ LeadsRepository = (*Repository)(nil)
