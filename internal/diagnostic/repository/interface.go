// Package repository stores diagnostic conversation sessions.
package repository

import (
	"context"
	"errors"

	"repair_audit_backend/internal/diagnostic/domain"
)

// ErrNotFound is returned when no session exists for an id.
var ErrNotFound = errors.New("session not found")

// SessionReader loads sessions.
type SessionReader interface {
	Get(ctx context.Context, id string) (*domain.Session, error)
}

// SessionWriter persists and removes sessions.
type SessionWriter interface {
	Save(ctx context.Context, session *domain.Session) error
	Delete(ctx context.Context, id string) error
}

// SessionStore is the full session store contract. Implementations return
// copies so callers never share a session with the store.
type SessionStore interface {
	SessionReader
	SessionWriter
}
