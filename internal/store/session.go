package store

import (
	"context"

	"github.com/vhlong/readpulse-api/internal/domain"
)

// ReadingSessionStore defines the interface for graded-session persistence.
type ReadingSessionStore interface {
	// Create saves a graded reading session.
	// Returns ErrDuplicate if a session with the same session ID exists.
	Create(ctx context.Context, session *domain.ReadingSession) error

	// GetBySessionID retrieves one session by its client-supplied session ID.
	// Returns ErrSessionNotFound if no such session exists.
	GetBySessionID(ctx context.Context, sessionID string) (*domain.ReadingSession, error)

	// ListRecent returns up to limit sessions, most recent first.
	ListRecent(ctx context.Context, limit int) ([]*domain.ReadingSession, error)
}
