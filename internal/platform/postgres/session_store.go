package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vhlong/readpulse-api/internal/domain"
	"github.com/vhlong/readpulse-api/internal/store"
)

// defaultListLimit caps ListRecent when the caller passes no usable limit.
const defaultListLimit = 20

// PostgresSessionStore implements the store.ReadingSessionStore interface
// using a PostgreSQL database as the storage backend.
type PostgresSessionStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresSessionStore creates a new PostgreSQL implementation of the
// ReadingSessionStore interface. It accepts a database connection or
// transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresSessionStore(db store.DBTX, logger *slog.Logger) *PostgresSessionStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresSessionStore{
		db:     db,
		logger: logger.With(slog.String("component", "session_store")),
	}
}

// Ensure PostgresSessionStore implements store.ReadingSessionStore interface
var _ store.ReadingSessionStore = (*PostgresSessionStore)(nil)

// Create implements store.ReadingSessionStore.Create
func (s *PostgresSessionStore) Create(ctx context.Context, session *domain.ReadingSession) error {
	if err := session.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO reading_sessions
			(id, session_id, text_id, correct_count, total_questions,
			 comprehension_percent, wpm, rei, feedback, per_question, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := s.db.ExecContext(ctx, query,
		session.ID,
		session.SessionID,
		session.TextID,
		session.CorrectCount,
		session.TotalQuestions,
		session.ComprehensionPercent,
		session.WPM,
		session.REI,
		session.Feedback,
		session.PerQuestion,
		session.CreatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("%w: session %s", store.ErrDuplicate, session.SessionID)
		}
		s.logger.Error("failed to insert reading session",
			slog.String("session_id", session.SessionID),
			slog.String("error", err.Error()))
		return MapError(err)
	}
	return nil
}

// GetBySessionID implements store.ReadingSessionStore.GetBySessionID
func (s *PostgresSessionStore) GetBySessionID(ctx context.Context, sessionID string) (*domain.ReadingSession, error) {
	query := `
		SELECT id, session_id, text_id, correct_count, total_questions,
		       comprehension_percent, wpm, rei, feedback, per_question, created_at
		FROM reading_sessions
		WHERE session_id = $1`

	row := s.db.QueryRowContext(ctx, query, sessionID)
	session, err := scanSession(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrSessionNotFound
		}
		return nil, MapError(err)
	}
	return session, nil
}

// ListRecent implements store.ReadingSessionStore.ListRecent
func (s *PostgresSessionStore) ListRecent(ctx context.Context, limit int) ([]*domain.ReadingSession, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := `
		SELECT id, session_id, text_id, correct_count, total_questions,
		       comprehension_percent, wpm, rei, feedback, per_question, created_at
		FROM reading_sessions
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var sessions []*domain.ReadingSession
	for rows.Next() {
		session, err := scanSession(rows.Scan)
		if err != nil {
			return nil, MapError(err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return sessions, nil
}

// scanSession reads one row into a ReadingSession via the given Scan func,
// so the same column order serves both QueryRow and Query paths.
func scanSession(scan func(dest ...any) error) (*domain.ReadingSession, error) {
	var session domain.ReadingSession
	err := scan(
		&session.ID,
		&session.SessionID,
		&session.TextID,
		&session.CorrectCount,
		&session.TotalQuestions,
		&session.ComprehensionPercent,
		&session.WPM,
		&session.REI,
		&session.Feedback,
		&session.PerQuestion,
		&session.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &session, nil
}
