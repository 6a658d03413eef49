package domain

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Session-specific validation errors
var (
	// ErrSessionIDEmpty is returned when a session ID is empty or nil.
	ErrSessionIDEmpty = errors.New("session ID cannot be empty")

	// ErrSessionTextIDEmpty is returned when a session's text ID is empty.
	ErrSessionTextIDEmpty = errors.New("session text ID cannot be empty")
)

// ReadingSession is the persisted record of one graded reading session.
// PerQuestion stores the per-question results as a JSONB structure.
type ReadingSession struct {
	ID                   uuid.UUID       `json:"id"`
	SessionID            string          `json:"session_id"`
	TextID               string          `json:"text_id"`
	CorrectCount         int             `json:"correct_count"`
	TotalQuestions       int             `json:"total_questions"`
	ComprehensionPercent float64         `json:"comprehension_percent"`
	WPM                  float64         `json:"wpm"`
	REI                  float64         `json:"rei"`
	Feedback             string          `json:"feedback"`
	PerQuestion          json.RawMessage `json:"per_question"`
	CreatedAt            time.Time       `json:"created_at"`
}

// NewReadingSession builds the persistable record from a grade result.
// Returns an error if the per-question breakdown cannot be serialized or
// validation fails.
func NewReadingSession(textID string, result *GradeResult) (*ReadingSession, error) {
	perQuestion, err := json.Marshal(result.PerQuestion)
	if err != nil {
		return nil, err
	}
	session := &ReadingSession{
		ID:                   uuid.New(),
		SessionID:            result.SessionID,
		TextID:               textID,
		CorrectCount:         result.CorrectCount,
		TotalQuestions:       result.TotalQuestions,
		ComprehensionPercent: result.ComprehensionPercent,
		WPM:                  result.WPM,
		REI:                  result.REI,
		Feedback:             result.Feedback,
		PerQuestion:          perQuestion,
		CreatedAt:            time.Now().UTC(),
	}
	if err := session.Validate(); err != nil {
		return nil, err
	}
	return session, nil
}

// Validate checks that the session record is well-formed.
func (s *ReadingSession) Validate() error {
	if s.SessionID == "" {
		return ErrSessionIDEmpty
	}
	if s.TextID == "" {
		return ErrSessionTextIDEmpty
	}
	return nil
}
