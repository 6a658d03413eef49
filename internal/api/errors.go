package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/vhlong/readpulse-api/internal/domain"
	"github.com/vhlong/readpulse-api/internal/generation"
	"github.com/vhlong/readpulse-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Domain validation errors
	case errors.Is(err, domain.ErrQuizTextIDEmpty),
		errors.Is(err, domain.ErrQuizNoQuestions),
		errors.Is(err, domain.ErrQuestionPromptEmpty),
		errors.Is(err, domain.ErrQuestionOptionCount),
		errors.Is(err, domain.ErrQuestionCorrectInvalid),
		errors.Is(err, domain.ErrGradeSessionIDEmpty),
		errors.Is(err, domain.ErrGradeNoAnswers),
		errors.Is(err, domain.ErrGradeWPMInvalid),
		errors.Is(err, domain.ErrAnalysisTextEmpty),
		errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, generation.ErrEmptyPrompt),
		errors.Is(err, generation.ErrInvalidConfig):
		return http.StatusBadRequest

	// Not found errors
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict

	// Cancelled or timed-out request
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, domain.ErrQuizTextIDEmpty),
		errors.Is(err, domain.ErrQuizNoQuestions),
		errors.Is(err, domain.ErrQuestionPromptEmpty),
		errors.Is(err, domain.ErrQuestionOptionCount),
		errors.Is(err, domain.ErrQuestionCorrectInvalid):
		return "Invalid quiz data"

	case errors.Is(err, domain.ErrGradeSessionIDEmpty),
		errors.Is(err, domain.ErrGradeNoAnswers),
		errors.Is(err, domain.ErrGradeWPMInvalid):
		return "Invalid grading input"

	case errors.Is(err, domain.ErrAnalysisTextEmpty):
		return "Text content is empty"

	case errors.Is(err, store.ErrNotFound):
		return "Resource not found"

	case errors.Is(err, store.ErrDuplicate):
		return "Resource already exists"

	case errors.Is(err, generation.ErrAllKeysExhausted):
		return "Text generation is temporarily unavailable"

	default:
		return "An unexpected error occurred"
	}
}
