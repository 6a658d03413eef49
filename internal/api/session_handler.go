package api

import (
	"net/http"
	"strconv"

	"github.com/vhlong/readpulse-api/internal/api/shared"
	"github.com/vhlong/readpulse-api/internal/domain"
	"github.com/vhlong/readpulse-api/internal/store"
)

// maxSessionListLimit caps the page size of the session history endpoint.
const maxSessionListLimit = 100

// SessionHandler handles reading-session history requests.
type SessionHandler struct {
	sessions store.ReadingSessionStore
}

// NewSessionHandler creates a new SessionHandler. sessions may be nil when
// persistence is not configured; the handler then serves an empty history.
func NewSessionHandler(sessions store.ReadingSessionStore) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// ListSessions handles GET /api/sessions requests
func (h *SessionHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	if h.sessions == nil {
		shared.RespondWithJSON(w, r, http.StatusOK, []SessionResponse{})
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			shared.RespondWithError(w, r, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	if limit > maxSessionListLimit {
		limit = maxSessionListLimit
	}

	sessions, err := h.sessions.ListRecent(r.Context(), limit)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r,
			MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	out := make([]SessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, sessionToDTOResponse(s))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, out)
}

// sessionToDTOResponse converts a domain.ReadingSession to a SessionResponse
func sessionToDTOResponse(s *domain.ReadingSession) SessionResponse {
	return SessionResponse{
		SessionID:            s.SessionID,
		TextID:               s.TextID,
		CorrectCount:         s.CorrectCount,
		TotalQuestions:       s.TotalQuestions,
		ComprehensionPercent: s.ComprehensionPercent,
		WPM:                  s.WPM,
		REI:                  s.REI,
		Feedback:             s.Feedback,
		CreatedAt:            s.CreatedAt,
	}
}
