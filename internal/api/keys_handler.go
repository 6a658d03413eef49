package api

import (
	"net/http"
	"time"

	"github.com/vhlong/readpulse-api/internal/api/shared"
	"github.com/vhlong/readpulse-api/internal/orchestrator"
)

// KeySnapshotter is the slice of the orchestration layer the keys endpoint
// needs.
type KeySnapshotter interface {
	KeySnapshot() []orchestrator.CredentialState
}

// KeysHandler exposes the credential pool's health for operators. Secrets
// in the snapshot are already masked by the registry.
type KeysHandler struct {
	snapshotter KeySnapshotter
}

// NewKeysHandler creates a new KeysHandler.
func NewKeysHandler(snapshotter KeySnapshotter) *KeysHandler {
	return &KeysHandler{snapshotter: snapshotter}
}

// ListKeys handles GET /api/llm/keys requests
func (h *KeysHandler) ListKeys(w http.ResponseWriter, r *http.Request) {
	states := h.snapshotter.KeySnapshot()

	out := make([]KeyStateResponse, 0, len(states))
	for _, st := range states {
		resp := KeyStateResponse{
			ID:            st.ID,
			Secret:        st.Secret,
			RequestCount:  st.RequestCount,
			ErrorCount:    st.ErrorCount,
			Active:        st.Active,
			QuotaExceeded: st.QuotaExceeded,
		}
		if !st.QuotaResetAt.IsZero() {
			resp.QuotaResetAt = timePtr(st.QuotaResetAt)
		}
		if !st.LastUsedAt.IsZero() {
			resp.LastUsedAt = timePtr(st.LastUsedAt)
		}
		out = append(out, resp)
	}
	shared.RespondWithJSON(w, r, http.StatusOK, out)
}

func timePtr(t time.Time) *time.Time { return &t }
