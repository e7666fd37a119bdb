package handlers

import (
	"net/http"

	"github.com/sentinel-intel/sentinel/internal/session"
	"github.com/sentinel-intel/sentinel/pkg/logging"
)

// SessionsCleanupHandler sweeps expired conversation sessions on demand.
// Backends with native TTL treat this as a belt-and-suspenders sweep.
type SessionsCleanupHandler struct {
	sessions session.Store
	logger   *logging.Logger
}

func NewSessionsCleanupHandler(sessions session.Store, logger *logging.Logger) *SessionsCleanupHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &SessionsCleanupHandler{sessions: sessions, logger: logger}
}

func (h *SessionsCleanupHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	removed, err := h.sessions.Cleanup(r.Context())
	if err != nil {
		h.logger.Error("session cleanup failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "cleanup failed"})
		return
	}
	h.logger.Info("session cleanup completed", "removed", removed)
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}
