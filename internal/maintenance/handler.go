package maintenance

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"user-service/internal/observability"
)

// LockoutJanitor resets lockout bookkeeping that expired before the
// retention cutoff. auth.Repository is the production implementation.
type LockoutJanitor interface {
	CleanupExpiredLocks(ctx context.Context, retention time.Duration, batchSize int) (int64, error)
}

// CleanupHandler is a cron-invoked endpoint guarded by a shared secret. With
// no secret configured the route answers 404, so it cannot be probed.
type CleanupHandler struct {
	janitor   LockoutJanitor
	logger    *observability.Logger
	secret    string
	retention time.Duration
	batchSize int
}

func NewCleanupHandler(janitor LockoutJanitor, logger *observability.Logger, secret string, retention time.Duration, batchSize int) *CleanupHandler {
	return &CleanupHandler{
		janitor:   janitor,
		logger:    logger,
		secret:    strings.TrimSpace(secret),
		retention: retention,
		batchSize: batchSize,
	}
}

func (h *CleanupHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if h.secret == "" {
		writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "message": "not found"})
		return
	}

	header := strings.TrimSpace(r.Header.Get("Authorization"))
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) != h.secret {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "unauthorized"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	cleared, err := h.janitor.CleanupExpiredLocks(ctx, h.retention, h.batchSize)
	if err != nil {
		h.logger.Error("lockout_cleanup_failed", map[string]any{"error": err.Error()})
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "message": "cleanup failed"})
		return
	}

	h.logger.Info("lockout_cleanup_completed", map[string]any{"cleared_locks": cleared})

	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"cleared_locks": cleared,
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
