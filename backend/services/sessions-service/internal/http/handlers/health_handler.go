package handlers

import (
	"context"
	"net/http"
)

// PendingCounter reports the space-sync backlog.
type PendingCounter interface {
	Pending(ctx context.Context) (int64, error)
}

// NewHealthHandler returns GET /health handler. The sync backlog is included
// so drift between sessions and the space inventory is visible at a glance.
func NewHealthHandler(outbox PendingCounter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]interface{}{"status": "ok"}
		if outbox != nil {
			if pending, err := outbox.Pending(r.Context()); err == nil {
				payload["space_sync_pending"] = pending
			}
		}
		writeJSON(w, http.StatusOK, payload)
	}
}
