package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"parkwise/backend/services/sessions-service/internal/models"
	"parkwise/backend/services/sessions-service/internal/service"
)

// QueriesHandler serves the read-side projections.
type QueriesHandler struct {
	svc    *service.SessionsService
	logger *zap.Logger
}

// NewQueriesHandler builds handler set.
func NewQueriesHandler(svc *service.SessionsService, logger *zap.Logger) *QueriesHandler {
	return &QueriesHandler{svc: svc, logger: logger}
}

// HandleList handles GET /parking-sessions. An optional ?status= filter
// narrows the listing.
func (h *QueriesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	var (
		sessions []models.ParkingSession
		err      error
	)
	if status := r.URL.Query().Get("status"); status != "" {
		sessions, err = h.svc.ByStatus(r.Context(), models.SessionStatus(status))
	} else {
		sessions, err = h.svc.ListAll(r.Context())
	}
	h.writeList(w, sessions, err)
}

// HandleGet handles GET /parking-sessions/{id}.
func (h *QueriesHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	session, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		if !writeServiceError(w, err) {
			h.logger.Error("get session failed", zap.Int64("session_id", id), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}
	writeSuccess(w, http.StatusOK, "parking session found", session)
}

// HandleActiveQuery handles GET /parking-sessions/active?license_plate=.
func (h *QueriesHandler) HandleActiveQuery(w http.ResponseWriter, r *http.Request) {
	plate := r.URL.Query().Get("license_plate")
	if plate == "" {
		writeError(w, http.StatusBadRequest, "license_plate query parameter is required")
		return
	}
	sessions, err := h.svc.ActiveByPlate(r.Context(), plate)
	h.writeList(w, sessions, err)
}

// HandleActiveByPlate handles GET /parking-sessions/active/{plate}.
func (h *QueriesHandler) HandleActiveByPlate(w http.ResponseWriter, r *http.Request) {
	plate := r.PathValue("plate")
	session, err := h.svc.ActiveSessionByPlate(r.Context(), plate)
	if err != nil {
		if !writeServiceError(w, err) {
			h.logger.Error("active session lookup failed", zap.String("license_plate", plate), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}
	writeSuccess(w, http.StatusOK, "active session found", session)
}

// HandleByVisitor handles GET /parking-sessions/visitor/{visitorId}.
func (h *QueriesHandler) HandleByVisitor(w http.ResponseWriter, r *http.Request) {
	visitorID, err := strconv.ParseInt(r.PathValue("visitorId"), 10, 64)
	if err != nil || visitorID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid visitor id")
		return
	}
	sessions, listErr := h.svc.ByVisitor(r.Context(), visitorID)
	h.writeList(w, sessions, listErr)
}

// HandleBySpace handles GET /parking-sessions/space/{spaceId}.
func (h *QueriesHandler) HandleBySpace(w http.ResponseWriter, r *http.Request) {
	spaceID, err := strconv.ParseInt(r.PathValue("spaceId"), 10, 64)
	if err != nil || spaceID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid parking space id")
		return
	}
	sessions, listErr := h.svc.BySpace(r.Context(), spaceID)
	h.writeList(w, sessions, listErr)
}

// HandleStats handles GET /parking-sessions/stats.
func (h *QueriesHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.SessionStats(r.Context())
	if err != nil {
		h.logger.Error("session stats failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeSuccess(w, http.StatusOK, "session stats", stats)
}

// writeList answers a listing. An empty result is a valid 200 with an empty
// array, never a 404.
func (h *QueriesHandler) writeList(w http.ResponseWriter, sessions []models.ParkingSession, err error) {
	if err != nil {
		if !writeServiceError(w, err) {
			h.logger.Error("list sessions failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}
	if sessions == nil {
		sessions = []models.ParkingSession{}
	}
	writeSuccess(w, http.StatusOK, "parking sessions", sessions)
}
