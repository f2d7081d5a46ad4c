package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"parkwise/backend/services/sessions-service/internal/models"
	"parkwise/backend/services/sessions-service/internal/service"
)

// SessionsHandler holds the lifecycle endpoints.
type SessionsHandler struct {
	svc    *service.SessionsService
	logger *zap.Logger
}

// NewSessionsHandler builds handler set.
func NewSessionsHandler(svc *service.SessionsService, logger *zap.Logger) *SessionsHandler {
	return &SessionsHandler{svc: svc, logger: logger}
}

type createSessionRequest struct {
	LicensePlate   string     `json:"license_plate"`
	VisitorID      int64      `json:"visitor_id"`
	ParkingSpaceID int64      `json:"parking_space_id"`
	EntryTime      *time.Time `json:"entry_time"`
}

type exitSessionRequest struct {
	ExitTime *time.Time `json:"exit_time"`
}

type exitSessionResponse struct {
	Session     *models.ParkingSession `json:"session"`
	HoursBilled int64                  `json:"hours_billed"`
	Amount      float64                `json:"amount"`
}

// HandleCreate handles POST /parking-sessions.
func (h *SessionsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	input := service.CreateSessionInput{
		LicensePlate:   req.LicensePlate,
		VisitorID:      req.VisitorID,
		ParkingSpaceID: req.ParkingSpaceID,
	}
	if req.EntryTime != nil {
		input.EntryTime = *req.EntryTime
	}

	session, err := h.svc.Create(r.Context(), input)
	if err != nil {
		if !writeServiceError(w, err) {
			h.logger.Error("create session failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}
	writeSuccess(w, http.StatusCreated, "parking session created", session)
}

// HandleExit handles PUT /parking-sessions/{id}/exit.
func (h *SessionsHandler) HandleExit(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}

	var req exitSessionRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json")
			return
		}
	}

	result, err := h.svc.Exit(r.Context(), id, req.ExitTime)
	if err != nil {
		if !writeTransitionError(w, err) {
			h.logger.Error("exit session failed", zap.Int64("session_id", id), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}
	writeSuccess(w, http.StatusOK, "exit recorded", exitSessionResponse{
		Session:     result.Session,
		HoursBilled: result.HoursBilled,
		Amount:      result.Amount,
	})
}

// HandleCancel handles PUT /parking-sessions/{id}/cancel.
func (h *SessionsHandler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}

	session, err := h.svc.Cancel(r.Context(), id)
	if err != nil {
		if !writeTransitionError(w, err) {
			h.logger.Error("cancel session failed", zap.Int64("session_id", id), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}
	writeSuccess(w, http.StatusOK, "parking session cancelled", session)
}

func sessionID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return 0, false
	}
	return id, true
}
