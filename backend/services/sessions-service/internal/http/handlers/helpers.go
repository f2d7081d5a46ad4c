package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"parkwise/backend/services/sessions-service/internal/models"
	"parkwise/backend/services/sessions-service/internal/repository"
	"parkwise/backend/services/sessions-service/internal/service"
)

// apiResponse is the envelope every endpoint answers with.
type apiResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeSuccess(w http.ResponseWriter, status int, message string, data interface{}) {
	writeJSON(w, status, apiResponse{Success: true, Message: message, Data: data})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, apiResponse{Success: false, Message: message, Data: nil})
}

// writeTransitionError maps errors on the exit/cancel paths, where a missing
// id answers 400 like any other unusable target. Read lookups keep 404.
func writeTransitionError(w http.ResponseWriter, err error) bool {
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusBadRequest, "parking session not found")
		return true
	}
	return writeServiceError(w, err)
}

// writeServiceError maps domain errors to their HTTP status. Conflicts and
// invalid transitions answer 400 to match the original API surface.
func writeServiceError(w http.ResponseWriter, err error) bool {
	var conflict *repository.ConflictError
	var invalid *models.InvalidTransitionError
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "parking session not found")
	case errors.As(err, &conflict):
		writeError(w, http.StatusBadRequest, conflict.Error())
	case errors.As(err, &invalid):
		writeError(w, http.StatusBadRequest, invalid.Error())
	case errors.Is(err, repository.ErrNotActive):
		writeError(w, http.StatusBadRequest, "parking session is not active")
	case errors.Is(err, models.ErrExitBeforeEntry):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		return false
	}
	return true
}
