package service

import (
	"context"
	"fmt"

	"parkwise/backend/services/sessions-service/internal/models"
)

// Read-side projections. These never mutate state; they are thin filters over
// the session store.

// GetByID returns a single session or repository.ErrNotFound.
func (s *SessionsService) GetByID(ctx context.Context, id int64) (*models.ParkingSession, error) {
	return s.store.GetByID(ctx, id)
}

// ListAll returns every session, newest first.
func (s *SessionsService) ListAll(ctx context.Context) ([]models.ParkingSession, error) {
	return s.store.ListAll(ctx)
}

// ActiveByPlate returns the active sessions for a plate. The uniqueness
// invariant means at most one entry, but the listing shape is kept for the
// callers that iterate. The plate is normalized the same way Create
// normalizes it, so lookups hit sessions regardless of input casing.
func (s *SessionsService) ActiveByPlate(ctx context.Context, plate string) ([]models.ParkingSession, error) {
	return s.store.ListByPlateAndStatus(ctx, normalizePlate(plate), models.StatusActive)
}

// ActiveSessionByPlate returns the single active session for a plate, or
// repository.ErrNotFound.
func (s *SessionsService) ActiveSessionByPlate(ctx context.Context, plate string) (*models.ParkingSession, error) {
	return s.store.GetActiveByPlate(ctx, normalizePlate(plate))
}

// ByVisitor returns all sessions for a visitor.
func (s *SessionsService) ByVisitor(ctx context.Context, visitorID int64) ([]models.ParkingSession, error) {
	return s.store.ListByVisitor(ctx, visitorID)
}

// BySpace returns all sessions for a parking space.
func (s *SessionsService) BySpace(ctx context.Context, spaceID int64) ([]models.ParkingSession, error) {
	return s.store.ListBySpace(ctx, spaceID)
}

// ByStatus returns all sessions in the given state.
func (s *SessionsService) ByStatus(ctx context.Context, status models.SessionStatus) ([]models.ParkingSession, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}
	return s.store.ListByStatus(ctx, status)
}

// Stats aggregates session counts per status.
type Stats struct {
	Active    int64 `json:"active"`
	Completed int64 `json:"completed"`
	Cancelled int64 `json:"cancelled"`
	Total     int64 `json:"total"`
}

// SessionStats counts sessions per status.
func (s *SessionsService) SessionStats(ctx context.Context) (*Stats, error) {
	active, err := s.store.CountByStatus(ctx, models.StatusActive)
	if err != nil {
		return nil, err
	}
	completed, err := s.store.CountByStatus(ctx, models.StatusCompleted)
	if err != nil {
		return nil, err
	}
	cancelled, err := s.store.CountByStatus(ctx, models.StatusCancelled)
	if err != nil {
		return nil, err
	}
	return &Stats{
		Active:    active,
		Completed: completed,
		Cancelled: cancelled,
		Total:     active + completed + cancelled,
	}, nil
}
