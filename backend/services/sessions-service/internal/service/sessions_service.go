package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"parkwise/backend/services/sessions-service/internal/metrics"
	"parkwise/backend/services/sessions-service/internal/models"
	redisstore "parkwise/backend/services/sessions-service/internal/redis"
	"parkwise/backend/services/sessions-service/internal/repository"
)

// ErrValidation marks malformed input. Handlers map it to a 400.
var ErrValidation = errors.New("validation")

// normalizePlate is applied on every path a plate enters the service, write
// and read alike, so lookups match the stored form.
func normalizePlate(plate string) string {
	return strings.ToUpper(strings.TrimSpace(plate))
}

// SessionStore is the persistence surface the lifecycle engine needs.
type SessionStore interface {
	Create(ctx context.Context, session *models.ParkingSession) (*models.ParkingSession, error)
	UpdateTransition(ctx context.Context, session *models.ParkingSession) error
	GetByID(ctx context.Context, id int64) (*models.ParkingSession, error)
	GetActiveByPlate(ctx context.Context, plate string) (*models.ParkingSession, error)
	ExistsActiveByPlate(ctx context.Context, plate string) (bool, error)
	ExistsActiveBySpace(ctx context.Context, spaceID int64) (bool, error)
	ListAll(ctx context.Context) ([]models.ParkingSession, error)
	ListByPlateAndStatus(ctx context.Context, plate string, status models.SessionStatus) ([]models.ParkingSession, error)
	ListByVisitor(ctx context.Context, visitorID int64) ([]models.ParkingSession, error)
	ListBySpace(ctx context.Context, spaceID int64) ([]models.ParkingSession, error)
	ListByStatus(ctx context.Context, status models.SessionStatus) ([]models.ParkingSession, error)
	CountByStatus(ctx context.Context, status models.SessionStatus) (int64, error)
}

// SpaceSyncQueue accepts pending space-status propagations.
type SpaceSyncQueue interface {
	Enqueue(ctx context.Context, spaceID int64, status models.SpaceStatus) error
}

// ActiveSessionCache is the redis projection of currently active sessions.
type ActiveSessionCache interface {
	Save(ctx context.Context, session redisstore.ActiveSession) error
	Delete(ctx context.Context, plate string, spaceID int64) error
}

// OccupancyFeed receives lifecycle events for live dashboards.
type OccupancyFeed interface {
	Broadcast(v interface{})
}

// OccupancyEvent is pushed on every session transition.
type OccupancyEvent struct {
	Type    string                 `json:"type"`
	Session *models.ParkingSession `json:"session"`
}

// SessionsService is the session lifecycle engine: it owns every state
// transition and keeps the external space record advisory-synchronized
// through the outbox.
type SessionsService struct {
	store       SessionStore
	syncQueue   SpaceSyncQueue
	activeStore ActiveSessionCache
	feed        OccupancyFeed
	metrics     *metrics.Metrics
	logger      *zap.Logger
	hourlyRate  float64
}

// NewSessionsService builds the engine. Cache and feed may be nil.
func NewSessionsService(
	store SessionStore,
	syncQueue SpaceSyncQueue,
	activeStore ActiveSessionCache,
	feed OccupancyFeed,
	m *metrics.Metrics,
	logger *zap.Logger,
	hourlyRate float64,
) *SessionsService {
	if hourlyRate <= 0 {
		hourlyRate = defaultHourlyRate
	}
	return &SessionsService{
		store:       store,
		syncQueue:   syncQueue,
		activeStore: activeStore,
		feed:        feed,
		metrics:     m,
		logger:      logger,
		hourlyRate:  hourlyRate,
	}
}

// CreateSessionInput carries an open-session request.
type CreateSessionInput struct {
	LicensePlate   string
	VisitorID      int64
	ParkingSpaceID int64
	EntryTime      time.Time
}

// Create opens a new active session. At most one active session may exist per
// plate and per space; the partial unique indexes in the store are the
// authoritative guard for both, the existence prechecks only produce friendly
// conflict answers without burning sequence ids.
func (s *SessionsService) Create(ctx context.Context, input CreateSessionInput) (*models.ParkingSession, error) {
	plate := normalizePlate(input.LicensePlate)
	if plate == "" {
		return nil, fmt.Errorf("%w: license plate is required", ErrValidation)
	}
	if len(plate) > 10 {
		return nil, fmt.Errorf("%w: license plate must be at most 10 characters", ErrValidation)
	}
	if input.VisitorID <= 0 {
		return nil, fmt.Errorf("%w: visitor id is required", ErrValidation)
	}
	if input.ParkingSpaceID <= 0 {
		return nil, fmt.Errorf("%w: parking space id is required", ErrValidation)
	}
	if input.EntryTime.IsZero() {
		input.EntryTime = time.Now().UTC()
	}

	if exists, err := s.store.ExistsActiveByPlate(ctx, plate); err != nil {
		return nil, err
	} else if exists {
		s.metrics.SessionConflicts.Inc()
		return nil, &repository.ConflictError{Resource: "license_plate", Value: plate}
	}
	if exists, err := s.store.ExistsActiveBySpace(ctx, input.ParkingSpaceID); err != nil {
		return nil, err
	} else if exists {
		s.metrics.SessionConflicts.Inc()
		return nil, &repository.ConflictError{Resource: "parking_space", Value: fmt.Sprintf("%d", input.ParkingSpaceID)}
	}

	session := &models.ParkingSession{
		LicensePlate:   plate,
		VisitorID:      input.VisitorID,
		ParkingSpaceID: input.ParkingSpaceID,
		EntryTime:      input.EntryTime.UTC(),
		Status:         models.StatusActive,
	}

	session, err := s.store.Create(ctx, session)
	if err != nil {
		var conflict *repository.ConflictError
		if errors.As(err, &conflict) {
			// Lost the race between precheck and insert; the index caught it.
			s.metrics.SessionConflicts.Inc()
		}
		return nil, err
	}
	s.metrics.SessionsOpened.Inc()
	s.logger.Info("parking session opened",
		zap.Int64("session_id", session.ID),
		zap.String("license_plate", session.LicensePlate),
		zap.Int64("parking_space_id", session.ParkingSpaceID),
	)

	s.cacheActive(ctx, session)
	s.enqueueSpaceStatus(ctx, session.ParkingSpaceID, models.SpaceOccupied)
	s.publish("session_opened", session)

	return session, nil
}

// ExitResult bundles the closed session with its fee quote. Billing proper
// lives elsewhere; the quote follows the facility tariff of a flat hourly
// rate with any partial hour counting as a full hour.
type ExitResult struct {
	Session     *models.ParkingSession
	HoursBilled int64
	Amount      float64
}

// Exit closes an active session, computing the whole-second duration between
// entry and exit.
func (s *SessionsService) Exit(ctx context.Context, id int64, exitTime *time.Time) (*ExitResult, error) {
	session, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	when := time.Now().UTC()
	if exitTime != nil && !exitTime.IsZero() {
		when = exitTime.UTC()
	}
	if err := session.Complete(when); err != nil {
		return nil, err
	}
	if err := s.store.UpdateTransition(ctx, session); err != nil {
		return nil, err
	}

	s.metrics.SessionsCompleted.Inc()
	s.logger.Info("parking session completed",
		zap.Int64("session_id", session.ID),
		zap.String("license_plate", session.LicensePlate),
		zap.Int64("duration_seconds", *session.DurationSeconds),
	)

	s.dropActive(ctx, session)
	s.enqueueSpaceStatus(ctx, session.ParkingSpaceID, models.SpaceAvailable)
	s.publish("session_completed", session)

	hours, amount := quoteFee(*session.DurationSeconds, s.hourlyRate)
	return &ExitResult{Session: session, HoursBilled: hours, Amount: amount}, nil
}

// Cancel voids an active session without billing it. The space is freed: a
// cancelled session no longer occupies it, even though the original platform
// skipped this notification.
func (s *SessionsService) Cancel(ctx context.Context, id int64) (*models.ParkingSession, error) {
	session, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := session.Cancel(); err != nil {
		return nil, err
	}
	if err := s.store.UpdateTransition(ctx, session); err != nil {
		return nil, err
	}

	s.metrics.SessionsCancelled.Inc()
	s.logger.Info("parking session cancelled",
		zap.Int64("session_id", session.ID),
		zap.String("license_plate", session.LicensePlate),
	)

	s.dropActive(ctx, session)
	s.enqueueSpaceStatus(ctx, session.ParkingSpaceID, models.SpaceAvailable)
	s.publish("session_cancelled", session)

	return session, nil
}

func (s *SessionsService) cacheActive(ctx context.Context, session *models.ParkingSession) {
	if s.activeStore == nil {
		return
	}
	err := s.activeStore.Save(ctx, redisstore.ActiveSession{
		SessionID:      session.ID,
		LicensePlate:   session.LicensePlate,
		VisitorID:      session.VisitorID,
		ParkingSpaceID: session.ParkingSpaceID,
		EntryTime:      session.EntryTime,
	})
	if err != nil {
		s.logger.Warn("failed to cache active session", zap.Int64("session_id", session.ID), zap.Error(err))
	}
}

func (s *SessionsService) dropActive(ctx context.Context, session *models.ParkingSession) {
	if s.activeStore == nil {
		return
	}
	if err := s.activeStore.Delete(ctx, session.LicensePlate, session.ParkingSpaceID); err != nil {
		s.logger.Warn("failed to drop active session cache", zap.Int64("session_id", session.ID), zap.Error(err))
	}
}

// enqueueSpaceStatus hands the propagation to the outbox. An enqueue failure
// is logged and swallowed: the session workflow stays available even when the
// space record drifts.
func (s *SessionsService) enqueueSpaceStatus(ctx context.Context, spaceID int64, status models.SpaceStatus) {
	if s.syncQueue == nil {
		return
	}
	if err := s.syncQueue.Enqueue(ctx, spaceID, status); err != nil {
		s.metrics.SpaceSyncFailures.Inc()
		s.logger.Error("failed to enqueue space status update",
			zap.Int64("parking_space_id", spaceID),
			zap.String("status", string(status)),
			zap.Error(err),
		)
	}
}

func (s *SessionsService) publish(eventType string, session *models.ParkingSession) {
	if s.feed == nil {
		return
	}
	s.feed.Broadcast(OccupancyEvent{Type: eventType, Session: session})
}
