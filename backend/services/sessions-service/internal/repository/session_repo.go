package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"parkwise/backend/services/sessions-service/internal/models"
)

// ErrNotFound indicates a missing session id.
var ErrNotFound = errors.New("parking session not found")

// ErrNotActive indicates an update was attempted against a session that is no
// longer active (lost a race with a concurrent exit or cancel).
var ErrNotActive = errors.New("parking session is not active")

// ConflictError reports a violated active-session uniqueness constraint.
type ConflictError struct {
	Resource string // "license_plate" or "parking_space"
	Value    string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("an active session already exists for %s %s", e.Resource, e.Value)
}

// Partial unique index names, used to attribute insert conflicts.
const (
	activePlateIdx = "parking_sessions_active_plate_idx"
	activeSpaceIdx = "parking_sessions_active_space_idx"
)

// SessionRepository handles persistence of parking sessions.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository returns repository.
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// EnsureSchema creates the sessions table and the partial unique indexes that
// enforce at most one active session per plate and per space. The indexes are
// the authoritative guard; application-level prechecks only improve messages.
func (r *SessionRepository) EnsureSchema(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS parking_sessions (
			id               BIGSERIAL PRIMARY KEY,
			license_plate    VARCHAR(10) NOT NULL,
			visitor_id       BIGINT NOT NULL,
			parking_space_id BIGINT NOT NULL,
			entry_time       TIMESTAMPTZ NOT NULL,
			exit_time        TIMESTAMPTZ,
			duration_seconds BIGINT,
			status           VARCHAR(20) NOT NULL,
			created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE UNIQUE INDEX IF NOT EXISTS parking_sessions_active_plate_idx
			ON parking_sessions (license_plate) WHERE status = 'active';
		CREATE UNIQUE INDEX IF NOT EXISTS parking_sessions_active_space_idx
			ON parking_sessions (parking_space_id) WHERE status = 'active';
	`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// Create inserts a new active session. A unique-index violation is mapped to
// a ConflictError naming the offending resource.
func (r *SessionRepository) Create(ctx context.Context, session *models.ParkingSession) (*models.ParkingSession, error) {
	const query = `
		INSERT INTO parking_sessions (license_plate, visitor_id, parking_space_id, entry_time, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		session.LicensePlate,
		session.VisitorID,
		session.ParkingSpaceID,
		session.EntryTime,
		session.Status,
	).Scan(&session.ID, &session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			switch pgErr.ConstraintName {
			case activePlateIdx:
				return nil, &ConflictError{Resource: "license_plate", Value: session.LicensePlate}
			case activeSpaceIdx:
				return nil, &ConflictError{Resource: "parking_space", Value: fmt.Sprintf("%d", session.ParkingSpaceID)}
			}
		}
		return nil, err
	}
	return session, nil
}

// UpdateTransition persists a completed or cancelled state. The WHERE clause
// re-checks active status so a lost race surfaces as ErrNotActive instead of
// silently overwriting a terminal state.
func (r *SessionRepository) UpdateTransition(ctx context.Context, session *models.ParkingSession) error {
	const query = `
		UPDATE parking_sessions
		SET exit_time = $2,
		    duration_seconds = $3,
		    status = $4,
		    updated_at = NOW()
		WHERE id = $1 AND status = 'active'
	`
	var exitTime sql.NullTime
	if session.ExitTime != nil {
		exitTime = sql.NullTime{Time: *session.ExitTime, Valid: true}
	}
	var duration sql.NullInt64
	if session.DurationSeconds != nil {
		duration = sql.NullInt64{Int64: *session.DurationSeconds, Valid: true}
	}
	result, err := r.db.ExecContext(ctx, query, session.ID, exitTime, duration, session.Status)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotActive
	}
	return nil
}

const sessionColumns = `id, license_plate, visitor_id, parking_space_id, entry_time, exit_time, duration_seconds, status, created_at, updated_at`

// GetByID returns the session or ErrNotFound.
func (r *SessionRepository) GetByID(ctx context.Context, id int64) (*models.ParkingSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM parking_sessions WHERE id = $1`
	session, err := scanSession(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

// GetActiveByPlate returns the single active session for a plate, or
// ErrNotFound when the plate is not currently parked.
func (r *SessionRepository) GetActiveByPlate(ctx context.Context, plate string) (*models.ParkingSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM parking_sessions WHERE license_plate = $1 AND status = 'active'`
	session, err := scanSession(r.db.QueryRowContext(ctx, query, plate))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

// ExistsActiveByPlate reports whether the plate already has an active session.
func (r *SessionRepository) ExistsActiveByPlate(ctx context.Context, plate string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM parking_sessions WHERE license_plate = $1 AND status = 'active')`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, plate).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// ExistsActiveBySpace reports whether the space already has an active session.
func (r *SessionRepository) ExistsActiveBySpace(ctx context.Context, spaceID int64) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM parking_sessions WHERE parking_space_id = $1 AND status = 'active')`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, spaceID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// ListAll returns all sessions, newest first.
func (r *SessionRepository) ListAll(ctx context.Context) ([]models.ParkingSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM parking_sessions ORDER BY entry_time DESC`
	return r.list(ctx, query)
}

// ListByPlateAndStatus returns sessions for a plate filtered by status.
func (r *SessionRepository) ListByPlateAndStatus(ctx context.Context, plate string, status models.SessionStatus) ([]models.ParkingSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM parking_sessions WHERE license_plate = $1 AND status = $2 ORDER BY entry_time DESC`
	return r.list(ctx, query, plate, status)
}

// ListByVisitor returns all sessions for a visitor.
func (r *SessionRepository) ListByVisitor(ctx context.Context, visitorID int64) ([]models.ParkingSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM parking_sessions WHERE visitor_id = $1 ORDER BY entry_time DESC`
	return r.list(ctx, query, visitorID)
}

// ListBySpace returns all sessions for a parking space.
func (r *SessionRepository) ListBySpace(ctx context.Context, spaceID int64) ([]models.ParkingSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM parking_sessions WHERE parking_space_id = $1 ORDER BY entry_time DESC`
	return r.list(ctx, query, spaceID)
}

// ListByStatus returns all sessions in the given state.
func (r *SessionRepository) ListByStatus(ctx context.Context, status models.SessionStatus) ([]models.ParkingSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM parking_sessions WHERE status = $1 ORDER BY entry_time DESC`
	return r.list(ctx, query, status)
}

// CountByStatus returns the number of sessions in the given state.
func (r *SessionRepository) CountByStatus(ctx context.Context, status models.SessionStatus) (int64, error) {
	const query = `SELECT COUNT(*) FROM parking_sessions WHERE status = $1`
	var count int64
	if err := r.db.QueryRowContext(ctx, query, status).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *SessionRepository) list(ctx context.Context, query string, args ...any) ([]models.ParkingSession, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.ParkingSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*models.ParkingSession, error) {
	var (
		s        models.ParkingSession
		exitTime sql.NullTime
		duration sql.NullInt64
	)
	if err := row.Scan(
		&s.ID,
		&s.LicensePlate,
		&s.VisitorID,
		&s.ParkingSpaceID,
		&s.EntryTime,
		&exitTime,
		&duration,
		&s.Status,
		&s.CreatedAt,
		&s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if exitTime.Valid {
		t := exitTime.Time
		s.ExitTime = &t
	}
	if duration.Valid {
		d := duration.Int64
		s.DurationSeconds = &d
	}
	return &s, nil
}
