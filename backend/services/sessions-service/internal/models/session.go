package models

import (
	"errors"
	"fmt"
	"time"
)

// SessionStatus is the closed set of parking session states.
type SessionStatus string

// Session states. Transitions are one-directional: active sessions become
// completed or cancelled, and neither terminal state can be left.
const (
	StatusActive    SessionStatus = "active"
	StatusCompleted SessionStatus = "completed"
	StatusCancelled SessionStatus = "cancelled"
)

// Valid reports whether s is one of the known states.
func (s SessionStatus) Valid() bool {
	switch s {
	case StatusActive, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// ErrExitBeforeEntry rejects an exit time earlier than the recorded entry
// time. The original flow accepted such input; here it is treated as a
// data-entry error rather than a negative-duration session.
var ErrExitBeforeEntry = errors.New("exit time precedes entry time")

// InvalidTransitionError signals an exit or cancel request against a session
// that is not active.
type InvalidTransitionError struct {
	From SessionStatus
	To   SessionStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("session is %s and cannot transition to %s", e.From, e.To)
}

// ParkingSession records one vehicle's occupancy of a parking space.
type ParkingSession struct {
	ID              int64         `db:"id" json:"id"`
	LicensePlate    string        `db:"license_plate" json:"license_plate"`
	VisitorID       int64         `db:"visitor_id" json:"visitor_id"`
	ParkingSpaceID  int64         `db:"parking_space_id" json:"parking_space_id"`
	EntryTime       time.Time     `db:"entry_time" json:"entry_time"`
	ExitTime        *time.Time    `db:"exit_time" json:"exit_time"`
	DurationSeconds *int64        `db:"duration_seconds" json:"duration_seconds"`
	Status          SessionStatus `db:"status" json:"status"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updated_at"`
}

// Complete closes the session at exitTime, setting exit time and whole-second
// duration together. It fails if the session is not active or if exitTime
// precedes the recorded entry time.
func (s *ParkingSession) Complete(exitTime time.Time) error {
	if s.Status != StatusActive {
		return &InvalidTransitionError{From: s.Status, To: StatusCompleted}
	}
	if exitTime.Before(s.EntryTime) {
		return fmt.Errorf("%w: exit %s, entry %s", ErrExitBeforeEntry,
			exitTime.Format(time.RFC3339), s.EntryTime.Format(time.RFC3339))
	}
	seconds := int64(exitTime.Sub(s.EntryTime) / time.Second)
	s.ExitTime = &exitTime
	s.DurationSeconds = &seconds
	s.Status = StatusCompleted
	return nil
}

// Cancel marks the session cancelled. Exit time and duration stay unset,
// the session drops out of occupancy without ever being billed.
func (s *ParkingSession) Cancel() error {
	if s.Status != StatusActive {
		return &InvalidTransitionError{From: s.Status, To: StatusCancelled}
	}
	s.Status = StatusCancelled
	return nil
}
