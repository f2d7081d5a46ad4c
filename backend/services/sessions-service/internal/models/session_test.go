package models

import (
	"errors"
	"testing"
	"time"
)

func activeSession(entry time.Time) *ParkingSession {
	return &ParkingSession{
		ID:             1,
		LicensePlate:   "ABC-123",
		VisitorID:      7,
		ParkingSpaceID: 10,
		EntryTime:      entry,
		Status:         StatusActive,
	}
}

func TestCompleteSetsExitAndDurationTogether(t *testing.T) {
	entry := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	session := activeSession(entry)

	exit := entry.Add(90 * time.Minute)
	if err := session.Complete(exit); err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}

	if session.Status != StatusCompleted {
		t.Fatalf("status = %s, want %s", session.Status, StatusCompleted)
	}
	if session.ExitTime == nil || !session.ExitTime.Equal(exit) {
		t.Fatalf("exit time = %v, want %v", session.ExitTime, exit)
	}
	if session.DurationSeconds == nil || *session.DurationSeconds != 5400 {
		t.Fatalf("duration = %v, want 5400", session.DurationSeconds)
	}
}

func TestCompleteTruncatesToWholeSeconds(t *testing.T) {
	entry := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	session := activeSession(entry)

	if err := session.Complete(entry.Add(61*time.Second + 900*time.Millisecond)); err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if *session.DurationSeconds != 61 {
		t.Fatalf("duration = %d, want 61", *session.DurationSeconds)
	}
}

func TestCompleteRejectsNonActive(t *testing.T) {
	entry := time.Now().UTC()
	for _, status := range []SessionStatus{StatusCompleted, StatusCancelled} {
		session := activeSession(entry)
		session.Status = status

		err := session.Complete(entry.Add(time.Hour))
		var invalid *InvalidTransitionError
		if !errors.As(err, &invalid) {
			t.Fatalf("Complete from %s: got %v, want InvalidTransitionError", status, err)
		}
		if invalid.From != status {
			t.Fatalf("invalid.From = %s, want %s", invalid.From, status)
		}
	}
}

func TestCompleteRejectsExitBeforeEntry(t *testing.T) {
	entry := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	session := activeSession(entry)

	err := session.Complete(entry.Add(-time.Minute))
	if !errors.Is(err, ErrExitBeforeEntry) {
		t.Fatalf("got %v, want ErrExitBeforeEntry", err)
	}
	if session.Status != StatusActive || session.ExitTime != nil || session.DurationSeconds != nil {
		t.Fatal("rejected transition must not mutate the session")
	}
}

func TestCancelLeavesExitAndDurationUnset(t *testing.T) {
	session := activeSession(time.Now().UTC())

	if err := session.Cancel(); err != nil {
		t.Fatalf("Cancel returned error: %v", err)
	}
	if session.Status != StatusCancelled {
		t.Fatalf("status = %s, want %s", session.Status, StatusCancelled)
	}
	if session.ExitTime != nil || session.DurationSeconds != nil {
		t.Fatal("cancelled session must keep exit time and duration unset")
	}
}

func TestCancelRejectsTerminalStates(t *testing.T) {
	for _, status := range []SessionStatus{StatusCompleted, StatusCancelled} {
		session := activeSession(time.Now().UTC())
		session.Status = status

		var invalid *InvalidTransitionError
		if err := session.Cancel(); !errors.As(err, &invalid) {
			t.Fatalf("Cancel from %s: got %v, want InvalidTransitionError", status, err)
		}
	}
}

func TestSessionStatusValid(t *testing.T) {
	for _, status := range []SessionStatus{StatusActive, StatusCompleted, StatusCancelled} {
		if !status.Valid() {
			t.Fatalf("%s should be valid", status)
		}
	}
	if SessionStatus("parked").Valid() {
		t.Fatal("unknown status should be invalid")
	}
}
