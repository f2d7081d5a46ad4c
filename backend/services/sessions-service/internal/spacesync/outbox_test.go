package spacesync

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"parkwise/backend/services/sessions-service/internal/metrics"
	"parkwise/backend/services/sessions-service/internal/models"
)

type fakeNotifier struct {
	mu    sync.Mutex
	calls []Update
	err   error
}

func (f *fakeNotifier) SetStatus(_ context.Context, spaceID int64, status models.SpaceStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Update{SpaceID: spaceID, Status: status})
	return f.err
}

func (f *fakeNotifier) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newTestOutbox(t *testing.T, notifier *fakeNotifier, opts Options) (*Outbox, *redis.Client) {
	t.Helper()
	mini := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewOutbox(client, notifier, metrics.New(), zap.NewNop(), opts), client
}

func TestOutboxPropagatesUpdate(t *testing.T) {
	notifier := &fakeNotifier{}
	outbox, _ := newTestOutbox(t, notifier, Options{})
	ctx := context.Background()

	if err := outbox.Enqueue(ctx, 10, models.SpaceOccupied); err != nil {
		t.Fatalf("Enqueue returned error: %v", err)
	}

	processed, failed := outbox.processNext(ctx)
	if !processed || failed {
		t.Fatalf("processNext = %v, %v; want true, false", processed, failed)
	}

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.calls) != 1 {
		t.Fatalf("notifier called %d times, want 1", len(notifier.calls))
	}
	if notifier.calls[0].SpaceID != 10 || notifier.calls[0].Status != models.SpaceOccupied {
		t.Fatalf("notifier got %+v", notifier.calls[0])
	}

	pending, err := outbox.Pending(ctx)
	if err != nil {
		t.Fatalf("Pending returned error: %v", err)
	}
	if pending != 0 {
		t.Fatalf("pending = %d, want 0", pending)
	}
}

func TestOutboxRetriesFailedUpdate(t *testing.T) {
	notifier := &fakeNotifier{err: errors.New("inventory down")}
	outbox, _ := newTestOutbox(t, notifier, Options{MaxAttempts: 3})
	ctx := context.Background()

	if err := outbox.Enqueue(ctx, 10, models.SpaceAvailable); err != nil {
		t.Fatalf("Enqueue returned error: %v", err)
	}

	processed, failed := outbox.processNext(ctx)
	if !processed || !failed {
		t.Fatalf("processNext = %v, %v; want true, true", processed, failed)
	}

	// The update goes back on the queue with its attempt count bumped.
	pending, err := outbox.Pending(ctx)
	if err != nil {
		t.Fatalf("Pending returned error: %v", err)
	}
	if pending != 1 {
		t.Fatalf("pending = %d, want 1", pending)
	}

	// Inventory recovers; the retry succeeds and the queue drains.
	notifier.mu.Lock()
	notifier.err = nil
	notifier.mu.Unlock()

	if processed, failed = outbox.processNext(ctx); !processed || failed {
		t.Fatalf("retry processNext = %v, %v; want true, false", processed, failed)
	}
	if pending, _ = outbox.Pending(ctx); pending != 0 {
		t.Fatalf("pending after retry = %d, want 0", pending)
	}
}

func TestOutboxDropsAfterMaxAttempts(t *testing.T) {
	notifier := &fakeNotifier{err: errors.New("inventory down")}
	outbox, _ := newTestOutbox(t, notifier, Options{MaxAttempts: 2})
	ctx := context.Background()

	if err := outbox.Enqueue(ctx, 10, models.SpaceAvailable); err != nil {
		t.Fatalf("Enqueue returned error: %v", err)
	}

	for i := 0; i < 2; i++ {
		if processed, _ := outbox.processNext(ctx); !processed {
			t.Fatalf("attempt %d: expected an update to process", i+1)
		}
	}

	if pending, _ := outbox.Pending(ctx); pending != 0 {
		t.Fatalf("pending = %d, want 0 after drop", pending)
	}
	if notifier.callCount() != 2 {
		t.Fatalf("notifier called %d times, want 2", notifier.callCount())
	}
}

func TestOutboxDropsMalformedEntry(t *testing.T) {
	notifier := &fakeNotifier{}
	outbox, client := newTestOutbox(t, notifier, Options{})
	ctx := context.Background()

	if err := client.HSet(ctx, queueKey, "10", "not json").Err(); err != nil {
		t.Fatalf("HSet returned error: %v", err)
	}

	processed, failed := outbox.processNext(ctx)
	if !processed || failed {
		t.Fatalf("processNext = %v, %v; want true, false", processed, failed)
	}
	if notifier.callCount() != 0 {
		t.Fatal("notifier must not be called for a malformed entry")
	}
	if pending, _ := outbox.Pending(ctx); pending != 0 {
		t.Fatalf("pending = %d, want 0 after drop", pending)
	}
}

func TestOutboxLatestStatusWinsOverPending(t *testing.T) {
	notifier := &fakeNotifier{}
	outbox, _ := newTestOutbox(t, notifier, Options{})
	ctx := context.Background()

	// A second enqueue for the same space supersedes the first before it is
	// ever delivered.
	if err := outbox.Enqueue(ctx, 10, models.SpaceOccupied); err != nil {
		t.Fatalf("Enqueue returned error: %v", err)
	}
	if err := outbox.Enqueue(ctx, 10, models.SpaceAvailable); err != nil {
		t.Fatalf("Enqueue returned error: %v", err)
	}

	if pending, _ := outbox.Pending(ctx); pending != 1 {
		t.Fatalf("pending = %d, want 1 entry per space", pending)
	}

	processed, failed := outbox.processNext(ctx)
	if !processed || failed {
		t.Fatalf("processNext = %v, %v; want true, false", processed, failed)
	}
	if notifier.callCount() != 1 {
		t.Fatalf("notifier called %d times, want 1", notifier.callCount())
	}
	notifier.mu.Lock()
	delivered := notifier.calls[0]
	notifier.mu.Unlock()
	if delivered.Status != models.SpaceAvailable {
		t.Fatalf("delivered %s, want the later available status", delivered.Status)
	}
}

func TestOutboxRetryNeverOvertakesNewerStatus(t *testing.T) {
	notifier := &fakeNotifier{err: errors.New("inventory down")}
	outbox, _ := newTestOutbox(t, notifier, Options{MaxAttempts: 5})
	ctx := context.Background()

	// occupied fails and stays pending as a retry.
	if err := outbox.Enqueue(ctx, 10, models.SpaceOccupied); err != nil {
		t.Fatalf("Enqueue returned error: %v", err)
	}
	if processed, failed := outbox.processNext(ctx); !processed || !failed {
		t.Fatalf("processNext = %v, %v; want true, true", processed, failed)
	}

	// The session exits while the retry is parked; available replaces it.
	if err := outbox.Enqueue(ctx, 10, models.SpaceAvailable); err != nil {
		t.Fatalf("Enqueue returned error: %v", err)
	}

	notifier.mu.Lock()
	notifier.err = nil
	notifier.mu.Unlock()

	if processed, failed := outbox.processNext(ctx); !processed || failed {
		t.Fatalf("processNext = %v, %v; want true, false", processed, failed)
	}
	if pending, _ := outbox.Pending(ctx); pending != 0 {
		t.Fatalf("pending = %d, want 0", pending)
	}

	// The stale occupied retry must never be delivered after available.
	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	last := notifier.calls[len(notifier.calls)-1]
	if last.Status != models.SpaceAvailable {
		t.Fatalf("final delivered status = %s, want available", last.Status)
	}
	if len(notifier.calls) != 2 {
		t.Fatalf("notifier called %d times, want 2", len(notifier.calls))
	}
}

func TestOutboxEmptyQueue(t *testing.T) {
	outbox, _ := newTestOutbox(t, &fakeNotifier{}, Options{})

	processed, failed := outbox.processNext(context.Background())
	if processed || failed {
		t.Fatalf("processNext on empty queue = %v, %v; want false, false", processed, failed)
	}
}
