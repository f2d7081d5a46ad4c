package spacesync

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"parkwise/backend/services/sessions-service/internal/metrics"
	"parkwise/backend/services/sessions-service/internal/models"
)

// Pending updates live in a hash keyed by space id, so enqueueing a new
// status for a space overwrites any older one still awaiting delivery. A
// stale retry can never outlive a newer desired status.
const queueKey = "sessions:space-sync"

// removeIfUnchanged drops a pending entry only when it still carries the
// value that was just handled; an update enqueued mid-flight survives.
var removeIfUnchanged = redis.NewScript(`
if redis.call("HGET", KEYS[1], ARGV[1]) == ARGV[2] then
	return redis.call("HDEL", KEYS[1], ARGV[1])
end
return 0
`)

// replaceIfUnchanged writes back a bumped retry unless a newer update
// already replaced the entry.
var replaceIfUnchanged = redis.NewScript(`
if redis.call("HGET", KEYS[1], ARGV[1]) == ARGV[2] then
	redis.call("HSET", KEYS[1], ARGV[1], ARGV[3])
	return 1
end
return 0
`)

// Notifier pushes a status change at the space inventory service.
type Notifier interface {
	SetStatus(ctx context.Context, spaceID int64, status models.SpaceStatus) error
}

// Update is one pending space-status propagation.
type Update struct {
	SpaceID    int64              `json:"space_id"`
	Status     models.SpaceStatus `json:"status"`
	Attempts   int                `json:"attempts"`
	EnqueuedAt time.Time          `json:"enqueued_at"`
}

// Options tune the outbox worker.
type Options struct {
	MaxAttempts  int
	CallTimeout  time.Duration
	RetryDelay   time.Duration
	PollInterval time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 5
	}
	if o.CallTimeout <= 0 {
		o.CallTimeout = 5 * time.Second
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = 2 * time.Second
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 500 * time.Millisecond
	}
	return o
}

// Outbox decouples session state transitions from the space inventory call.
// Transitions enqueue; a background worker drains and retries. A propagation
// failure therefore never reaches the session caller and never reverses
// committed session state.
type Outbox struct {
	client   *redis.Client
	notifier Notifier
	logger   *zap.Logger
	metrics  *metrics.Metrics
	opts     Options
}

// NewOutbox builds the outbox over a shared redis client.
func NewOutbox(client *redis.Client, notifier Notifier, m *metrics.Metrics, logger *zap.Logger, opts Options) *Outbox {
	return &Outbox{
		client:   client,
		notifier: notifier,
		logger:   logger,
		metrics:  m,
		opts:     opts.withDefaults(),
	}
}

func spaceField(spaceID int64) string {
	return strconv.FormatInt(spaceID, 10)
}

// Enqueue records the desired status for a space, superseding any pending
// update for the same space. Callers treat a failure here as best-effort:
// log and move on.
func (o *Outbox) Enqueue(ctx context.Context, spaceID int64, status models.SpaceStatus) error {
	data, err := json.Marshal(Update{
		SpaceID:    spaceID,
		Status:     status,
		EnqueuedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	return o.client.HSet(ctx, queueKey, spaceField(spaceID), data).Err()
}

// Run drains the queue until ctx is cancelled.
func (o *Outbox) Run(ctx context.Context) {
	ticker := time.NewTicker(o.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for {
				processed, failed := o.processNext(ctx)
				if !processed {
					break
				}
				if failed {
					// Back off before draining further so a down
					// inventory service is not hammered.
					select {
					case <-ctx.Done():
						return
					case <-time.After(o.opts.RetryDelay):
					}
				}
			}
		}
	}
}

// processNext picks and handles one pending update. It reports whether an
// update was present and whether handling it failed.
func (o *Outbox) processNext(ctx context.Context) (processed, failed bool) {
	entries, err := o.client.HGetAll(ctx, queueKey).Result()
	if err != nil {
		if ctx.Err() == nil {
			o.logger.Warn("space sync: queue read failed", zap.Error(err))
		}
		return false, false
	}
	if len(entries) == 0 {
		return false, false
	}

	var field, raw string
	for f, v := range entries {
		field, raw = f, v
		break
	}

	var update Update
	if err := json.Unmarshal([]byte(raw), &update); err != nil {
		o.logger.Error("space sync: malformed queue entry dropped", zap.Error(err))
		if delErr := removeIfUnchanged.Run(ctx, o.client, []string{queueKey}, field, raw).Err(); delErr != nil {
			o.logger.Warn("space sync: failed to drop malformed entry", zap.Error(delErr))
		}
		return true, false
	}

	o.metrics.SpaceSyncAttempts.Inc()
	callCtx, cancel := context.WithTimeout(ctx, o.opts.CallTimeout)
	err = o.notifier.SetStatus(callCtx, update.SpaceID, update.Status)
	cancel()
	if err == nil {
		o.logger.Debug("space sync: status propagated",
			zap.Int64("space_id", update.SpaceID),
			zap.String("status", string(update.Status)),
		)
		if delErr := removeIfUnchanged.Run(ctx, o.client, []string{queueKey}, field, raw).Err(); delErr != nil {
			o.logger.Warn("space sync: failed to clear delivered entry", zap.Error(delErr))
		}
		return true, false
	}

	o.metrics.SpaceSyncFailures.Inc()
	update.Attempts++
	if update.Attempts >= o.opts.MaxAttempts {
		o.metrics.SpaceSyncDropped.Inc()
		o.logger.Error("space sync: update dropped after exhausting retries",
			zap.Int64("space_id", update.SpaceID),
			zap.String("status", string(update.Status)),
			zap.Int("attempts", update.Attempts),
			zap.Error(err),
		)
		if delErr := removeIfUnchanged.Run(ctx, o.client, []string{queueKey}, field, raw).Err(); delErr != nil {
			o.logger.Warn("space sync: failed to drop exhausted entry", zap.Error(delErr))
		}
		return true, true
	}

	o.logger.Warn("space sync: propagation failed, will retry",
		zap.Int64("space_id", update.SpaceID),
		zap.String("status", string(update.Status)),
		zap.Int("attempts", update.Attempts),
		zap.Error(err),
	)
	data, marshalErr := json.Marshal(update)
	if marshalErr == nil {
		// A newer update for the space wins over the retry write-back.
		if pushErr := replaceIfUnchanged.Run(ctx, o.client, []string{queueKey}, field, raw, data).Err(); pushErr != nil {
			o.logger.Error("space sync: re-enqueue failed, update lost",
				zap.Int64("space_id", update.SpaceID),
				zap.Error(pushErr),
			)
		}
	}
	return true, true
}

// Pending returns the number of spaces with an undelivered status, used by
// the health endpoint.
func (o *Outbox) Pending(ctx context.Context) (int64, error) {
	return o.client.HLen(ctx, queueKey).Result()
}
