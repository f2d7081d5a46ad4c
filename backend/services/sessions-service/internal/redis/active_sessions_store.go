package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ActiveSession is the cached projection of an active parking session,
// kept in redis for quick plate and space lookups by the gateway.
type ActiveSession struct {
	SessionID      int64     `json:"session_id"`
	LicensePlate   string    `json:"license_plate"`
	VisitorID      int64     `json:"visitor_id"`
	ParkingSpaceID int64     `json:"parking_space_id"`
	EntryTime      time.Time `json:"entry_time"`
}

// Store manages the active session cache. Entries are written on open and
// removed on exit/cancel; the TTL bounds drift if a removal is missed.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore returns redis-backed store.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

func plateKey(plate string) string {
	return fmt.Sprintf("sessions:active:plate:%s", plate)
}

func spaceKey(spaceID int64) string {
	return fmt.Sprintf("sessions:active:space:%d", spaceID)
}

// Save caches the session under both its plate and space keys.
func (s *Store) Save(ctx context.Context, session ActiveSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, plateKey(session.LicensePlate), data, s.ttl)
	pipe.Set(ctx, spaceKey(session.ParkingSpaceID), data, s.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

// GetByPlate returns the cached active session for a plate.
func (s *Store) GetByPlate(ctx context.Context, plate string) (*ActiveSession, error) {
	return s.get(ctx, plateKey(plate))
}

// GetBySpace returns the cached active session for a space.
func (s *Store) GetBySpace(ctx context.Context, spaceID int64) (*ActiveSession, error) {
	return s.get(ctx, spaceKey(spaceID))
}

func (s *Store) get(ctx context.Context, key string) (*ActiveSession, error) {
	result, err := s.client.Get(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	var session ActiveSession
	if err := json.Unmarshal([]byte(result), &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// Delete removes both cache entries for a closed or cancelled session.
func (s *Store) Delete(ctx context.Context, plate string, spaceID int64) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, plateKey(plate))
	pipe.Del(ctx, spaceKey(spaceID))
	_, err := pipe.Exec(ctx)
	return err
}
