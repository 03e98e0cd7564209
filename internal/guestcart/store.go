package guestcart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/janiele376/projeto-pet-shop-fullstack/pkg/redis"
)

const (
	defaultTTL          = 7 * 24 * time.Hour
	defaultMergeLockTTL = 30 * time.Second
)

type keyValueStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	GuestCartKey(sessionID string) string
	MergeLockKey(sessionID string) string
}

// Store persists guest cart snapshots keyed by session.
type Store interface {
	Load(ctx context.Context, sessionID string) (*Cart, error)
	Save(ctx context.Context, sessionID string, cart *Cart) error
	Clear(ctx context.Context, sessionID string) error
	AcquireMerge(ctx context.Context, sessionID string) (bool, error)
	ReleaseMerge(ctx context.Context, sessionID string) error
}

// RedisStore keeps each snapshot as a JSON document with a sliding TTL.
type RedisStore struct {
	kv      keyValueStore
	ttl     time.Duration
	lockTTL time.Duration
}

// NewRedisStore builds a snapshot store over kv. A non-positive ttl or lockTTL
// falls back to the package defaults.
func NewRedisStore(kv keyValueStore, ttl, lockTTL time.Duration) (*RedisStore, error) {
	if kv == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if lockTTL <= 0 {
		lockTTL = defaultMergeLockTTL
	}
	return &RedisStore{kv: kv, ttl: ttl, lockTTL: lockTTL}, nil
}

// Load returns the stored snapshot or an empty cart. An unreadable snapshot is
// dropped and treated as empty.
func (s *RedisStore) Load(ctx context.Context, sessionID string) (*Cart, error) {
	key := s.kv.GuestCartKey(sessionID)
	raw, err := s.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redis.ErrNil) {
			return &Cart{}, nil
		}
		return nil, err
	}
	var cart Cart
	if err := json.Unmarshal([]byte(raw), &cart); err != nil {
		if delErr := s.kv.Del(ctx, key); delErr != nil {
			return nil, delErr
		}
		return &Cart{}, nil
	}
	return &cart, nil
}

// Save writes the snapshot and refreshes its TTL. Saving an empty cart
// removes the key.
func (s *RedisStore) Save(ctx context.Context, sessionID string, cart *Cart) error {
	if cart == nil || cart.IsEmpty() {
		return s.Clear(ctx, sessionID)
	}
	cart.UpdatedAt = time.Now().UTC()
	payload, err := json.Marshal(cart)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, s.kv.GuestCartKey(sessionID), string(payload), s.ttl)
}

func (s *RedisStore) Clear(ctx context.Context, sessionID string) error {
	return s.kv.Del(ctx, s.kv.GuestCartKey(sessionID))
}

// AcquireMerge takes the one-shot merge lock for the session.
func (s *RedisStore) AcquireMerge(ctx context.Context, sessionID string) (bool, error) {
	return s.kv.SetNX(ctx, s.kv.MergeLockKey(sessionID), "1", s.lockTTL)
}

// ReleaseMerge drops the merge lock so a later login can merge again.
func (s *RedisStore) ReleaseMerge(ctx context.Context, sessionID string) error {
	return s.kv.Del(ctx, s.kv.MergeLockKey(sessionID))
}
