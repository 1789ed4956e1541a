package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrSessionNotFound is returned when no record exists for the id.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionCorrupt is returned when a stored blob cannot be decoded.
	ErrSessionCorrupt = errors.New("session record corrupt")
	// ErrVarNotFound is returned when the requested session variable is absent.
	ErrVarNotFound = errors.New("session variable not found")
	// ErrRedisUnavailable wraps transport failures of the backing store.
	ErrRedisUnavailable = errors.New("redis unavailable")
)

const minTTL = time.Second

// Store keeps session records and their key-value variables in Redis. The
// record blob and its variable hash share one TTL: the remaining absolute
// lifetime. Soft expiry is a field inside the record, never a Redis TTL, so
// soft-expired sessions stay readable for prolongation.
type Store struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the store's time source. Tests use it to move sessions
// across their expiry boundaries without sleeping.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore creates a session store with the given key prefix.
func NewStore(client redis.UniversalClient, prefix string, opts ...Option) *Store {
	if prefix == "" {
		prefix = "gl"
	}
	s := &Store{redis: client, prefix: prefix, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) key(id string) string {
	return s.prefix + ":s:" + id
}

func (s *Store) varsKey(id string) string {
	return s.prefix + ":v:" + id
}

// Create issues a new valid record for userID with the given soft TTL and
// absolute lifetime, and persists it.
func (s *Store) Create(ctx context.Context, userID string, ttl, absolute time.Duration) (*Record, error) {
	if absolute < ttl {
		absolute = ttl
	}
	now := s.now()
	rec := &Record{
		ID:       uuid.NewString(),
		UserID:   userID,
		Valid:    true,
		Created:  now.Unix(),
		Expires:  now.Add(ttl).Unix(),
		Absolute: now.Add(absolute).Unix(),
	}
	if err := s.Save(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Get fetches a record by id. Hard-expired records are indistinguishable from
// absent ones: Redis evicts them at the absolute deadline, and any remnant
// past its deadline is reported as not found.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	if id == "" {
		return nil, ErrSessionNotFound
	}
	data, err := s.redis.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	rec, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Save persists the record under its remaining absolute lifetime.
func (s *Store) Save(ctx context.Context, rec *Record) error {
	data, err := Encode(rec)
	if err != nil {
		return err
	}
	ttl := s.remainingAbsolute(rec)
	if err := s.redis.Set(ctx, s.key(rec.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	// Keep the variable hash alive exactly as long as the record.
	if err := s.redis.Expire(ctx, s.varsKey(rec.ID), ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Delete discards the record and its variables. Deleting an absent session is
// not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.redis.Del(ctx, s.key(id), s.varsKey(id)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Prolong extends a soft-expired (or still valid) record by ttl from now,
// clamped to the absolute deadline. Hard-expired records cannot be prolonged.
func (s *Store) Prolong(ctx context.Context, id string, ttl time.Duration) (*Record, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if rec.HardExpired(now) {
		return nil, ErrSessionNotFound
	}
	expires := now.Add(ttl).Unix()
	if expires > rec.Absolute {
		expires = rec.Absolute
	}
	rec.Expires = expires
	rec.Valid = true
	rec.Error = nil
	if err := s.Save(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// GetVar reads one session variable.
func (s *Store) GetVar(ctx context.Context, id, key string) (string, error) {
	val, err := s.redis.HGet(ctx, s.varsKey(id), key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrVarNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return val, nil
}

// PutVar writes one session variable. The variable hash inherits the
// record's remaining lifetime.
func (s *Store) PutVar(ctx context.Context, id, key, value string) error {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.redis.HSet(ctx, s.varsKey(id), key, value).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if err := s.redis.Expire(ctx, s.varsKey(id), s.remainingAbsolute(rec)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// DeleteVar removes one session variable. Removing an absent variable is not
// an error.
func (s *Store) DeleteVar(ctx context.Context, id, key string) error {
	if err := s.redis.HDel(ctx, s.varsKey(id), key).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (s *Store) remainingAbsolute(rec *Record) time.Duration {
	remaining := time.Unix(rec.Absolute, 0).Sub(s.now())
	if remaining < minTTL {
		remaining = minTTL
	}
	return remaining
}
