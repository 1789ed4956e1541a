package redisstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/goLogin"
	"github.com/MrEthical07/goLogin/internal/cache"
	"github.com/MrEthical07/goLogin/suite"
)

// ErrRedisUnavailable wraps transport-level Redis failures.
var ErrRedisUnavailable = errors.New("redisstore: redis unavailable")

const (
	fieldSharedID     = "shared_id"
	fieldIntrinsic    = "intrinsic"
	fieldAttempts     = "attempts"
	fieldLastAttempt  = "last_attempt"
	fieldLastLogin    = "last_login"
	fieldLastFailedIP = "last_failed_ip"
	fieldLastOKIP     = "last_ok_ip"
	fieldSoftLocked   = "soft_locked"
	fieldLocked       = "locked"
)

// failedAttemptScript applies the leaky-bucket decay and the soft-lock
// threshold in one atomic step so concurrent failures against the same
// identity never lose decay arithmetic. Timestamps and the window are unix
// milliseconds. Returns {attempts, soft_locked} or false for an unknown
// identity.
const failedAttemptScript = `
if redis.call('EXISTS', KEYS[1]) == 0 then
  return false
end
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local max = tonumber(ARGV[3])
local attempts = tonumber(redis.call('HGET', KEYS[1], 'attempts') or '0')
local last = tonumber(redis.call('HGET', KEYS[1], 'last_attempt') or '0')
if window > 0 and last > 0 and now > last then
  local forgiven = math.floor((now - last) / window)
  if forgiven >= attempts then
    attempts = 0
  else
    attempts = attempts - forgiven
  end
end
attempts = attempts + 1
redis.call('HSET', KEYS[1], 'attempts', attempts, 'last_attempt', now, 'last_failed_ip', ARGV[4])
local soft = tonumber(redis.call('HGET', KEYS[1], 'soft_locked') or '0')
if attempts > max and soft == 0 then
  soft = now
  redis.call('HSET', KEYS[1], 'soft_locked', soft)
end
return {attempts, soft}
`

var failedAttemptLua = redis.NewScript(failedAttemptScript)

// Store is a Redis-backed [goLogin.CredentialProvider] and
// [goLogin.LockAdministrator]. Shared suite chains are cached in-process by
// id; the cache is safe because shared suites are immutable once allocated.
type Store struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
	shared *cache.Cache[suite.Chain]
}

// Option customizes a [Store].
type Option func(*Store)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a credential [Store] backed by the given Redis client. prefix
// sets the key namespace and defaults to "gl".
func New(redisClient redis.UniversalClient, prefix string, opts ...Option) *Store {
	if prefix == "" {
		prefix = "gl"
	}
	s := &Store{
		redis:  redisClient,
		prefix: prefix,
		now:    time.Now,
		shared: cache.New[suite.Chain](),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) credKey(identity string) string {
	return s.prefix + ":cred:" + identity
}

func (s *Store) suiteHashKey(contentHash string) string {
	return s.prefix + ":suite:hash:" + contentHash
}

func (s *Store) suiteIDKey(id int64) string {
	return s.prefix + ":suite:id:" + strconv.FormatInt(id, 10)
}

func (s *Store) suiteSeqKey() string {
	return s.prefix + ":suite:seq"
}

// GetPasswordSuite loads an identity's partitioned credential. The shared
// half is resolved through the suite table by id.
func (s *Store) GetPasswordSuite(ctx context.Context, identity string) (*goLogin.PasswordSuite, error) {
	vals, err := s.redis.HMGet(ctx, s.credKey(identity), fieldSharedID, fieldIntrinsic).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	rawID, okID := vals[0].(string)
	rawIntrinsic, okIntrinsic := vals[1].(string)
	if !okID || !okIntrinsic {
		return nil, goLogin.ErrUserNotFound
	}

	sharedID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("redisstore: corrupt shared suite id for %q: %w", identity, err)
	}
	intrinsic, err := suite.Decode(rawIntrinsic)
	if err != nil {
		return nil, fmt.Errorf("redisstore: corrupt intrinsic chain for %q: %w", identity, err)
	}
	shared, err := s.sharedChain(ctx, sharedID)
	if err != nil {
		return nil, err
	}

	return &goLogin.PasswordSuite{
		SharedID:  sharedID,
		Shared:    shared,
		Intrinsic: intrinsic,
	}, nil
}

// UpdatePassword stores a new credential and resets the attempt state. An
// unknown identity is created, which doubles as registration.
func (s *Store) UpdatePassword(ctx context.Context, identity string, sharedID int64, intrinsic suite.Chain) error {
	encoded, err := suite.Encode(intrinsic)
	if err != nil {
		return fmt.Errorf("redisstore: encode intrinsic chain: %w", err)
	}

	pipe := s.redis.TxPipeline()
	pipe.HSet(ctx, s.credKey(identity),
		fieldSharedID, strconv.FormatInt(sharedID, 10),
		fieldIntrinsic, encoded,
		fieldAttempts, "0",
	)
	pipe.HDel(ctx, s.credKey(identity), fieldLastAttempt, fieldLastFailedIP)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// GetLockState loads an identity's lockout record.
func (s *Store) GetLockState(ctx context.Context, identity string) (*goLogin.AccountLockState, error) {
	fields, err := s.redis.HGetAll(ctx, s.credKey(identity)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(fields) == 0 {
		return nil, goLogin.ErrUserNotFound
	}

	state := &goLogin.AccountLockState{
		LoginAttempts: uint(parseInt(fields[fieldAttempts])),
		LastAttempt:   parseMillis(fields[fieldLastAttempt]),
		LastLogin:     parseMillis(fields[fieldLastLogin]),
		LastFailedIP:  fields[fieldLastFailedIP],
		LastOKIP:      fields[fieldLastOKIP],
		SoftLocked:    parseMillis(fields[fieldSoftLocked]),
		Locked:        parseMillis(fields[fieldLocked]),
	}
	return state, nil
}

// RecordFailedAttempt bumps the attempt counter through the decay formula
// and sets the soft lock when the new counter exceeds maxAttempts. The whole
// update runs as a single Lua script.
func (s *Store) RecordFailedAttempt(ctx context.Context, identity, ip string, maxAttempts uint, decayWindow time.Duration) (*goLogin.AccountLockState, error) {
	now := s.now()
	res, err := failedAttemptLua.Run(ctx, s.redis,
		[]string{s.credKey(identity)},
		now.UnixMilli(),
		decayWindow.Milliseconds(),
		int64(maxAttempts),
		ip,
	).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, goLogin.ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	parts, ok := res.([]interface{})
	if !ok || len(parts) != 2 {
		return nil, fmt.Errorf("redisstore: unexpected script reply %T", res)
	}
	attempts, _ := parts[0].(int64)
	softMillis, _ := parts[1].(int64)

	state := &goLogin.AccountLockState{
		LoginAttempts: uint(attempts),
		LastAttempt:   now,
		LastFailedIP:  ip,
	}
	if softMillis > 0 {
		state.SoftLocked = time.UnixMilli(softMillis)
	}
	return state, nil
}

// RecordSuccessfulAttempt resets the attempt counter to one, clears the soft
// lock, and records the login timestamps and IP.
func (s *Store) RecordSuccessfulAttempt(ctx context.Context, identity, ip string) error {
	now := strconv.FormatInt(s.now().UnixMilli(), 10)

	pipe := s.redis.TxPipeline()
	pipe.HSet(ctx, s.credKey(identity),
		fieldAttempts, "1",
		fieldLastAttempt, now,
		fieldLastLogin, now,
		fieldLastOKIP, ip,
	)
	pipe.HDel(ctx, s.credKey(identity), fieldSoftLocked)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// CreateOrGetSharedSuiteID deduplicates the shared half of a chain by its
// canonical serialization. Two racing creators may both allocate an id; the
// SETNX loser discards its allocation and adopts the winner's id, so equal
// content always converges on one id.
func (s *Store) CreateOrGetSharedSuiteID(ctx context.Context, shared suite.Chain) (int64, error) {
	encoded, err := suite.Encode(shared)
	if err != nil {
		return 0, fmt.Errorf("redisstore: encode shared chain: %w", err)
	}
	digest := sha256.Sum256([]byte(encoded))
	hashKey := s.suiteHashKey(hex.EncodeToString(digest[:]))

	existing, err := s.redis.Get(ctx, hashKey).Result()
	if err == nil {
		return strconv.ParseInt(existing, 10, 64)
	}
	if !errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	id, err := s.redis.Incr(ctx, s.suiteSeqKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if err := s.redis.Set(ctx, s.suiteIDKey(id), encoded, 0).Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	won, err := s.redis.SetNX(ctx, hashKey, strconv.FormatInt(id, 10), 0).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if !won {
		winner, err := s.redis.Get(ctx, hashKey).Result()
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		_ = s.redis.Del(ctx, s.suiteIDKey(id)).Err()
		return strconv.ParseInt(winner, 10, 64)
	}

	s.shared.Put(strconv.FormatInt(id, 10), shared.Clone())
	return id, nil
}

// SetHardLock sets or clears the administrative hard lock.
func (s *Store) SetHardLock(ctx context.Context, identity string, locked bool) error {
	exists, err := s.redis.Exists(ctx, s.credKey(identity)).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if exists == 0 {
		return goLogin.ErrUserNotFound
	}

	if locked {
		err = s.redis.HSet(ctx, s.credKey(identity),
			fieldLocked, strconv.FormatInt(s.now().UnixMilli(), 10)).Err()
	} else {
		err = s.redis.HDel(ctx, s.credKey(identity), fieldLocked).Err()
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (s *Store) sharedChain(ctx context.Context, id int64) (suite.Chain, error) {
	key := strconv.FormatInt(id, 10)
	if chain, ok := s.shared.Get(key); ok {
		return chain, nil
	}

	encoded, err := s.redis.Get(ctx, s.suiteIDKey(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("redisstore: shared suite %d not found", id)
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	chain, err := suite.Decode(encoded)
	if err != nil {
		return nil, fmt.Errorf("redisstore: corrupt shared suite %d: %w", id, err)
	}

	s.shared.Put(key, chain)
	return chain, nil
}

func parseInt(s string) int64 {
	v, _ := strconv.ParseInt(s, 10, 64)
	return v
}

func parseMillis(s string) time.Time {
	v := parseInt(s)
	if v <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(v)
}
