package pgstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/MrEthical07/goLogin"
	"github.com/MrEthical07/goLogin/suite"
)

var _ goLogin.CredentialProvider = (*Store)(nil)
var _ goLogin.LockAdministrator = (*Store)(nil)

// Store is a PostgreSQL-backed [goLogin.CredentialProvider] and
// [goLogin.LockAdministrator].
type Store struct {
	db  *Connection
	now func() time.Time
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

// New creates a credential [Store] on the given connection.
func New(db *Connection, opts ...Option) *Store {
	s := &Store{
		db:  db,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetPasswordSuite loads an identity's partitioned credential, resolving the
// shared half through the shared_suites table.
func (s *Store) GetPasswordSuite(ctx context.Context, identity string) (*goLogin.PasswordSuite, error) {
	query := `SELECT c.shared_id, c.intrinsic, ss.chain
			  FROM credentials c
			  JOIN shared_suites ss ON ss.id = c.shared_id
			  WHERE c.identity = $1 AND c.intrinsic IS NOT NULL`

	var (
		sharedID     int64
		rawIntrinsic string
		rawShared    string
	)
	err := s.db.QueryRow(ctx, query, identity).Scan(&sharedID, &rawIntrinsic, &rawShared)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, goLogin.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get password suite: %w", err)
	}

	intrinsic, err := suite.Decode(rawIntrinsic)
	if err != nil {
		return nil, fmt.Errorf("corrupt intrinsic chain for %q: %w", identity, err)
	}
	shared, err := suite.Decode(rawShared)
	if err != nil {
		return nil, fmt.Errorf("corrupt shared suite %d: %w", sharedID, err)
	}

	return &goLogin.PasswordSuite{
		SharedID:  sharedID,
		Shared:    shared,
		Intrinsic: intrinsic,
	}, nil
}

// UpdatePassword upserts the credential and resets the attempt state. An
// unknown identity is created, which doubles as registration.
func (s *Store) UpdatePassword(ctx context.Context, identity string, sharedID int64, intrinsic suite.Chain) error {
	encoded, err := suite.Encode(intrinsic)
	if err != nil {
		return fmt.Errorf("failed to encode intrinsic chain: %w", err)
	}

	query := `INSERT INTO credentials (identity, shared_id, intrinsic)
			  VALUES ($1, $2, $3)
			  ON CONFLICT (identity) DO UPDATE SET
			      shared_id = EXCLUDED.shared_id,
			      intrinsic = EXCLUDED.intrinsic,
			      login_attempts = 0,
			      last_attempt = NULL,
			      last_failed_ip = ''`

	if _, err := s.db.Exec(ctx, query, identity, sharedID, encoded); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// GetLockState loads an identity's lockout record.
func (s *Store) GetLockState(ctx context.Context, identity string) (*goLogin.AccountLockState, error) {
	query := `SELECT login_attempts, last_attempt, last_login, last_failed_ip, last_ok_ip, soft_locked, locked
			  FROM credentials WHERE identity = $1`

	var (
		attempts               int64
		lastAttempt, lastLogin *time.Time
		lastFailedIP, lastOKIP string
		softLocked, locked     *time.Time
	)
	err := s.db.QueryRow(ctx, query, identity).Scan(
		&attempts, &lastAttempt, &lastLogin, &lastFailedIP, &lastOKIP, &softLocked, &locked,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, goLogin.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get lock state: %w", err)
	}

	return &goLogin.AccountLockState{
		LoginAttempts: uint(attempts),
		LastAttempt:   deref(lastAttempt),
		LastLogin:     deref(lastLogin),
		LastFailedIP:  lastFailedIP,
		LastOKIP:      lastOKIP,
		SoftLocked:    deref(softLocked),
		Locked:        deref(locked),
	}, nil
}

// RecordFailedAttempt bumps the attempt counter through the decay formula
// inside a single row-locked UPDATE, so concurrent failures against one
// identity serialize on the row and never lose decay arithmetic.
func (s *Store) RecordFailedAttempt(ctx context.Context, identity, ip string, maxAttempts uint, decayWindow time.Duration) (*goLogin.AccountLockState, error) {
	query := `UPDATE credentials c SET
			      login_attempts = b.next_attempts,
			      last_attempt = $2,
			      last_failed_ip = $3,
			      soft_locked = CASE
			          WHEN b.next_attempts > $5 AND c.soft_locked IS NULL THEN $2
			          ELSE c.soft_locked
			      END
			  FROM (
			      SELECT identity,
			             1 + GREATEST(login_attempts - CASE
			                 WHEN $4::bigint > 0 AND last_attempt IS NOT NULL AND $2::timestamptz > last_attempt
			                 THEN (FLOOR(EXTRACT(EPOCH FROM ($2::timestamptz - last_attempt)) * 1000 / $4))::int
			                 ELSE 0
			             END, 0) AS next_attempts
			      FROM credentials WHERE identity = $1 FOR UPDATE
			  ) b
			  WHERE c.identity = b.identity
			  RETURNING c.login_attempts, c.soft_locked`

	now := s.now()
	var (
		attempts   int64
		softLocked *time.Time
	)
	err := s.db.QueryRow(ctx, query,
		identity, now, ip, decayWindow.Milliseconds(), int64(maxAttempts),
	).Scan(&attempts, &softLocked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, goLogin.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to record failed attempt: %w", err)
	}

	return &goLogin.AccountLockState{
		LoginAttempts: uint(attempts),
		LastAttempt:   now,
		LastFailedIP:  ip,
		SoftLocked:    deref(softLocked),
	}, nil
}

// RecordSuccessfulAttempt resets the attempt counter to one, clears the soft
// lock, and records the login timestamps and IP.
func (s *Store) RecordSuccessfulAttempt(ctx context.Context, identity, ip string) error {
	query := `UPDATE credentials SET
			      login_attempts = 1,
			      last_attempt = $2,
			      last_login = $2,
			      last_ok_ip = $3,
			      soft_locked = NULL
			  WHERE identity = $1`

	tag, err := s.db.Exec(ctx, query, identity, s.now(), ip)
	if err != nil {
		return fmt.Errorf("failed to record successful attempt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return goLogin.ErrUserNotFound
	}
	return nil
}

// CreateOrGetSharedSuiteID deduplicates the shared half of a chain by its
// canonical serialization. INSERT ON CONFLICT DO NOTHING plus a follow-up
// SELECT makes concurrent creators of equal content converge on one id.
func (s *Store) CreateOrGetSharedSuiteID(ctx context.Context, shared suite.Chain) (int64, error) {
	encoded, err := suite.Encode(shared)
	if err != nil {
		return 0, fmt.Errorf("failed to encode shared chain: %w", err)
	}
	digest := sha256.Sum256([]byte(encoded))
	contentHash := hex.EncodeToString(digest[:])

	insert := `INSERT INTO shared_suites (content_hash, chain) VALUES ($1, $2)
			   ON CONFLICT (content_hash) DO NOTHING
			   RETURNING id`

	var id int64
	err = s.db.QueryRow(ctx, insert, contentHash, encoded).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("failed to create shared suite: %w", err)
	}

	err = s.db.QueryRow(ctx, `SELECT id FROM shared_suites WHERE content_hash = $1`, contentHash).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to get shared suite: %w", err)
	}
	return id, nil
}

// SetHardLock sets or clears the administrative hard lock.
func (s *Store) SetHardLock(ctx context.Context, identity string, locked bool) error {
	query := `UPDATE credentials SET locked = CASE WHEN $2 THEN $3::timestamptz ELSE NULL END
			  WHERE identity = $1`

	tag, err := s.db.Exec(ctx, query, identity, locked, s.now())
	if err != nil {
		return fmt.Errorf("failed to set hard lock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return goLogin.ErrUserNotFound
	}
	return nil
}

func deref(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
