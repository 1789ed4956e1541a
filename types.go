package goLogin

import (
	"context"
	"time"

	"github.com/MrEthical07/goLogin/session"
	"github.com/MrEthical07/goLogin/suite"
)

// PasswordSuite is a user's stored credential as handed over by a
// CredentialProvider: the two halves of the partitioned chain plus the id of
// the shared half in the dedup store.
type PasswordSuite struct {
	SharedID  int64
	Shared    suite.Chain
	Intrinsic suite.Chain
}

// AccountLockState is the per-user lockout record. Zero timestamps mean
// "never" / "not set". Locked (hard) is orthogonal to and takes precedence
// over SoftLocked; only an administrator clears Locked, and only a successful
// login or administrative action clears SoftLocked.
type AccountLockState struct {
	LoginAttempts uint
	LastAttempt   time.Time
	LastLogin     time.Time
	LastFailedIP  string
	LastOKIP      string
	SoftLocked    time.Time
	Locked        time.Time
}

// HardLocked reports the administrative hard lock.
func (s *AccountLockState) HardLocked() bool {
	return s != nil && !s.Locked.IsZero()
}

// EffectivelySoftLocked reports whether the soft lock still bites at the
// given instant: the lock flag is set and the decayed attempt counter is
// still above the threshold. A soft lock whose attempts have decayed below
// the threshold no longer blocks, which is how soft locks self-resolve.
func (s *AccountLockState) EffectivelySoftLocked(now time.Time, maxAttempts uint, window time.Duration) bool {
	if s == nil || s.SoftLocked.IsZero() {
		return false
	}
	return DecayedAttempts(s.LoginAttempts, s.LastAttempt, now, window) > maxAttempts
}

// DecayedAttempts applies the leaky-bucket forgiveness to an attempt
// counter: attempts minus one per whole decay window elapsed since the last
// attempt, floored at zero. A window of zero or less means no decay.
func DecayedAttempts(attempts uint, lastAttempt, now time.Time, window time.Duration) uint {
	if window <= 0 || lastAttempt.IsZero() {
		return attempts
	}
	elapsed := now.Sub(lastAttempt)
	if elapsed <= 0 {
		return attempts
	}
	forgiven := uint(elapsed / window)
	if forgiven >= attempts {
		return 0
	}
	return attempts - forgiven
}

// CredentialProvider is the credential store contract the engine consumes.
// Implementations must apply RecordFailedAttempt atomically per identity
// (compare-and-swap or an equivalent single-writer update) so concurrent
// failures from one account do not lose decay arithmetic.
//
// GetPasswordSuite and GetLockState return ErrUserNotFound for unknown
// identities; the engine folds that into the uniform bad-password outcome.
type CredentialProvider interface {
	GetPasswordSuite(ctx context.Context, identity string) (*PasswordSuite, error)
	// UpdatePassword stores a new credential and resets the attempt state:
	// login attempts to zero, last attempt and last failed IP cleared.
	UpdatePassword(ctx context.Context, identity string, sharedID int64, intrinsic suite.Chain) error
	GetLockState(ctx context.Context, identity string) (*AccountLockState, error)
	// RecordFailedAttempt bumps the counter through the decay formula, sets
	// the soft lock when the new counter exceeds maxAttempts, and returns
	// the post-update state.
	RecordFailedAttempt(ctx context.Context, identity, ip string, maxAttempts uint, decayWindow time.Duration) (*AccountLockState, error)
	// RecordSuccessfulAttempt resets the counter to one, clears the soft
	// lock, and records the login timestamps and IP.
	RecordSuccessfulAttempt(ctx context.Context, identity, ip string) error
	// CreateOrGetSharedSuiteID is an idempotent insert-or-get keyed by exact
	// content equality of the shared chain's canonical serialization.
	CreateOrGetSharedSuiteID(ctx context.Context, shared suite.Chain) (int64, error)
}

// LockAdministrator is the optional administrative capability of a
// credential provider: setting and clearing the hard lock.
type LockAdministrator interface {
	SetHardLock(ctx context.Context, identity string, locked bool) error
}

// AuthResult is the outcome of a successful authentication.
type AuthResult struct {
	Identity     string
	Session      *session.Record
	SessionToken string
}
