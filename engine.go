package goLogin

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/MrEthical07/goLogin/internal/cache"
	"github.com/MrEthical07/goLogin/session"
	"github.com/MrEthical07/goLogin/suite"
	"github.com/MrEthical07/goLogin/token"
)

// Engine runs the credential pipeline and the session validity state
// machine. Engines are configured through [Builder.Build] and safe for
// concurrent use afterwards.
type Engine struct {
	config       Config
	registry     *suite.Registry
	provider     CredentialProvider
	sessionStore *session.Store
	tokens       *token.Manager
	equalizer    *equalizer
	audit        *auditDispatcher
	metrics      *Metrics
	suiteCache   *cache.Cache[*PasswordSuite]
	now          func() time.Time
}

// Close shuts down the audit dispatcher, draining buffered events.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns the number of audit events dropped because the
// dispatch buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot copies the engine's counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// SessionStore exposes the engine's session store to integration layers
// that need direct variable access.
func (e *Engine) SessionStore() *session.Store {
	if e == nil {
		return nil
	}
	return e.sessionStore
}

// Authenticate runs the full pipeline for one login attempt. The timing
// equalizer sleeps on every exit path (success, wrong password, and unknown
// identity alike) so observed latency does not reveal account existence,
// and the returned error is uniformly ErrBadPassword for both of the latter.
//
// Hard lock takes precedence over everything, including a correct password.
// Soft lock blocks while the decayed attempt counter is still above the
// threshold.
func (e *Engine) Authenticate(ctx context.Context, identity, password string) (*AuthResult, error) {
	if e == nil || e.provider == nil || e.sessionStore == nil {
		return nil, ErrEngineNotReady
	}
	known := false
	defer func() { e.equalizer.Wait(ctx, known) }()
	ip := clientIPFromContext(ctx)

	if identity == "" || password == "" {
		suite.DummyCompare()
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, identity, "", ErrBadPassword, func() map[string]string {
			return map[string]string{"reason": "empty_credentials"}
		})
		return nil, ErrBadPassword
	}

	lock, err := e.provider.GetLockState(ctx, identity)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			suite.DummyCompare()
			e.metricInc(MetricLoginFailure)
			e.emitAudit(ctx, auditEventLoginFailure, false, identity, "", ErrBadPassword, func() map[string]string {
				return map[string]string{"reason": "user_not_found"}
			})
			return nil, ErrBadPassword
		}
		return nil, err
	}
	known = true
	now := e.now()

	if lock.HardLocked() {
		e.metricInc(MetricLoginLocked)
		e.emitAudit(ctx, auditEventLoginLocked, false, identity, "", ErrAccountLocked, nil)
		return nil, ErrAccountLocked
	}
	if lock.EffectivelySoftLocked(now, e.config.Locking.MaxAttempts, e.config.Locking.FailExpires) {
		// Password is not evaluated, but the call shape stays constant.
		suite.DummyCompare()
		e.metricInc(MetricLoginSoftLocked)
		e.emitAudit(ctx, auditEventLoginSoftLocked, false, identity, "", ErrAccountSoftLocked, nil)
		return nil, ErrAccountSoftLocked
	}

	ps, err := e.passwordSuite(ctx, identity)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			suite.DummyCompare()
			e.metricInc(MetricLoginFailure)
			e.emitAudit(ctx, auditEventLoginFailure, false, identity, "", ErrBadPassword, func() map[string]string {
				return map[string]string{"reason": "no_credential"}
			})
			return nil, ErrBadPassword
		}
		return nil, err
	}
	chain := suite.Merge(ps.Shared, ps.Intrinsic)
	if chain == nil {
		// Storage corruption: the two halves disagree. Uniform failure
		// outwards, loud audit event inwards.
		suite.DummyCompare()
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, identity, "", ErrBadPassword, func() map[string]string {
			return map[string]string{"reason": "suite_mismatch"}
		})
		return nil, ErrBadPassword
	}

	if !e.registry.Check([]byte(password), chain) {
		state, rerr := e.provider.RecordFailedAttempt(ctx, identity, ip, e.config.Locking.MaxAttempts, e.config.Locking.FailExpires)
		if rerr != nil {
			log.Print("goLogin: failed attempt not recorded")
		}
		if rerr == nil && state != nil && !state.SoftLocked.IsZero() &&
			state.LoginAttempts > e.config.Locking.MaxAttempts {
			e.metricInc(MetricLoginSoftLocked)
			e.emitAudit(ctx, auditEventLoginSoftLocked, false, identity, "", ErrAccountSoftLocked, func() map[string]string {
				return map[string]string{"reason": "threshold_exceeded"}
			})
			return nil, ErrAccountSoftLocked
		}
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, identity, "", ErrBadPassword, func() map[string]string {
			return map[string]string{"reason": "password_mismatch"}
		})
		return nil, ErrBadPassword
	}

	if err := e.provider.RecordSuccessfulAttempt(ctx, identity, ip); err != nil {
		return nil, err
	}

	if e.config.Suite.UpgradeOnLogin && len(chain) < len(e.config.Suite.Stages) {
		// The stored chain predates the current configuration; re-encrypt
		// so it picks up the appended stages. Best effort: an upgrade
		// failure must not block a successful login.
		if err := e.SetPassword(ctx, identity, password); err != nil {
			log.Print("goLogin: password suite upgrade failed")
		}
	}
	password = ""

	rec, err := e.sessionStore.Create(ctx, identity, e.config.Session.TTL, e.config.Session.AbsoluteLifetime)
	if err != nil {
		return nil, err
	}
	handle, err := e.issueSessionHandle(rec)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	e.metricInc(MetricSessionCreated)
	e.emitAudit(ctx, auditEventLoginSuccess, true, identity, rec.ID, nil, nil)

	return &AuthResult{Identity: identity, Session: rec, SessionToken: handle}, nil
}

// SetPassword encrypts plaintext through the configured suite, partitions
// the chain, and persists it: the shared half through the idempotent
// insert-or-get dedup store, the intrinsic half on the user record. The
// store write also resets the account's attempt counters; the suite cache
// entry is evicted right after the write commits.
func (e *Engine) SetPassword(ctx context.Context, identity, plaintext string) error {
	if e == nil || e.provider == nil {
		return ErrEngineNotReady
	}
	if identity == "" || plaintext == "" {
		return ErrBadPassword
	}

	chain, err := e.registry.Encrypt([]byte(plaintext), e.config.Suite.Stages)
	if err != nil {
		return err
	}
	parts := suite.Split(chain)

	sharedID, err := e.provider.CreateOrGetSharedSuiteID(ctx, parts.Shared)
	if err != nil {
		return err
	}
	if err := e.provider.UpdatePassword(ctx, identity, sharedID, parts.Intrinsic); err != nil {
		return err
	}
	e.suiteCache.Invalidate(identity)

	e.metricInc(MetricPasswordUpdated)
	e.emitAudit(ctx, auditEventPasswordUpdated, true, identity, "", nil, nil)
	return nil
}

// LockAccount sets the administrative hard lock. Requires a provider that
// implements [LockAdministrator].
func (e *Engine) LockAccount(ctx context.Context, identity string) error {
	return e.setHardLock(ctx, identity, true)
}

// UnlockAccount clears the administrative hard lock.
func (e *Engine) UnlockAccount(ctx context.Context, identity string) error {
	return e.setHardLock(ctx, identity, false)
}

func (e *Engine) setHardLock(ctx context.Context, identity string, locked bool) error {
	if e == nil || e.provider == nil {
		return ErrEngineNotReady
	}
	admin, ok := e.provider.(LockAdministrator)
	if !ok {
		return ErrNotSupported
	}
	if err := admin.SetHardLock(ctx, identity, locked); err != nil {
		return err
	}
	event := auditEventLockSet
	if !locked {
		event = auditEventLockCleared
	}
	e.emitAudit(ctx, event, true, identity, "", nil, nil)
	return nil
}

// ProlongSession extends a soft-expired session after a successful
// re-authentication, clamped to the absolute lifetime.
func (e *Engine) ProlongSession(ctx context.Context, sessionID string) (*session.Record, error) {
	if e == nil || e.sessionStore == nil {
		return nil, ErrEngineNotReady
	}
	rec, err := e.sessionStore.Prolong(ctx, sessionID, e.config.Session.TTL)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return nil, ErrSessionExpired
		}
		return nil, err
	}
	e.metricInc(MetricSessionProlonged)
	return rec, nil
}

// Logout discards a session and its variables.
func (e *Engine) Logout(ctx context.Context, sessionID string) error {
	if e == nil || e.sessionStore == nil {
		return ErrEngineNotReady
	}
	if err := e.sessionStore.Delete(ctx, sessionID); err != nil {
		return err
	}
	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, true, "", sessionID, nil, nil)
	return nil
}

func (e *Engine) passwordSuite(ctx context.Context, identity string) (*PasswordSuite, error) {
	if ps, ok := e.suiteCache.Get(identity); ok {
		return ps, nil
	}
	ps, err := e.provider.GetPasswordSuite(ctx, identity)
	if err != nil {
		return nil, err
	}
	e.suiteCache.Put(identity, ps)
	return ps, nil
}

func (e *Engine) issueSessionHandle(rec *session.Record) (string, error) {
	if e.tokens == nil {
		return rec.ID, nil
	}
	return e.tokens.Issue(rec.ID, rec.UserID)
}

func (e *Engine) sessionIDFromHandle(handle string) string {
	if handle == "" {
		return ""
	}
	if e.tokens == nil {
		return handle
	}
	claims, err := e.tokens.Parse(handle)
	if err != nil {
		return ""
	}
	return claims.SID
}
