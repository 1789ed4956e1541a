package goLogin

import "errors"

var (
	// ErrBadPassword is the uniform credential failure. It covers wrong
	// passwords and unknown identities alike so that the error surface does
	// not reveal whether an account exists.
	ErrBadPassword = errors.New("bad password")
	// ErrAccountLocked is the terminal, administrator-controlled hard lock.
	// It overrides every other outcome, including a correct password.
	ErrAccountLocked = errors.New("account locked")
	// ErrAccountSoftLocked is the temporary lockout from repeated failures.
	// It decays on its own as the attempt counter is forgiven over time.
	ErrAccountSoftLocked = errors.New("account temporarily locked")
	// ErrSessionError marks a malformed or corrupted session or go-to
	// record. Recoverable by re-login.
	ErrSessionError = errors.New("session error")
	// ErrSessionExpired marks a session past its absolute lifetime.
	ErrSessionExpired = errors.New("session expired")
	// ErrUserNotFound is returned by credential providers for unknown
	// identities. The engine never surfaces it to callers; it is folded into
	// ErrBadPassword after the timing equalizer has run.
	ErrUserNotFound = errors.New("user not found")
	// ErrEngineNotReady is returned when an Engine method is called on a
	// partially constructed engine.
	ErrEngineNotReady = errors.New("engine not ready")
	// ErrNotSupported is returned when the configured credential provider
	// does not implement an optional capability, e.g. administrative locks.
	ErrNotSupported = errors.New("operation not supported by provider")
	// ErrInvalidConfig wraps configuration validation failures. Raised from
	// Build only; configuration problems abort initialization, they are
	// never a per-request outcome.
	ErrInvalidConfig = errors.New("invalid configuration")
)
