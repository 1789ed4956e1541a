// Package goLogin provides a password credential pipeline and a session
// validity state machine: multi-stage password suites with shared/intrinsic
// partitioning, timing-equalized authentication with leaky-bucket account
// lockout, Redis-backed sessions with prolongation, and request preservation
// across forced re-authentication.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// goLogin is the public surface. It exposes [Engine], [Builder], [Config],
// and value types (AuthResult, Decision, AccountLockState, etc.). Suite
// hashing lives under suite/, session storage under session/, signed session
// handles under token/, and credential backends under stores/.
//
// # What this package must NOT do
//
//   - Leak timing: every Authenticate exit path, including unknown user and
//     locked account, pays the same equalized delay, and missing credentials
//     still burn a hash comparison.
//   - Echo secrets: credential fields are stripped from request parameters on
//     every non-authenticating path and never stored in preserved requests.
//   - Distinguish unknown users from wrong passwords in its error surface.
package goLogin
