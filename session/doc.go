// Package session stores session records and their key-value variables in
// Redis. A record distinguishes soft expiry (past its normal TTL, still
// prolongable) from hard expiry (past the absolute deadline, discarded), and
// the variable store carries the go-to record that preserves in-flight
// request data across a forced re-authentication detour.
package session
