package session

import "time"

// Severity levels carried by a session error.
const (
	SeverityInfo  = "info"
	SeverityError = "error"
	SeverityFatal = "fatal"
)

// RecordError marks a session as carrying an error condition, e.g. a
// corrupted go-to record that forced a detour to the session-error
// destination.
type RecordError struct {
	Cause    string
	Severity string
}

// Record is a stored session. Timestamps are unix seconds.
//
// Expires is the soft expiry: past it the session is no longer valid but
// remains readable so it can be prolonged. Absolute is the outer deadline
// past which prolongation is disallowed and the record must be discarded.
type Record struct {
	ID       string
	UserID   string
	Valid    bool
	Error    *RecordError
	Created  int64
	Expires  int64
	Absolute int64
}

// SoftExpired reports whether the record is past its soft expiry but still
// inside the prolongation window.
func (r *Record) SoftExpired(now time.Time) bool {
	ts := now.Unix()
	return ts >= r.Expires && ts < r.Absolute
}

// HardExpired reports whether the record is past its absolute deadline.
func (r *Record) HardExpired(now time.Time) bool {
	return now.Unix() >= r.Absolute
}

// Live reports whether the record is valid and not yet soft expired.
func (r *Record) Live(now time.Time) bool {
	return r.Valid && now.Unix() < r.Expires
}
