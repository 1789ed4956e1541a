package goLogin

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventLoginSuccess    = "login_success"
	auditEventLoginFailure    = "login_failure"
	auditEventLoginLocked     = "login_denied_locked"
	auditEventLoginSoftLocked = "login_denied_soft_locked"
	auditEventAccessLocked    = "access_denied_locked"
	auditEventPasswordUpdated = "password_updated"
	auditEventSessionExpired  = "session_expired"
	auditEventSessionError    = "session_error"
	auditEventGotoSaved       = "goto_saved"
	auditEventGotoReplayed    = "goto_replayed"
	auditEventGotoCorrupt     = "goto_corrupt"
	auditEventLockSet         = "account_lock_set"
	auditEventLockCleared     = "account_lock_cleared"
	auditEventLogout          = "logout_session"
)

// AuditErrorCode is the stable error label carried in audit events.
type AuditErrorCode string

const (
	auditErrBadPassword    AuditErrorCode = "bad_password"
	auditErrAccountLocked  AuditErrorCode = "account_locked"
	auditErrSoftLocked     AuditErrorCode = "soft_locked"
	auditErrSessionError   AuditErrorCode = "session_error"
	auditErrSessionExpired AuditErrorCode = "session_expired"
	auditErrUnavailable    AuditErrorCode = "backend_unavailable"
	auditErrInternal       AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	identity string,
	sessionID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Identity:  identity,
		SessionID: sessionID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrBadPassword):
		return auditErrBadPassword
	case errors.Is(err, ErrAccountLocked):
		return auditErrAccountLocked
	case errors.Is(err, ErrAccountSoftLocked):
		return auditErrSoftLocked
	case errors.Is(err, ErrSessionExpired):
		return auditErrSessionExpired
	case errors.Is(err, ErrSessionError):
		return auditErrSessionError
	case errors.Is(err, ErrUserNotFound):
		return auditErrBadPassword
	default:
		return auditErrInternal
	}
}
