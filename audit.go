package goSession

import (
	"context"
	"errors"
)

const (
	auditEventStartup           = "startup"
	auditEventLoginSuccess      = "login_success"
	auditEventLoginFailure      = "login_failure"
	auditEventLoginMissingToken = "login_missing_token"
	auditEventLoginSuperseded   = "login_superseded"
	auditEventLogout            = "logout"
	auditEventForcedExpiry      = "forced_expiry"
	auditEventRefreshSuccess    = "refresh_success"
	auditEventRefreshFailure    = "refresh_failure"
	auditEventSignupSuccess     = "signup_success"
	auditEventSignupFailure     = "signup_failure"
)

// AuditErrorCode is the redacted error classification stored on audit events.
type AuditErrorCode string

const (
	auditErrRejected       AuditErrorCode = "rejected"
	auditErrSessionExpired AuditErrorCode = "session_expired"
	auditErrUnreachable    AuditErrorCode = "endpoint_unreachable"
	auditErrMissingToken   AuditErrorCode = "missing_token"
	auditErrInvalidInput   AuditErrorCode = "invalid_input"
	auditErrSuperseded     AuditErrorCode = "superseded"
	auditErrStore          AuditErrorCode = "store_error"
	auditErrInternal       AuditErrorCode = "internal_error"
)

func (a *Authority) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if a == nil || a.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}
	if id := RequestIDFromContext(ctx); id != "" {
		if metadata == nil {
			metadata = make(map[string]string, 1)
		}
		metadata["request_id"] = id
	}

	event := AuditEvent{
		Timestamp: a.now().UTC(),
		EventType: eventType,
		UserID:    userID,
		Status:    a.cell.load().Status.String(),
		Success:   success,
		Metadata:  metadata,
	}
	if metadata != nil {
		event.Reason = metadata["reason"]
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	a.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	var rejected *RejectedError
	switch {
	case errors.Is(err, ErrSessionExpired):
		return auditErrSessionExpired
	case errors.As(err, &rejected) && rejected.Status == 0:
		return auditErrUnreachable
	case errors.Is(err, ErrAuthenticationRejected):
		return auditErrRejected
	case errors.Is(err, ErrMissingToken):
		return auditErrMissingToken
	case errors.Is(err, ErrInvalidInput):
		return auditErrInvalidInput
	case errors.Is(err, ErrSuperseded):
		return auditErrSuperseded
	case errors.Is(err, errStore):
		return auditErrStore
	default:
		return auditErrInternal
	}
}

var errStore = errors.New("credential store")
