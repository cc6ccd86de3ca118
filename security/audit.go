package security

import "time"

// Event types recorded in the audit log.
const (
	EventLoginSuccess  = "login_success"
	EventLoginFailure  = "login_failure"
	EventLoginLocked   = "login_locked"
	EventLogout        = "logout"
	EventRegister      = "register"
	EventTokenRefresh  = "token_refresh"
	EventProfileUpdate = "profile_update"
	EventFileUpload    = "file_upload"
	EventFileDownload  = "file_download"
	EventFileDelete    = "file_delete"
	EventFileFlagged   = "file_flagged"
	EventAccessDenied  = "access_denied"
)

// AuditEvent is one entry in a user's audit trail.
type AuditEvent struct {
	ID        string            `json:"id"`
	UserID    string            `json:"user_id"`
	Type      string            `json:"type"`
	Timestamp time.Time         `json:"timestamp"`
	Details   map[string]string `json:"details,omitempty"`
	IPAddress string            `json:"ip_address,omitempty"`
	UserAgent string            `json:"user_agent,omitempty"`
}

// AuditRepo stores and queries audit events.
type AuditRepo interface {
	Append(event *AuditEvent) error
	ListByUser(userID string, since time.Time, limit int) ([]*AuditEvent, error)
	CountByUserAndType(userID, eventType string, since time.Time) (int, error)
}
