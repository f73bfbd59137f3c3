package models

import "time"

// Login audit events
const (
	AuditLoginSucceeded = "login-succeeded"
	AuditLoginFailed    = "login-failed"
)

// AuditLogEntry represents a single login event
type AuditLogEntry struct {
	ID          int64
	Timestamp   time.Time
	Event       string
	UserID      int64
	SiteID      int64
	Reason      string
	HandshakeID string
	UserAgent   string
	IPAddress   string
}
