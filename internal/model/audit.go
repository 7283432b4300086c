package model

import "time"

// AuditLevel classifies an audit entry
type AuditLevel string

const (
	AuditDebug    AuditLevel = "DEBUG"
	AuditInfo     AuditLevel = "INFO"
	AuditWarn     AuditLevel = "WARN"
	AuditError    AuditLevel = "ERROR"
	AuditSecurity AuditLevel = "SECURITY"
)

// AuditEntry is an append-only record of something a user (or the system) did
type AuditEntry struct {
	ID        string
	UserID    UserID // empty for anonymous/system events
	Level     AuditLevel
	Action    string
	Details   string
	CreatedAt time.Time
}
