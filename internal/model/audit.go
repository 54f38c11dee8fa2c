package model

import "time"

// AuditEntry is one row of the `audit_logs` table, written by the audit
// consumer from events published on the broker.
type AuditEntry struct {
	ID           uint64
	UserID       *uint64
	Action       string
	ResourceType string
	ResourceID   *uint64
	Detail       string
	IPAddress    string
	UserAgent    string
	CreatedAt    time.Time
}
