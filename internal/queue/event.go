// Package queue defines the audit message exchanged over the broker and the
// consumer that persists it.
package queue

import (
	"strings"
	"time"

	"github.com/welllog/welllog-api/internal/model"
)

// AuditEvent is published for every session operation. It carries enough
// context to write an audit_logs row without querying the user table.
type AuditEvent struct {
	Action   string    `json:"action"`
	UserID   uint64    `json:"user_id,omitempty"`
	Login    string    `json:"login,omitempty"`
	Reason   string    `json:"reason,omitempty"`
	ClientIP string    `json:"client_ip,omitempty"`
	At       time.Time `json:"at"`
}

// Entry converts ev into an audit_logs row. A zero UserID means the caller
// could not be identified, e.g. a login for an unknown account.
func (ev AuditEvent) Entry() *model.AuditEntry {
	e := &model.AuditEntry{
		Action:       ev.Action,
		ResourceType: "user",
		IPAddress:    ev.ClientIP,
		CreatedAt:    ev.At,
	}
	if ev.UserID != 0 {
		id := ev.UserID
		e.UserID = &id
		e.ResourceID = &id
	}
	var parts []string
	if ev.Login != "" {
		parts = append(parts, "login="+ev.Login)
	}
	if ev.Reason != "" {
		parts = append(parts, "reason="+ev.Reason)
	}
	e.Detail = strings.Join(parts, " ")
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	return e
}
