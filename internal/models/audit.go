// internal/models/audit.go
package models

import "time"

// AuditLogEntry is immutable once written.
type AuditLogEntry struct {
	ID              string                 `json:"id"`
	ActionType      string                 `json:"actionType"`
	PerformedBy     string                 `json:"performedBy"`
	PerformedByRole string                 `json:"performedByRole"`
	TargetID        string                 `json:"targetId"`
	TargetType      string                 `json:"targetType"`
	Timestamp       time.Time              `json:"timestamp"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
}

// AuditFilter narrows audit queries; Limit <= 0 means no limit.
type AuditFilter struct {
	ActionType string
	TargetID   string
	ActorID    string
	Limit      int
}

func (f AuditFilter) Matches(e *AuditLogEntry) bool {
	if f.ActionType != "" && e.ActionType != f.ActionType {
		return false
	}
	if f.TargetID != "" && e.TargetID != f.TargetID {
		return false
	}
	if f.ActorID != "" && e.PerformedBy != f.ActorID {
		return false
	}
	return true
}
