package audit

import (
	"context"
	"time"
)

// Action identifies what kind of governance event an entry records.
type Action string

const (
	// Override applications.
	ActionSuppress  Action = "suppress"
	ActionDowngrade Action = "downgrade"
	ActionUpgrade   Action = "upgrade"
	ActionModify    Action = "modify"

	// Emergency suppression lifecycle.
	ActionEmergencySuppress Action = "emergency_suppress"
	ActionEmergencyRestore  Action = "emergency_restore"

	// Rollout phase transitions.
	ActionRolloutAdvance  Action = "rollout_advance"
	ActionRolloutRollback Action = "rollout_rollback"
)

// Entry is one append-only audit record. Entries are created automatically
// whenever an override is applied, a rule is emergency-suppressed or
// restored, or the rollout phase changes. They are never mutated or
// deleted.
type Entry struct {
	ID           string    `json:"id"` // UUID v4
	Timestamp    time.Time `json:"timestamp"`
	TenantID     string    `json:"tenant_id,omitempty"`
	RuleID       string    `json:"rule_id,omitempty"`
	Action       Action    `json:"action"`
	Reason       string    `json:"reason"`
	ApprovedBy   string    `json:"approved_by,omitempty"`
	Jurisdiction string    `json:"jurisdiction,omitempty"`
	Product      string    `json:"product,omitempty"`
	Route        string    `json:"route,omitempty"`
	Ticket       string    `json:"ticket,omitempty"`
}

// Query defines filter parameters for audit exports. Zero-valued fields
// match everything.
type Query struct {
	TenantID string     `json:"tenant_id,omitempty"`
	RuleID   string     `json:"rule_id,omitempty"`
	Action   Action     `json:"action,omitempty"`
	Start    *time.Time `json:"start,omitempty"` // inclusive
	End      *time.Time `json:"end,omitempty"`   // exclusive
	Limit    int        `json:"limit,omitempty"`
	Offset   int        `json:"offset,omitempty"`
}

// Matches reports whether an entry satisfies the filter (ignoring
// pagination).
func (q *Query) Matches(e *Entry) bool {
	if q == nil {
		return true
	}
	if q.TenantID != "" && e.TenantID != q.TenantID {
		return false
	}
	if q.RuleID != "" && e.RuleID != q.RuleID {
		return false
	}
	if q.Action != "" && e.Action != q.Action {
		return false
	}
	if q.Start != nil && e.Timestamp.Before(*q.Start) {
		return false
	}
	if q.End != nil && !e.Timestamp.Before(*q.End) {
		return false
	}
	return true
}

// Storage is the persistence interface for audit entries. Implementations
// are append-only: there is no update or single-entry delete. PruneBefore
// exists solely for the retention window, which defaults to the statutory
// compliance archive period.
type Storage interface {
	Append(ctx context.Context, entry *Entry) error
	Query(ctx context.Context, query *Query) ([]*Entry, error)
	Count(ctx context.Context) (int64, error)
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
	Close() error
}
