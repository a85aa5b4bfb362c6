package core

import (
	"context"
	"time"
)

// LogEntry is an immutable audit record, the system of record for
// "what happened". Rows are never updated or deleted once written.
type LogEntry struct {
	// ID is the unique log row id.
	ID string `json:"id"`

	// AgentID is the agent the decision was about.
	AgentID string `json:"agent_id"`

	// Action that was requested.
	Action string `json:"action"`

	// Resource that was targeted.
	Resource string `json:"resource"`

	// Result of the decision ("approved" or "denied"; kill operations
	// record "enabled"/"disabled").
	Result string `json:"result"`

	// Timestamp is when the decision completed.
	Timestamp time.Time `json:"timestamp"`
}

// LogFilter narrows an audit query. Zero values mean "no constraint".
type LogFilter struct {
	AgentID   string
	StartTime time.Time
	EndTime   time.Time
	Limit     int
}

// AuditLog appends and queries immutable decision records.
// Append must never abort an otherwise-completed decision; callers treat
// a failed append as best-effort and report it through a WarningSink.
type AuditLog interface {
	// Append writes a new log row with a fresh id and the given timestamp.
	Append(ctx context.Context, entry LogEntry) error

	// Query returns matching rows ordered by timestamp descending.
	Query(ctx context.Context, filter LogFilter) ([]LogEntry, error)
}
