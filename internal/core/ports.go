package core

import (
	"context"
	"errors"
)

// ErrAgentNotFound marks an unknown agent id. It is an input error and is
// surfaced to the caller, not folded into a policy denial.
var ErrAgentNotFound = errors.New("agent not found")

// ErrEscalationNotPending marks a resolve attempt against an absent or
// already-resolved escalation. The resolver converts it to a fail-safe
// denied decision, never to an approval.
var ErrEscalationNotPending = errors.New("escalation not found or already resolved")

// AgentDirectory is the read side of the external agent registry.
type AgentDirectory interface {
	// GetAgent returns the agent or ErrAgentNotFound.
	GetAgent(ctx context.Context, agentID string) (*Agent, error)
}

// PermissionMatcher answers whether an authorizing rule exists for the
// exact (agent, action, resource) triple. Pure existence check; the
// stored condition text is not evaluated here.
type PermissionMatcher interface {
	HasPermission(ctx context.Context, agentID, action, resource string) (bool, error)
}

// StateStore holds global named flags as key/value/timestamp rows.
type StateStore interface {
	// GetFlag returns the flag for key. The second return value is false
	// when no row exists; callers treat absence as "disabled".
	GetFlag(ctx context.Context, key string) (SystemFlag, bool, error)

	// SetFlag upserts the flag: create if absent, else update value
	// and timestamp.
	SetFlag(ctx context.Context, key, value string) error
}

// DecisionRecorder persists the terminal side effects of one decision in a
// single logical transaction, so a log row and a pending-request row for
// the same decision are never partially persisted.
type DecisionRecorder interface {
	// RecordDecision appends the audit entry and, when pending is non-nil,
	// the escalation record, atomically.
	RecordDecision(ctx context.Context, entry LogEntry, pending *PendingRequest) error

	// ResolveEscalation flips the request from pending to resolved,
	// replaces its stored trace, and appends the audit entry, all in one
	// transaction. The status flip is a conditional update: if the request
	// is absent or no longer pending, nothing is written and
	// ErrEscalationNotPending is returned.
	ResolveEscalation(ctx context.Context, requestID string, trace []TraceEntry, entry LogEntry) error
}

// WarningSink receives non-fatal faults from best-effort writes (audit or
// escalation rows that failed to persist). It replaces silent swallowing:
// the primary decision outcome is unchanged, but the failure is observable.
type WarningSink interface {
	Warn(ctx context.Context, event string, err error)
}
