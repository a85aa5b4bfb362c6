package core

import (
	"context"
	"time"
)

// EscalationStatus is the lifecycle state of a PendingRequest.
type EscalationStatus string

const (
	EscalationPending  EscalationStatus = "pending"
	EscalationResolved EscalationStatus = "resolved"
)

// PendingRequest is an escalation record: a request the pipeline could not
// safely auto-resolve, held for a human decision. It transitions
// pending -> resolved exactly once; a resolved request is never re-resolved.
type PendingRequest struct {
	// RequestID is the unique escalation id.
	RequestID string `json:"request_id"`

	// AgentID, Action and Resource identify the blocked request.
	AgentID  string `json:"agent_id"`
	Action   string `json:"action"`
	Resource string `json:"resource"`

	// Reason is the reason code that triggered the escalation
	// ("system_kill_switch_enabled" or "system_error").
	Reason string `json:"reason"`

	// Trace is the decision trace as it stood at the moment of escalation,
	// preserved as a structured ordered list across the escalation boundary.
	Trace []TraceEntry `json:"decision_trace"`

	// ActionRequired is always "human_intervention".
	ActionRequired string `json:"action_required"`

	// CreatedAt is when the escalation was recorded.
	CreatedAt time.Time `json:"created_at"`

	// Status is "pending" or "resolved".
	Status EscalationStatus `json:"status"`
}

// EscalationStore holds requests pending a human decision.
type EscalationStore interface {
	// CreateEscalation records a new pending request and returns its id.
	CreateEscalation(ctx context.Context, req PendingRequest) (string, error)

	// GetEscalation looks up a request by id. The second return value is
	// false when no such request exists.
	GetEscalation(ctx context.Context, requestID string) (PendingRequest, bool, error)

	// ListPending returns all unresolved requests, oldest first.
	ListPending(ctx context.Context) ([]PendingRequest, error)
}
