package core

import "time"

// AgentStatus is the lifecycle state of an agent.
type AgentStatus string

const (
	AgentActive   AgentStatus = "active"
	AgentDisabled AgentStatus = "disabled"
)

func (s AgentStatus) IsValid() bool {
	switch s {
	case AgentActive, AgentDisabled:
		return true
	default:
		return false
	}
}

// Agent is an autonomous software agent registered with the gate.
// The pipeline only reads Status; Owner is compared during kill operations.
type Agent struct {
	// ID is the unique, opaque identifier of the agent.
	ID string `json:"id"`

	// Name is the human-readable display name.
	Name string `json:"name"`

	// Owner identifies who controls this agent. Only the owner may
	// enable or disable it through the kill endpoint.
	Owner string `json:"owner"`

	// Status is either "active" or "disabled".
	Status AgentStatus `json:"status"`

	// CreatedAt is when the agent was registered.
	CreatedAt time.Time `json:"created_at"`
}

// Permission is a standing authorization rule. The existence of a matching
// (agent, action, resource) triple is sufficient to authorize.
type Permission struct {
	// ID is the unique identifier of the rule.
	ID string `json:"id"`

	// AgentID is the agent this rule applies to.
	AgentID string `json:"agent_id"`

	// Action is the permitted action (e.g. "read", "write").
	Action string `json:"action"`

	// Resource is the permitted target (e.g. "database", "api").
	Resource string `json:"resource"`

	// Condition is optional condition text (e.g. a time-of-day restriction).
	// It must compile as an expression at write time but is NOT evaluated
	// during authorization; no evaluator is wired into the pipeline.
	Condition string `json:"condition,omitempty"`
}

// KillSwitchKey is the fixed SystemFlag key of the global kill switch.
const KillSwitchKey = "system_kill_switch"

// FlagEnabled and FlagDisabled are the two values a SystemFlag may hold.
const (
	FlagEnabled  = "enabled"
	FlagDisabled = "disabled"
)

// SystemFlag is a global named flag, one row per key.
// An absent row is defined to mean "disabled".
type SystemFlag struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Enabled reports whether the flag is explicitly set to "enabled".
func (f SystemFlag) Enabled() bool {
	return f.Value == FlagEnabled
}
