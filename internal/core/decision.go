package core

// DecisionResult is the terminal outcome of an authorization call.
type DecisionResult string

const (
	ResultApproved DecisionResult = "approved"
	ResultDenied   DecisionResult = "denied"
)

// Machine-readable reason codes carried by every Decision.
const (
	ReasonAllChecksPassed   = "all_checks_passed"
	ReasonKillSwitchEnabled = "system_kill_switch_enabled"
	ReasonAgentDisabled     = "agent_disabled"
	ReasonPermissionFailed  = "permission_rule_failed"
	ReasonSystemError       = "system_error"
	ReasonHumanOverride     = "human_override"
)

// ActionHumanIntervention marks a decision whose denial produced (or tried
// to produce) an escalation record for human review.
const ActionHumanIntervention = "human_intervention"

// Names of the rules that appear in a decision trace, in pipeline order.
const (
	RuleKillSwitch    = "kill_switch"
	RuleAgentStatus   = "agent_status"
	RulePermission    = "permission_rule"
	RuleSystemError   = "system_error"
	RuleHumanDecision = "human_decision"
)

// TraceResult is the outcome of one rule check inside a trace.
type TraceResult string

const (
	TracePassed TraceResult = "passed"
	TraceFailed TraceResult = "failed"
)

// TraceEntry is one element of the ordered decision trace. It is scoped to
// a single authorization call and only persists as part of a PendingRequest.
type TraceEntry struct {
	RuleChecked string      `json:"rule_checked"`
	RuleResult  TraceResult `json:"rule_result"`
	Notes       string      `json:"notes"`
}

// Decision is the full, replayable outcome of one authorization or
// escalation-resolution call. Policy denials and system faults are both
// represented as Decision values, never as errors.
type Decision struct {
	// Result is "approved" or "denied".
	Result DecisionResult `json:"result"`

	// Reason is the machine-readable reason code.
	Reason string `json:"reason"`

	// Message is the human-readable explanation.
	Message string `json:"message"`

	// Trace is the ordered list of rule checks that led to the result.
	Trace []TraceEntry `json:"decision_trace"`

	// ActionRequired is set to "human_intervention" when an escalation
	// record was (attempted to be) created, empty otherwise.
	ActionRequired string `json:"action_required,omitempty"`
}

// Approved reports whether the decision permits the action.
func (d *Decision) Approved() bool {
	return d.Result == ResultApproved
}
