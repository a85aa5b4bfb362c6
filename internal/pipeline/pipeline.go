// Package pipeline implements the authorization decision pipeline and the
// escalation resolver. Every agent request passes through the same ordered
// gates; any internal fault biases toward denial, never approval.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/arbiterhq/arbiter/internal/core"
)

// Pipeline arbitrates whether an agent may perform an action on a resource.
// It owns the gate ordering and the fail-safe policy; storage is reached
// only through the core ports.
type Pipeline struct {
	flags    core.StateStore
	agents   core.AgentDirectory
	matcher  core.PermissionMatcher
	recorder core.DecisionRecorder
	warnings core.WarningSink
}

// NewPipeline wires the pipeline. A nil warnings sink falls back to a
// zerolog-backed one so best-effort write failures are always observable.
func NewPipeline(
	flags core.StateStore,
	agents core.AgentDirectory,
	matcher core.PermissionMatcher,
	recorder core.DecisionRecorder,
	warnings core.WarningSink,
) *Pipeline {
	if warnings == nil {
		warnings = LogWarningSink{}
	}
	return &Pipeline{
		flags:    flags,
		agents:   agents,
		matcher:  matcher,
		recorder: recorder,
		warnings: warnings,
	}
}

// Authorize runs the decision pipeline for one request. The gates run in
// strict order and can only fail the request, never short-circuit to an
// early approval:
//
//  1. kill switch: the global emergency stop, checked before everything
//  2. agent status: unknown agents surface core.ErrAgentNotFound
//  3. permission rule: exact (agent, action, resource) existence check
//
// Policy denials and system faults both come back as a Decision value; the
// only error return is the unknown-agent input error.
func (p *Pipeline) Authorize(ctx context.Context, agentID, action, resource string) (decision *core.Decision, err error) {
	logger := log.Ctx(ctx)
	trace := make([]core.TraceEntry, 0, 3)

	// the caller must always receive a decision, even if a gate panics
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("panic during authorization")
			decision = p.systemFailure(ctx, agentID, action, resource, trace, fmt.Errorf("panic: %v", r))
			err = nil
		}
	}()

	// gate 1: kill switch, before any agent- or permission-level logic
	flag, ok, ferr := p.flags.GetFlag(ctx, core.KillSwitchKey)
	if ferr != nil {
		return p.systemFailure(ctx, agentID, action, resource, trace, ferr), nil
	}
	if ok && flag.Enabled() {
		trace = append(trace, core.TraceEntry{
			RuleChecked: core.RuleKillSwitch,
			RuleResult:  core.TraceFailed,
			Notes:       "kill switch enabled - all requests blocked",
		})
		logger.Warn().Str("agent_id", agentID).Msg("request blocked by kill switch")

		p.record(ctx, core.LogEntry{
			AgentID:  agentID,
			Action:   action,
			Resource: resource,
			Result:   string(core.ResultDenied),
		}, &core.PendingRequest{
			AgentID:        agentID,
			Action:         action,
			Resource:       resource,
			Reason:         core.ReasonKillSwitchEnabled,
			Trace:          trace,
			ActionRequired: core.ActionHumanIntervention,
		})

		return &core.Decision{
			Result:         core.ResultDenied,
			Reason:         core.ReasonKillSwitchEnabled,
			Message:        "System-wide kill switch is enabled. All agent actions are blocked.",
			Trace:          trace,
			ActionRequired: core.ActionHumanIntervention,
		}, nil
	}
	// an absent flag means disabled
	trace = append(trace, core.TraceEntry{
		RuleChecked: core.RuleKillSwitch,
		RuleResult:  core.TracePassed,
		Notes:       "kill switch off",
	})

	// gate 2: agent existence and status
	agent, aerr := p.agents.GetAgent(ctx, agentID)
	if aerr != nil {
		if errors.Is(aerr, core.ErrAgentNotFound) {
			// input error, surfaced instead of folded into a denial
			logger.Warn().Str("agent_id", agentID).Msg("agent not found")
			return nil, aerr
		}
		return p.systemFailure(ctx, agentID, action, resource, trace, aerr), nil
	}
	if agent.Status == core.AgentDisabled {
		trace = append(trace, core.TraceEntry{
			RuleChecked: core.RuleAgentStatus,
			RuleResult:  core.TraceFailed,
			Notes:       fmt.Sprintf("agent %s is disabled", agentID),
		})
		// routine policy denial, no escalation record
		p.record(ctx, core.LogEntry{
			AgentID:  agentID,
			Action:   action,
			Resource: resource,
			Result:   string(core.ResultDenied),
		}, nil)

		return &core.Decision{
			Result:  core.ResultDenied,
			Reason:  core.ReasonAgentDisabled,
			Message: fmt.Sprintf("Agent %s is disabled", agentID),
			Trace:   trace,
		}, nil
	}
	trace = append(trace, core.TraceEntry{
		RuleChecked: core.RuleAgentStatus,
		RuleResult:  core.TracePassed,
		Notes:       "agent active",
	})

	// gate 3: permission rule
	hasPermission, perr := p.matcher.HasPermission(ctx, agentID, action, resource)
	if perr != nil {
		return p.systemFailure(ctx, agentID, action, resource, trace, perr), nil
	}
	if !hasPermission {
		trace = append(trace, core.TraceEntry{
			RuleChecked: core.RulePermission,
			RuleResult:  core.TraceFailed,
			Notes:       fmt.Sprintf("no permission for %s on %s", action, resource),
		})
		p.record(ctx, core.LogEntry{
			AgentID:  agentID,
			Action:   action,
			Resource: resource,
			Result:   string(core.ResultDenied),
		}, nil)

		return &core.Decision{
			Result:  core.ResultDenied,
			Reason:  core.ReasonPermissionFailed,
			Message: fmt.Sprintf("No permission for %s on %s", action, resource),
			Trace:   trace,
		}, nil
	}

	trace = append(trace, core.TraceEntry{
		RuleChecked: core.RulePermission,
		RuleResult:  core.TracePassed,
		Notes:       fmt.Sprintf("permission granted for %s on %s", action, resource),
	})
	p.record(ctx, core.LogEntry{
		AgentID:  agentID,
		Action:   action,
		Resource: resource,
		Result:   string(core.ResultApproved),
	}, nil)

	logger.Info().
		Str("agent_id", agentID).
		Str("action", action).
		Str("resource", resource).
		Msg("request approved")

	return &core.Decision{
		Result:  core.ResultApproved,
		Reason:  core.ReasonAllChecksPassed,
		Message: fmt.Sprintf("Permission granted for %s on %s", action, resource),
		Trace:   trace,
	}, nil
}

// systemFailure converts an unexpected fault into the fail-safe denied
// decision. The audit row and the escalation record are still attempted;
// a secondary failure is reported through the warning sink and does not
// change the outcome the caller receives.
func (p *Pipeline) systemFailure(ctx context.Context, agentID, action, resource string, trace []core.TraceEntry, cause error) *core.Decision {
	log.Ctx(ctx).Error().Err(cause).
		Str("agent_id", agentID).
		Str("action", action).
		Str("resource", resource).
		Msg("system error during authorization, denying request")

	trace = append(trace, core.TraceEntry{
		RuleChecked: core.RuleSystemError,
		RuleResult:  core.TraceFailed,
		Notes:       fmt.Sprintf("system error occurred: %v", cause),
	})

	p.record(ctx, core.LogEntry{
		AgentID:  agentID,
		Action:   action,
		Resource: resource,
		Result:   string(core.ResultDenied),
	}, &core.PendingRequest{
		AgentID:        agentID,
		Action:         action,
		Resource:       resource,
		Reason:         core.ReasonSystemError,
		Trace:          trace,
		ActionRequired: core.ActionHumanIntervention,
	})

	return &core.Decision{
		Result:         core.ResultDenied,
		Reason:         core.ReasonSystemError,
		Message:        "System error occurred during request processing",
		Trace:          trace,
		ActionRequired: core.ActionHumanIntervention,
	}
}

// record persists the terminal side effects of one decision. Failures are
// non-fatal for the decision itself but never silent.
func (p *Pipeline) record(ctx context.Context, entry core.LogEntry, pending *core.PendingRequest) {
	if err := p.recorder.RecordDecision(ctx, entry, pending); err != nil {
		p.warnings.Warn(ctx, "decision.record_failed", err)
	}
}
