package pipeline

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/arbiterhq/arbiter/internal/core"
)

// Resolver closes out pending escalations with a human decision. A request
// resolves exactly once: the status flip is a conditional update in the
// recorder, so concurrent resolutions produce one winner and one fail-safe
// denial.
type Resolver struct {
	escalations core.EscalationStore
	recorder    core.DecisionRecorder
}

func NewResolver(escalations core.EscalationStore, recorder core.DecisionRecorder) *Resolver {
	return &Resolver{
		escalations: escalations,
		recorder:    recorder,
	}
}

// Approve resolves the escalation in the agent's favor.
func (r *Resolver) Approve(ctx context.Context, requestID, humanID string) *core.Decision {
	return r.resolve(ctx, requestID, humanID, "", true)
}

// Deny resolves the escalation against the agent. Notes are optional and
// recorded in the trace.
func (r *Resolver) Deny(ctx context.Context, requestID, humanID, notes string) *core.Decision {
	return r.resolve(ctx, requestID, humanID, notes, false)
}

// ListPending returns the escalations still awaiting a human decision.
func (r *Resolver) ListPending(ctx context.Context) ([]core.PendingRequest, error) {
	return r.escalations.ListPending(ctx)
}

func (r *Resolver) resolve(ctx context.Context, requestID, humanID, notes string, approve bool) *core.Decision {
	logger := log.Ctx(ctx)

	req, ok, err := r.escalations.GetEscalation(ctx, requestID)
	if err != nil {
		logger.Error().Err(err).Str("request_id", requestID).Msg("escalation lookup failed")
		return notPendingDecision(requestID)
	}
	if !ok || req.Status != core.EscalationPending {
		// an unknown or already-resolved id must never be treated as
		// an approval
		logger.Warn().Str("request_id", requestID).Msg("escalation not found or already resolved")
		return notPendingDecision(requestID)
	}

	var (
		result      core.DecisionResult
		traceResult core.TraceResult
		traceNotes  string
	)
	if approve {
		result = core.ResultApproved
		traceResult = core.TracePassed
		traceNotes = fmt.Sprintf("approved by human %s", humanID)
	} else {
		result = core.ResultDenied
		traceResult = core.TraceFailed
		traceNotes = fmt.Sprintf("denied by human %s", humanID)
		if notes != "" {
			traceNotes += fmt.Sprintf(" (%s)", notes)
		}
	}

	trace := append(append([]core.TraceEntry(nil), req.Trace...), core.TraceEntry{
		RuleChecked: core.RuleHumanDecision,
		RuleResult:  traceResult,
		Notes:       traceNotes,
	})

	err = r.recorder.ResolveEscalation(ctx, requestID, trace, core.LogEntry{
		AgentID:  req.AgentID,
		Action:   req.Action,
		Resource: req.Resource,
		Result:   string(result),
	})
	if err != nil {
		// includes losing the resolution race to a concurrent call
		logger.Warn().Err(err).Str("request_id", requestID).Msg("escalation resolution failed")
		return notPendingDecision(requestID)
	}

	logger.Info().
		Str("request_id", requestID).
		Str("human_id", humanID).
		Str("result", string(result)).
		Msg("escalation resolved")

	return &core.Decision{
		Result:  result,
		Reason:  core.ReasonHumanOverride,
		Message: fmt.Sprintf("Request %s %s by human %s", requestID, result, humanID),
		Trace:   trace,
	}
}

// notPendingDecision is the fail-safe outcome for any resolution that could
// not find a pending request to act on.
func notPendingDecision(requestID string) *core.Decision {
	return &core.Decision{
		Result:  core.ResultDenied,
		Reason:  core.ReasonSystemError,
		Message: "Escalation could not be resolved",
		Trace: []core.TraceEntry{{
			RuleChecked: core.RuleHumanDecision,
			RuleResult:  core.TraceFailed,
			Notes:       fmt.Sprintf("request_id %s not found or already resolved", requestID),
		}},
	}
}
