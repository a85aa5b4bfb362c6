package pipeline

import (
	"context"
	"testing"

	"github.com/arbiterhq/arbiter/internal/core"
	"github.com/arbiterhq/arbiter/internal/store"
)

// escalate runs a kill-switch denial end to end and returns the created
// escalation id.
func escalate(t *testing.T, p *Pipeline, mem *store.MemoryStore) string {
	t.Helper()
	ctx := context.Background()

	seedAgent(mem, "a1", core.AgentActive)
	if err := mem.SetFlag(ctx, core.KillSwitchKey, core.FlagEnabled); err != nil {
		t.Fatalf("SetFlag() unexpected error: %v", err)
	}
	if _, err := p.Authorize(ctx, "a1", "write", "database"); err != nil {
		t.Fatalf("Authorize() unexpected error: %v", err)
	}

	pending, err := mem.ListPending(ctx)
	if err != nil {
		t.Fatalf("ListPending() unexpected error: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending escalations = %d, want 1", len(pending))
	}
	return pending[0].RequestID
}

func TestResolver_Approve(t *testing.T) {
	ctx := context.Background()
	p, mem := newFixture(t)
	r := NewResolver(mem, mem)

	id := escalate(t, p, mem)

	decision := r.Approve(ctx, id, "alice")
	if decision.Result != core.ResultApproved {
		t.Errorf("result = %q, want approved", decision.Result)
	}
	if decision.Reason != core.ReasonHumanOverride {
		t.Errorf("reason = %q, want human_override", decision.Reason)
	}
	if decision.ActionRequired != "" {
		t.Errorf("action_required = %q, want empty after human decision", decision.ActionRequired)
	}

	last := decision.Trace[len(decision.Trace)-1]
	if last.RuleChecked != core.RuleHumanDecision {
		t.Errorf("trailing rule = %q, want human_decision", last.RuleChecked)
	}
	if last.RuleResult != core.TracePassed {
		t.Errorf("trailing result = %q, want passed", last.RuleResult)
	}
	if last.Notes != "approved by human alice" {
		t.Errorf("trailing notes = %q, want %q", last.Notes, "approved by human alice")
	}

	// the stored request flipped to resolved and kept the extended trace
	req, ok, err := mem.GetEscalation(ctx, id)
	if err != nil || !ok {
		t.Fatalf("GetEscalation() = ok=%v err=%v", ok, err)
	}
	if req.Status != core.EscalationResolved {
		t.Errorf("status = %q, want resolved", req.Status)
	}
	if got := req.Trace[len(req.Trace)-1].RuleChecked; got != core.RuleHumanDecision {
		t.Errorf("stored trailing rule = %q, want human_decision", got)
	}

	// the override emitted an audit row
	logs, _ := mem.Query(ctx, core.LogFilter{})
	var approved int
	for _, l := range logs {
		if l.Result == string(core.ResultApproved) {
			approved++
		}
	}
	if approved != 1 {
		t.Errorf("approved audit rows = %d, want 1", approved)
	}
}

func TestResolver_DenyWithNotes(t *testing.T) {
	ctx := context.Background()
	p, mem := newFixture(t)
	r := NewResolver(mem, mem)

	id := escalate(t, p, mem)

	decision := r.Deny(ctx, id, "bob", "not authorized")
	if decision.Result != core.ResultDenied {
		t.Errorf("result = %q, want denied", decision.Result)
	}
	if decision.Reason != core.ReasonHumanOverride {
		t.Errorf("reason = %q, want human_override", decision.Reason)
	}

	last := decision.Trace[len(decision.Trace)-1]
	if last.RuleResult != core.TraceFailed {
		t.Errorf("trailing result = %q, want failed", last.RuleResult)
	}
	if last.Notes != "denied by human bob (not authorized)" {
		t.Errorf("trailing notes = %q", last.Notes)
	}
}

func TestResolver_SecondResolutionRejected(t *testing.T) {
	ctx := context.Background()
	p, mem := newFixture(t)
	r := NewResolver(mem, mem)

	id := escalate(t, p, mem)

	first := r.Approve(ctx, id, "alice")
	if first.Result != core.ResultApproved {
		t.Fatalf("first approve result = %q, want approved", first.Result)
	}

	// a second resolve on the same id is the fail-safe branch, whether it
	// approves or denies
	second := r.Approve(ctx, id, "bob")
	if second.Result != core.ResultDenied || second.Reason != core.ReasonSystemError {
		t.Errorf("second approve = %q/%q, want denied/system_error", second.Result, second.Reason)
	}
	third := r.Deny(ctx, id, "carol", "")
	if third.Result != core.ResultDenied || third.Reason != core.ReasonSystemError {
		t.Errorf("deny after resolve = %q/%q, want denied/system_error", third.Result, third.Reason)
	}

	// state did not mutate further: still resolved with alice's entry last
	req, ok, _ := mem.GetEscalation(ctx, id)
	if !ok {
		t.Fatal("escalation vanished")
	}
	if got := req.Trace[len(req.Trace)-1].Notes; got != "approved by human alice" {
		t.Errorf("stored trailing notes = %q, want alice's approval", got)
	}
}

func TestResolver_UnknownRequest(t *testing.T) {
	_, mem := newFixture(t)
	r := NewResolver(mem, mem)

	decision := r.Approve(context.Background(), "nope", "alice")
	if decision.Result != core.ResultDenied || decision.Reason != core.ReasonSystemError {
		t.Errorf("decision = %q/%q, want denied/system_error", decision.Result, decision.Reason)
	}
}
