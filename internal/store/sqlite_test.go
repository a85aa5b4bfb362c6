package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/arbiterhq/arbiter/internal/core"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(context.Background(), ":memory:", Options{BusyTimeoutMs: 5000})
	if err != nil {
		t.Fatalf("Open() unexpected error: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

func TestSQLiteStore_KillSwitchSeededDisabled(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	flag, ok, err := s.GetFlag(ctx, core.KillSwitchKey)
	if err != nil {
		t.Fatalf("GetFlag() unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("kill switch row missing after migration")
	}
	if flag.Enabled() {
		t.Error("kill switch seeded enabled, want disabled")
	}
}

func TestSQLiteStore_SetFlagUpsert(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	if err := s.SetFlag(ctx, core.KillSwitchKey, core.FlagEnabled); err != nil {
		t.Fatalf("SetFlag() unexpected error: %v", err)
	}
	flag, ok, err := s.GetFlag(ctx, core.KillSwitchKey)
	if err != nil || !ok {
		t.Fatalf("GetFlag() = ok=%v err=%v", ok, err)
	}
	if !flag.Enabled() {
		t.Error("flag not enabled after SetFlag")
	}

	if err := s.SetFlag(ctx, core.KillSwitchKey, core.FlagDisabled); err != nil {
		t.Fatalf("SetFlag() unexpected error: %v", err)
	}
	flag, _, _ = s.GetFlag(ctx, core.KillSwitchKey)
	if flag.Enabled() {
		t.Error("flag still enabled after disabling")
	}
}

func TestSQLiteStore_AgentsRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	created, err := s.CreateAgent(ctx, core.Agent{Name: "crawler", Owner: "ops"})
	if err != nil {
		t.Fatalf("CreateAgent() unexpected error: %v", err)
	}
	if created.ID == "" {
		t.Fatal("CreateAgent() did not assign an id")
	}
	if created.Status != core.AgentActive {
		t.Errorf("status = %q, want default active", created.Status)
	}

	got, err := s.GetAgent(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetAgent() unexpected error: %v", err)
	}
	if diff := cmp.Diff(created, got); diff != "" {
		t.Errorf("agent mismatch (-want +got):\n%s", diff)
	}

	if err := s.SetAgentStatus(ctx, created.ID, core.AgentDisabled); err != nil {
		t.Fatalf("SetAgentStatus() unexpected error: %v", err)
	}
	got, _ = s.GetAgent(ctx, created.ID)
	if got.Status != core.AgentDisabled {
		t.Errorf("status = %q, want disabled", got.Status)
	}

	_, err = s.GetAgent(ctx, "missing")
	if !errors.Is(err, core.ErrAgentNotFound) {
		t.Errorf("GetAgent(missing) error = %v, want ErrAgentNotFound", err)
	}
}

func TestSQLiteStore_PermissionMatching(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	agent, err := s.CreateAgent(ctx, core.Agent{Name: "a", Owner: "o"})
	if err != nil {
		t.Fatalf("CreateAgent() unexpected error: %v", err)
	}
	if _, err := s.CreatePermission(ctx, core.Permission{
		AgentID: agent.ID, Action: "read", Resource: "database",
	}); err != nil {
		t.Fatalf("CreatePermission() unexpected error: %v", err)
	}

	tests := []struct {
		name     string
		action   string
		resource string
		want     bool
	}{
		{name: "Exact Match", action: "read", resource: "database", want: true},
		{name: "Wrong Action", action: "write", resource: "database"},
		{name: "Wrong Resource", action: "read", resource: "api"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.HasPermission(ctx, agent.ID, tt.action, tt.resource)
			if err != nil {
				t.Fatalf("HasPermission() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("HasPermission(%s, %s) = %v, want %v", tt.action, tt.resource, got, tt.want)
			}
		})
	}
}

func TestSQLiteStore_PermissionConditionMustCompile(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	agent, _ := s.CreateAgent(ctx, core.Agent{Name: "a", Owner: "o"})

	if _, err := s.CreatePermission(ctx, core.Permission{
		AgentID: agent.ID, Action: "read", Resource: "database",
		Condition: "now.Hour() < 18",
	}); err != nil {
		t.Fatalf("CreatePermission() rejected a valid condition: %v", err)
	}

	if _, err := s.CreatePermission(ctx, core.Permission{
		AgentID: agent.ID, Action: "write", Resource: "database",
		Condition: "time <",
	}); err == nil {
		t.Fatal("CreatePermission() accepted a condition that does not compile")
	}
}

func TestSQLiteStore_AuditQueryOrderAndFilters(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, agentID := range []string{"a1", "a2", "a1"} {
		err := s.Append(ctx, core.LogEntry{
			AgentID:   agentID,
			Action:    "read",
			Resource:  "db",
			Result:    "approved",
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("Append() unexpected error: %v", err)
		}
	}

	all, err := s.Query(ctx, core.LogFilter{})
	if err != nil {
		t.Fatalf("Query() unexpected error: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("rows = %d, want 3", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].Timestamp.After(all[i-1].Timestamp) {
			t.Fatal("rows not ordered by timestamp descending")
		}
	}

	byAgent, _ := s.Query(ctx, core.LogFilter{AgentID: "a1"})
	if len(byAgent) != 2 {
		t.Errorf("agent-filtered rows = %d, want 2", len(byAgent))
	}

	windowed, _ := s.Query(ctx, core.LogFilter{
		StartTime: base.Add(30 * time.Second),
		EndTime:   base.Add(90 * time.Second),
	})
	if len(windowed) != 1 {
		t.Errorf("time-filtered rows = %d, want 1", len(windowed))
	}
}

func TestSQLiteStore_RecordDecisionAtomic(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	err := s.RecordDecision(ctx, core.LogEntry{
		AgentID: "a1", Action: "write", Resource: "db", Result: "denied",
	}, &core.PendingRequest{
		AgentID: "a1", Action: "write", Resource: "db",
		Reason: core.ReasonKillSwitchEnabled,
		Trace: []core.TraceEntry{
			{RuleChecked: "kill_switch", RuleResult: "failed", Notes: "kill switch enabled - all requests blocked"},
		},
	})
	if err != nil {
		t.Fatalf("RecordDecision() unexpected error: %v", err)
	}

	logs, _ := s.Query(ctx, core.LogFilter{})
	if len(logs) != 1 {
		t.Errorf("audit rows = %d, want 1", len(logs))
	}

	pending, _ := s.ListPending(ctx)
	if len(pending) != 1 {
		t.Fatalf("pending rows = %d, want 1", len(pending))
	}
	// the trace survives the escalation boundary structurally intact
	want := []core.TraceEntry{
		{RuleChecked: "kill_switch", RuleResult: "failed", Notes: "kill switch enabled - all requests blocked"},
	}
	if diff := cmp.Diff(want, pending[0].Trace); diff != "" {
		t.Errorf("stored trace mismatch (-want +got):\n%s", diff)
	}
}

func TestSQLiteStore_ResolveEscalationOnce(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	id, err := s.CreateEscalation(ctx, core.PendingRequest{
		AgentID: "a1", Action: "write", Resource: "db",
		Reason: core.ReasonKillSwitchEnabled,
	})
	if err != nil {
		t.Fatalf("CreateEscalation() unexpected error: %v", err)
	}

	entry := core.LogEntry{AgentID: "a1", Action: "write", Resource: "db", Result: "approved"}
	trace := []core.TraceEntry{{RuleChecked: "human_decision", RuleResult: "passed", Notes: "approved by human alice"}}

	if err := s.ResolveEscalation(ctx, id, trace, entry); err != nil {
		t.Fatalf("ResolveEscalation() unexpected error: %v", err)
	}

	err = s.ResolveEscalation(ctx, id, trace, entry)
	if !errors.Is(err, core.ErrEscalationNotPending) {
		t.Fatalf("second resolve error = %v, want ErrEscalationNotPending", err)
	}

	// the losing attempt wrote nothing
	logs, _ := s.Query(ctx, core.LogFilter{})
	if len(logs) != 1 {
		t.Errorf("audit rows = %d, want 1", len(logs))
	}
}

func TestSQLiteStore_ConcurrentResolution(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	id, err := s.CreateEscalation(ctx, core.PendingRequest{
		AgentID: "a1", Action: "write", Resource: "db",
		Reason: core.ReasonSystemError,
	})
	if err != nil {
		t.Fatalf("CreateEscalation() unexpected error: %v", err)
	}

	const attempts = 8
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		wins   int
		losses int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.ResolveEscalation(ctx, id,
				[]core.TraceEntry{{RuleChecked: "human_decision", RuleResult: "passed", Notes: "approved by human alice"}},
				core.LogEntry{AgentID: "a1", Action: "write", Resource: "db", Result: "approved"},
			)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins++
			} else if errors.Is(err, core.ErrEscalationNotPending) {
				losses++
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("winning resolutions = %d, want exactly 1", wins)
	}
	if losses != attempts-1 {
		t.Errorf("already-resolved outcomes = %d, want %d", losses, attempts-1)
	}
}
