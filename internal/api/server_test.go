package api_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/arbiterhq/arbiter/internal/api"
	"github.com/arbiterhq/arbiter/internal/config"
	"github.com/arbiterhq/arbiter/internal/core"
	"github.com/arbiterhq/arbiter/internal/pipeline"
	"github.com/arbiterhq/arbiter/internal/store"
	"github.com/arbiterhq/arbiter/pkg/client"
)

const (
	testAPIKey     = "test-api-key"
	testSigningKey = "test-signing-key"
)

func newTestServer(t *testing.T) (*httptest.Server, *store.SQLiteStore) {
	t.Helper()

	st, err := store.Open(context.Background(), ":memory:", store.Options{BusyTimeoutMs: 5000})
	if err != nil {
		t.Fatalf("Open() unexpected error: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})

	auth := config.AuthConfig{
		APIKeyHashes:    []string{config.HashAPIKey(testAPIKey)},
		AdminSigningKey: testSigningKey,
	}

	pipe := pipeline.NewPipeline(st, st, st, st, nil)
	resolver := pipeline.NewResolver(st, st)
	srv := httptest.NewServer(api.NewServer(pipe, resolver, st, auth).Routes())
	t.Cleanup(srv.Close)

	return srv, st
}

func seedAgent(t *testing.T, st *store.SQLiteStore, id string, status core.AgentStatus) {
	t.Helper()
	_, err := st.CreateAgent(context.Background(), core.Agent{
		ID:     id,
		Name:   "Test Agent",
		Owner:  "alice",
		Status: status,
	})
	if err != nil {
		t.Fatalf("CreateAgent() unexpected error: %v", err)
	}
}

func seedPermission(t *testing.T, st *store.SQLiteStore, agentID, action, resource string) {
	t.Helper()
	_, err := st.CreatePermission(context.Background(), core.Permission{
		AgentID:  agentID,
		Action:   action,
		Resource: resource,
	})
	if err != nil {
		t.Fatalf("CreatePermission() unexpected error: %v", err)
	}
}

func mintAdminToken(t *testing.T) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "test-admin",
		"roles": []string{"admin"},
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSigningKey))
	if err != nil {
		t.Fatalf("SignedString() unexpected error: %v", err)
	}
	return signed
}

func TestServer_AuthorizeApproved(t *testing.T) {
	srv, st := newTestServer(t)
	seedAgent(t, st, "agent-1", core.AgentActive)
	seedPermission(t, st, "agent-1", "read", "database")

	cli := client.New(srv.URL, client.WithAPIKey(testAPIKey))

	decision, correlation, err := cli.Authorize(context.Background(), "agent-1", "read", "database")
	if err != nil {
		t.Fatalf("Authorize() unexpected error: %v", err)
	}
	if !decision.Approved() {
		t.Fatalf("Authorize() = %s, want approved", decision.Result)
	}
	if decision.Reason != core.ReasonAllChecksPassed {
		t.Errorf("reason = %q, want %q", decision.Reason, core.ReasonAllChecksPassed)
	}
	if len(decision.Trace) != 3 {
		t.Errorf("trace has %d entries, want 3", len(decision.Trace))
	}
	if correlation == "" {
		t.Error("missing correlation id on response")
	}
}

func TestServer_EscalationLifecycle(t *testing.T) {
	srv, st := newTestServer(t)
	seedAgent(t, st, "agent-1", core.AgentActive)

	cli := client.New(srv.URL, client.WithAPIKey(testAPIKey))
	ctx := context.Background()

	// a kill-switch denial escalates for human review
	if _, err := cli.SetKillSwitch(ctx, true); err != nil {
		t.Fatalf("SetKillSwitch() unexpected error: %v", err)
	}
	decision, _, err := cli.Authorize(ctx, "agent-1", "delete", "production")
	if err != nil {
		t.Fatalf("Authorize() unexpected error: %v", err)
	}
	if decision.Approved() {
		t.Fatal("Authorize() approved while kill switch enabled")
	}
	if decision.ActionRequired != core.ActionHumanIntervention {
		t.Fatalf("action_required = %q, want %q", decision.ActionRequired, core.ActionHumanIntervention)
	}
	if _, err := cli.SetKillSwitch(ctx, false); err != nil {
		t.Fatalf("SetKillSwitch() unexpected error: %v", err)
	}

	pending, err := cli.PendingApprovals(ctx)
	if err != nil {
		t.Fatalf("PendingApprovals() unexpected error: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("got %d pending escalations, want 1", len(pending))
	}

	resolved, _, err := cli.Approve(ctx, pending[0].RequestID, "alice")
	if err != nil {
		t.Fatalf("Approve() unexpected error: %v", err)
	}
	if !resolved.Approved() {
		t.Fatalf("Approve() decision = %s, want approved", resolved.Result)
	}
	if resolved.Reason != core.ReasonHumanOverride {
		t.Errorf("reason = %q, want %q", resolved.Reason, core.ReasonHumanOverride)
	}

	// a second resolution of the same escalation must not succeed
	again, _, err := cli.Deny(ctx, pending[0].RequestID, "bob", "too late")
	if err != nil {
		t.Fatalf("Deny() unexpected error: %v", err)
	}
	if again.Approved() || again.Reason != core.ReasonSystemError {
		t.Errorf("second resolution = %s/%s, want denied/%s", again.Result, again.Reason, core.ReasonSystemError)
	}

	pending, err = cli.PendingApprovals(ctx)
	if err != nil {
		t.Fatalf("PendingApprovals() unexpected error: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("got %d pending escalations after resolution, want 0", len(pending))
	}
}

func TestServer_KillSwitchBlocksRequests(t *testing.T) {
	srv, st := newTestServer(t)
	seedAgent(t, st, "agent-1", core.AgentActive)
	seedPermission(t, st, "agent-1", "read", "database")

	cli := client.New(srv.URL, client.WithAPIKey(testAPIKey))
	ctx := context.Background()

	if _, err := cli.SetKillSwitch(ctx, true); err != nil {
		t.Fatalf("SetKillSwitch() unexpected error: %v", err)
	}

	decision, _, err := cli.Authorize(ctx, "agent-1", "read", "database")
	if err != nil {
		t.Fatalf("Authorize() unexpected error: %v", err)
	}
	if decision.Approved() || decision.Reason != core.ReasonKillSwitchEnabled {
		t.Fatalf("decision = %s/%s, want denied/%s", decision.Result, decision.Reason, core.ReasonKillSwitchEnabled)
	}

	if _, err := cli.SetKillSwitch(ctx, false); err != nil {
		t.Fatalf("SetKillSwitch() unexpected error: %v", err)
	}

	status, err := cli.GetKillSwitch(ctx)
	if err != nil {
		t.Fatalf("GetKillSwitch() unexpected error: %v", err)
	}
	if status.Status != core.FlagDisabled {
		t.Errorf("kill switch status = %q, want %q", status.Status, core.FlagDisabled)
	}
}

func TestServer_UnknownAgentIsNotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	cli := client.New(srv.URL, client.WithAPIKey(testAPIKey))

	_, _, err := cli.Authorize(context.Background(), "nope", "read", "database")
	var apiErr client.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Authorize() error = %v, want APIError", err)
	}
	if apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", apiErr.StatusCode, http.StatusNotFound)
	}
}

func TestServer_AgentRoutesRequireAPIKey(t *testing.T) {
	srv, st := newTestServer(t)
	seedAgent(t, st, "agent-1", core.AgentActive)

	cli := client.New(srv.URL) // no key

	_, _, err := cli.Authorize(context.Background(), "agent-1", "read", "database")
	var apiErr client.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Authorize() error = %v, want APIError", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", apiErr.StatusCode, http.StatusUnauthorized)
	}
}

func TestServer_AgentKillOwnerCheck(t *testing.T) {
	srv, st := newTestServer(t)
	seedAgent(t, st, "agent-1", core.AgentActive)

	cli := client.New(srv.URL, client.WithAPIKey(testAPIKey))
	ctx := context.Background()

	_, err := cli.KillAgent(ctx, "agent-1", "mallory", false)
	var apiErr client.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("KillAgent() error = %v, want APIError", err)
	}
	if apiErr.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want %d", apiErr.StatusCode, http.StatusForbidden)
	}

	if _, err := cli.KillAgent(ctx, "agent-1", "alice", false); err != nil {
		t.Fatalf("KillAgent() unexpected error: %v", err)
	}

	agent, err := st.GetAgent(ctx, "agent-1")
	if err != nil {
		t.Fatalf("GetAgent() unexpected error: %v", err)
	}
	if agent.Status != core.AgentDisabled {
		t.Errorf("agent status = %q, want %q", agent.Status, core.AgentDisabled)
	}
}

func TestServer_AdminCRUD(t *testing.T) {
	srv, _ := newTestServer(t)

	cli := client.New(srv.URL,
		client.WithAPIKey(testAPIKey),
		client.WithAdminToken(mintAdminToken(t)))
	ctx := context.Background()

	agent, err := cli.CreateAgent(ctx, api.AgentPayload{Name: "Deploy Bot", Owner: "alice"})
	if err != nil {
		t.Fatalf("CreateAgent() unexpected error: %v", err)
	}
	if agent.ID == "" || agent.Status != core.AgentActive {
		t.Fatalf("CreateAgent() = %+v, want generated id and active status", agent)
	}

	perm, err := cli.CreatePermission(ctx, api.PermissionPayload{
		AgentID:  agent.ID,
		Action:   "restart",
		Resource: "cluster/staging",
	})
	if err != nil {
		t.Fatalf("CreatePermission() unexpected error: %v", err)
	}

	perms, err := cli.ListPermissions(ctx, agent.ID)
	if err != nil {
		t.Fatalf("ListPermissions() unexpected error: %v", err)
	}
	if len(perms) != 1 || perms[0].ID != perm.ID {
		t.Fatalf("ListPermissions() = %+v, want the granted rule", perms)
	}

	if err := cli.DeletePermission(ctx, perm.ID); err != nil {
		t.Fatalf("DeletePermission() unexpected error: %v", err)
	}
	if err := cli.DeleteAgent(ctx, agent.ID); err != nil {
		t.Fatalf("DeleteAgent() unexpected error: %v", err)
	}

	agents, err := cli.ListAgents(ctx)
	if err != nil {
		t.Fatalf("ListAgents() unexpected error: %v", err)
	}
	if len(agents) != 0 {
		t.Errorf("got %d agents after delete, want 0", len(agents))
	}
}

func TestServer_AdminRoutesRequireToken(t *testing.T) {
	srv, _ := newTestServer(t)

	cli := client.New(srv.URL, client.WithAPIKey(testAPIKey))

	_, err := cli.ListAgents(context.Background())
	var apiErr client.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("ListAgents() error = %v, want APIError", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", apiErr.StatusCode, http.StatusUnauthorized)
	}
}

func TestServer_LogsRejectBadTimestamps(t *testing.T) {
	srv, _ := newTestServer(t)

	req, err := http.NewRequest("GET", srv.URL+api.LogsRoute+"?start_time=yesterday", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("X-API-Key", testAPIKey)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Do() unexpected error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

func TestServer_AuthorizeWritesAuditLog(t *testing.T) {
	srv, st := newTestServer(t)
	seedAgent(t, st, "agent-1", core.AgentActive)
	seedPermission(t, st, "agent-1", "read", "database")

	cli := client.New(srv.URL, client.WithAPIKey(testAPIKey))
	ctx := context.Background()

	if _, _, err := cli.Authorize(ctx, "agent-1", "read", "database"); err != nil {
		t.Fatalf("Authorize() unexpected error: %v", err)
	}

	entries, err := cli.QueryLogs(ctx, client.QueryLogsOpts{AgentID: "agent-1"})
	if err != nil {
		t.Fatalf("QueryLogs() unexpected error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d audit entries, want 1", len(entries))
	}
	if entries[0].Result != string(core.ResultApproved) {
		t.Errorf("audit result = %q, want %q", entries[0].Result, core.ResultApproved)
	}
}
