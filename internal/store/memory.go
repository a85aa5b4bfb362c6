package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/arbiterhq/arbiter/internal/core"
)

var (
	_ core.AgentDirectory    = (*MemoryStore)(nil)
	_ core.PermissionMatcher = (*MemoryStore)(nil)
	_ core.StateStore        = (*MemoryStore)(nil)
	_ core.AuditLog          = (*MemoryStore)(nil)
	_ core.EscalationStore   = (*MemoryStore)(nil)
	_ core.DecisionRecorder  = (*MemoryStore)(nil)
)

// MemoryStore is an in-memory implementation of every storage port,
// used by the pipeline and resolver tests.
type MemoryStore struct {
	mu          sync.Mutex
	agents      map[string]core.Agent
	permissions []core.Permission
	flags       map[string]core.SystemFlag
	logs        []core.LogEntry
	escalations map[string]core.PendingRequest
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		agents:      make(map[string]core.Agent),
		flags:       make(map[string]core.SystemFlag),
		escalations: make(map[string]core.PendingRequest),
	}
}

func (m *MemoryStore) GetAgent(_ context.Context, agentID string) (*core.Agent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	agent, ok := m.agents[agentID]
	if !ok {
		return nil, fmt.Errorf("agent %q: %w", agentID, core.ErrAgentNotFound)
	}
	return &agent, nil
}

// PutAgent inserts or replaces an agent.
func (m *MemoryStore) PutAgent(agent core.Agent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if agent.Status == "" {
		agent.Status = core.AgentActive
	}
	m.agents[agent.ID] = agent
}

func (m *MemoryStore) SetAgentStatus(_ context.Context, agentID string, status core.AgentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	agent, ok := m.agents[agentID]
	if !ok {
		return fmt.Errorf("agent %q: %w", agentID, core.ErrAgentNotFound)
	}
	agent.Status = status
	m.agents[agentID] = agent
	return nil
}

func (m *MemoryStore) HasPermission(_ context.Context, agentID, action, resource string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.permissions {
		if p.AgentID == agentID && p.Action == action && p.Resource == resource {
			return true, nil
		}
	}
	return false, nil
}

// AddPermission appends a rule.
func (m *MemoryStore) AddPermission(perm core.Permission) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if perm.ID == "" {
		perm.ID = uuid.NewString()
	}
	m.permissions = append(m.permissions, perm)
}

func (m *MemoryStore) GetFlag(_ context.Context, key string) (core.SystemFlag, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	flag, ok := m.flags[key]
	return flag, ok, nil
}

func (m *MemoryStore) SetFlag(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.flags[key] = core.SystemFlag{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	return nil
}

func (m *MemoryStore) Append(_ context.Context, entry core.LogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.logs = append(m.logs, normalizeLogEntry(entry))
	return nil
}

func (m *MemoryStore) Query(_ context.Context, filter core.LogFilter) ([]core.LogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var entries []core.LogEntry
	for _, e := range m.logs {
		if filter.AgentID != "" && e.AgentID != filter.AgentID {
			continue
		}
		if !filter.StartTime.IsZero() && e.Timestamp.Before(filter.StartTime) {
			continue
		}
		if !filter.EndTime.IsZero() && e.Timestamp.After(filter.EndTime) {
			continue
		}
		entries = append(entries, e)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
	if filter.Limit > 0 && len(entries) > filter.Limit {
		entries = entries[:filter.Limit]
	}
	return entries, nil
}

func (m *MemoryStore) CreateEscalation(_ context.Context, req core.PendingRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	req = normalizePendingRequest(req)
	m.escalations[req.RequestID] = req
	return req.RequestID, nil
}

func (m *MemoryStore) GetEscalation(_ context.Context, requestID string) (core.PendingRequest, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	req, ok := m.escalations[requestID]
	return req, ok, nil
}

func (m *MemoryStore) ListPending(_ context.Context) ([]core.PendingRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var reqs []core.PendingRequest
	for _, req := range m.escalations {
		if req.Status == core.EscalationPending {
			reqs = append(reqs, req)
		}
	}
	sort.Slice(reqs, func(i, j int) bool {
		return reqs[i].CreatedAt.Before(reqs[j].CreatedAt)
	})
	return reqs, nil
}

func (m *MemoryStore) RecordDecision(ctx context.Context, entry core.LogEntry, pending *core.PendingRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.logs = append(m.logs, normalizeLogEntry(entry))
	if pending != nil {
		req := normalizePendingRequest(*pending)
		m.escalations[req.RequestID] = req
	}
	return nil
}

func (m *MemoryStore) ResolveEscalation(_ context.Context, requestID string, trace []core.TraceEntry, entry core.LogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	req, ok := m.escalations[requestID]
	if !ok || req.Status != core.EscalationPending {
		return fmt.Errorf("escalation %q: %w", requestID, core.ErrEscalationNotPending)
	}
	req.Status = core.EscalationResolved
	req.Trace = trace
	m.escalations[requestID] = req
	m.logs = append(m.logs, normalizeLogEntry(entry))
	return nil
}
