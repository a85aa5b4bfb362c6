package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/arbiterhq/arbiter/internal/api/presenter"
	"github.com/arbiterhq/arbiter/internal/core"
)

// AgentPayload creates or patches an agent. On update, empty fields are
// left untouched.
type AgentPayload struct {
	ID     string `json:"id,omitempty"`
	Name   string `json:"name"`
	Owner  string `json:"owner"`
	Status string `json:"status,omitempty"`
}

func (p *AgentPayload) toAgent() core.Agent {
	return core.Agent{
		ID:     strings.TrimSpace(p.ID),
		Name:   strings.TrimSpace(p.Name),
		Owner:  strings.TrimSpace(p.Owner),
		Status: core.AgentStatus(strings.TrimSpace(p.Status)),
	}
}

func (s *Server) handleCreateAgent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var payload AgentPayload
	if err := DecodePayload(r, &payload, false); err != nil {
		presenter.Error(w, r, "invalid request payload", http.StatusBadRequest)
		return
	}

	agent, err := s.store.CreateAgent(ctx, payload.toAgent())
	if err != nil {
		presenter.Error(w, r, err.Error(), http.StatusBadRequest)
		return
	}

	log.Ctx(ctx).Info().
		Str("agent_id", agent.ID).
		Str("owner", agent.Owner).
		Msg("agent registered")

	presenter.JSON(w, r, agent, http.StatusCreated)
}

func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	agents, err := s.store.ListAgents(ctx)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to list agents")
		presenter.Error(w, r, "internal error", http.StatusInternalServerError)
		return
	}
	if agents == nil {
		agents = []core.Agent{}
	}
	presenter.JSON(w, r, agents, http.StatusOK)
}

func (s *Server) handleGetAgent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	agentID := r.PathValue("id")

	agent, err := s.store.GetAgent(ctx, agentID)
	if err != nil {
		if errors.Is(err, core.ErrAgentNotFound) {
			presenter.Error(w, r, fmt.Sprintf("agent %s not found", agentID), http.StatusNotFound)
			return
		}
		log.Ctx(ctx).Error().Err(err).Msg("agent lookup failed")
		presenter.Error(w, r, "internal error", http.StatusInternalServerError)
		return
	}
	presenter.JSON(w, r, agent, http.StatusOK)
}

func (s *Server) handleUpdateAgent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	agentID := r.PathValue("id")

	var payload AgentPayload
	if err := DecodePayload(r, &payload, false); err != nil {
		presenter.Error(w, r, "invalid request payload", http.StatusBadRequest)
		return
	}

	agent, err := s.store.UpdateAgent(ctx, agentID, payload.toAgent())
	if err != nil {
		if errors.Is(err, core.ErrAgentNotFound) {
			presenter.Error(w, r, fmt.Sprintf("agent %s not found", agentID), http.StatusNotFound)
			return
		}
		presenter.Error(w, r, err.Error(), http.StatusBadRequest)
		return
	}
	presenter.JSON(w, r, agent, http.StatusOK)
}

func (s *Server) handleDeleteAgent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	agentID := r.PathValue("id")

	if err := s.store.DeleteAgent(ctx, agentID); err != nil {
		if errors.Is(err, core.ErrAgentNotFound) {
			presenter.Error(w, r, fmt.Sprintf("agent %s not found", agentID), http.StatusNotFound)
			return
		}
		log.Ctx(ctx).Error().Err(err).Msg("agent deletion failed")
		presenter.Error(w, r, "internal error", http.StatusInternalServerError)
		return
	}

	log.Ctx(ctx).Info().Str("agent_id", agentID).Msg("agent deleted")
	w.WriteHeader(http.StatusNoContent)
}

// PermissionPayload grants one (agent, action, resource) rule, optionally
// with a condition expression.
type PermissionPayload struct {
	AgentID   string `json:"agent_id"`
	Action    string `json:"action"`
	Resource  string `json:"resource"`
	Condition string `json:"condition,omitempty"`
}

func (s *Server) handleCreatePermission(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var payload PermissionPayload
	if err := DecodePayload(r, &payload, false); err != nil {
		presenter.Error(w, r, "invalid request payload", http.StatusBadRequest)
		return
	}

	perm, err := s.store.CreatePermission(ctx, core.Permission{
		AgentID:   strings.TrimSpace(payload.AgentID),
		Action:    strings.TrimSpace(payload.Action),
		Resource:  strings.TrimSpace(payload.Resource),
		Condition: strings.TrimSpace(payload.Condition),
	})
	if err != nil {
		if errors.Is(err, core.ErrAgentNotFound) {
			presenter.Error(w, r, fmt.Sprintf("agent %s not found", payload.AgentID), http.StatusNotFound)
			return
		}
		presenter.Error(w, r, err.Error(), http.StatusBadRequest)
		return
	}

	log.Ctx(ctx).Info().
		Str("permission_id", perm.ID).
		Str("agent_id", perm.AgentID).
		Str("action", perm.Action).
		Str("resource", perm.Resource).
		Msg("permission granted")

	presenter.JSON(w, r, perm, http.StatusCreated)
}

func (s *Server) handleListPermissions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	agentID := strings.TrimSpace(r.URL.Query().Get("agent_id"))

	var (
		perms []core.Permission
		err   error
	)
	if agentID != "" {
		perms, err = s.store.ListPermissions(ctx, agentID)
	} else {
		perms, err = s.store.AllPermissions(ctx)
	}
	if err != nil {
		if errors.Is(err, core.ErrAgentNotFound) {
			presenter.Error(w, r, fmt.Sprintf("agent %s not found", agentID), http.StatusNotFound)
			return
		}
		log.Ctx(ctx).Error().Err(err).Msg("failed to list permissions")
		presenter.Error(w, r, "internal error", http.StatusInternalServerError)
		return
	}
	if perms == nil {
		perms = []core.Permission{}
	}
	presenter.JSON(w, r, perms, http.StatusOK)
}

func (s *Server) handleDeletePermission(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	permissionID := r.PathValue("id")

	if err := s.store.DeletePermission(ctx, permissionID); err != nil {
		presenter.Error(w, r, err.Error(), http.StatusNotFound)
		return
	}

	log.Ctx(ctx).Info().Str("permission_id", permissionID).Msg("permission revoked")
	w.WriteHeader(http.StatusNoContent)
}
