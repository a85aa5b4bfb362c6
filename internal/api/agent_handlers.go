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

// AgentRequestPayload is an authorization request from an agent.
type AgentRequestPayload struct {
	AgentID  string `json:"agent_id"`
	Action   string `json:"action"`
	Resource string `json:"resource"`
}

func (p *AgentRequestPayload) validate() error {
	p.AgentID = strings.TrimSpace(p.AgentID)
	p.Action = strings.TrimSpace(p.Action)
	p.Resource = strings.TrimSpace(p.Resource)
	if p.AgentID == "" || p.Action == "" || p.Resource == "" {
		return errors.New("agent_id, action and resource are required")
	}
	return nil
}

// handleAgentRequest runs the decision pipeline for one request.
func (s *Server) handleAgentRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.Ctx(ctx)

	var payload AgentRequestPayload
	if err := DecodePayload(r, &payload, false); err != nil {
		logger.Warn().Err(err).Msg("failed to decode agent request payload")
		presenter.Error(w, r, "invalid request payload", http.StatusBadRequest)
		return
	}
	if err := payload.validate(); err != nil {
		presenter.Error(w, r, err.Error(), http.StatusBadRequest)
		return
	}

	decision, err := s.pipeline.Authorize(ctx, payload.AgentID, payload.Action, payload.Resource)
	if err != nil {
		if errors.Is(err, core.ErrAgentNotFound) {
			presenter.Error(w, r, fmt.Sprintf("agent %s not found", payload.AgentID), http.StatusNotFound)
			return
		}
		// the pipeline converts everything else to a decision; this is
		// unreachable unless a new error class is introduced
		logger.Error().Err(err).Msg("unexpected authorize error")
		presenter.Error(w, r, "internal error", http.StatusInternalServerError)
		return
	}

	presenter.JSON(w, r, decision, http.StatusOK)
}

// AgentKillPayload enables or disables one agent. Only the recorded owner
// may do it.
type AgentKillPayload struct {
	AgentID string `json:"agent_id"`
	Owner   string `json:"owner"`
	Enabled bool   `json:"enabled"`
}

// AgentKillResponse reports the new status of the agent.
type AgentKillResponse struct {
	Result  string `json:"result"`
	Message string `json:"message"`
}

// handleAgentKill flips a single agent's status after checking ownership.
func (s *Server) handleAgentKill(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.Ctx(ctx)

	var payload AgentKillPayload
	if err := DecodePayload(r, &payload, false); err != nil {
		presenter.Error(w, r, "invalid request payload", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(payload.AgentID) == "" || strings.TrimSpace(payload.Owner) == "" {
		presenter.Error(w, r, "agent_id and owner are required", http.StatusBadRequest)
		return
	}

	agent, err := s.store.GetAgent(ctx, payload.AgentID)
	if err != nil {
		if errors.Is(err, core.ErrAgentNotFound) {
			presenter.Error(w, r, fmt.Sprintf("agent %s not found", payload.AgentID), http.StatusNotFound)
			return
		}
		logger.Error().Err(err).Msg("agent lookup failed")
		presenter.Error(w, r, "internal error", http.StatusInternalServerError)
		return
	}
	if agent.Owner != payload.Owner {
		presenter.Error(w, r,
			fmt.Sprintf("permission denied: only owner %q can enable/disable this agent", agent.Owner),
			http.StatusForbidden)
		return
	}

	status := core.AgentDisabled
	result := "disabled"
	if payload.Enabled {
		status = core.AgentActive
		result = "enabled"
	}
	if err := s.store.SetAgentStatus(ctx, payload.AgentID, status); err != nil {
		logger.Error().Err(err).Msg("agent status update failed")
		presenter.Error(w, r, "internal error", http.StatusInternalServerError)
		return
	}

	// the kill action itself is auditable history
	if err := s.store.Append(ctx, core.LogEntry{
		AgentID:  payload.AgentID,
		Action:   "kill",
		Resource: "agent",
		Result:   result,
	}); err != nil {
		logger.Warn().Err(err).Msg("failed to audit agent kill")
	}

	logger.Info().
		Str("agent_id", payload.AgentID).
		Str("owner", payload.Owner).
		Str("result", result).
		Msg("agent kill switch flipped")

	presenter.JSON(w, r, AgentKillResponse{
		Result:  result,
		Message: fmt.Sprintf("Agent %s has been %s by owner %s", payload.AgentID, result, payload.Owner),
	}, http.StatusOK)
}

// KillSwitchPayload sets the global kill switch.
type KillSwitchPayload struct {
	Enabled bool `json:"enabled"`
}

// KillSwitchResponse reports the kill switch state.
type KillSwitchResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// handleSetKillSwitch enables or disables the system-wide kill switch.
func (s *Server) handleSetKillSwitch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.Ctx(ctx)

	var payload KillSwitchPayload
	if err := DecodePayload(r, &payload, false); err != nil {
		presenter.Error(w, r, "invalid request payload", http.StatusBadRequest)
		return
	}

	value := core.FlagDisabled
	if payload.Enabled {
		value = core.FlagEnabled
	}
	logger.Warn().Str("value", value).Msg("system kill switch change requested")

	if err := s.store.SetFlag(ctx, core.KillSwitchKey, value); err != nil {
		logger.Error().Err(err).Msg("kill switch update failed")
		presenter.Error(w, r, "internal error", http.StatusInternalServerError)
		return
	}

	if err := s.store.Append(ctx, core.LogEntry{
		AgentID:  "system",
		Action:   "system_kill_switch",
		Resource: "system",
		Result:   value,
	}); err != nil {
		logger.Warn().Err(err).Msg("failed to audit kill switch change")
	}

	presenter.JSON(w, r, KillSwitchResponse{
		Status:  value,
		Message: killSwitchMessage(value),
	}, http.StatusOK)
}

// handleGetKillSwitch reports the current kill switch state; an absent row
// reads as disabled.
func (s *Server) handleGetKillSwitch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	flag, ok, err := s.store.GetFlag(ctx, core.KillSwitchKey)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("kill switch read failed")
		presenter.Error(w, r, "internal error", http.StatusInternalServerError)
		return
	}

	value := core.FlagDisabled
	if ok {
		value = flag.Value
	}
	presenter.JSON(w, r, KillSwitchResponse{
		Status:  value,
		Message: killSwitchMessage(value),
	}, http.StatusOK)
}

func killSwitchMessage(value string) string {
	if value == core.FlagEnabled {
		return "System kill switch is enabled. All agent requests are denied."
	}
	return "System kill switch is disabled. All agent requests are processed normally."
}
