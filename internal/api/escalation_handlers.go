package api

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/arbiterhq/arbiter/internal/api/presenter"
	"github.com/arbiterhq/arbiter/internal/core"
)

// HumanDecisionPayload resolves a pending escalation.
type HumanDecisionPayload struct {
	RequestID string `json:"request_id"`
	HumanID   string `json:"human_id"`
	Notes     string `json:"notes,omitempty"`
}

func (p *HumanDecisionPayload) validate() bool {
	p.RequestID = strings.TrimSpace(p.RequestID)
	p.HumanID = strings.TrimSpace(p.HumanID)
	return p.RequestID != "" && p.HumanID != ""
}

// handlePendingApprovals lists escalations awaiting a human decision.
func (s *Server) handlePendingApprovals(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	pending, err := s.resolver.ListPending(ctx)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to list pending escalations")
		presenter.Error(w, r, "internal error", http.StatusInternalServerError)
		return
	}
	if pending == nil {
		pending = []core.PendingRequest{}
	}
	presenter.JSON(w, r, pending, http.StatusOK)
}

// handleApprove resolves an escalation in the agent's favor.
func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	var payload HumanDecisionPayload
	if err := DecodePayload(r, &payload, false); err != nil || !payload.validate() {
		presenter.Error(w, r, "request_id and human_id are required", http.StatusBadRequest)
		return
	}

	decision := s.resolver.Approve(r.Context(), payload.RequestID, payload.HumanID)
	presenter.JSON(w, r, decision, http.StatusOK)
}

// handleDeny resolves an escalation against the agent.
func (s *Server) handleDeny(w http.ResponseWriter, r *http.Request) {
	var payload HumanDecisionPayload
	if err := DecodePayload(r, &payload, false); err != nil || !payload.validate() {
		presenter.Error(w, r, "request_id and human_id are required", http.StatusBadRequest)
		return
	}

	decision := s.resolver.Deny(r.Context(), payload.RequestID, payload.HumanID, payload.Notes)
	presenter.JSON(w, r, decision, http.StatusOK)
}
