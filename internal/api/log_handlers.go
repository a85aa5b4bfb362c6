package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/arbiterhq/arbiter/internal/api/presenter"
	"github.com/arbiterhq/arbiter/internal/core"
)

// handleQueryLogs returns audit log entries, newest first. All filters are
// optional; timestamps are RFC 3339.
func (s *Server) handleQueryLogs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	filter := core.LogFilter{
		AgentID: query.Get("agent_id"),
	}

	if raw := query.Get("start_time"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			presenter.Error(w, r, "invalid start_time format, expected RFC 3339", http.StatusBadRequest)
			return
		}
		filter.StartTime = t
	}
	if raw := query.Get("end_time"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			presenter.Error(w, r, "invalid end_time format, expected RFC 3339", http.StatusBadRequest)
			return
		}
		filter.EndTime = t
	}
	if raw := query.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			presenter.Error(w, r, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		filter.Limit = n
	}

	entries, err := s.store.Query(ctx, filter)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("audit log query failed")
		presenter.Error(w, r, "internal error", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []core.LogEntry{}
	}
	presenter.JSON(w, r, entries, http.StatusOK)
}
