package api

import (
	"net/http"

	"github.com/arbiterhq/arbiter/internal/api/middleware"
	"github.com/arbiterhq/arbiter/internal/config"
	"github.com/arbiterhq/arbiter/internal/pipeline"
	"github.com/arbiterhq/arbiter/internal/store"
)

// Server exposes the decision pipeline, the escalation workflow and the
// admin CRUD over HTTP. The pipeline itself is transport-agnostic; this
// layer only decodes, authenticates and presents.
type Server struct {
	pipeline *pipeline.Pipeline
	resolver *pipeline.Resolver
	store    *store.SQLiteStore
	auth     config.AuthConfig
}

func NewServer(
	p *pipeline.Pipeline,
	r *pipeline.Resolver,
	s *store.SQLiteStore,
	auth config.AuthConfig,
) *Server {
	return &Server{
		pipeline: p,
		resolver: r,
		store:    s,
		auth:     auth,
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	// public routes
	mux.HandleFunc("GET "+HealthCheckRoute, s.handleHealth)
	mux.HandleFunc("GET "+InfoRoute, s.handleInfo)

	// agent routes, guarded by the shared API key
	agentMux := http.NewServeMux()
	agentMux.HandleFunc("POST "+AgentRequestRoute, s.handleAgentRequest)
	agentMux.HandleFunc("POST "+AgentKillRoute, s.handleAgentKill)
	agentMux.HandleFunc("POST "+KillSwitchRoute, s.handleSetKillSwitch)
	agentMux.HandleFunc("GET "+KillSwitchRoute, s.handleGetKillSwitch)
	agentMux.HandleFunc("GET "+PendingApprovalsRoute, s.handlePendingApprovals)
	agentMux.HandleFunc("POST "+ApproveRoute, s.handleApprove)
	agentMux.HandleFunc("POST "+DenyRoute, s.handleDeny)
	agentMux.HandleFunc("GET "+LogsRoute, s.handleQueryLogs)
	mux.Handle("/v1/agent/", middleware.APIKeyAuth(s.auth.AcceptsAPIKey)(agentMux))
	mux.Handle("GET "+LogsRoute, middleware.APIKeyAuth(s.auth.AcceptsAPIKey)(agentMux))

	// admin routes
	adminMux := http.NewServeMux()
	adminMux.HandleFunc("POST "+AdminAgentsRoute, s.handleCreateAgent)
	adminMux.HandleFunc("GET "+AdminAgentsRoute, s.handleListAgents)
	adminMux.HandleFunc("GET "+AdminAgentRoute, s.handleGetAgent)
	adminMux.HandleFunc("PUT "+AdminAgentRoute, s.handleUpdateAgent)
	adminMux.HandleFunc("DELETE "+AdminAgentRoute, s.handleDeleteAgent)
	adminMux.HandleFunc("POST "+AdminPermissionsRoute, s.handleCreatePermission)
	adminMux.HandleFunc("GET "+AdminPermissionsRoute, s.handleListPermissions)
	adminMux.HandleFunc("DELETE "+AdminPermissionRoute, s.handleDeletePermission)
	mux.Handle(AdminParent, middleware.AdminAuth([]byte(s.auth.AdminSigningKey))(adminMux))

	return middleware.RecoverMiddleware(
		middleware.CorrelationIDMiddleware(
			middleware.LoggingMiddleware(
				mux)))
}
