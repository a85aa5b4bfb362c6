package cmd

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/arbiterhq/arbiter/internal/config"
	"github.com/arbiterhq/arbiter/internal/core"
	"github.com/arbiterhq/arbiter/internal/store"
)

var seedConfigFile string

// seedCmd writes demo agents and permission rules straight into the
// database, intended for local testing against a fresh installation.
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Populate the database with demo agents and permissions",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(seedConfigFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		st, err := store.Open(cmd.Context(), cfg.Database.Path, store.Options{
			WAL:           cfg.Database.WAL,
			BusyTimeoutMs: cfg.Database.BusyTimeoutMs,
			ForeignKeys:   cfg.Database.ForeignKeys,
		})
		if err != nil {
			return fmt.Errorf("opening store: %w", err)
		}
		defer func() {
			_ = st.Close()
		}()

		return seed(cmd.Context(), st)
	},
}

func seed(ctx context.Context, st *store.SQLiteStore) error {
	agents := []core.Agent{
		{ID: "agent-001", Name: "Data Processor", Owner: "alice@techcompany.com", Status: core.AgentActive},
		{ID: "agent-002", Name: "API Gateway", Owner: "bob@techcompany.com", Status: core.AgentActive},
		{ID: "agent-003", Name: "Analytics Engine", Owner: "charlie@techcompany.com", Status: core.AgentActive},
		{ID: "agent-004", Name: "Disabled Agent", Owner: "david@techcompany.com", Status: core.AgentDisabled},
	}

	permissions := []core.Permission{
		{AgentID: "agent-001", Action: "read", Resource: "database"},
		{AgentID: "agent-001", Action: "read", Resource: "cache"},
		{AgentID: "agent-001", Action: "write", Resource: "logs"},
		{AgentID: "agent-002", Action: "read", Resource: "api"},
		{AgentID: "agent-002", Action: "write", Resource: "database"},
		{AgentID: "agent-002", Action: "delete", Resource: "cache"},
		{AgentID: "agent-003", Action: "read", Resource: "database"},
		{AgentID: "agent-003", Action: "read", Resource: "api"},
		{AgentID: "agent-003", Action: "write", Resource: "analytics"},
		// disabled agent keeps its rule, the status check still denies it
		{AgentID: "agent-004", Action: "read", Resource: "database"},
	}

	for _, agent := range agents {
		if _, err := st.CreateAgent(ctx, agent); err != nil {
			return fmt.Errorf("seeding agent %s: %w", agent.ID, err)
		}
		log.Info().Msgf("Created agent %s (%s)", agent.ID, agent.Name)
	}

	for _, perm := range permissions {
		if _, err := st.CreatePermission(ctx, perm); err != nil {
			return fmt.Errorf("seeding permission for %s: %w", perm.AgentID, err)
		}
		log.Info().Msgf("Created permission %s -> %s on %s", perm.AgentID, perm.Action, perm.Resource)
	}

	log.Info().Msgf("Seeded %d agents and %d permissions", len(agents), len(permissions))
	return nil
}

func init() {
	rootCmd.AddCommand(seedCmd)

	seedCmd.Flags().StringVarP(&seedConfigFile, "config", "f", "arbiter.yaml", "The Arbiter config file to use")
}
