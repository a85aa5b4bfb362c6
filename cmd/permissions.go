package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/arbiterhq/arbiter/internal/api"
	"github.com/arbiterhq/arbiter/internal/condition"
	"github.com/arbiterhq/arbiter/internal/config"
	"github.com/arbiterhq/arbiter/internal/store"
)

var permissionsCmd = &cobra.Command{
	Use:     "permissions",
	Aliases: []string{"perms"},
	Short:   "Manage permission rules",
}

var permissionsAgentID string

var permissionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List permission rules, optionally scoped to one agent",
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := getClient()
		if err != nil {
			return err
		}

		perms, err := cli.ListPermissions(cmd.Context(), permissionsAgentID)
		if err != nil {
			return err
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"ID", "Agent", "Action", "Resource", "Condition"})

		for _, p := range perms {
			t.AppendRow(table.Row{
				p.ID,
				truncate(p.AgentID, 35),
				p.Action,
				truncate(p.Resource, 35),
				truncate(p.Condition, 40),
			})
		}

		t.SetStyle(table.StyleLight)
		t.Render()
		return nil
	},
}

var (
	grantAction    string
	grantResource  string
	grantCondition string
)

var permissionsGrantCmd = &cobra.Command{
	Use:   "grant <agent-id>",
	Short: "Grant an agent one (action, resource) rule",
	Args:  cobra.ExactArgs(1),
	Example: `  arbiter permissions grant deploy-bot --action restart --resource cluster/staging`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := getClient()
		if err != nil {
			return err
		}

		perm, err := cli.CreatePermission(cmd.Context(), api.PermissionPayload{
			AgentID:   args[0],
			Action:    grantAction,
			Resource:  grantResource,
			Condition: grantCondition,
		})
		if err != nil {
			return err
		}

		log.Info().Msgf("Permission granted with id %s", perm.ID)
		fmt.Println(perm.ID)
		return nil
	},
}

var permissionsRevokeCmd = &cobra.Command{
	Use:   "revoke <permission-id>",
	Short: "Revoke a permission rule by id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := getClient()
		if err != nil {
			return err
		}

		if err := cli.DeletePermission(cmd.Context(), args[0]); err != nil {
			return err
		}
		log.Info().Msgf("Permission %s revoked", args[0])
		return nil
	},
}

var vetConfigFile string

// permissionsVetCmd opens the database directly instead of going through
// the server, so it can be run against a stopped installation.
var permissionsVetCmd = &cobra.Command{
	Use:   "vet",
	Short: "Check that every stored condition expression still compiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(vetConfigFile)
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

		perms, err := st.AllPermissions(cmd.Context())
		if err != nil {
			return err
		}

		red := color.New(color.FgRed).SprintFunc()

		var broken int
		for _, p := range perms {
			if err := condition.Validate(p.Condition); err != nil {
				broken++
				fmt.Printf("%s permission %s (agent %s): %v\n", red("✖"), p.ID, p.AgentID, err)
			}
		}
		if broken > 0 {
			return fmt.Errorf("%d of %d conditions failed to compile", broken, len(perms))
		}

		log.Info().Msgf("All %d conditions compile", len(perms))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(permissionsCmd)

	permissionsCmd.AddCommand(permissionsListCmd)
	permissionsCmd.AddCommand(permissionsGrantCmd)
	permissionsCmd.AddCommand(permissionsRevokeCmd)
	permissionsCmd.AddCommand(permissionsVetCmd)

	permissionsListCmd.Flags().StringVarP(&permissionsAgentID, "agent", "a", "", "Only rules for this agent")

	permissionsGrantCmd.Flags().StringVar(&grantAction, "action", "", "Action the rule allows")
	permissionsGrantCmd.Flags().StringVarP(&grantResource, "resource", "r", "", "Resource the rule targets")
	permissionsGrantCmd.Flags().StringVarP(&grantCondition, "condition", "c", "", "Optional condition expression")
	_ = permissionsGrantCmd.MarkFlagRequired("action")
	_ = permissionsGrantCmd.MarkFlagRequired("resource")

	permissionsVetCmd.Flags().StringVarP(&vetConfigFile, "config", "f", "arbiter.yaml", "The Arbiter config file to use")
}
