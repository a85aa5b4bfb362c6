package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/arbiterhq/arbiter/internal/api"
	"github.com/arbiterhq/arbiter/internal/core"
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "Manage registered agents",
	Long:  `Admin commands for registering, listing and disabling agents. These routes require an admin token.`,
}

var agentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all registered agents",
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := getClient()
		if err != nil {
			return err
		}

		agents, err := cli.ListAgents(cmd.Context())
		if err != nil {
			return err
		}

		green := color.New(color.FgGreen).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"ID", "Name", "Owner", "Status", "Created"})

		for _, a := range agents {
			status := green(string(a.Status))
			if a.Status != core.AgentActive {
				status = red(string(a.Status))
			}
			t.AppendRow(table.Row{
				a.ID,
				truncate(a.Name, 30),
				truncate(a.Owner, 30),
				status,
				a.CreatedAt.Format(time.RFC3339),
			})
		}

		t.SetStyle(table.StyleLight)
		t.Render()
		return nil
	},
}

var (
	agentName  string
	agentOwner string
)

var agentsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Register a new agent",
	Example: `  arbiter agents create --name "Deploy Bot" --owner alice`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := getClient()
		if err != nil {
			return err
		}

		agent, err := cli.CreateAgent(cmd.Context(), api.AgentPayload{
			Name:  agentName,
			Owner: agentOwner,
		})
		if err != nil {
			return err
		}

		log.Info().Msgf("Agent registered with id %s", agent.ID)
		fmt.Println(agent.ID)
		return nil
	},
}

var agentsGetCmd = &cobra.Command{
	Use:   "get <agent-id>",
	Short: "Show one agent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := getClient()
		if err != nil {
			return err
		}

		agent, err := cli.GetAgent(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		bold := color.New(color.Bold).SprintFunc()
		fmt.Printf("%s %s\n", bold("ID:"), agent.ID)
		fmt.Printf("%s %s\n", bold("Name:"), agent.Name)
		fmt.Printf("%s %s\n", bold("Owner:"), agent.Owner)
		fmt.Printf("%s %s\n", bold("Status:"), agent.Status)
		fmt.Printf("%s %s\n", bold("Created:"), agent.CreatedAt.Format(time.RFC3339))
		return nil
	},
}

var killOwner string

var agentsDisableCmd = &cobra.Command{
	Use:   "disable <agent-id>",
	Short: "Disable an agent on the owner's behalf",
	RunE:  runAgentKill(false),
	Args:  cobra.ExactArgs(1),
}

var agentsEnableCmd = &cobra.Command{
	Use:   "enable <agent-id>",
	Short: "Re-enable a disabled agent on the owner's behalf",
	RunE:  runAgentKill(true),
	Args:  cobra.ExactArgs(1),
}

func runAgentKill(enabled bool) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cli, err := getClient()
		if err != nil {
			return err
		}

		resp, err := cli.KillAgent(cmd.Context(), args[0], killOwner, enabled)
		if err != nil {
			return err
		}

		fmt.Println(resp.Message)
		return nil
	}
}

var agentsDeleteCmd = &cobra.Command{
	Use:   "delete <agent-id>",
	Short: "Delete an agent and its permission rules",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := getClient()
		if err != nil {
			return err
		}

		if err := cli.DeleteAgent(cmd.Context(), args[0]); err != nil {
			return err
		}
		log.Info().Msgf("Agent %s deleted", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(agentsCmd)

	agentsCmd.AddCommand(agentsListCmd)
	agentsCmd.AddCommand(agentsCreateCmd)
	agentsCmd.AddCommand(agentsGetCmd)
	agentsCmd.AddCommand(agentsEnableCmd)
	agentsCmd.AddCommand(agentsDisableCmd)
	agentsCmd.AddCommand(agentsDeleteCmd)

	agentsCreateCmd.Flags().StringVar(&agentName, "name", "", "Display name of the agent")
	agentsCreateCmd.Flags().StringVar(&agentOwner, "owner", "", "Owner of the agent")
	_ = agentsCreateCmd.MarkFlagRequired("name")
	_ = agentsCreateCmd.MarkFlagRequired("owner")

	for _, c := range []*cobra.Command{agentsEnableCmd, agentsDisableCmd} {
		c.Flags().StringVar(&killOwner, "owner", "", "Owner of the agent (must match the record)")
		_ = c.MarkFlagRequired("owner")
	}
}
