package cmd

import (
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var escalationsCmd = &cobra.Command{
	Use:     "escalations",
	Aliases: []string{"esc"},
	Short:   "Review and resolve pending escalations",
	Long:    `Denied requests that escalated wait here for a human decision. Each escalation can be resolved exactly once.`,
}

var escalationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List escalations waiting for a human decision",
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := getClient()
		if err != nil {
			return err
		}

		pending, err := cli.PendingApprovals(cmd.Context())
		if err != nil {
			return err
		}

		log.Info().Msgf("Retrieved %d pending escalations", len(pending))

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{
			"Request ID", "Time", "Agent", "Action", "Resource", "Reason",
		})

		for _, p := range pending {
			t.AppendRow(table.Row{
				p.RequestID,
				p.CreatedAt.Format(time.RFC3339),
				truncate(p.AgentID, 35),
				p.Action,
				truncate(p.Resource, 35),
				p.Reason,
			})
		}

		t.SetStyle(table.StyleLight)
		t.Render()
		return nil
	},
}

var (
	resolveHumanID string
	resolveNotes   string
)

var escalationsApproveCmd = &cobra.Command{
	Use:   "approve <request-id>",
	Short: "Approve a pending escalation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := getClient()
		if err != nil {
			return err
		}

		decision, _, err := cli.Approve(cmd.Context(), args[0], resolveHumanID)
		if err != nil {
			return err
		}
		printDecision(decision)
		return nil
	},
}

var escalationsDenyCmd = &cobra.Command{
	Use:   "deny <request-id>",
	Short: "Deny a pending escalation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := getClient()
		if err != nil {
			return err
		}

		decision, _, err := cli.Deny(cmd.Context(), args[0], resolveHumanID, resolveNotes)
		if err != nil {
			return err
		}
		printDecision(decision)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(escalationsCmd)

	escalationsCmd.AddCommand(escalationsListCmd)
	escalationsCmd.AddCommand(escalationsApproveCmd)
	escalationsCmd.AddCommand(escalationsDenyCmd)

	for _, c := range []*cobra.Command{escalationsApproveCmd, escalationsDenyCmd} {
		c.Flags().StringVarP(&resolveHumanID, "human", "u", "", "Identifier of the resolving human")
		_ = c.MarkFlagRequired("human")
	}
	escalationsDenyCmd.Flags().StringVar(&resolveNotes, "notes", "", "Optional notes explaining the denial")
}
