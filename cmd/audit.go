package cmd

import (
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/arbiterhq/arbiter/pkg/client"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Interact with the audit log",
}

var (
	auditAgentID string
	auditSince   string
	auditUntil   string
)

var auditLogCmd = &cobra.Command{
	Use:   "log",
	Short: "Retrieve and display audit log entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, err := cmd.Flags().GetInt("limit")
		if err != nil {
			return err
		}

		opts := client.QueryLogsOpts{
			AgentID: auditAgentID,
			Limit:   uint(limit),
		}
		if auditSince != "" {
			if opts.StartTime, err = time.Parse(time.RFC3339, auditSince); err != nil {
				return err
			}
		}
		if auditUntil != "" {
			if opts.EndTime, err = time.Parse(time.RFC3339, auditUntil); err != nil {
				return err
			}
		}

		cli, err := getClient()
		if err != nil {
			return err
		}

		log.Info().Msg("Fetching audit log...")
		entries, err := cli.QueryLogs(cmd.Context(), opts)
		if err != nil {
			return err
		}

		log.Info().Msgf("Retrieved %d audit entries", len(entries))

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{
			"Time", "Agent", "Action", "Resource", "Result",
		})

		for _, e := range entries {
			t.AppendRow(table.Row{
				e.Timestamp.Format(time.RFC3339),
				truncate(e.AgentID, 35),
				e.Action,
				truncate(e.Resource, 35),
				e.Result,
			})
		}

		t.SetStyle(table.StyleLight)
		t.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditLogCmd)

	auditLogCmd.Flags().IntP("limit", "n", 25, "Number of audit entries to retrieve")
	auditLogCmd.Flags().StringVarP(&auditAgentID, "agent", "a", "", "Only entries for this agent")
	auditLogCmd.Flags().StringVar(&auditSince, "since", "", "Only entries at or after this RFC 3339 timestamp")
	auditLogCmd.Flags().StringVar(&auditUntil, "until", "", "Only entries at or before this RFC 3339 timestamp")
}
