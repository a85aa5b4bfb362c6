package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/arbiterhq/arbiter/internal/core"
)

var (
	authorizeAgentID  string
	authorizeAction   string
	authorizeResource string
)

var authorizeCmd = &cobra.Command{
	Use:   "authorize",
	Short: "Ask the server whether an agent may perform an action",
	Long: `Runs a single authorization request through the server's decision
	pipeline and prints the decision together with the full rule trace.

Note: This command requires an Arbiter server to be running and reachable.`,
	Example: `  # May the deploy bot restart the staging cluster?
  arbiter authorize --agent deploy-bot --action restart --resource cluster/staging`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := getClient()
		if err != nil {
			return err
		}

		decision, correlation, err := cli.Authorize(cmd.Context(), authorizeAgentID, authorizeAction, authorizeResource)
		if err != nil {
			return err
		}

		printDecision(decision)
		if correlation != "" {
			faint := color.New(color.Faint).SprintFunc()
			fmt.Println(faint("correlation: " + correlation))
		}
		return nil
	},
}

func printDecision(decision *core.Decision) {
	bold := color.New(color.Bold).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()

	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	verdict := red("DENIED")
	if decision.Approved() {
		verdict = green("APPROVED")
	}

	fmt.Printf("\n%s %s\n", bold("Decision:"), verdict)
	fmt.Printf("%s %s\n", bold("Reason:"), decision.Reason)
	fmt.Printf("%s %s\n", bold("Message:"), decision.Message)
	if decision.ActionRequired != "" {
		fmt.Printf("%s %s\n", bold("Action required:"), yellow(decision.ActionRequired))
	}

	fmt.Println(faint("---------------------------------------------------"))

	for _, entry := range decision.Trace {
		icon := red("✖")
		if entry.RuleResult == core.TracePassed {
			icon = green("✔")
		}
		fmt.Printf("%s %s\n", icon, bold(entry.RuleChecked))
		if entry.Notes != "" {
			fmt.Printf("  %s\n", faint(entry.Notes))
		}
	}
	fmt.Println()
}

func init() {
	rootCmd.AddCommand(authorizeCmd)

	authorizeCmd.Flags().StringVarP(&authorizeAgentID, "agent", "a", "", "Agent ID making the request")
	authorizeCmd.Flags().StringVar(&authorizeAction, "action", "", "Action the agent wants to perform")
	authorizeCmd.Flags().StringVarP(&authorizeResource, "resource", "r", "", "Resource the action targets")

	_ = authorizeCmd.MarkFlagRequired("agent")
	_ = authorizeCmd.MarkFlagRequired("action")
	_ = authorizeCmd.MarkFlagRequired("resource")
}
