package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var killswitchCmd = &cobra.Command{
	Use:   "killswitch",
	Short: "Inspect or flip the system-wide kill switch",
	Long:  `While the kill switch is enabled, every agent request is denied before any other check runs.`,
}

var killswitchStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current kill switch state",
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := getClient()
		if err != nil {
			return err
		}
		resp, err := cli.GetKillSwitch(cmd.Context())
		if err != nil {
			return err
		}
		printKillSwitch(resp.Status, resp.Message)
		return nil
	},
}

var killswitchOnCmd = &cobra.Command{
	Use:   "on",
	Short: "Enable the kill switch, denying all agent requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := getClient()
		if err != nil {
			return err
		}
		log.Warn().Msg("Enabling system kill switch...")
		resp, err := cli.SetKillSwitch(cmd.Context(), true)
		if err != nil {
			return err
		}
		printKillSwitch(resp.Status, resp.Message)
		return nil
	},
}

var killswitchOffCmd = &cobra.Command{
	Use:   "off",
	Short: "Disable the kill switch, resuming normal processing",
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := getClient()
		if err != nil {
			return err
		}
		resp, err := cli.SetKillSwitch(cmd.Context(), false)
		if err != nil {
			return err
		}
		printKillSwitch(resp.Status, resp.Message)
		return nil
	},
}

func printKillSwitch(status, message string) {
	red := color.New(color.FgRed, color.Bold).SprintFunc()
	green := color.New(color.FgGreen, color.Bold).SprintFunc()

	rendered := green(status)
	if status == "enabled" {
		rendered = red(status)
	}
	fmt.Printf("Kill switch: %s\n%s\n", rendered, message)
}

func init() {
	rootCmd.AddCommand(killswitchCmd)

	killswitchCmd.AddCommand(killswitchStatusCmd)
	killswitchCmd.AddCommand(killswitchOnCmd)
	killswitchCmd.AddCommand(killswitchOffCmd)
}
