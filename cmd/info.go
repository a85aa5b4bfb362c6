package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show version information of a remote Arbiter server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := getClient()
		if err != nil {
			return err
		}

		info, _, err := cli.Info(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("%s (version: %s, commit: %s)\n", info.Service, info.Version, info.CommitHash)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
