package cmd

import (
	"fmt"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"github.com/arbiterhq/arbiter/internal/config"
)

var debugConfigFile string

var debugConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Parse the server config and dump the effective values",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(debugConfigFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		// the signing key should not end up in terminal scrollback
		cfg.Auth.AdminSigningKey = "(redacted)"

		spew.Dump(cfg)
		return nil
	},
}

func init() {
	debugCmd.AddCommand(debugConfigCmd)

	debugConfigCmd.Flags().StringVarP(&debugConfigFile, "config", "f", "arbiter.yaml", "The Arbiter config file to use")
}
