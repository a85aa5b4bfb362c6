package cmd

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/arbiterhq/arbiter/internal/cliconfig"
)

var (
	loginAPIKey     string
	loginAdminToken string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store credentials for a server",
	Long:  `Saves the API key and/or admin token for the given server under ~/.arbiter, so later commands don't need explicit flags.`,
	Example: `  arbiter login --server http://localhost:8080 --key my-api-key
  arbiter login --server http://localhost:8080 --token "$(arbiter token mint -s alice)"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		server := viper.GetString(ArbiterAddrKey)
		if server == "" {
			return fmt.Errorf("server address not configured, provide via --server or env")
		}
		if loginAPIKey == "" && loginAdminToken == "" {
			return fmt.Errorf("nothing to store, provide --key and/or --token")
		}

		cfg, err := cliconfig.Load()
		if err != nil {
			return err
		}

		cred := &cliconfig.Credential{}
		if existing, err := cfg.GetCredential(server); err == nil {
			cred = existing
		}
		if loginAPIKey != "" {
			cred.APIKey = loginAPIKey
		}
		if loginAdminToken != "" {
			cred.AdminToken = loginAdminToken
		}

		if err := cfg.SetCredential(server, cred); err != nil {
			return err
		}
		if err := cliconfig.Save(cfg); err != nil {
			return err
		}

		log.Info().Msgf("Stored credentials for %s", server)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)

	loginCmd.Flags().StringVar(&loginAPIKey, "key", "", "API key for agent routes")
	loginCmd.Flags().StringVar(&loginAdminToken, "token", "", "Admin token for admin routes")
}
