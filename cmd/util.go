package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"

	"github.com/arbiterhq/arbiter/internal/cliconfig"
	"github.com/arbiterhq/arbiter/pkg/client"
)

func getClient() (*client.Client, error) {
	// we need the user to provide some server address first
	server := viper.GetString(ArbiterAddrKey)
	if server == "" {
		return nil, fmt.Errorf("server address not configured, provide via --server or env")
	}

	apiKey := viper.GetString(APIKeyKey)
	adminToken := viper.GetString(AdminTokenKey)

	// flags and env win over stored credentials
	if apiKey == "" || adminToken == "" {
		cfg, err := cliconfig.Load()
		if err != nil {
			return nil, err
		}
		credential, err := cfg.GetCredential(server)
		if err != nil {
			if !errors.Is(err, cliconfig.ErrCredentialNotFound) {
				return nil, err
			}
		} else {
			if apiKey == "" {
				apiKey = credential.APIKey
			}
			if adminToken == "" {
				adminToken = credential.AdminToken
			}
		}
	}

	var opts []client.Option
	if apiKey != "" {
		opts = append(opts, client.WithAPIKey(apiKey))
	}
	if adminToken != "" {
		opts = append(opts, client.WithAdminToken(adminToken))
	}

	return client.New(server, opts...), nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
