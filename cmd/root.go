package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/arbiterhq/arbiter/internal/buildinfo"
	"github.com/arbiterhq/arbiter/internal/logging"
)

// global flags
var (
	userConfig  string
	arbiterAddr string
)

const (
	LogLevelKey   = "log.level"
	LogFormatKey  = "log.format"
	LogNoColorKey = "log.no_color"

	ArbiterAddrKey = "addr"
	APIKeyKey      = "api_key"
	AdminTokenKey  = "admin_token"
)

var rootCmd = &cobra.Command{
	Use:   "arbiter",
	Short: fmt.Sprintf("Arbiter agent authorization gate (version: %s, commit: %s)", buildinfo.Version, buildinfo.CommitHash),
	Long: `Arbiter decides whether autonomous agents may perform actions.
	Every request runs through a fixed pipeline (kill switch, agent status,
	permission rules), is written to a tamper-evident audit log, and denials
	escalate to a human approval queue.`,
	Version: buildinfo.Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configPath, configErr := initUserConfig()
		logging.Init(logging.Options{
			Level:   viper.GetString(LogLevelKey),
			Format:  viper.GetString(LogFormatKey),
			NoColor: viper.GetBool(LogNoColorKey),
		})
		if configErr != nil { // handle error after logging is initialized
			return configErr
		}
		if configPath != "" {
			log.Debug().Msgf("using config file: %s", configPath)
		}
		return nil
	},
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		log.Fatal().Err(err).Msg("execution failed")
		os.Exit(1)
	}
}

func init() {
	// setup pre-flag logger
	logging.InitDefault()

	rootCmd.PersistentFlags().StringVar(&userConfig, "user-config", "",
		"User configuration file for default values (default is $HOME/.arbiter.yaml)")

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	_ = viper.BindPFlag(LogLevelKey, rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.PersistentFlags().String("log-format", "console", "Log format (console, json)")
	_ = viper.BindPFlag(LogFormatKey, rootCmd.PersistentFlags().Lookup("log-format"))

	rootCmd.PersistentFlags().Bool("no-color", false, "Disable color output")
	_ = viper.BindPFlag(LogNoColorKey, rootCmd.PersistentFlags().Lookup("no-color"))

	rootCmd.PersistentFlags().StringVar(&arbiterAddr, "server", "", "Address of the remote Arbiter server")
	_ = viper.BindPFlag(ArbiterAddrKey, rootCmd.PersistentFlags().Lookup("server"))

	rootCmd.PersistentFlags().String("api-key", "", "API key for agent routes")
	_ = viper.BindPFlag(APIKeyKey, rootCmd.PersistentFlags().Lookup("api-key"))

	rootCmd.PersistentFlags().String("admin-token", "", "Bearer token for admin routes")
	_ = viper.BindPFlag(AdminTokenKey, rootCmd.PersistentFlags().Lookup("admin-token"))

	viper.SetEnvPrefix("ARBITER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))

	viper.AutomaticEnv()

	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
}

func initUserConfig() (string, error) {
	// reads in config file and ENV variables if set.
	if userConfig != "" {
		viper.SetConfigFile(userConfig)
	} else {
		// search order: current dir, $HOME, XDG config
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}

		config, err := os.UserConfigDir()
		if err == nil {
			viper.AddConfigPath(config + "/arbiter")
		}

		viper.SetConfigType("yaml")
		viper.SetConfigName(".arbiter")
	}

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err != nil {
		var notFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &notFoundError) {
			return "", err
		}
	} else {
		return viper.ConfigFileUsed(), nil
	}

	return "", nil
}
