package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/arbiterhq/arbiter/internal/api"
	"github.com/arbiterhq/arbiter/internal/config"
	"github.com/arbiterhq/arbiter/internal/logging"
	"github.com/arbiterhq/arbiter/internal/pipeline"
	"github.com/arbiterhq/arbiter/internal/store"
)

var serveConfigFile string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Arbiter server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(serveConfigFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		logging.Init(logging.Options{
			Level:   cfg.Log.Level,
			Format:  cfg.Log.Format,
			NoColor: cfg.Log.NoColor,
		})

		log.Info().Str("path", cfg.Database.Path).Msg("Opening database...")
		st, err := store.Open(cmd.Context(), cfg.Database.Path, store.Options{
			WAL:           cfg.Database.WAL,
			BusyTimeoutMs: cfg.Database.BusyTimeoutMs,
			ForeignKeys:   cfg.Database.ForeignKeys,
		})
		if err != nil {
			return fmt.Errorf("opening store: %w", err)
		}
		defer func() {
			_ = st.Close()
		}()

		pipe := pipeline.NewPipeline(st, st, st, st, nil)
		resolver := pipeline.NewResolver(st, st)
		srv := api.NewServer(pipe, resolver, st, cfg.Auth)

		server := &http.Server{
			Addr:    cfg.Server.Addr,
			Handler: srv.Routes(),
		}

		go func() {
			log.Info().Msgf("Starting server on %s...", cfg.Server.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal().Err(err).Msg("Server crashed")
			}
		}()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Info().Msg("Shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}

		log.Info().Msg("Server exited")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveConfigFile, "config", "f", "arbiter.yaml", "The Arbiter config file to use")
}
