package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/halcyonlabs/saffron/internal/api"
	"github.com/halcyonlabs/saffron/internal/approval"
	"github.com/halcyonlabs/saffron/internal/metrics"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the classification HTTP API",
		Long: `Start the HTTP server exposing the classification pipeline:
batch classify, approve, rules, and accuracy endpoints.`,
		RunE: runServe,
	}

	cmd.Flags().String("addr", ":8080", "listen address")
	_ = viper.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger := slog.Default()

	store, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := cmd.Context()
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	orchestrator, err := buildOrchestrator(store, logger)
	if err != nil {
		return err
	}

	server := api.NewServer(
		orchestrator,
		approval.NewService(store, logger),
		metrics.NewTracker(store),
		store,
		logger,
	)

	go func() {
		<-ctx.Done()
		if err := server.Shutdown(); err != nil {
			logger.Error("server shutdown failed", "error", err)
		}
	}()

	return server.Listen(viper.GetString("server.addr"))
}
