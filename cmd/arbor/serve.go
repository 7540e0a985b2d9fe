package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/arbor/internal/api"
	"github.com/MikeSquared-Agency/arbor/internal/hermes"
	"github.com/MikeSquared-Agency/arbor/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Build all trees and serve them over HTTP",
	Long: `Build every conversation in the archive and serve the read API.

When DATABASE_URL is set the trees are also written to Postgres. When
NATS_URL is set arbor announces each tree and answers search requests on
swarm.arbor.search.request.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	slog.Info("arbor starting", "port", cfg.Port, "archive", archivePath)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	f := loadForest(archivePath, sessionDir)
	slog.Info("archive loaded", "conversations", len(f.Archive()), "trees", f.Len())

	// Database (optional)
	if cfg.DatabaseURL != "" {
		db, err := store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		slog.Info("database connected")

		if err := persistTrees(ctx, db, f.Trees()); err != nil {
			slog.Warn("failed to persist trees", "error", err)
		}
	}

	// NATS/Hermes (optional)
	if cfg.NatsURL != "" {
		hermesClient, err := hermes.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			return err
		}
		defer hermesClient.Close()
		slog.Info("NATS connected", "url", cfg.NatsURL)

		if err := hermesClient.Subscribe(hermes.SubjectSearchRequest, hermes.SearchHandler(hermesClient, f, slog.Default())); err != nil {
			return err
		}
		hermes.AnnounceTrees(hermesClient, f, slog.Default())

		if err := hermesClient.Publish("swarm.agent.arbor.registered", map[string]any{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"port":      cfg.Port,
			"trees":     f.Len(),
		}); err != nil {
			slog.Warn("failed to publish registration", "error", err)
		}
	} else {
		slog.Warn("nats not configured, running without events")
	}

	srv := api.NewServer(cfg.Port, cfg.APIToken, f)
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	slog.Info("arbor ready", "port", cfg.Port)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")
	cancel()
	slog.Info("arbor stopped")
	return nil
}
