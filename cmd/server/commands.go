package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Serious-senpai/pet-house/internal/app"
	"github.com/Serious-senpai/pet-house/internal/config"
	"github.com/Serious-senpai/pet-house/internal/middleware"
	q "github.com/Serious-senpai/pet-house/internal/queue"
	"github.com/Serious-senpai/pet-house/internal/service"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "pet-house",
		Short:        "Pet House API server",
		SilenceUsage: true,
		RunE:         func(cmd *cobra.Command, args []string) error { return serve(cmd.Context()) },
	}
	root.AddCommand(serveCmd(), versionCmd())
	return root
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE:  func(cmd *cobra.Command, args []string) error { return serve(cmd.Context()) },
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the API version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", config.Title, config.Version)
		},
	}
}

func serve(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()

	rdb := config.NewRedisClient(ctx, cfg)
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	a, err := app.New(cfg,
		app.WithRequestLogging(),
		app.WithRouteMiddleware(
			middleware.NewTokenBucket(cfg.RateLimit, rdb),
			middleware.NewRedisCache(cfg.Cache, rdb),
		),
	)
	if err != nil {
		return fmt.Errorf("startup failed: %w", err)
	}

	ann := service.NewAnnouncer(cfg.Broker, service.Instance{
		Service: a.Title,
		Version: a.Version,
		Env:     cfg.Env,
		Addr:    cfg.Addr(),
	})
	defer func() { _ = ann.Close() }()

	log.Printf("listening on %s (env=%s)", cfg.Addr(), cfg.Env)
	return a.Run(ctx, cfg.Addr(), cfg.ShutdownTimeout, app.Hooks{
		OnStart: func() { _ = ann.Announce(ctx, q.StatusStarted) },
		OnStop: func() {
			log.Printf("shutting down")
			// ctx is already cancelled here
			_ = ann.Announce(context.Background(), q.StatusStopping)
		},
	})
}
