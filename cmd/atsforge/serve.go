package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ternarybob/atsforge/internal/app"
	"github.com/ternarybob/atsforge/internal/pipeline"
	"github.com/ternarybob/atsforge/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the admin HTTP server",
	Long:  `Starts the admin API that drives and inspects the Discovery -> Crawl -> Enrich -> Embed pipeline.`,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	application, err := app.New(config, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer application.Close()

	shutdownChan := make(chan struct{})
	srv := server.New(application)
	srv.SetShutdownChannel(shutdownChan)

	sched := pipeline.NewScheduler(logger)
	if err := sched.Start(
		config.Pipeline.FullRunInterval.String(),
		func(ctx context.Context) error {
			_, err := application.Pipeline.RunFullPipeline(ctx, application.DiscoverySources)
			return err
		},
		config.Pipeline.MaintainCron,
		func(ctx context.Context) error {
			_, err := application.Pipeline.RunMaintenanceStandalone(ctx)
			return err
		},
	); err != nil {
		return fmt.Errorf("starting pipeline scheduler: %w", err)
	}
	defer sched.Stop()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Fatal().Str("panic", fmt.Sprintf("%v", r)).Msg("server goroutine panicked")
			}
		}()
		if err := srv.Start(); err != nil {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	time.Sleep(100 * time.Millisecond)
	logger.Info().
		Str("url", fmt.Sprintf("http://%s:%d", config.Server.Host, config.Server.Port)).
		Msg("admin server ready - press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info().Msg("interrupt signal received")
	case <-shutdownChan:
		logger.Info().Msg("shutdown requested")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(ctx)
}
