package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ternarybob/atsforge/internal/app"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Run the Discovery stage only",
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := app.New(config, logger)
		if err != nil {
			return fmt.Errorf("initializing application: %w", err)
		}
		defer application.Close()

		runs, err := application.Pipeline.RunDiscoveryStandalone(application.Context(), application.DiscoverySources)
		if err != nil {
			return fmt.Errorf("running discovery: %w", err)
		}
		for _, run := range runs {
			logger.Info().Str("run_id", run.ID).Str("source", run.Source).Int("discovered", run.Counters.Discovered).Msg("discovery source finished")
			fmt.Println(run.ID)
		}
		return nil
	},
}

var crawlATSFamily string

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Run the Crawl stage only",
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := app.New(config, logger)
		if err != nil {
			return fmt.Errorf("initializing application: %w", err)
		}
		defer application.Close()

		run, err := application.Pipeline.RunCrawlStandalone(application.Context(), crawlATSFamily)
		if err != nil {
			return fmt.Errorf("running crawl stage: %w", err)
		}
		logger.Info().Str("run_id", run.ID).Str("status", run.Status).Msg("crawl stage finished")
		fmt.Println(run.ID)
		return nil
	},
}

var enrichATSFamily string

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Run the Enrich stage only",
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := app.New(config, logger)
		if err != nil {
			return fmt.Errorf("initializing application: %w", err)
		}
		defer application.Close()

		run, err := application.Pipeline.RunEnrichStandalone(application.Context(), enrichATSFamily)
		if err != nil {
			return fmt.Errorf("running enrich stage: %w", err)
		}
		logger.Info().Str("run_id", run.ID).Str("status", run.Status).Msg("enrich stage finished")
		fmt.Println(run.ID)
		return nil
	},
}

func init() {
	crawlCmd.Flags().StringVar(&crawlATSFamily, "ats-family", "", "restrict the crawl to a single ATS family (crawl_<family> shard)")
	enrichCmd.Flags().StringVar(&enrichATSFamily, "ats-family", "", "restrict enrichment to a single ATS family (enrich_<family> shard)")
}

var maintainCmd = &cobra.Command{
	Use:   "maintain",
	Short: "Run the Maintenance pass (re-verification and delisting)",
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := app.New(config, logger)
		if err != nil {
			return fmt.Errorf("initializing application: %w", err)
		}
		defer application.Close()

		run, err := application.Pipeline.RunMaintenanceStandalone(application.Context())
		if err != nil {
			return fmt.Errorf("running maintenance pass: %w", err)
		}
		logger.Info().Str("run_id", run.ID).Str("status", run.Status).Msg("maintenance pass finished")
		fmt.Println(run.ID)
		return nil
	},
}
