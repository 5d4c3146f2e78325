package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ternarybob/atsforge/internal/app"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full Discovery -> Crawl -> Enrich -> Embed pipeline once",
	RunE:  runPipelineOnce,
}

func runPipelineOnce(cmd *cobra.Command, args []string) error {
	application, err := app.New(config, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer application.Close()

	run, err := application.Pipeline.RunFullPipeline(application.Context(), application.DiscoverySources)
	if err != nil {
		return fmt.Errorf("running full pipeline: %w", err)
	}
	logger.Info().Str("run_id", run.ID).Str("status", run.Status).Msg("full pipeline run finished")
	fmt.Println(run.ID)
	return nil
}
