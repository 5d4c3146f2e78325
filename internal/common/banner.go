package common

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/banner"
)

// PrintBanner displays the application startup banner.
func PrintBanner(config *Config, logger arbor.ILogger) {
	version := GetVersion()
	serviceURL := fmt.Sprintf("http://%s:%d", config.Server.Host, config.Server.Port)

	b := banner.New().
		SetStyle(banner.StyleDouble).
		SetBorderColor(banner.ColorGreen).
		SetTextColor(banner.ColorWhite).
		SetBold(true).
		SetWidth(80)

	fmt.Printf("\n")
	b.PrintTopLine()
	b.PrintCenteredText("ATSFORGE")
	b.PrintCenteredText("Job Discovery and Ingestion Pipeline")
	b.PrintSeparatorLine()
	b.PrintKeyValue("Version", version, 15)
	b.PrintKeyValue("Environment", config.Environment, 15)
	b.PrintKeyValue("Admin URL", serviceURL, 15)
	b.PrintBottomLine()
	fmt.Printf("\n")

	logger.Info().
		Str("version", version).
		Str("environment", config.Environment).
		Str("admin_url", serviceURL).
		Msg("atsforge started")

	printCapabilities(config, logger)
	fmt.Printf("\n")
}

// printCapabilities reports which optional collaborators are configured.
func printCapabilities(config *Config, logger arbor.ILogger) {
	fmt.Printf("Enabled capabilities:\n")
	fmt.Printf("   - SQLite store with brute-force cosine vector search: %s\n", config.Storage.SQLite.Path)
	fmt.Printf("   - Badger dedup cache: %s\n", config.Storage.Badger.Dir)

	if config.LLM.APIKey != "" {
		fmt.Printf("   - LLM extraction fallback (%s)\n", config.LLM.Model)
	} else {
		fmt.Printf("   - LLM extraction fallback disabled (no API key configured)\n")
	}

	if config.Render.Enabled {
		fmt.Printf("   - JS-rendering path enabled (pool size %d)\n", config.Render.PoolSize)
	}

	if config.Discovery.GitHubToken != "" {
		fmt.Printf("   - GitHub orgs discovery source enabled\n")
	}

	logger.Info().
		Bool("llm_enabled", config.LLM.APIKey != "").
		Bool("render_enabled", config.Render.Enabled).
		Bool("github_discovery_enabled", config.Discovery.GitHubToken != "").
		Bool("us_only", config.Discovery.USOnly).
		Msg("capabilities configured")
}

// PrintShutdownBanner displays the application shutdown banner.
func PrintShutdownBanner(logger arbor.ILogger) {
	b := banner.New().
		SetStyle(banner.StyleDouble).
		SetBorderColor(banner.ColorGreen).
		SetTextColor(banner.ColorWhite).
		SetBold(true).
		SetWidth(42)

	b.PrintTopLine()
	b.PrintCenteredText("SHUTTING DOWN")
	b.PrintCenteredText("ATSFORGE")
	b.PrintBottomLine()
	fmt.Println()

	logger.Info().Msg("atsforge shutting down")
}

// PrintColorizedMessage prints a message with the given color and logs it.
func PrintColorizedMessage(color, message string, logger arbor.ILogger) {
	fmt.Printf("%s%s%s\n", color, message, banner.ColorReset)
}

func PrintSuccess(message string) {
	logger := GetLogger()
	PrintColorizedMessage(banner.ColorGreen, fmt.Sprintf("[ok] %s", message), logger)
	logger.Info().Str("type", "success").Msg(message)
}

func PrintError(message string) {
	logger := GetLogger()
	PrintColorizedMessage(banner.ColorRed, fmt.Sprintf("[error] %s", message), logger)
	logger.Error().Str("type", "error").Msg(message)
}

func PrintWarning(message string) {
	logger := GetLogger()
	PrintColorizedMessage(banner.ColorYellow, fmt.Sprintf("[warn] %s", message), logger)
	logger.Warn().Str("type", "warning").Msg(message)
}

func PrintInfo(message string) {
	logger := GetLogger()
	PrintColorizedMessage(banner.ColorCyan, fmt.Sprintf("[info] %s", message), logger)
	logger.Info().Str("type", "info").Msg(message)
}
