package main

import (
	"fmt"
	"os"

	"github.com/ternarybob/arbor"
	"github.com/spf13/cobra"

	"github.com/ternarybob/atsforge/internal/common"
)

var (
	configFile string
	portFlag   int
	hostFlag   string

	config *common.Config
	logger arbor.ILogger
)

var rootCmd = &cobra.Command{
	Use:   "atsforge",
	Short: "Job-discovery and ATS-ingestion pipeline",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfigAndLogger()
	},
}

func main() {
	common.InstallCrashHandler("logs")
	defer common.RecoverWithCrashFile()

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "configuration file path")
	rootCmd.PersistentFlags().IntVarP(&portFlag, "port", "p", 0, "server port (overrides config)")
	rootCmd.PersistentFlags().StringVar(&hostFlag, "host", "", "server host (overrides config)")

	rootCmd.AddCommand(versionCmd, serveCmd, runCmd, discoverCmd, crawlCmd, enrichCmd, maintainCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initConfigAndLogger loads configuration and stands up the arbor logger,
// shared by every subcommand via the package-level config/logger vars.
func initConfigAndLogger() error {
	path := configFile
	if path == "" {
		if _, err := os.Stat("atsforge.toml"); err == nil {
			path = "atsforge.toml"
		} else if _, err := os.Stat("deployments/local/atsforge.toml"); err == nil {
			path = "deployments/local/atsforge.toml"
		}
	}

	var err error
	if path == "" {
		config = common.DefaultConfig()
	} else {
		config, err = common.LoadConfig(path)
		if err != nil {
			return fmt.Errorf("loading config %s: %w", path, err)
		}
	}

	if portFlag != 0 {
		config.Server.Port = portFlag
	}
	if hostFlag != "" {
		config.Server.Host = hostFlag
	}

	logger = common.SetupLogger(config)
	common.PrintBanner(config, logger)

	return nil
}
