package cli

import (
	"os"

	"github.com/spf13/cobra"
	"quiz-engine/internal/config"
)

var (
	port       string
	configPath string
	dataDir    string
)

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	envConfig := os.Getenv("CONFIG_PATH")
	if envConfig == "" {
		envConfig = "config/config.yaml"
	}

	cmd := &cobra.Command{
		Use:          "quiz-engine",
		Short:        "Timed multiple-choice quiz engine with progress, leaderboard and achievements",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", envConfig, "path to YAML config")
	cmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "directory for progress, leaderboard and achievement files")
	cmd.AddCommand(NewStartCmd(&configPath, &port))
	cmd.AddCommand(NewMigrateCmd(&configPath))
	cmd.AddCommand(NewPlayCmd(&configPath))
	cmd.AddCommand(NewStatsCmd(&configPath))
	cmd.AddCommand(NewResetCmd(&configPath))
	return cmd
}

// loadConfig reads the config and applies persistent flag overrides.
func loadConfig(path string) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	if dataDir != "" {
		cfg.Storage.DataDir = dataDir
	}
	return cfg, nil
}
