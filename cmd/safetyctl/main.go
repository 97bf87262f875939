package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mr1hm/safetywatch/internal/config"
	"github.com/mr1hm/safetywatch/internal/logging"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Fatal while loading config: %v", err)
	}

	if err := rootCommand(cfg).Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCommand(cfg *config.Config) *cobra.Command {
	root := &cobra.Command{
		Use:          "safetyctl",
		Short:        "Operate a safetywatch deployment",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Setup(cfg.Logging)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&cfg.DB.Driver, "db-driver", cfg.DB.Driver, "database driver (sqlite, postgres, mysql)")
	flags.StringVar(&cfg.DB.DSN, "database-url", cfg.DB.DSN, "database DSN or sqlite path")
	flags.StringVar(&cfg.Logging.Level, "log-level", cfg.Logging.Level, "log level (debug, info, warn, error)")

	root.AddCommand(
		seedCommand(cfg),
		resetCommand(cfg),
		chatIDCommand(cfg),
		watchCommand(cfg),
	)
	return root
}
