// Command ibanmanager runs the IBAN Manager API and its maintenance tasks.
package main

import (
	"os"

	"github.com/deppfellow/iban-manager/internal/config"
	"github.com/deppfellow/iban-manager/internal/logger"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	serve := newServeCmd()

	root := &cobra.Command{
		Use:          "ibanmanager",
		Short:        "Store, validate and search IBAN records",
		SilenceUsage: true,
		RunE:         serve.RunE,
	}

	root.AddCommand(serve, newMigrateCmd(), newValidateCmd())
	return root
}

// bootstrap loads the config and builds the logger. The returned
// LoggerService must be shut down to flush New Relic data.
func bootstrap() (*config.Config, *zerolog.Logger, *logger.LoggerService, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, nil, err
	}

	loggerService, err := logger.NewLoggerService(cfg.Observability)
	if err != nil {
		return nil, nil, nil, err
	}

	log := logger.NewLoggerWithService(cfg.Observability, loggerService)
	return cfg, &log, loggerService, nil
}
