package main

import (
	"fmt"

	"github.com/erp/invoicing/internal/infrastructure/config"
	"github.com/erp/invoicing/internal/infrastructure/logger"
	"github.com/erp/invoicing/internal/infrastructure/persistence"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "1.0.0"

// cli carries what subcommands share once the root pre-run has loaded it
type cli struct {
	cfg      *config.Config
	log      *zap.Logger
	logLevel string
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "invoicectl",
		Short: "Operate the invoicing service",
		Long: `invoicectl manages the invoicing database and payment reconciliation.

Configuration is read the same way as the server: an optional .env file,
config.toml, then INV_* environment variables.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.log != nil {
				_ = c.log.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "Log level (debug, info, warn, error); defaults to log.level")

	root.AddCommand(
		newMigrateCmd(c),
		newReconcileCmd(c),
		newEnqueueCmd(c),
		newOutboxCmd(c),
		newDueDateCmd(c),
		newCountersCmd(c),
		newTokenCmd(c),
	)
	return root
}

func (c *cli) init() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	c.cfg = cfg

	level := cfg.Log.Level
	if c.logLevel != "" {
		level = c.logLevel
	}
	log, err := logger.New(&logger.Config{
		Level:      level,
		Format:     "console",
		Output:     "stderr",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	c.log = log
	return nil
}

// openDatabase connects with the server's pool settings
func (c *cli) openDatabase() (*persistence.Database, error) {
	gormLog := logger.NewGormLogger(c.log, logger.MapGormLogLevel(c.cfg.Log.SQLLevel))
	db, err := persistence.NewDatabase(&c.cfg.Database, gormLog)
	if err != nil {
		return nil, err
	}
	return db, nil
}
