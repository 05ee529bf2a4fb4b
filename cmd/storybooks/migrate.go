package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/joestump/storybooks/internal/config"
	"github.com/joestump/storybooks/internal/db"
	"github.com/joestump/storybooks/internal/logging"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadDatabase()
			if err != nil {
				return err
			}
			logging.Init(cfg.Log.Level, cfg.Log.Format)

			database, err := db.New(cfg.DB.Driver, cfg.DB.DSN)
			if err != nil {
				return err
			}
			defer func() { _ = database.Close() }()

			if err := db.Migrate(database, cfg.DB.Driver); err != nil {
				return err
			}

			slog.Info("migrations complete", "driver", cfg.DB.Driver)
			return nil
		},
	}
}
