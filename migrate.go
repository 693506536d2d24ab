package main

import (
	"context"

	"marketplace-svc/database"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newMigrateCmd(logger *zap.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(logger)
			if err != nil {
				return err
			}
			db, err := database.InitDB(cfg.DB, logger)
			if err != nil {
				return err
			}
			defer db.Close()
			return database.Migrate(context.Background(), db, logger)
		},
	}
}
