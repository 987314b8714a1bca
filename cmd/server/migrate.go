package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/config"
	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/storage/sqlite"
	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/pkg/logging"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|status|version]",
		Short:     "Apply or inspect database migrations",
		Long:      "Runs a goose command against the embedded SQLite migrations. Defaults to up.",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "status", "version"},
		RunE: func(cmd *cobra.Command, args []string) error {
			command := "up"
			if len(args) == 1 {
				command = args[0]
			}

			// Migrations need only the database, not a full server config.
			dbPath := config.GetEnv("DB_PATH", config.DefaultDBPath)
			if cmd.Flags().Changed(flagDB) {
				dbPath, _ = cmd.Flags().GetString(flagDB)
			}
			level := config.GetEnv("LOG_LEVEL", "info")
			if cmd.Flags().Changed(flagLogLevel) {
				level, _ = cmd.Flags().GetString(flagLogLevel)
			}
			logger := logging.Setup(level)

			db, err := sqlite.Open(dbPath)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := sqlite.Migrate(db, command); err != nil {
				return fmt.Errorf("migrate %s: %w", command, err)
			}
			logger.Info("Migration finished", "command", command, "database", dbPath)
			return nil
		},
	}
}
