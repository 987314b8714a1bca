package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/models"
)

func recurringCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recurring",
		Short: "Manage recurring expenses",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Book every due recurring expense once and exit",
		Long:  "Runs one scheduler pass. Useful from cron when the server's own scheduler is not running.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			today := models.Today()
			n, err := a.svc.Recurring.RunDue(cmd.Context(), today)
			if err != nil {
				return err
			}
			a.logger.Info("Recurring pass finished", "date", today, "created", n)
			fmt.Fprintf(cmd.OutOrStdout(), "created %d recurring expense(s)\n", n)
			return nil
		},
	})
	return cmd
}
