// Command coincious runs the Coincious expense tracker backend.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/TirthGandhi18/Coincious-Smart-Expense-Tracker-sub000/internal/config"
)

// flag names
const (
	flagDB       = "db"
	flagLogLevel = "log-level"
	flagPort     = "port"
	flagStatic   = "static"
)

var rootCmd = &cobra.Command{
	Use:   "coincious",
	Short: "Coincious - personal and group expense tracking backend",
	Long: `Coincious serves the expense tracker's REST API, realtime notifications and
recurring expense scheduler. Settings come from the environment (optionally a
.env file) and flags override them.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		config.LoadEnvFile()
	},
}

func init() {
	rootCmd.PersistentFlags().String(flagDB, "", "SQLite database path (env: DB_PATH)")
	rootCmd.PersistentFlags().String(flagLogLevel, "", "log level: debug, info, warn, error (env: LOG_LEVEL)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(recurringCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
