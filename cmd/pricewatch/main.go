package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"go-pricewatch/cmd/pricewatch/commands"
	"go-pricewatch/internal/logger"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "pricewatch",
	Short: "pricewatch - spreadsheet exports for the price tracking data set",
	Long: `pricewatch - spreadsheet exports for the price tracking data set.

Available commands:
  serve   - Start the export HTTP API
  export  - Write an export workbook to a file
  types   - List export types and their filters
  runs    - Show recent export runs
  migrate - Apply database migrations

Settings come from pricewatch.toml, PRICEWATCH_* environment variables
and flags, in increasing precedence.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return commands.Setup(cmd, configFile)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Cleanup()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default ./pricewatch.toml or ~/.pricewatch/pricewatch.toml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().Bool("log-json", false, "Log as JSON")
	rootCmd.PersistentFlags().String("db-driver", "", "Database driver: sqlite3 or pgx")
	rootCmd.PersistentFlags().String("db-dsn", "", "Database DSN")

	rootCmd.AddCommand(commands.ServeCmd)
	rootCmd.AddCommand(commands.ExportCmd)
	rootCmd.AddCommand(commands.TypesCmd)
	rootCmd.AddCommand(commands.RunsCmd)
	rootCmd.AddCommand(commands.MigrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
