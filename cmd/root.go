package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"sjsage522/sailingworker/config"
	"sjsage522/sailingworker/logger"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:           "sailingworker",
	Short:         "sailingworker ingests charter boat sailings from landing booking pages.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize logger first
		logger.Init()

		cfg = config.LoadConfig()
		if db, _ := cmd.Flags().GetString("db"); db != "" {
			cfg.DatabaseURL = db
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Store URL (postgres://... or sqlite:path), overrides DATABASE_URL.")
}

// ExecuteContext runs the command line, exiting non-zero on error
func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}
