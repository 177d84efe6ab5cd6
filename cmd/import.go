package cmd

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"sjsage522/sailingworker/internal/targets"
	"sjsage522/sailingworker/logger"
)

func init() {
	rootCmd.AddCommand(importCmd)
}

var importCmd = &cobra.Command{
	Use:   "import [path/to/targets.json5]",
	Short: "Imports landings, vessels and scrape targets from a targets file.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfg.TargetsFile
		if len(args) == 1 {
			path = args[0]
		}

		f, err := targets.ReadTargets(path)
		if err != nil {
			return err
		}

		s, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		sum, err := targets.Import(cmd.Context(), s, f)
		if err != nil {
			return err
		}
		logger.Default.Info().Str("file", path).Msg("targets imported")

		t := newTable()
		t.AppendHeader(table.Row{"Landings", "Vessels", "Targets"})
		t.AppendRow(table.Row{sum.Landings, sum.Vessels, sum.Targets})
		t.Render()
		return nil
	},
}
