package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"sjsage522/sailingworker/logger"
)

var pruneRetention time.Duration

func init() {
	pruneCmd.Flags().DurationVar(&pruneRetention, "retention", -1, "How long finished trips are kept, overrides RETENTION_WINDOW.")
	rootCmd.AddCommand(pruneCmd)
}

var pruneCmd = &cobra.Command{
	Use:   "prune [--retention 72h]",
	Short: "Deletes trips that finished before the retention window.",
	RunE: func(cmd *cobra.Command, args []string) error {
		retention := cfg.RetentionWindow
		if pruneRetention >= 0 {
			retention = pruneRetention
		}

		s, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		cutoff := time.Now().Add(-retention)
		n, err := s.PruneTrips(cmd.Context(), cutoff)
		if err != nil {
			return err
		}
		logger.Default.Info().Int64("pruned", n).Time("cutoff", cutoff).Msg("trips pruned")
		return nil
	},
}
