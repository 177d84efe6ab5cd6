package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"sjsage522/sailingworker/internal/models"
	"sjsage522/sailingworker/logger"
	"sjsage522/sailingworker/services/worker"
)

var (
	runLoop        bool
	runConcurrency int
)

func init() {
	runCmd.Flags().BoolVar(&runLoop, "loop", false, "Keep running a pass every RUN_INTERVAL until interrupted.")
	runCmd.Flags().IntVar(&runConcurrency, "concurrency", 0, "Targets processed at once, overrides MAX_CONCURRENCY.")
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run [--loop]",
	Short: "Runs an ingestion pass over every active scrape target.",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logger.Default
		if runConcurrency > 0 {
			cfg.MaxConcurrency = runConcurrency
		}

		// Set up signal handling
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		deps, err := initializeServices(ctx, cfg)
		if err != nil {
			return err
		}
		defer deps.Close()

		log.Info().
			Str("environment", cfg.Environment).
			Str("render_mode", cfg.RenderMode).
			Int("concurrency", cfg.MaxConcurrency).
			Dur("min_interval", cfg.RequestMinInterval).
			Msg("Starting sailing worker")

		w := worker.NewWorker(*deps, worker.Options{
			MaxConcurrency:  cfg.MaxConcurrency,
			RunTimeout:      cfg.RunTimeout,
			RunInterval:     cfg.RunInterval,
			RetentionWindow: cfg.RetentionWindow,
			DedupListings:   cfg.DedupListings,
		})

		if runLoop {
			err := w.Start(ctx)
			log.Info().Msg("Shutting down gracefully...")
			return err
		}

		report, err := w.RunOnce(ctx)
		if err != nil {
			return err
		}
		printReport(report)
		if report.TargetsProcessed > 0 && report.TargetsSucceeded == 0 {
			return fmt.Errorf("all %d targets failed", report.TargetsProcessed)
		}
		return nil
	},
}

func printReport(report *models.RunReport) {
	t := newTable()
	t.AppendHeader(table.Row{"URL", "Platform", "State", "Listings", "Upserted", "Duration"})
	for _, o := range report.Outcomes {
		t.AppendRow(table.Row{o.URL, o.Platform, o.State, o.Listings, o.TripsUpserted, o.Duration})
	}
	t.AppendFooter(table.Row{
		fmt.Sprintf("%d/%d succeeded", report.TargetsSucceeded, report.TargetsProcessed),
		"", "", "", report.TripsUpserted,
		fmt.Sprintf("%d pruned", report.TripsPruned),
	})
	t.Render()

	if len(report.Failures) == 0 {
		return
	}
	f := newTable()
	f.AppendHeader(table.Row{"URL", "Type", "Reason"})
	for _, fail := range report.Failures {
		f.AppendRow(table.Row{fail.URL, fail.Type, fail.Reason})
	}
	f.Render()
}
