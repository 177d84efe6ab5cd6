package cmd

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(discoverCmd)
}

var discoverCmd = &cobra.Command{
	Use:   "discover [<landing name> <url>]",
	Short: "Resolves the booking platform behind a landing page, or behind every active target.",
	Args:  cobra.RangeArgs(0, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		deps, err := initializeServices(ctx, cfg)
		if err != nil {
			return err
		}
		defer deps.Close()

		type query struct{ name, url string }
		var queries []query
		switch len(args) {
		case 2:
			queries = append(queries, query{args[0], args[1]})
		case 1:
			queries = append(queries, query{args[0], args[0]})
		default:
			active, err := deps.Store.ActiveTargets(ctx)
			if err != nil {
				return err
			}
			for _, t := range active {
				name := t.URL
				if l, err := deps.Store.Landing(ctx, t.LandingID); err == nil {
					name = l.Name
				}
				queries = append(queries, query{name, t.URL})
			}
		}

		t := newTable()
		t.AppendHeader(table.Row{"Landing", "Start URL", "Platform", "Booking URL", "Method"})
		for _, q := range queries {
			res, err := deps.Discoverer.Discover(ctx, q.name, q.url)
			if err != nil {
				t.AppendRow(table.Row{q.name, q.url, "-", err.Error(), "-"})
				continue
			}
			t.AppendRow(table.Row{q.name, q.url, res.Platform, res.URL, res.Method})
		}
		t.Render()
		return nil
	},
}
