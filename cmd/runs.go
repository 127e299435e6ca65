package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nhle/inboxdigest/internal/model"
	"github.com/nhle/inboxdigest/internal/render"
	"github.com/nhle/inboxdigest/internal/store"
)

func newRunsCmd() *cobra.Command {
	var (
		limit   int
		outcome string
		asJSON  bool
		keep    int
	)

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show recent fetch runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			a, err := newApp(cfg, os.Stderr)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if keep > 0 {
				removed, err := a.store.PruneRuns(ctx, keep)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Pruned %d runs.\n", removed)
				return nil
			}

			filter := store.RunFilter{Limit: limit}
			if outcome != "" {
				o := model.RunOutcome(outcome)
				filter.Outcome = &o
			}

			runs, err := a.store.ListRuns(ctx, filter)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(runs)
			}
			return render.Runs(out, runs)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to show")
	cmd.Flags().StringVar(&outcome, "outcome", "", "only show runs with this outcome (ok, connection_error, folder_error)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print runs as JSON")
	cmd.Flags().IntVar(&keep, "prune-keep", 0, "delete all but the newest N runs instead of listing")

	return cmd
}
