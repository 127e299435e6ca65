package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nhle/inboxdigest/internal/render"
)

func newFetchCmd() *cobra.Command {
	var (
		asJSON bool
		width  int
	)

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch and summarize the newest messages",
		Long: `Fetch the newest messages of the configured folder, ask the answering
service to analyze each one, and print the results.

Exits non-zero when the mailbox or folder could not be read. The run is
recorded in the run log either way.`,
		Args: cobra.NoArgs,
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

			cycle, runErr := a.syncer.Run(cmd.Context())

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(cycle.Messages); err != nil {
					return fmt.Errorf("encoding messages: %w", err)
				}
			} else if err := render.Messages(out, cycle.Messages, cfg.AI.Locale, width); err != nil {
				return fmt.Errorf("rendering messages: %w", err)
			}

			if runErr != nil {
				return fmt.Errorf("fetch failed: %w", runErr)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print messages as JSON")
	cmd.Flags().IntVar(&width, "width", 0, "card width in columns (0 = unconstrained)")

	return cmd
}
