// Package cmd implements the inboxdigest command line.
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/nhle/inboxdigest/internal/model"
)

// globalFlags holds the persistent flags shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
	logFormat  string
}

var flags globalFlags

// rootCmd is the base command for the inboxdigest application.
var rootCmd = &cobra.Command{
	Use:   "inboxdigest",
	Short: "Summarizes the newest messages of an IMAP folder",
	Long: `inboxdigest reads the most recent messages of one IMAP folder, decodes
them, and asks an AI answering service to summarize each one.

It can run as:
  - A one-shot CLI (fetch, ask, runs)
  - An HTTP service (serve)`,
	SilenceUsage: true,
}

var version = "dev"

// SetVersion sets the version reported by --version.
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "inboxdigest version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", model.DefaultConfigPath(), "path to the configuration file")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
	pf.StringVar(&flags.logFormat, "log-format", "", "log format: text or json (overrides config)")

	rootCmd.AddCommand(newFetchCmd())
	rootCmd.AddCommand(newAskCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newRunsCmd())
	rootCmd.AddCommand(newConfigureCmd())
}
