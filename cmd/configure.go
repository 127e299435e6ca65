package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/99designs/keyring"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/nhle/inboxdigest/internal/credential"
	"github.com/nhle/inboxdigest/internal/model"
)

// configureForm holds the values edited by the configure form.
type configureForm struct {
	host     string
	port     string
	username string
	password string
	tls      bool
	folder   string
	window   string

	provider string
	aiModel  string
	apiKey   string
	locale   string
}

func newConfigureForm(cfg *model.AppConfig) *configureForm {
	return &configureForm{
		host:     cfg.Mailbox.Host,
		port:     strconv.Itoa(cfg.Mailbox.Port),
		username: cfg.Mailbox.Username,
		tls:      cfg.Mailbox.TLS,
		folder:   cfg.Mailbox.Folder,
		window:   strconv.Itoa(cfg.Mailbox.Window),
		provider: cfg.AI.Provider,
		aiModel:  cfg.AI.Model,
		locale:   cfg.AI.Locale,
	}
}

func (f *configureForm) build() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("IMAP Host").
				Description("IMAP server hostname").
				Placeholder("imap.example.com").
				Value(&f.host).
				Validate(validateRequired("IMAP Host")),
			huh.NewInput().
				Title("IMAP Port").
				Description("IMAP server port (e.g., 993)").
				Placeholder("993").
				Value(&f.port).
				Validate(validatePort),
			huh.NewInput().
				Title("Username").
				Description("Email account username").
				Placeholder("user@example.com").
				Value(&f.username).
				Validate(validateRequired("Username")),
			huh.NewInput().
				Title("Password").
				Description("Leave empty to keep the stored password").
				EchoMode(huh.EchoModePassword).
				Value(&f.password),
			huh.NewConfirm().
				Title("Use TLS").
				Description("Connect with implicit TLS instead of STARTTLS").
				Affirmative("Yes").
				Negative("No").
				Value(&f.tls),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Folder").
				Description("Folder to summarize").
				Placeholder("INBOX").
				Value(&f.folder).
				Validate(validateRequired("Folder")),
			huh.NewInput().
				Title("Window").
				Description("Number of newest messages per fetch").
				Placeholder("10").
				Value(&f.window).
				Validate(validateWindow),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Answering service").
				Options(
					huh.NewOption("Anthropic Messages API", "anthropic"),
					huh.NewOption("OpenAI-compatible chat completions", "openai"),
				).
				Value(&f.provider),
			huh.NewInput().
				Title("Model").
				Value(&f.aiModel).
				Validate(validateRequired("Model")),
			huh.NewInput().
				Title("API Key").
				Description("Leave empty to keep the stored key").
				EchoMode(huh.EchoModePassword).
				Value(&f.apiKey),
			huh.NewSelect[string]().
				Title("Language").
				Options(
					huh.NewOption("English", "en"),
					huh.NewOption("Русский", "ru"),
				).
				Value(&f.locale),
		),
	)
}

// apply copies the form values into cfg. Secrets are returned separately
// so they go to the keyring rather than the file.
func (f *configureForm) apply(cfg *model.AppConfig) (password, apiKey string, err error) {
	port, err := strconv.Atoi(strings.TrimSpace(f.port))
	if err != nil {
		return "", "", fmt.Errorf("invalid port %q: %w", f.port, err)
	}
	window, err := strconv.Atoi(strings.TrimSpace(f.window))
	if err != nil {
		return "", "", fmt.Errorf("invalid window %q: %w", f.window, err)
	}

	cfg.Mailbox.Host = strings.TrimSpace(f.host)
	cfg.Mailbox.Port = port
	cfg.Mailbox.Username = strings.TrimSpace(f.username)
	cfg.Mailbox.TLS = f.tls
	cfg.Mailbox.Folder = strings.TrimSpace(f.folder)
	cfg.Mailbox.Window = window
	cfg.AI.Provider = f.provider
	cfg.AI.Model = strings.TrimSpace(f.aiModel)
	cfg.AI.Locale = f.locale

	return f.password, f.apiKey, nil
}

func newConfigureCmd() *cobra.Command {
	var forget bool

	cmd := &cobra.Command{
		Use:   "configure",
		Short: "Interactively edit the configuration",
		Long: `Edit the configuration file interactively. The mailbox password and the
API key are stored in the system keyring, never in the file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if forget {
				return forgetSecrets(cmd)
			}

			cfg, err := model.LoadConfig(flags.configPath)
			if err != nil {
				return err
			}

			form := newConfigureForm(cfg)
			if err := form.build().Run(); err != nil {
				return fmt.Errorf("running form: %w", err)
			}

			password, apiKey, err := form.apply(cfg)
			if err != nil {
				return err
			}

			if password != "" {
				if err := credential.Set(credential.KeyMailboxPassword, password); err != nil {
					return err
				}
			}
			if apiKey != "" {
				if err := credential.Set(credential.KeyAIAPIKey, apiKey); err != nil {
					return err
				}
			}

			if err := model.SaveConfig(flags.configPath, cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved configuration to %s\n", flags.configPath)
			return nil
		},
	}

	cmd.Flags().BoolVar(&forget, "forget-secrets", false, "remove the stored password and API key from the keyring")

	return cmd
}

func forgetSecrets(cmd *cobra.Command) error {
	for _, key := range []string{credential.KeyMailboxPassword, credential.KeyAIAPIKey} {
		if err := credential.Delete(key); err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
			return err
		}
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Removed stored secrets.")
	return nil
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validatePort(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("port is required")
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("port must be a number")
	}
	if n < 1 || n > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	return nil
}

func validateWindow(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("window must be a number")
	}
	if n < 1 {
		return fmt.Errorf("window must be at least 1")
	}
	return nil
}
